package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/investplatform/internal/model"
	"github.com/mmeshcher/investplatform/internal/repository"
)

// Понедельник.
var monday = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	svc  *Service
	repo *repository.MemoryRepository
	bank *model.Bank

	now  time.Time
	draw float64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := repository.NewMemoryRepository()
	env := &testEnv{repo: repo, now: monday}

	env.svc = NewService(repo, Settings{
		Location:         time.UTC,
		ReferralBonus:    model.Units(100),
		MinWithdrawal:    model.Units(1500),
		WithdrawalTax:    model.Rate(500),
		WheelDailySpins:  1,
		InviteCodeLength: 10,
		SkipWeekends:     true,
	}, zap.NewNop())
	env.svc.now = func() time.Time { return env.now }
	env.svc.draw = func(float64) float64 { return env.draw }
	env.svc.passwordCost = bcrypt.MinCost

	bank, err := env.svc.CreateBank(context.Background(), model.Bank{
		Name:        "BAI",
		AccountName: "Invest Platform",
		IBAN:        "GB82 WEST 1234 5698 7654 32",
		IsActive:    true,
	})
	require.NoError(t, err)
	env.bank = bank

	return env
}

func (e *testEnv) register(t *testing.T, phone, code string) *model.Account {
	t.Helper()
	reg, err := e.svc.Register(context.Background(), phone, "secret123", code)
	require.NoError(t, err)
	return reg.Account
}

func (e *testEnv) fund(t *testing.T, accountID int64, amount model.Amount) {
	t.Helper()
	ctx := context.Background()
	d, err := e.svc.CreateDeposit(ctx, accountID, e.bank.ID, amount, nil)
	require.NoError(t, err)
	_, err = e.svc.ApproveDeposit(ctx, d.ID)
	require.NoError(t, err)
}

func (e *testEnv) account(t *testing.T, id int64) *model.Account {
	t.Helper()
	acc, err := e.svc.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return acc
}

func (e *testEnv) product(t *testing.T, name string, order int, stake, daily int64, days int) *model.Product {
	t.Helper()
	p, err := e.svc.CreateProduct(context.Background(), model.Product{
		LevelName:        name,
		MinDepositAmount: model.Units(stake),
		DailyIncome:      model.Units(daily),
		DurationDays:     days,
		Order:            order,
		IsActive:         true,
	})
	require.NoError(t, err)
	return p
}

func TestRegister_ReferralBonus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	referrer := env.register(t, "923456789", "")
	require.Len(t, referrer.InvitationCode, 10)
	assert.Regexp(t, `^[A-Z0-9]{10}$`, referrer.InvitationCode)

	reg, err := env.svc.Register(ctx, "+244 931 111 222", "secret123", " "+referrer.InvitationCode+" ")
	require.NoError(t, err)
	assert.NoError(t, reg.InviteCodeErr)
	require.NotNil(t, reg.Account.InvitedByCode)
	assert.Equal(t, referrer.InvitationCode, *reg.Account.InvitedByCode)
	assert.Equal(t, "931111222", reg.Account.Phone)

	got := env.account(t, referrer.ID)
	assert.Equal(t, model.Units(100), got.BonusBalance)
	assert.Equal(t, model.Units(100), got.ReferralIncome)
	assert.Equal(t, model.Amount(0), got.Balance)

	invited := env.account(t, reg.Account.ID)
	assert.Equal(t, model.Amount(0), invited.BonusBalance)

	entries, err := env.svc.Transactions(ctx, referrer.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.EntryReferralBonus, entries[0].Kind)
	assert.Equal(t, model.WalletBonus, entries[0].Wallet)

	team, err := env.svc.Team(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, team.TotalInvited)
	assert.Equal(t, "931***222", team.Members[0].Phone)
}

func TestRegister_WithoutInviteCodeTouchesNobody(t *testing.T) {
	env := newTestEnv(t)

	first := env.register(t, "923456789", "")
	env.register(t, "923456780", "")

	got := env.account(t, first.ID)
	assert.Equal(t, model.Amount(0), got.BonusBalance)
	assert.Equal(t, model.Amount(0), got.ReferralIncome)
}

func TestRegister_UnknownInviteCodeIsNotFatal(t *testing.T) {
	env := newTestEnv(t)

	reg, err := env.svc.Register(context.Background(), "923456789", "secret123", "NOSUCHCODE")
	require.NoError(t, err)
	assert.ErrorIs(t, reg.InviteCodeErr, ErrInvalidInviteCode)
	assert.Nil(t, reg.Account.InvitedByCode)
}

func TestRegister_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "923456789", "")

	tests := []struct {
		name     string
		phone    string
		password string
		wantErr  error
	}{
		{name: "duplicate in another format", phone: "+244 923-456-789", password: "secret123", wantErr: ErrDuplicate},
		{name: "invalid phone", phone: "12345", password: "secret123", wantErr: ErrInvalidPhone},
		{name: "foreign prefix", phone: "+7 923456789", password: "secret123", wantErr: ErrInvalidPhone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Register(ctx, tt.phone, tt.password, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	for _, password := range []string{"123", strings.Repeat("a", 73)} {
		_, err := env.svc.Register(ctx, "923000000", password, "")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "password of %d bytes", len(password))
		assert.Equal(t, "password", verr.Field)
	}
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "923456789", "")

	id, err := env.svc.Authenticate(ctx, "0923456789", "secret123")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, id)

	_, err = env.svc.Authenticate(ctx, "923456789", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.svc.Authenticate(ctx, "923000000", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = env.svc.ChangePassword(ctx, acc.ID, "secret123", strings.Repeat("a", 100))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "new_password", verr.Field)

	require.NoError(t, env.svc.ChangePassword(ctx, acc.ID, "secret123", "newsecret"))
	_, err = env.svc.Authenticate(ctx, "923456789", "newsecret")
	assert.NoError(t, err)
}

func TestUpdateProfile_RegistersBankAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "923456789", "")
	other := env.register(t, "923456780", "")

	_, err := env.svc.UpdateProfile(ctx, model.Profile{
		AccountID: acc.ID,
		FullName:  "Ana Silva",
		BankName:  "BFA",
		IBAN:      "de89 3704 0044 0532 0130 00",
	})
	require.NoError(t, err)

	accounts, err := env.svc.ListBankAccounts(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "DE89370400440532013000", accounts[0].IBAN)

	// Повторное сохранение того же IBAN не создаёт второй счёт.
	_, err = env.svc.UpdateProfile(ctx, model.Profile{AccountID: acc.ID, IBAN: "DE89370400440532013000"})
	require.NoError(t, err)

	_, err = env.svc.UpdateProfile(ctx, model.Profile{AccountID: other.ID, IBAN: "DE89370400440532013000"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = env.svc.UpdateProfile(ctx, model.Profile{AccountID: acc.ID, IBAN: "DE00370400440532013000"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDeposit_ApproveTwiceCreditsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "923456789", "")

	d, err := env.svc.CreateDeposit(ctx, acc.ID, env.bank.ID, model.Units(500), nil)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, d.Status)
	assert.Equal(t, model.Amount(0), env.account(t, acc.ID).Balance)

	approved, err := env.svc.ApproveDeposit(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, approved.Status)
	assert.NotNil(t, approved.DecidedAt)

	_, err = env.svc.ApproveDeposit(ctx, d.ID)
	assert.ErrorIs(t, err, ErrNotPending)
	_, err = env.svc.RejectDeposit(ctx, d.ID)
	assert.ErrorIs(t, err, ErrNotPending)

	assert.Equal(t, model.Units(500), env.account(t, acc.ID).Balance)
}

func TestDeposit_RejectKeepsBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "923456789", "")

	d, err := env.svc.CreateDeposit(ctx, acc.ID, env.bank.ID, model.Units(500), nil)
	require.NoError(t, err)

	rejected, err := env.svc.RejectDeposit(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusRejected, rejected.Status)
	assert.Equal(t, model.Amount(0), env.account(t, acc.ID).Balance)

	pending, err := env.svc.PendingDeposits(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDeposit_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "923456789", "")

	_, err := env.svc.CreateDeposit(ctx, acc.ID, env.bank.ID, 0, nil)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = env.svc.CreateDeposit(ctx, acc.ID, env.bank.ID+100, model.Units(10), nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.svc.ApproveDeposit(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.svc.CreateDeposit(ctx, acc.ID, env.bank.ID, model.Units(10), &Proof{Filename: "a.png"})
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "proof", verr.Field)
}

type recordingProofStore struct {
	saved []string
}

func (p *recordingProofStore) SaveDepositProof(_ context.Context, accountID int64, filename string, body io.Reader) (string, error) {
	key := fmt.Sprintf("deposit-proofs/%d/%s", accountID, filename)
	p.saved = append(p.saved, key)
	return key, nil
}

func TestDeposit_BankMustBeActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "923456789", "")
	proofs := &recordingProofStore{}
	env.svc.SetProofStore(proofs)

	closed, err := env.svc.CreateBank(ctx, model.Bank{
		Name:        "BPC",
		AccountName: "Invest Platform",
		IBAN:        "DE89 3704 0044 0532 0130 00",
		IsActive:    false,
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		bankID int64
		proof  *Proof
	}{
		{name: "inactive bank", bankID: closed.ID},
		{name: "unknown bank", bankID: env.bank.ID + 100},
		{name: "inactive bank with proof", bankID: closed.ID, proof: &Proof{Filename: "a.png", Body: strings.NewReader("png")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.CreateDeposit(ctx, acc.ID, tt.bankID, model.Units(10), tt.proof)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
	assert.Empty(t, proofs.saved)

	deposits, err := env.svc.ListDeposits(ctx, acc.ID)
	require.NoError(t, err)
	assert.Empty(t, deposits)

	d, err := env.svc.CreateDeposit(ctx, acc.ID, env.bank.ID, model.Units(10), &Proof{Filename: "b.png", Body: strings.NewReader("png")})
	require.NoError(t, err)
	require.NotNil(t, d.ProofKey)
	assert.Equal(t, []string{*d.ProofKey}, proofs.saved)
}

func TestWithdrawal_HoldAndRefund(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "923456789", "")
	env.fund(t, acc.ID, model.Units(2000))

	ba, err := env.svc.AddBankAccount(ctx, model.BankAccount{
		AccountID:   acc.ID,
		BankName:    "BFA",
		AccountName: "Ana Silva",
		IBAN:        "GB29 NWBK 6016 1331 9268 19",
	})
	require.NoError(t, err)

	w, err := env.svc.CreateWithdrawal(ctx, acc.ID, ba.ID, model.Units(1500))
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, w.Status)
	assert.Equal(t, model.Rate(500), w.TaxRate)
	assert.Equal(t, model.Units(1425), w.AmountReceived)
	assert.Equal(t, model.Units(500), env.account(t, acc.ID).Balance)

	_, err = env.svc.RejectWithdrawal(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Units(2000), env.account(t, acc.ID).Balance)

	_, err = env.svc.RejectWithdrawal(ctx, w.ID)
	assert.ErrorIs(t, err, ErrNotPending)
	assert.Equal(t, model.Units(2000), env.account(t, acc.ID).Balance)

	w2, err := env.svc.CreateWithdrawal(ctx, acc.ID, ba.ID, model.Units(1600))
	require.NoError(t, err)
	approved, err := env.svc.ApproveWithdrawal(ctx, w2.ID)
	require.NoError(t, err)
	assert.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, model.Units(400), env.account(t, acc.ID).Balance)
}

func TestWithdrawal_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "923456789", "")
	other := env.register(t, "923456780", "")
	env.fund(t, acc.ID, model.Units(1000))

	ba, err := env.svc.AddBankAccount(ctx, model.BankAccount{
		AccountID:   acc.ID,
		BankName:    "BFA",
		AccountName: "Ana Silva",
		IBAN:        "GB29NWBK60161331926819",
	})
	require.NoError(t, err)

	_, err = env.svc.CreateWithdrawal(ctx, acc.ID, ba.ID, model.Units(1499))
	assert.ErrorIs(t, err, ErrBelowMinimumAmount)

	_, err = env.svc.CreateWithdrawal(ctx, acc.ID, ba.ID, model.Units(1500))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = env.svc.CreateWithdrawal(ctx, other.ID, ba.ID, model.Units(1500))
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, model.Units(1000), env.account(t, acc.ID).Balance)

	list, err := env.svc.ListWithdrawals(ctx, acc.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestActivateProduct_UpgradeOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "923456789", "")
	bronze := env.product(t, "Bronze", 1, 1000, 10, 30)
	silver := env.product(t, "Silver", 2, 2000, 25, 30)
	gold := env.product(t, "Gold", 3, 4000, 60, 30)

	_, err := env.svc.ActivateProduct(ctx, acc.ID, silver.ID)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	env.fund(t, acc.ID, model.Units(7000))

	task, err := env.svc.ActivateProduct(ctx, acc.ID, silver.ID)
	require.NoError(t, err)
	assert.Equal(t, silver.ID, task.ProductID)
	require.NotNil(t, task.LastIncomeDate)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), *task.LastIncomeDate)

	got := env.account(t, acc.ID)
	assert.Equal(t, model.Units(5000), got.Balance)
	require.NotNil(t, got.CurrentProductID)
	assert.Equal(t, silver.ID, *got.CurrentProductID)

	_, err = env.svc.ActivateProduct(ctx, acc.ID, bronze.ID)
	assert.ErrorIs(t, err, ErrNotAnUpgrade)
	_, err = env.svc.ActivateProduct(ctx, acc.ID, silver.ID)
	assert.ErrorIs(t, err, ErrNotAnUpgrade)
	assert.Equal(t, model.Units(5000), env.account(t, acc.ID).Balance)

	_, err = env.svc.ActivateProduct(ctx, acc.ID, gold.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Units(1000), env.account(t, acc.ID).Balance)

	overview, err := env.svc.Tasks(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, overview.Tasks, 2)
	active := 0
	for _, tp := range overview.Tasks {
		if !tp.IsCompleted {
			active++
			assert.Equal(t, gold.ID, tp.ProductID)
			assert.Equal(t, 30, tp.DaysRemaining)
		}
	}
	assert.Equal(t, 1, active)
}

func TestAccruePendingIncome_Calendar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "923456789", "")
	bronze := env.product(t, "Bronze", 1, 1000, 10, 7)
	env.fund(t, acc.ID, model.Units(1000))

	_, err := env.svc.ActivateProduct(ctx, acc.ID, bronze.ID)
	require.NoError(t, err)

	// В день активации доход не начисляется.
	events, err := env.svc.AccruePendingIncome(ctx, acc.ID)
	require.NoError(t, err)
	assert.Empty(t, events)

	env.now = monday.AddDate(0, 0, 1)
	events, err = env.svc.AccruePendingIncome(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.AccrualCredited, events[0].Kind)
	assert.Equal(t, model.Units(10), events[0].Amount)
	assert.Equal(t, model.Units(10), env.account(t, acc.ID).Balance)

	// Повторный вызов в тот же день ничего не начисляет.
	events, err = env.svc.AccruePendingIncome(ctx, acc.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, model.Units(10), env.account(t, acc.ID).Balance)

	// Суббота: начисления нет, курсор остаётся на вторнике.
	env.now = monday.AddDate(0, 0, 5)
	events, err = env.svc.AccruePendingIncome(ctx, acc.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
	tasks, err := env.repo.ListTasks(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].LastIncomeDate)
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), *tasks[0].LastIncomeDate)

	// Следующий понедельник: срок истёк, задача завершается без начисления.
	env.now = monday.AddDate(0, 0, 7)
	events, err = env.svc.AccruePendingIncome(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.AccrualCompleted, events[0].Kind)

	got := env.account(t, acc.ID)
	assert.Equal(t, model.Units(10), got.Balance)
	assert.Nil(t, got.CurrentProductID)
	assert.Nil(t, got.LevelActivationDate)

	summary, err := env.svc.Income(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Units(10), summary.TotalIncome)
	assert.Nil(t, summary.CurrentProduct)
}

func TestAccruePendingIncome_MaturityKeepsReplacedProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "923456789", "")
	bronze := env.product(t, "Bronze", 1, 100, 5, 7)
	silver := env.product(t, "Silver", 2, 200, 12, 30)
	env.fund(t, acc.ID, model.Units(100))

	task, err := env.svc.ActivateProduct(ctx, acc.ID, bronze.ID)
	require.NoError(t, err)

	// Текущий уровень сменился, а задача Bronze осталась открытой.
	silverSince := monday.AddDate(0, 0, 2)
	require.NoError(t, env.repo.WithinTx(ctx, func(tx repository.Tx) error {
		a, err := tx.GetAccountForUpdate(ctx, acc.ID)
		if err != nil {
			return err
		}
		a.CurrentProductID = &silver.ID
		a.LevelActivationDate = &silverSince
		return tx.UpdateAccount(ctx, a)
	}))

	env.now = monday.AddDate(0, 0, 7)
	events, err := env.svc.AccruePendingIncome(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.AccrualCompleted, events[0].Kind)
	assert.Equal(t, task.ID, events[0].TaskID)

	tasks, err := env.repo.ListTasks(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].IsCompleted)
	require.NotNil(t, tasks[0].CompletionDate)

	got := env.account(t, acc.ID)
	require.NotNil(t, got.CurrentProductID)
	assert.Equal(t, silver.ID, *got.CurrentProductID)
	require.NotNil(t, got.LevelActivationDate)
	assert.True(t, silverSince.Equal(*got.LevelActivationDate))
}

func TestAccrueAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bronze := env.product(t, "Bronze", 1, 100, 5, 30)

	for _, phone := range []string{"923456781", "923456782", "923456783"} {
		acc := env.register(t, phone, "")
		env.fund(t, acc.ID, model.Units(100))
		_, err := env.svc.ActivateProduct(ctx, acc.ID, bronze.ID)
		require.NoError(t, err)
	}
	idle := env.register(t, "923456784", "")

	env.now = monday.AddDate(0, 0, 1)
	n, err := env.svc.AccrueAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, model.Amount(0), env.account(t, idle.ID).Balance)

	n, err = env.svc.AccrueAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	total, err := env.repo.SumLedger(ctx, idle.ID, model.EntryDailyIncome)
	require.NoError(t, err)
	assert.Equal(t, model.Amount(0), total)
}

func TestSelectPrize(t *testing.T) {
	prizes := []model.Prize{
		{ID: 1, Name: "10 Kz", Weight: 10},
		{ID: 2, Name: "empty", Weight: 0},
		{ID: 3, Name: "50 Kz", Weight: 20},
		{ID: 4, Name: "nothing", Weight: 70},
	}
	require.Equal(t, 100, totalWeight(prizes))

	tests := []struct {
		draw float64
		want int64
	}{
		{draw: 0, want: 1},
		{draw: 10, want: 1},
		{draw: 10.01, want: 3},
		{draw: 15, want: 3},
		{draw: 30, want: 3},
		{draw: 30.5, want: 4},
		{draw: 99.99, want: 4},
	}
	for _, tt := range tests {
		got, ok := selectPrize(prizes, tt.draw)
		require.True(t, ok)
		assert.Equal(t, tt.want, got.ID, "draw %v", tt.draw)
	}

	_, ok := selectPrize([]model.Prize{{ID: 1, Weight: 0}}, 0)
	assert.False(t, ok)
}

func TestSpinWheel_QuotaAndReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "923456789", "")

	_, err := env.svc.SpinWheel(ctx, acc.ID)
	assert.ErrorIs(t, err, ErrNoPrizesConfigured)

	for _, p := range []model.Prize{
		{Name: "10 Kz", Value: model.Units(10), Weight: 10, IsActive: true},
		{Name: "50 Kz", Value: model.Units(50), Weight: 20, IsActive: true},
		{Name: "nothing", Weight: 70, IsActive: true},
	} {
		_, err := env.svc.CreatePrize(ctx, p)
		require.NoError(t, err)
	}

	status, err := env.svc.WheelStatus(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.SpinsRemaining)
	assert.Len(t, status.Prizes, 3)

	env.draw = 15
	spin, err := env.svc.SpinWheel(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "50 Kz", spin.PrizeName)
	assert.Equal(t, model.Units(50), env.account(t, acc.ID).Balance)

	_, err = env.svc.SpinWheel(ctx, acc.ID)
	assert.ErrorIs(t, err, ErrQuotaExhausted)

	status, err = env.svc.WheelStatus(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, status.SpinsRemaining)

	// После полуночи квота восстанавливается.
	env.now = monday.AddDate(0, 0, 1)
	env.draw = 80
	spin, err = env.svc.SpinWheel(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "nothing", spin.PrizeName)
	assert.Equal(t, model.Units(50), env.account(t, acc.ID).Balance)

	spins, err := env.svc.ListSpins(ctx, acc.ID)
	require.NoError(t, err)
	assert.Len(t, spins, 2)
}

func TestBalanceNeverNegative(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, "923456789", "")
	bronze := env.product(t, "Bronze", 1, 1000, 10, 30)
	env.fund(t, acc.ID, model.Units(999))

	_, err := env.svc.ActivateProduct(ctx, acc.ID, bronze.ID)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	got := env.account(t, acc.ID)
	assert.Equal(t, model.Units(999), got.Balance)
	assert.Nil(t, got.CurrentProductID)

	tasks, err := env.repo.ListTasks(ctx, acc.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
