package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/investplatform/internal/model"
)

// newTestPostgres подключается к БД из TEST_DATABASE_URI и очищает таблицы.
func newTestPostgres(t *testing.T) *PostgresRepository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URI")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URI is not set")
	}

	repo, err := NewPostgresRepository(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	_, err = repo.pool.Exec(context.Background(),
		`TRUNCATE ledger_entries, spins, prizes, withdrawals, bank_accounts, deposits, banks, tasks,
		 profiles, accounts, products RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return repo
}

func TestPostgresRepository_AccountLifecycle(t *testing.T) {
	repo := newTestPostgres(t)
	ctx := context.Background()

	var id int64
	err := repo.WithinTx(ctx, func(tx Tx) error {
		var err error
		id, err = tx.CreateAccount(ctx, &model.Account{
			Phone:               "923000001",
			PasswordHash:        []byte("hash"),
			InvitationCode:      "AAAAAAAAAA",
			DailySpinsRemaining: 1,
		})
		if err != nil {
			return err
		}
		return tx.UpsertProfile(ctx, model.Profile{AccountID: id})
	})
	require.NoError(t, err)

	err = repo.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.CreateAccount(ctx, &model.Account{Phone: "923000001", PasswordHash: []byte("x"), InvitationCode: "BBBBBBBBBB"})
		return err
	})
	assert.ErrorIs(t, err, ErrPhoneTaken)

	err = repo.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.CreateAccount(ctx, &model.Account{Phone: "923000002", PasswordHash: []byte("x"), InvitationCode: "AAAAAAAAAA"})
		return err
	})
	assert.ErrorIs(t, err, ErrInvitationCodeTaken)

	boom := errors.New("boom")
	err = repo.WithinTx(ctx, func(tx Tx) error {
		a, err := tx.GetAccountForUpdate(ctx, id)
		if err != nil {
			return err
		}
		a.Balance = model.Units(10)
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	a, err := repo.GetAccountByPhone(ctx, "923000001")
	require.NoError(t, err)
	assert.Equal(t, model.Amount(0), a.Balance)
	assert.Equal(t, 1, a.DailySpinsRemaining)

	profile, err := repo.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, profile.AccountID)
}

func TestPostgresRepository_TasksAndLedger(t *testing.T) {
	repo := newTestPostgres(t)
	ctx := context.Background()

	productID, err := repo.CreateProduct(ctx, &model.Product{
		LevelName:        "VIP1",
		MinDepositAmount: model.Units(5000),
		DailyIncome:      model.Units(250),
		DurationDays:     30,
		Order:            1,
		IsActive:         true,
	})
	require.NoError(t, err)

	today := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	var accountID int64
	err = repo.WithinTx(ctx, func(tx Tx) error {
		var err error
		accountID, err = tx.CreateAccount(ctx, &model.Account{Phone: "923000001", PasswordHash: []byte("x"), InvitationCode: "AAAAAAAAAA"})
		if err != nil {
			return err
		}
		if _, err := tx.CreateTask(ctx, &model.Task{AccountID: accountID, ProductID: productID, CreatedAt: time.Now(), LastIncomeDate: &today}); err != nil {
			return err
		}
		_, err = tx.CreateTask(ctx, &model.Task{AccountID: accountID, ProductID: productID, CreatedAt: time.Now()})
		return err
	})
	require.ErrorIs(t, err, ErrActiveTaskExists)

	err = repo.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.CreateTask(ctx, &model.Task{AccountID: accountID, ProductID: productID, CreatedAt: time.Now(), LastIncomeDate: &today}); err != nil {
			return err
		}
		tasks, err := tx.ListActiveTasksForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		require.Len(t, tasks, 1)
		assert.Equal(t, model.Units(250), tasks[0].Product.DailyIncome)
		require.NotNil(t, tasks[0].LastIncomeDate)
		assert.True(t, tasks[0].LastIncomeDate.Equal(today))

		return tx.AppendLedgerEntry(ctx, &model.LedgerEntry{
			AccountID:    accountID,
			Wallet:       model.WalletMain,
			Kind:         model.EntryDailyIncome,
			Amount:       model.Units(250),
			BalanceAfter: model.Units(250),
		})
	})
	require.NoError(t, err)

	total, err := repo.SumLedger(ctx, accountID, model.EntryDailyIncome)
	require.NoError(t, err)
	assert.Equal(t, model.Units(250), total)

	ids, err := repo.ListAccountsWithActiveTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{accountID}, ids)
}
