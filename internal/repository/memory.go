package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/mmeshcher/investplatform/internal/model"
)

// MemoryRepository хранит данные в памяти. Транзакции сериализуются общей блокировкой,
// ошибка внутри транзакции восстанавливает снимок состояния.
type MemoryRepository struct {
	mu sync.RWMutex
	memState
}

type memState struct {
	seq          int64
	accounts     map[int64]model.Account
	profiles     map[int64]model.Profile
	products     map[int64]model.Product
	tasks        map[int64]model.Task
	banks        map[int64]model.Bank
	deposits     map[int64]model.Deposit
	bankAccounts map[int64]model.BankAccount
	withdrawals  map[int64]model.Withdrawal
	prizes       map[int64]model.Prize
	spins        map[int64]model.Spin
	ledger       map[int64]model.LedgerEntry
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		memState: memState{
			accounts:     make(map[int64]model.Account),
			profiles:     make(map[int64]model.Profile),
			products:     make(map[int64]model.Product),
			tasks:        make(map[int64]model.Task),
			banks:        make(map[int64]model.Bank),
			deposits:     make(map[int64]model.Deposit),
			bankAccounts: make(map[int64]model.BankAccount),
			withdrawals:  make(map[int64]model.Withdrawal),
			prizes:       make(map[int64]model.Prize),
			spins:        make(map[int64]model.Spin),
			ledger:       make(map[int64]model.LedgerEntry),
		},
	}
}

func (s *memState) clone() memState {
	return memState{
		seq:          s.seq,
		accounts:     maps.Clone(s.accounts),
		profiles:     maps.Clone(s.profiles),
		products:     maps.Clone(s.products),
		tasks:        maps.Clone(s.tasks),
		banks:        maps.Clone(s.banks),
		deposits:     maps.Clone(s.deposits),
		bankAccounts: maps.Clone(s.bankAccounts),
		withdrawals:  maps.Clone(s.withdrawals),
		prizes:       maps.Clone(s.prizes),
		spins:        maps.Clone(s.spins),
		ledger:       maps.Clone(s.ledger),
	}
}

func (s *memState) nextID() int64 {
	s.seq++
	return s.seq
}

// Close ничего не делает.
func (m *MemoryRepository) Close() error { return nil }

// Ping всегда успешен.
func (m *MemoryRepository) Ping(ctx context.Context) error { return nil }

// WithinTx выполняет fn под общей блокировкой и откатывает изменения при ошибке.
func (m *MemoryRepository) WithinTx(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.memState.clone()
	if err := fn(&memTx{s: &m.memState}); err != nil {
		m.memState = snapshot
		return err
	}
	return nil
}

// GetAccount возвращает учётную запись по идентификатору.
func (m *MemoryRepository) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// GetAccountByPhone возвращает учётную запись по номеру телефона.
func (m *MemoryRepository) GetAccountByPhone(ctx context.Context, phone string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.accounts {
		if a.Phone == phone {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

// UpdatePasswordHash заменяет хэш пароля.
func (m *MemoryRepository) UpdatePasswordHash(ctx context.Context, id int64, hash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.PasswordHash = slices.Clone(hash)
	m.accounts[id] = a
	return nil
}

// GetProfile возвращает анкету учётной записи.
func (m *MemoryRepository) GetProfile(ctx context.Context, accountID int64) (*model.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// ListTeam возвращает пользователей, приглашённых по коду.
func (m *MemoryRepository) ListTeam(ctx context.Context, invitationCode string) ([]model.TeamMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.TeamMember
	for _, a := range m.accounts {
		if a.InvitedByCode == nil || *a.InvitedByCode != invitationCode {
			continue
		}
		hasProduct := false
		for _, t := range m.tasks {
			if t.AccountID == a.ID {
				hasProduct = true
				break
			}
		}
		res = append(res, model.TeamMember{Phone: a.Phone, HasProduct: hasProduct, JoinedAt: a.CreatedAt})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].JoinedAt.After(res[j].JoinedAt) })
	return res, nil
}

// ListProducts возвращает каталог продуктов в порядке уровней.
func (m *MemoryRepository) ListProducts(ctx context.Context, activeOnly bool) ([]model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Product
	for _, p := range m.products {
		if activeOnly && !p.IsActive {
			continue
		}
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Order != res[j].Order {
			return res[i].Order < res[j].Order
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

// CreateProduct добавляет продукт в каталог.
func (m *MemoryRepository) CreateProduct(ctx context.Context, p *model.Product) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.products {
		if existing.LevelName == p.LevelName {
			return 0, fmt.Errorf("%w: %s", ErrLevelNameTaken, p.LevelName)
		}
	}
	p.ID = m.nextID()
	m.products[p.ID] = *p
	return p.ID, nil
}

// ListTasks возвращает историю задач учётной записи, начиная с последней.
func (m *MemoryRepository) ListTasks(ctx context.Context, accountID int64) ([]model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Task
	for _, t := range m.tasks {
		if t.AccountID == accountID {
			t.Product = m.products[t.ProductID]
			res = append(res, t)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

// ListAccountsWithActiveTasks возвращает учётные записи с незавершёнными задачами.
func (m *MemoryRepository) ListAccountsWithActiveTasks(ctx context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[int64]struct{})
	for _, t := range m.tasks {
		if !t.IsCompleted {
			seen[t.AccountID] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

// ListBanks возвращает банковские реквизиты платформы.
func (m *MemoryRepository) ListBanks(ctx context.Context, activeOnly bool) ([]model.Bank, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Bank
	for _, b := range m.banks {
		if activeOnly && !b.IsActive {
			continue
		}
		res = append(res, b)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

// CreateBank добавляет банковские реквизиты платформы.
func (m *MemoryRepository) CreateBank(ctx context.Context, b *model.Bank) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.banks {
		if existing.Name == b.Name {
			return 0, fmt.Errorf("%w: %s", ErrBankNameTaken, b.Name)
		}
	}
	b.ID = m.nextID()
	m.banks[b.ID] = *b
	return b.ID, nil
}

// ListBankAccounts возвращает счета вывода учётной записи.
func (m *MemoryRepository) ListBankAccounts(ctx context.Context, accountID int64) ([]model.BankAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.BankAccount
	for _, b := range m.bankAccounts {
		if b.AccountID == accountID {
			res = append(res, b)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

func (m *MemoryRepository) filterDeposits(keep func(model.Deposit) bool) []model.Deposit {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Deposit
	for _, d := range m.deposits {
		if keep(d) {
			res = append(res, d)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res
}

// ListDeposits возвращает историю пополнений учётной записи.
func (m *MemoryRepository) ListDeposits(ctx context.Context, accountID int64) ([]model.Deposit, error) {
	return m.filterDeposits(func(d model.Deposit) bool { return d.AccountID == accountID }), nil
}

// ListDepositsByStatus возвращает заявки на пополнение в указанном статусе.
func (m *MemoryRepository) ListDepositsByStatus(ctx context.Context, status model.RequestStatus) ([]model.Deposit, error) {
	return m.filterDeposits(func(d model.Deposit) bool { return d.Status == status }), nil
}

func (m *MemoryRepository) filterWithdrawals(keep func(model.Withdrawal) bool) []model.Withdrawal {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Withdrawal
	for _, w := range m.withdrawals {
		if keep(w) {
			res = append(res, w)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res
}

// ListWithdrawals возвращает историю выводов учётной записи.
func (m *MemoryRepository) ListWithdrawals(ctx context.Context, accountID int64) ([]model.Withdrawal, error) {
	return m.filterWithdrawals(func(w model.Withdrawal) bool { return w.AccountID == accountID }), nil
}

// ListWithdrawalsByStatus возвращает заявки на вывод в указанном статусе.
func (m *MemoryRepository) ListWithdrawalsByStatus(ctx context.Context, status model.RequestStatus) ([]model.Withdrawal, error) {
	return m.filterWithdrawals(func(w model.Withdrawal) bool { return w.Status == status }), nil
}

// ListPrizes возвращает призы колеса в порядке идентификаторов.
func (m *MemoryRepository) ListPrizes(ctx context.Context, activeOnly bool) ([]model.Prize, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.memState.prizesSorted(activeOnly), nil
}

func (s *memState) prizesSorted(activeOnly bool) []model.Prize {
	var res []model.Prize
	for _, p := range s.prizes {
		if activeOnly && !p.IsActive {
			continue
		}
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// CreatePrize добавляет сектор колеса удачи.
func (m *MemoryRepository) CreatePrize(ctx context.Context, p *model.Prize) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.ID = m.nextID()
	m.prizes[p.ID] = *p
	return p.ID, nil
}

// ListSpins возвращает историю вращений учётной записи.
func (m *MemoryRepository) ListSpins(ctx context.Context, accountID int64) ([]model.Spin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Spin
	for _, s := range m.spins {
		if s.AccountID == accountID {
			res = append(res, s)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

// ListLedgerEntries возвращает журнал движения средств учётной записи.
func (m *MemoryRepository) ListLedgerEntries(ctx context.Context, accountID int64) ([]model.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.LedgerEntry
	for _, e := range m.ledger {
		if e.AccountID == accountID {
			res = append(res, e)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

// SumLedger возвращает сумму проводок указанного типа.
func (m *MemoryRepository) SumLedger(ctx context.Context, accountID int64, kind model.EntryKind) (model.Amount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total model.Amount
	for _, e := range m.ledger {
		if e.AccountID == accountID && e.Kind == kind {
			total += e.Amount
		}
	}
	return total, nil
}

// memTx реализует Tx над состоянием, захваченным WithinTx.
type memTx struct {
	s *memState
}

func (t *memTx) InvitationCodeExists(ctx context.Context, code string) (bool, error) {
	for _, a := range t.s.accounts {
		if a.InvitationCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CreateAccount(ctx context.Context, a *model.Account) (int64, error) {
	for _, existing := range t.s.accounts {
		if existing.Phone == a.Phone {
			return 0, fmt.Errorf("%w: %s", ErrPhoneTaken, a.Phone)
		}
		if existing.InvitationCode == a.InvitationCode {
			return 0, fmt.Errorf("%w: %s", ErrInvitationCodeTaken, a.InvitationCode)
		}
	}
	a.ID = t.s.nextID()
	a.CreatedAt = time.Now()
	t.s.accounts[a.ID] = *a
	return a.ID, nil
}

func (t *memTx) GetAccountForUpdate(ctx context.Context, id int64) (*model.Account, error) {
	a, ok := t.s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (t *memTx) GetAccountByInvitationCodeForUpdate(ctx context.Context, code string) (*model.Account, error) {
	for _, a := range t.s.accounts {
		if a.InvitationCode == code {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) UpdateAccount(ctx context.Context, a *model.Account) error {
	existing, ok := t.s.accounts[a.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Balance = a.Balance
	existing.BonusBalance = a.BonusBalance
	existing.CurrentProductID = a.CurrentProductID
	existing.LevelActivationDate = a.LevelActivationDate
	existing.ReferralIncome = a.ReferralIncome
	existing.DailySpinsRemaining = a.DailySpinsRemaining
	existing.LastSpinDate = a.LastSpinDate
	t.s.accounts[a.ID] = existing
	return nil
}

func (t *memTx) UpsertProfile(ctx context.Context, p model.Profile) error {
	if _, ok := t.s.accounts[p.AccountID]; !ok {
		return ErrNotFound
	}
	t.s.profiles[p.AccountID] = p
	return nil
}

func (t *memTx) AppendLedgerEntry(ctx context.Context, e *model.LedgerEntry) error {
	e.ID = t.s.nextID()
	e.CreatedAt = time.Now()
	t.s.ledger[e.ID] = *e
	return nil
}

func (t *memTx) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, ok := t.s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t *memTx) ListActiveTasksForUpdate(ctx context.Context, accountID int64) ([]model.Task, error) {
	var res []model.Task
	for _, task := range t.s.tasks {
		if task.AccountID == accountID && !task.IsCompleted {
			task.Product = t.s.products[task.ProductID]
			res = append(res, task)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (t *memTx) CreateTask(ctx context.Context, task *model.Task) (int64, error) {
	for _, existing := range t.s.tasks {
		if existing.AccountID == task.AccountID && !existing.IsCompleted {
			return 0, ErrActiveTaskExists
		}
	}
	task.ID = t.s.nextID()
	t.s.tasks[task.ID] = *task
	return task.ID, nil
}

func (t *memTx) UpdateTask(ctx context.Context, task *model.Task) error {
	existing, ok := t.s.tasks[task.ID]
	if !ok {
		return ErrNotFound
	}
	existing.IsCompleted = task.IsCompleted
	existing.CompletionDate = task.CompletionDate
	existing.LastIncomeDate = task.LastIncomeDate
	t.s.tasks[task.ID] = existing
	return nil
}

func (t *memTx) GetBank(ctx context.Context, id int64) (*model.Bank, error) {
	b, ok := t.s.banks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (t *memTx) CreateDeposit(ctx context.Context, d *model.Deposit) (int64, error) {
	d.ID = t.s.nextID()
	d.CreatedAt = time.Now()
	t.s.deposits[d.ID] = *d
	return d.ID, nil
}

func (t *memTx) GetDepositForUpdate(ctx context.Context, id int64) (*model.Deposit, error) {
	d, ok := t.s.deposits[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (t *memTx) UpdateDeposit(ctx context.Context, d *model.Deposit) error {
	existing, ok := t.s.deposits[d.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Status = d.Status
	existing.DecidedAt = d.DecidedAt
	t.s.deposits[d.ID] = existing
	return nil
}

func (t *memTx) GetBankAccount(ctx context.Context, id int64) (*model.BankAccount, error) {
	b, ok := t.s.bankAccounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (t *memTx) GetBankAccountByIBAN(ctx context.Context, iban string) (*model.BankAccount, error) {
	for _, b := range t.s.bankAccounts {
		if b.IBAN == iban {
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) CreateBankAccount(ctx context.Context, b *model.BankAccount) (int64, error) {
	for _, existing := range t.s.bankAccounts {
		if existing.IBAN == b.IBAN {
			return 0, fmt.Errorf("%w: %s", ErrIBANTaken, b.IBAN)
		}
	}
	b.ID = t.s.nextID()
	b.CreatedAt = time.Now()
	t.s.bankAccounts[b.ID] = *b
	return b.ID, nil
}

func (t *memTx) CreateWithdrawal(ctx context.Context, w *model.Withdrawal) (int64, error) {
	w.ID = t.s.nextID()
	w.CreatedAt = time.Now()
	t.s.withdrawals[w.ID] = *w
	return w.ID, nil
}

func (t *memTx) GetWithdrawalForUpdate(ctx context.Context, id int64) (*model.Withdrawal, error) {
	w, ok := t.s.withdrawals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &w, nil
}

func (t *memTx) UpdateWithdrawal(ctx context.Context, w *model.Withdrawal) error {
	existing, ok := t.s.withdrawals[w.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Status = w.Status
	existing.ApprovedAt = w.ApprovedAt
	existing.DecidedAt = w.DecidedAt
	t.s.withdrawals[w.ID] = existing
	return nil
}

func (t *memTx) ListActivePrizes(ctx context.Context) ([]model.Prize, error) {
	return t.s.prizesSorted(true), nil
}

func (t *memTx) CreateSpin(ctx context.Context, s *model.Spin) (int64, error) {
	s.ID = t.s.nextID()
	s.CreatedAt = time.Now()
	t.s.spins[s.ID] = *s
	return s.ID, nil
}
