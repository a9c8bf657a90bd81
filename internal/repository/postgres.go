// Package repository содержит реализацию доступа к данным в PostgreSQL и в памяти.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/investplatform/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// querier: общее подмножество pgxpool.Pool и pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(delays) {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delays[i]):
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// uniqueViolation возвращает имя нарушенного ограничения уникальности.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Ping проверяет доступность БД.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// WithinTx выполняет fn в транзакции. Ошибка fn откатывает все изменения;
// конфликты сериализации и взаимоблокировки повторяются с задержкой.
func (r *PostgresRepository) WithinTx(ctx context.Context, fn func(Tx) error) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := fn(&pgTx{q: tx}); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

const accountColumns = `id, phone, password_hash, balance, bonus_balance, current_product_id,
	level_activation_date, invitation_code, invited_by_code, referral_income,
	daily_spins_remaining, last_spin_date, created_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Phone, &a.PasswordHash, &a.Balance, &a.BonusBalance, &a.CurrentProductID,
		&a.LevelActivationDate, &a.InvitationCode, &a.InvitedByCode, &a.ReferralIncome,
		&a.DailySpinsRemaining, &a.LastSpinDate, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

// GetAccount возвращает учётную запись по идентификатору.
func (r *PostgresRepository) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

// GetAccountByPhone возвращает учётную запись по нормализованному номеру телефона.
func (r *PostgresRepository) GetAccountByPhone(ctx context.Context, phone string) (*model.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE phone = $1`, phone))
}

// UpdatePasswordHash заменяет хэш пароля.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id int64, hash []byte) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetProfile возвращает анкету учётной записи.
func (r *PostgresRepository) GetProfile(ctx context.Context, accountID int64) (*model.Profile, error) {
	var p model.Profile
	err := r.pool.QueryRow(ctx,
		`SELECT account_id, full_name, bank_name, iban FROM profiles WHERE account_id = $1`,
		accountID,
	).Scan(&p.AccountID, &p.FullName, &p.BankName, &p.IBAN)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// ListTeam возвращает пользователей, зарегистрированных по коду приглашения.
func (r *PostgresRepository) ListTeam(ctx context.Context, invitationCode string) ([]model.TeamMember, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.phone, EXISTS (SELECT 1 FROM tasks t WHERE t.account_id = a.id), a.created_at
		 FROM accounts a
		 WHERE a.invited_by_code = $1
		 ORDER BY a.created_at DESC`,
		invitationCode,
	)
	if err != nil {
		return nil, fmt.Errorf("select team: %w", err)
	}
	defer rows.Close()

	var res []model.TeamMember
	for rows.Next() {
		var m model.TeamMember
		if err := rows.Scan(&m.Phone, &m.HasProduct, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		res = append(res, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

const productColumns = `id, level_name, min_deposit_amount, daily_income, duration_days, sort_order, is_active`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	if err := row.Scan(&p.ID, &p.LevelName, &p.MinDepositAmount, &p.DailyIncome, &p.DurationDays, &p.Order, &p.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return &p, nil
}

// ListProducts возвращает каталог продуктов в порядке уровней.
func (r *PostgresRepository) ListProducts(ctx context.Context, activeOnly bool) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE is_active OR NOT $1 ORDER BY sort_order, id`,
		activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateProduct добавляет инвестиционный уровень в каталог.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *model.Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (level_name, min_deposit_amount, daily_income, duration_days, sort_order, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.LevelName, int64(p.MinDepositAmount), int64(p.DailyIncome), p.DurationDays, p.Order, p.IsActive,
	).Scan(&id)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return 0, fmt.Errorf("%w: %s", ErrLevelNameTaken, p.LevelName)
		}
		return 0, fmt.Errorf("create product: %w", err)
	}
	return id, nil
}

const taskColumns = `t.id, t.account_id, t.product_id, t.is_completed, t.created_at, t.completion_date,
	t.last_income_date, p.id, p.level_name, p.min_deposit_amount, p.daily_income, p.duration_days,
	p.sort_order, p.is_active`

func collectTasks(rows pgx.Rows) ([]model.Task, error) {
	defer rows.Close()

	var res []model.Task
	for rows.Next() {
		var t model.Task
		p := &t.Product
		if err := rows.Scan(&t.ID, &t.AccountID, &t.ProductID, &t.IsCompleted, &t.CreatedAt, &t.CompletionDate,
			&t.LastIncomeDate, &p.ID, &p.LevelName, &p.MinDepositAmount, &p.DailyIncome, &p.DurationDays,
			&p.Order, &p.IsActive); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListTasks возвращает историю задач учётной записи, начиная с последней.
func (r *PostgresRepository) ListTasks(ctx context.Context, accountID int64) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks t JOIN products p ON p.id = t.product_id
		 WHERE t.account_id = $1
		 ORDER BY t.created_at DESC, t.id DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("select tasks: %w", err)
	}
	return collectTasks(rows)
}

// ListAccountsWithActiveTasks возвращает идентификаторы учётных записей с незавершёнными задачами.
func (r *PostgresRepository) ListAccountsWithActiveTasks(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT account_id FROM tasks WHERE NOT is_completed ORDER BY account_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select active accounts: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ids, nil
}

// ListBanks возвращает банковские реквизиты платформы.
func (r *PostgresRepository) ListBanks(ctx context.Context, activeOnly bool) ([]model.Bank, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, account_name, iban, is_active FROM banks WHERE is_active OR NOT $1 ORDER BY name`,
		activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("select banks: %w", err)
	}
	defer rows.Close()

	var res []model.Bank
	for rows.Next() {
		var b model.Bank
		if err := rows.Scan(&b.ID, &b.Name, &b.AccountName, &b.IBAN, &b.IsActive); err != nil {
			return nil, fmt.Errorf("scan bank: %w", err)
		}
		res = append(res, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateBank добавляет банковские реквизиты платформы.
func (r *PostgresRepository) CreateBank(ctx context.Context, b *model.Bank) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO banks (name, account_name, iban, is_active) VALUES ($1, $2, $3, $4) RETURNING id`,
		b.Name, b.AccountName, b.IBAN, b.IsActive,
	).Scan(&id)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return 0, fmt.Errorf("%w: %s", ErrBankNameTaken, b.Name)
		}
		return 0, fmt.Errorf("create bank: %w", err)
	}
	return id, nil
}

// ListBankAccounts возвращает счета вывода учётной записи.
func (r *PostgresRepository) ListBankAccounts(ctx context.Context, accountID int64) ([]model.BankAccount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, bank_name, account_name, iban, is_active, created_at
		 FROM bank_accounts WHERE account_id = $1 ORDER BY created_at DESC, id DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("select bank accounts: %w", err)
	}
	defer rows.Close()

	var res []model.BankAccount
	for rows.Next() {
		var b model.BankAccount
		if err := rows.Scan(&b.ID, &b.AccountID, &b.BankName, &b.AccountName, &b.IBAN, &b.IsActive, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bank account: %w", err)
		}
		res = append(res, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

const depositColumns = `id, account_id, bank_id, amount, proof_key, status, created_at, decided_at`

func scanDeposit(row pgx.Row) (*model.Deposit, error) {
	var d model.Deposit
	if err := row.Scan(&d.ID, &d.AccountID, &d.BankID, &d.Amount, &d.ProofKey, &d.Status, &d.CreatedAt, &d.DecidedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan deposit: %w", err)
	}
	return &d, nil
}

func (r *PostgresRepository) listDeposits(ctx context.Context, where string, arg any) ([]model.Deposit, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+depositColumns+` FROM deposits WHERE `+where+` ORDER BY created_at DESC, id DESC`,
		arg,
	)
	if err != nil {
		return nil, fmt.Errorf("select deposits: %w", err)
	}
	defer rows.Close()

	var res []model.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListDeposits возвращает историю пополнений учётной записи.
func (r *PostgresRepository) ListDeposits(ctx context.Context, accountID int64) ([]model.Deposit, error) {
	return r.listDeposits(ctx, `account_id = $1`, accountID)
}

// ListDepositsByStatus возвращает заявки на пополнение в указанном статусе.
func (r *PostgresRepository) ListDepositsByStatus(ctx context.Context, status model.RequestStatus) ([]model.Deposit, error) {
	return r.listDeposits(ctx, `status = $1`, string(status))
}

const withdrawalColumns = `id, account_id, bank_account_id, amount, tax_rate, amount_received, status,
	created_at, approved_at, decided_at`

func scanWithdrawal(row pgx.Row) (*model.Withdrawal, error) {
	var w model.Withdrawal
	if err := row.Scan(&w.ID, &w.AccountID, &w.BankAccountID, &w.Amount, &w.TaxRate, &w.AmountReceived, &w.Status,
		&w.CreatedAt, &w.ApprovedAt, &w.DecidedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan withdrawal: %w", err)
	}
	return &w, nil
}

func (r *PostgresRepository) listWithdrawals(ctx context.Context, where string, arg any) ([]model.Withdrawal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE `+where+` ORDER BY created_at DESC, id DESC`,
		arg,
	)
	if err != nil {
		return nil, fmt.Errorf("select withdrawals: %w", err)
	}
	defer rows.Close()

	var res []model.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListWithdrawals возвращает историю выводов учётной записи.
func (r *PostgresRepository) ListWithdrawals(ctx context.Context, accountID int64) ([]model.Withdrawal, error) {
	return r.listWithdrawals(ctx, `account_id = $1`, accountID)
}

// ListWithdrawalsByStatus возвращает заявки на вывод в указанном статусе.
func (r *PostgresRepository) ListWithdrawalsByStatus(ctx context.Context, status model.RequestStatus) ([]model.Withdrawal, error) {
	return r.listWithdrawals(ctx, `status = $1`, string(status))
}

// ListPrizes возвращает призы колеса в порядке идентификаторов.
func (r *PostgresRepository) ListPrizes(ctx context.Context, activeOnly bool) ([]model.Prize, error) {
	return listPrizes(ctx, r.pool, activeOnly)
}

func listPrizes(ctx context.Context, q querier, activeOnly bool) ([]model.Prize, error) {
	rows, err := q.Query(ctx,
		`SELECT id, name, value, weight, is_active FROM prizes WHERE is_active OR NOT $1 ORDER BY id`,
		activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("select prizes: %w", err)
	}
	defer rows.Close()

	var res []model.Prize
	for rows.Next() {
		var p model.Prize
		if err := rows.Scan(&p.ID, &p.Name, &p.Value, &p.Weight, &p.IsActive); err != nil {
			return nil, fmt.Errorf("scan prize: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreatePrize добавляет сектор колеса удачи.
func (r *PostgresRepository) CreatePrize(ctx context.Context, p *model.Prize) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO prizes (name, value, weight, is_active) VALUES ($1, $2, $3, $4) RETURNING id`,
		p.Name, int64(p.Value), p.Weight, p.IsActive,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create prize: %w", err)
	}
	return id, nil
}

// ListSpins возвращает историю вращений учётной записи.
func (r *PostgresRepository) ListSpins(ctx context.Context, accountID int64) ([]model.Spin, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, prize_id, prize_name, value, created_at
		 FROM spins WHERE account_id = $1 ORDER BY created_at DESC, id DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("select spins: %w", err)
	}
	defer rows.Close()

	var res []model.Spin
	for rows.Next() {
		var s model.Spin
		if err := rows.Scan(&s.ID, &s.AccountID, &s.PrizeID, &s.PrizeName, &s.Value, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan spin: %w", err)
		}
		res = append(res, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListLedgerEntries возвращает журнал движения средств учётной записи.
func (r *PostgresRepository) ListLedgerEntries(ctx context.Context, accountID int64) ([]model.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, wallet, kind, amount, balance_after, reference, created_at
		 FROM ledger_entries WHERE account_id = $1 ORDER BY id DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("select ledger: %w", err)
	}
	defer rows.Close()

	var res []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Wallet, &e.Kind, &e.Amount, &e.BalanceAfter, &e.Reference, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// SumLedger возвращает сумму проводок указанного типа.
func (r *PostgresRepository) SumLedger(ctx context.Context, accountID int64, kind model.EntryKind) (model.Amount, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE account_id = $1 AND kind = $2`,
		accountID, string(kind),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}
	return model.Amount(total), nil
}

// pgTx реализует Tx поверх транзакции pgx.
type pgTx struct {
	q querier
}

func (t *pgTx) InvitationCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE invitation_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check invitation code: %w", err)
	}
	return exists, nil
}

func (t *pgTx) CreateAccount(ctx context.Context, a *model.Account) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx,
		`INSERT INTO accounts (phone, password_hash, invitation_code, invited_by_code, daily_spins_remaining)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		a.Phone, a.PasswordHash, a.InvitationCode, a.InvitedByCode, a.DailySpinsRemaining,
	).Scan(&id, &a.CreatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == "accounts_invitation_code_key" {
				return 0, fmt.Errorf("%w: %s", ErrInvitationCodeTaken, a.InvitationCode)
			}
			return 0, fmt.Errorf("%w: %s", ErrPhoneTaken, a.Phone)
		}
		return 0, fmt.Errorf("create account: %w", err)
	}
	a.ID = id
	return id, nil
}

func (t *pgTx) GetAccountForUpdate(ctx context.Context, id int64) (*model.Account, error) {
	return scanAccount(t.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) GetAccountByInvitationCodeForUpdate(ctx context.Context, code string) (*model.Account, error) {
	return scanAccount(t.q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE invitation_code = $1 FOR UPDATE`, code))
}

func (t *pgTx) UpdateAccount(ctx context.Context, a *model.Account) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE accounts SET
			balance = $2,
			bonus_balance = $3,
			current_product_id = $4,
			level_activation_date = $5,
			referral_income = $6,
			daily_spins_remaining = $7,
			last_spin_date = $8
		 WHERE id = $1`,
		a.ID, int64(a.Balance), int64(a.BonusBalance), a.CurrentProductID, a.LevelActivationDate,
		int64(a.ReferralIncome), a.DailySpinsRemaining, a.LastSpinDate,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) UpsertProfile(ctx context.Context, p model.Profile) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO profiles (account_id, full_name, bank_name, iban) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (account_id) DO UPDATE
		 SET full_name = EXCLUDED.full_name, bank_name = EXCLUDED.bank_name, iban = EXCLUDED.iban`,
		p.AccountID, p.FullName, p.BankName, p.IBAN,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (t *pgTx) AppendLedgerEntry(ctx context.Context, e *model.LedgerEntry) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO ledger_entries (account_id, wallet, kind, amount, balance_after, reference)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		e.AccountID, string(e.Wallet), string(e.Kind), int64(e.Amount), int64(e.BalanceAfter), e.Reference,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func (t *pgTx) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return scanProduct(t.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (t *pgTx) ListActiveTasksForUpdate(ctx context.Context, accountID int64) ([]model.Task, error) {
	rows, err := t.q.Query(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks t JOIN products p ON p.id = t.product_id
		 WHERE t.account_id = $1 AND NOT t.is_completed
		 ORDER BY t.id
		 FOR UPDATE OF t`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("select active tasks: %w", err)
	}
	return collectTasks(rows)
}

func (t *pgTx) CreateTask(ctx context.Context, task *model.Task) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx,
		`INSERT INTO tasks (account_id, product_id, created_at, last_income_date)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		task.AccountID, task.ProductID, task.CreatedAt, task.LastIncomeDate,
	).Scan(&id)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return 0, ErrActiveTaskExists
		}
		return 0, fmt.Errorf("create task: %w", err)
	}
	task.ID = id
	return id, nil
}

func (t *pgTx) UpdateTask(ctx context.Context, task *model.Task) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE tasks SET is_completed = $2, completion_date = $3, last_income_date = $4 WHERE id = $1`,
		task.ID, task.IsCompleted, task.CompletionDate, task.LastIncomeDate,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) GetBank(ctx context.Context, id int64) (*model.Bank, error) {
	var b model.Bank
	err := t.q.QueryRow(ctx,
		`SELECT id, name, account_name, iban, is_active FROM banks WHERE id = $1`, id,
	).Scan(&b.ID, &b.Name, &b.AccountName, &b.IBAN, &b.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get bank: %w", err)
	}
	return &b, nil
}

func (t *pgTx) CreateDeposit(ctx context.Context, d *model.Deposit) (int64, error) {
	err := t.q.QueryRow(ctx,
		`INSERT INTO deposits (account_id, bank_id, amount, proof_key, status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		d.AccountID, d.BankID, int64(d.Amount), d.ProofKey, string(d.Status),
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("create deposit: %w", err)
	}
	return d.ID, nil
}

func (t *pgTx) GetDepositForUpdate(ctx context.Context, id int64) (*model.Deposit, error) {
	return scanDeposit(t.q.QueryRow(ctx, `SELECT `+depositColumns+` FROM deposits WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) UpdateDeposit(ctx context.Context, d *model.Deposit) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE deposits SET status = $2, decided_at = $3 WHERE id = $1`,
		d.ID, string(d.Status), d.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("update deposit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const bankAccountColumns = `id, account_id, bank_name, account_name, iban, is_active, created_at`

func scanBankAccount(row pgx.Row) (*model.BankAccount, error) {
	var b model.BankAccount
	if err := row.Scan(&b.ID, &b.AccountID, &b.BankName, &b.AccountName, &b.IBAN, &b.IsActive, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan bank account: %w", err)
	}
	return &b, nil
}

func (t *pgTx) GetBankAccount(ctx context.Context, id int64) (*model.BankAccount, error) {
	return scanBankAccount(t.q.QueryRow(ctx, `SELECT `+bankAccountColumns+` FROM bank_accounts WHERE id = $1`, id))
}

func (t *pgTx) GetBankAccountByIBAN(ctx context.Context, iban string) (*model.BankAccount, error) {
	return scanBankAccount(t.q.QueryRow(ctx, `SELECT `+bankAccountColumns+` FROM bank_accounts WHERE iban = $1`, iban))
}

func (t *pgTx) CreateBankAccount(ctx context.Context, b *model.BankAccount) (int64, error) {
	err := t.q.QueryRow(ctx,
		`INSERT INTO bank_accounts (account_id, bank_name, account_name, iban, is_active)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		b.AccountID, b.BankName, b.AccountName, b.IBAN, b.IsActive,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return 0, fmt.Errorf("%w: %s", ErrIBANTaken, b.IBAN)
		}
		return 0, fmt.Errorf("create bank account: %w", err)
	}
	return b.ID, nil
}

func (t *pgTx) CreateWithdrawal(ctx context.Context, w *model.Withdrawal) (int64, error) {
	err := t.q.QueryRow(ctx,
		`INSERT INTO withdrawals (account_id, bank_account_id, amount, tax_rate, amount_received, status)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		w.AccountID, w.BankAccountID, int64(w.Amount), int64(w.TaxRate), int64(w.AmountReceived), string(w.Status),
	).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("create withdrawal: %w", err)
	}
	return w.ID, nil
}

func (t *pgTx) GetWithdrawalForUpdate(ctx context.Context, id int64) (*model.Withdrawal, error) {
	return scanWithdrawal(t.q.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) UpdateWithdrawal(ctx context.Context, w *model.Withdrawal) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE withdrawals SET status = $2, approved_at = $3, decided_at = $4 WHERE id = $1`,
		w.ID, string(w.Status), w.ApprovedAt, w.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("update withdrawal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) ListActivePrizes(ctx context.Context) ([]model.Prize, error) {
	return listPrizes(ctx, t.q, true)
}

func (t *pgTx) CreateSpin(ctx context.Context, s *model.Spin) (int64, error) {
	err := t.q.QueryRow(ctx,
		`INSERT INTO spins (account_id, prize_id, prize_name, value) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		s.AccountID, s.PrizeID, s.PrizeName, int64(s.Value),
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("create spin: %w", err)
	}
	return s.ID, nil
}
