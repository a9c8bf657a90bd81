package repository

import (
	"context"
	"errors"

	"github.com/mmeshcher/investplatform/internal/model"
)

// ErrNotFound возвращается, если запрошенная запись не найдена.
var (
	ErrNotFound = errors.New("not found")
	// ErrPhoneTaken возвращается при регистрации уже занятого номера телефона.
	ErrPhoneTaken = errors.New("phone already registered")
	// ErrInvitationCodeTaken возвращается при коллизии кода приглашения.
	ErrInvitationCodeTaken = errors.New("invitation code already taken")
	// ErrIBANTaken возвращается, если IBAN уже привязан к другому счёту.
	ErrIBANTaken = errors.New("iban already registered")
	// ErrLevelNameTaken возвращается при повторном названии инвестиционного уровня.
	ErrLevelNameTaken = errors.New("level name already exists")
	// ErrBankNameTaken возвращается при повторном названии банка.
	ErrBankNameTaken = errors.New("bank name already exists")
	// ErrActiveTaskExists возвращается, если у учётной записи уже есть незавершённая задача.
	ErrActiveTaskExists = errors.New("account already has an active task")
)

// Tx: операции, выполняемые внутри одной транзакции. Методы с суффиксом ForUpdate
// блокируют строки до конца транзакции.
type Tx interface {
	InvitationCodeExists(ctx context.Context, code string) (bool, error)
	CreateAccount(ctx context.Context, a *model.Account) (int64, error)
	GetAccountForUpdate(ctx context.Context, id int64) (*model.Account, error)
	GetAccountByInvitationCodeForUpdate(ctx context.Context, code string) (*model.Account, error)
	UpdateAccount(ctx context.Context, a *model.Account) error
	UpsertProfile(ctx context.Context, p model.Profile) error
	AppendLedgerEntry(ctx context.Context, e *model.LedgerEntry) error

	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListActiveTasksForUpdate(ctx context.Context, accountID int64) ([]model.Task, error)
	CreateTask(ctx context.Context, t *model.Task) (int64, error)
	UpdateTask(ctx context.Context, t *model.Task) error

	GetBank(ctx context.Context, id int64) (*model.Bank, error)
	CreateDeposit(ctx context.Context, d *model.Deposit) (int64, error)
	GetDepositForUpdate(ctx context.Context, id int64) (*model.Deposit, error)
	UpdateDeposit(ctx context.Context, d *model.Deposit) error

	GetBankAccount(ctx context.Context, id int64) (*model.BankAccount, error)
	GetBankAccountByIBAN(ctx context.Context, iban string) (*model.BankAccount, error)
	CreateBankAccount(ctx context.Context, b *model.BankAccount) (int64, error)
	CreateWithdrawal(ctx context.Context, w *model.Withdrawal) (int64, error)
	GetWithdrawalForUpdate(ctx context.Context, id int64) (*model.Withdrawal, error)
	UpdateWithdrawal(ctx context.Context, w *model.Withdrawal) error

	ListActivePrizes(ctx context.Context) ([]model.Prize, error)
	CreateSpin(ctx context.Context, s *model.Spin) (int64, error)
}
