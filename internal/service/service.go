// Package service реализует бизнес-логику инвестиционной платформы.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/investplatform/internal/accrual"
	"github.com/mmeshcher/investplatform/internal/model"
	"github.com/mmeshcher/investplatform/internal/repository"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error
	WithinTx(ctx context.Context, fn func(repository.Tx) error) error

	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	GetAccountByPhone(ctx context.Context, phone string) (*model.Account, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash []byte) error
	GetProfile(ctx context.Context, accountID int64) (*model.Profile, error)
	ListTeam(ctx context.Context, invitationCode string) ([]model.TeamMember, error)

	ListProducts(ctx context.Context, activeOnly bool) ([]model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) (int64, error)
	ListTasks(ctx context.Context, accountID int64) ([]model.Task, error)
	ListAccountsWithActiveTasks(ctx context.Context) ([]int64, error)

	ListBanks(ctx context.Context, activeOnly bool) ([]model.Bank, error)
	CreateBank(ctx context.Context, b *model.Bank) (int64, error)
	ListBankAccounts(ctx context.Context, accountID int64) ([]model.BankAccount, error)
	ListDeposits(ctx context.Context, accountID int64) ([]model.Deposit, error)
	ListDepositsByStatus(ctx context.Context, status model.RequestStatus) ([]model.Deposit, error)
	ListWithdrawals(ctx context.Context, accountID int64) ([]model.Withdrawal, error)
	ListWithdrawalsByStatus(ctx context.Context, status model.RequestStatus) ([]model.Withdrawal, error)

	ListPrizes(ctx context.Context, activeOnly bool) ([]model.Prize, error)
	CreatePrize(ctx context.Context, p *model.Prize) (int64, error)
	ListSpins(ctx context.Context, accountID int64) ([]model.Spin, error)

	ListLedgerEntries(ctx context.Context, accountID int64) ([]model.LedgerEntry, error)
	SumLedger(ctx context.Context, accountID int64, kind model.EntryKind) (model.Amount, error)
}

// ProofStore сохраняет файлы подтверждений оплаты.
type ProofStore interface {
	SaveDepositProof(ctx context.Context, accountID int64, filename string, body io.Reader) (string, error)
}

// Settings содержит параметры платформы.
type Settings struct {
	Location         *time.Location
	ReferralBonus    model.Amount
	MinWithdrawal    model.Amount
	WithdrawalTax    model.Rate
	WheelDailySpins  int
	InviteCodeLength int
	SkipWeekends     bool
}

// Service содержит бизнес-логику платформы.
type Service struct {
	repo     Repository
	settings Settings
	policy   accrual.Policy
	proofs   ProofStore
	logger   *zap.Logger

	now          func() time.Time
	draw         func(total float64) float64
	passwordCost int
}

// NewService создаёт новый сервис с указанным репозиторием и настройками платформы.
func NewService(repo Repository, settings Settings, logger *zap.Logger) *Service {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.InviteCodeLength <= 0 {
		settings.InviteCodeLength = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		repo:     repo,
		settings: settings,
		policy: accrual.Policy{
			Location:     settings.Location,
			SkipWeekends: settings.SkipWeekends,
		},
		logger:       logger,
		now:          time.Now,
		draw:         func(total float64) float64 { return rand.Float64() * total },
		passwordCost: bcrypt.DefaultCost,
	}
}

// SetProofStore подключает хранилище подтверждений оплаты.
func (s *Service) SetProofStore(store ProofStore) {
	s.proofs = store
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// withinTx выполняет fn в транзакции с журналом проводок. Метрики проводок
// публикуются только после успешной фиксации.
func (s *Service) withinTx(ctx context.Context, fn func(tx repository.Tx, l *ledger) error) error {
	var committed *ledger
	err := s.repo.WithinTx(ctx, func(tx repository.Tx) error {
		l := &ledger{tx: tx}
		if err := fn(tx, l); err != nil {
			return err
		}
		committed = l
		return nil
	})
	if err != nil {
		return err
	}
	committed.publish()
	return nil
}

func notFound(what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

func duplicate(err error) error {
	switch {
	case errors.Is(err, repository.ErrPhoneTaken),
		errors.Is(err, repository.ErrIBANTaken),
		errors.Is(err, repository.ErrInvitationCodeTaken),
		errors.Is(err, repository.ErrLevelNameTaken),
		errors.Is(err, repository.ErrBankNameTaken):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	}
	return err
}

var (
	_ Repository = (*repository.PostgresRepository)(nil)
	_ Repository = (*repository.MemoryRepository)(nil)
)
