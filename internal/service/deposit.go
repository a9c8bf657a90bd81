package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/investplatform/internal/metrics"
	"github.com/mmeshcher/investplatform/internal/model"
	"github.com/mmeshcher/investplatform/internal/repository"
	"github.com/mmeshcher/investplatform/internal/validation"
)

const requestDeposit = "deposit"

// Proof: файл подтверждения оплаты, приложенный к заявке на пополнение.
type Proof struct {
	Filename string
	Body     io.Reader
}

// ListBanks возвращает активные реквизиты для пополнения.
func (s *Service) ListBanks(ctx context.Context) ([]model.Bank, error) {
	return s.repo.ListBanks(ctx, true)
}

// CreateBank добавляет реквизиты платформы для пополнения.
func (s *Service) CreateBank(ctx context.Context, b model.Bank) (*model.Bank, error) {
	b.Name = strings.TrimSpace(b.Name)
	b.AccountName = strings.TrimSpace(b.AccountName)
	b.IBAN = validation.NormalizeIBAN(b.IBAN)
	switch {
	case b.Name == "":
		return nil, invalid("name", "must not be empty")
	case !validation.IsValidIBAN(b.IBAN):
		return nil, invalid("iban", "invalid IBAN")
	}

	if _, err := s.repo.CreateBank(ctx, &b); err != nil {
		return nil, duplicate(err)
	}
	return &b, nil
}

// CreateDeposit регистрирует заявку на пополнение в статусе PENDING. Баланс не меняется
// до одобрения администратором.
func (s *Service) CreateDeposit(ctx context.Context, accountID, bankID int64, amount model.Amount, proof *Proof) (*model.Deposit, error) {
	if amount <= 0 {
		return nil, invalid("amount", "must be positive")
	}
	if proof != nil && s.proofs == nil {
		return nil, invalid("proof", "file uploads are disabled")
	}

	d := &model.Deposit{
		AccountID: accountID,
		BankID:    &bankID,
		Amount:    amount,
		Status:    model.RequestStatusPending,
	}

	// Файл загружается до транзакции: при откате заявки объект остаётся в хранилище.
	if proof != nil {
		err := s.repo.WithinTx(ctx, func(tx repository.Tx) error {
			return activeBank(ctx, tx, bankID)
		})
		if err != nil {
			return nil, err
		}
		key, err := s.proofs.SaveDepositProof(ctx, accountID, proof.Filename, proof.Body)
		if err != nil {
			return nil, fmt.Errorf("save deposit proof: %w", err)
		}
		d.ProofKey = &key
	}

	err := s.withinTx(ctx, func(tx repository.Tx, _ *ledger) error {
		if _, err := tx.GetAccountForUpdate(ctx, accountID); err != nil {
			return notFound("account", err)
		}
		if err := activeBank(ctx, tx, bankID); err != nil {
			return err
		}
		_, err := tx.CreateDeposit(ctx, d)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDecision(requestDeposit, string(model.RequestStatusPending))
	s.logger.Info("deposit requested",
		zap.Int64("deposit_id", d.ID),
		zap.Int64("account_id", accountID),
		zap.Stringer("amount", d.Amount),
	)
	return d, nil
}

// activeBank проверяет, что банк для пополнения существует и принимает переводы.
func activeBank(ctx context.Context, tx repository.Tx, bankID int64) error {
	b, err := tx.GetBank(ctx, bankID)
	if err != nil {
		return notFound("bank", err)
	}
	if !b.IsActive {
		return fmt.Errorf("bank %d: %w", bankID, ErrNotFound)
	}
	return nil
}

// ApproveDeposit одобряет заявку и зачисляет сумму на основной баланс.
// Повторное решение по заявке возвращает ErrNotPending и не меняет баланс.
func (s *Service) ApproveDeposit(ctx context.Context, depositID int64) (*model.Deposit, error) {
	return s.decideDeposit(ctx, depositID, model.RequestStatusApproved)
}

// RejectDeposit отклоняет заявку без изменения баланса.
func (s *Service) RejectDeposit(ctx context.Context, depositID int64) (*model.Deposit, error) {
	return s.decideDeposit(ctx, depositID, model.RequestStatusRejected)
}

func (s *Service) decideDeposit(ctx context.Context, depositID int64, status model.RequestStatus) (*model.Deposit, error) {
	var deposit *model.Deposit
	err := s.withinTx(ctx, func(tx repository.Tx, l *ledger) error {
		d, err := tx.GetDepositForUpdate(ctx, depositID)
		if err != nil {
			return notFound("deposit", err)
		}
		if d.Status != model.RequestStatusPending {
			return fmt.Errorf("deposit %d is %s: %w", d.ID, d.Status, ErrNotPending)
		}

		if status == model.RequestStatusApproved {
			acc, err := tx.GetAccountForUpdate(ctx, d.AccountID)
			if err != nil {
				return notFound("account", err)
			}
			ref := fmt.Sprintf("deposit:%d", d.ID)
			if err := l.credit(ctx, acc, d.Amount, model.EntryDeposit, ref); err != nil {
				return err
			}
			if err := tx.UpdateAccount(ctx, acc); err != nil {
				return err
			}
		}

		now := s.now()
		d.Status = status
		d.DecidedAt = &now
		if err := tx.UpdateDeposit(ctx, d); err != nil {
			return err
		}
		deposit = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDecision(requestDeposit, string(status))
	s.logger.Info("deposit decided",
		zap.Int64("deposit_id", deposit.ID),
		zap.String("status", string(status)),
	)
	return deposit, nil
}

// ListDeposits возвращает заявки на пополнение учётной записи.
func (s *Service) ListDeposits(ctx context.Context, accountID int64) ([]model.Deposit, error) {
	return s.repo.ListDeposits(ctx, accountID)
}

// PendingDeposits возвращает заявки, ожидающие решения.
func (s *Service) PendingDeposits(ctx context.Context) ([]model.Deposit, error) {
	return s.repo.ListDepositsByStatus(ctx, model.RequestStatusPending)
}
