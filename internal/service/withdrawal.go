package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/investplatform/internal/metrics"
	"github.com/mmeshcher/investplatform/internal/model"
	"github.com/mmeshcher/investplatform/internal/repository"
	"github.com/mmeshcher/investplatform/internal/validation"
)

const requestWithdrawal = "withdrawal"

// ListBankAccounts возвращает счета учётной записи для вывода.
func (s *Service) ListBankAccounts(ctx context.Context, accountID int64) ([]model.BankAccount, error) {
	return s.repo.ListBankAccounts(ctx, accountID)
}

// AddBankAccount привязывает счёт для вывода. IBAN уникален в пределах платформы.
func (s *Service) AddBankAccount(ctx context.Context, b model.BankAccount) (*model.BankAccount, error) {
	b.BankName = strings.TrimSpace(b.BankName)
	b.AccountName = strings.TrimSpace(b.AccountName)
	b.IBAN = validation.NormalizeIBAN(b.IBAN)
	switch {
	case b.BankName == "":
		return nil, invalid("bank_name", "must not be empty")
	case b.AccountName == "":
		return nil, invalid("account_name", "must not be empty")
	case !validation.IsValidIBAN(b.IBAN):
		return nil, invalid("iban", "invalid IBAN")
	}
	b.IsActive = true

	err := s.withinTx(ctx, func(tx repository.Tx, _ *ledger) error {
		_, err := tx.CreateBankAccount(ctx, &b)
		return duplicate(err)
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateWithdrawal создаёт заявку на вывод и сразу удерживает всю сумму с основного баланса.
// К получению причитается сумма за вычетом налога.
func (s *Service) CreateWithdrawal(ctx context.Context, accountID, bankAccountID int64, amount model.Amount) (*model.Withdrawal, error) {
	if amount <= 0 {
		return nil, invalid("amount", "must be positive")
	}
	if amount < s.settings.MinWithdrawal {
		return nil, fmt.Errorf("%w: minimum is %s", ErrBelowMinimumAmount, s.settings.MinWithdrawal)
	}

	var withdrawal *model.Withdrawal
	err := s.withinTx(ctx, func(tx repository.Tx, l *ledger) error {
		ba, err := tx.GetBankAccount(ctx, bankAccountID)
		if err != nil {
			return notFound("bank account", err)
		}
		if ba.AccountID != accountID {
			return fmt.Errorf("bank account %d: %w", bankAccountID, ErrNotFound)
		}
		if !ba.IsActive {
			return invalid("bank_account_id", "bank account is not active")
		}

		acc, err := tx.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return notFound("account", err)
		}
		if amount > acc.Balance {
			return fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, acc.Balance, amount)
		}

		tax := s.settings.WithdrawalTax.Of(amount)
		w := &model.Withdrawal{
			AccountID:      accountID,
			BankAccountID:  &ba.ID,
			Amount:         amount,
			TaxRate:        s.settings.WithdrawalTax,
			AmountReceived: amount - tax,
			Status:         model.RequestStatusPending,
		}
		if _, err := tx.CreateWithdrawal(ctx, w); err != nil {
			return err
		}

		ref := fmt.Sprintf("withdrawal:%d", w.ID)
		if err := l.debit(ctx, acc, amount, model.EntryWithdrawalHold, ref); err != nil {
			return err
		}
		if err := tx.UpdateAccount(ctx, acc); err != nil {
			return err
		}

		withdrawal = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDecision(requestWithdrawal, string(model.RequestStatusPending))
	s.logger.Info("withdrawal requested",
		zap.Int64("withdrawal_id", withdrawal.ID),
		zap.Int64("account_id", accountID),
		zap.Stringer("amount", withdrawal.Amount),
		zap.Stringer("amount_received", withdrawal.AmountReceived),
	)
	return withdrawal, nil
}

// ApproveWithdrawal одобряет заявку. Удержанная сумма уже списана, баланс не меняется.
func (s *Service) ApproveWithdrawal(ctx context.Context, withdrawalID int64) (*model.Withdrawal, error) {
	return s.decideWithdrawal(ctx, withdrawalID, model.RequestStatusApproved)
}

// RejectWithdrawal отклоняет заявку и возвращает удержанную сумму полностью.
func (s *Service) RejectWithdrawal(ctx context.Context, withdrawalID int64) (*model.Withdrawal, error) {
	return s.decideWithdrawal(ctx, withdrawalID, model.RequestStatusRejected)
}

func (s *Service) decideWithdrawal(ctx context.Context, withdrawalID int64, status model.RequestStatus) (*model.Withdrawal, error) {
	var withdrawal *model.Withdrawal
	err := s.withinTx(ctx, func(tx repository.Tx, l *ledger) error {
		w, err := tx.GetWithdrawalForUpdate(ctx, withdrawalID)
		if err != nil {
			return notFound("withdrawal", err)
		}
		if w.Status != model.RequestStatusPending {
			return fmt.Errorf("withdrawal %d is %s: %w", w.ID, w.Status, ErrNotPending)
		}

		now := s.now()
		switch status {
		case model.RequestStatusApproved:
			w.ApprovedAt = &now
		case model.RequestStatusRejected:
			acc, err := tx.GetAccountForUpdate(ctx, w.AccountID)
			if err != nil {
				return notFound("account", err)
			}
			ref := fmt.Sprintf("withdrawal:%d", w.ID)
			if err := l.credit(ctx, acc, w.Amount, model.EntryWithdrawalRefund, ref); err != nil {
				return err
			}
			if err := tx.UpdateAccount(ctx, acc); err != nil {
				return err
			}
		}

		w.Status = status
		w.DecidedAt = &now
		if err := tx.UpdateWithdrawal(ctx, w); err != nil {
			return err
		}
		withdrawal = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDecision(requestWithdrawal, string(status))
	s.logger.Info("withdrawal decided",
		zap.Int64("withdrawal_id", withdrawal.ID),
		zap.String("status", string(status)),
	)
	return withdrawal, nil
}

// ListWithdrawals возвращает заявки на вывод учётной записи.
func (s *Service) ListWithdrawals(ctx context.Context, accountID int64) ([]model.Withdrawal, error) {
	return s.repo.ListWithdrawals(ctx, accountID)
}

// PendingWithdrawals возвращает заявки на вывод, ожидающие решения.
func (s *Service) PendingWithdrawals(ctx context.Context) ([]model.Withdrawal, error) {
	return s.repo.ListWithdrawalsByStatus(ctx, model.RequestStatusPending)
}

// Transactions возвращает журнал движения средств учётной записи.
func (s *Service) Transactions(ctx context.Context, accountID int64) ([]model.LedgerEntry, error) {
	return s.repo.ListLedgerEntries(ctx, accountID)
}
