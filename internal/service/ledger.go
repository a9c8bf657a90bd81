package service

import (
	"context"
	"fmt"

	"github.com/mmeshcher/investplatform/internal/metrics"
	"github.com/mmeshcher/investplatform/internal/model"
	"github.com/mmeshcher/investplatform/internal/repository"
)

// ledger изменяет балансы учётной записи и пишет проводки в рамках одной транзакции.
// Изменённую учётную запись сохраняет вызывающий код через UpdateAccount.
type ledger struct {
	tx      repository.Tx
	entries []model.LedgerEntry
}

func (l *ledger) credit(ctx context.Context, a *model.Account, amount model.Amount, kind model.EntryKind, ref string) error {
	if amount < 0 {
		return fmt.Errorf("credit %s: negative amount %s", kind, amount)
	}
	a.Balance += amount
	return l.append(ctx, a.ID, model.WalletMain, kind, amount, a.Balance, ref)
}

func (l *ledger) debit(ctx context.Context, a *model.Account, amount model.Amount, kind model.EntryKind, ref string) error {
	if amount < 0 {
		return fmt.Errorf("debit %s: negative amount %s", kind, amount)
	}
	if amount > a.Balance {
		return fmt.Errorf("%w: balance %s, required %s", ErrInsufficientFunds, a.Balance, amount)
	}
	a.Balance -= amount
	return l.append(ctx, a.ID, model.WalletMain, kind, -amount, a.Balance, ref)
}

func (l *ledger) creditBonus(ctx context.Context, a *model.Account, amount model.Amount, kind model.EntryKind, ref string) error {
	if amount < 0 {
		return fmt.Errorf("credit bonus %s: negative amount %s", kind, amount)
	}
	a.BonusBalance += amount
	return l.append(ctx, a.ID, model.WalletBonus, kind, amount, a.BonusBalance, ref)
}

func (l *ledger) append(ctx context.Context, accountID int64, wallet model.Wallet, kind model.EntryKind, amount, after model.Amount, ref string) error {
	e := model.LedgerEntry{
		AccountID:    accountID,
		Wallet:       wallet,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: after,
		Reference:    ref,
	}
	if err := l.tx.AppendLedgerEntry(ctx, &e); err != nil {
		return err
	}
	l.entries = append(l.entries, e)
	return nil
}

func (l *ledger) publish() {
	for _, e := range l.entries {
		amount, _ := e.Amount.Decimal().Float64()
		metrics.RecordLedgerEntry(string(e.Wallet), string(e.Kind), amount)
	}
}
