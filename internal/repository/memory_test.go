package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/investplatform/internal/model"
)

func createAccount(t *testing.T, repo *MemoryRepository, phone, code string) int64 {
	t.Helper()

	var id int64
	err := repo.WithinTx(context.Background(), func(tx Tx) error {
		var err error
		id, err = tx.CreateAccount(context.Background(), &model.Account{
			Phone:          phone,
			PasswordHash:   []byte("hash"),
			InvitationCode: code,
		})
		return err
	})
	require.NoError(t, err)
	return id
}

func TestMemoryRepository_RollbackOnError(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	id := createAccount(t, repo, "923000001", "AAAAAAAAAA")

	boom := errors.New("boom")
	err := repo.WithinTx(ctx, func(tx Tx) error {
		a, err := tx.GetAccountForUpdate(ctx, id)
		if err != nil {
			return err
		}
		a.Balance = model.Units(500)
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		if err := tx.AppendLedgerEntry(ctx, &model.LedgerEntry{AccountID: id, Kind: model.EntryDeposit, Amount: a.Balance}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	a, err := repo.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.Amount(0), a.Balance)

	entries, err := repo.ListLedgerEntries(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemoryRepository_UniqueConstraints(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	createAccount(t, repo, "923000001", "AAAAAAAAAA")

	err := repo.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.CreateAccount(ctx, &model.Account{Phone: "923000001", InvitationCode: "BBBBBBBBBB"})
		return err
	})
	assert.ErrorIs(t, err, ErrPhoneTaken)

	err = repo.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.CreateAccount(ctx, &model.Account{Phone: "923000002", InvitationCode: "AAAAAAAAAA"})
		return err
	})
	assert.ErrorIs(t, err, ErrInvitationCodeTaken)

	_, err = repo.CreateProduct(ctx, &model.Product{LevelName: "VIP1"})
	require.NoError(t, err)
	_, err = repo.CreateProduct(ctx, &model.Product{LevelName: "VIP1"})
	assert.ErrorIs(t, err, ErrLevelNameTaken)
}

func TestMemoryRepository_SingleActiveTask(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	id := createAccount(t, repo, "923000001", "AAAAAAAAAA")
	productID, err := repo.CreateProduct(ctx, &model.Product{LevelName: "VIP1", DurationDays: 10, IsActive: true})
	require.NoError(t, err)

	err = repo.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.CreateTask(ctx, &model.Task{AccountID: id, ProductID: productID}); err != nil {
			return err
		}
		_, err := tx.CreateTask(ctx, &model.Task{AccountID: id, ProductID: productID})
		return err
	})
	require.ErrorIs(t, err, ErrActiveTaskExists)

	tasks, err := repo.ListTasks(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	err = repo.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.CreateTask(ctx, &model.Task{AccountID: id, ProductID: productID})
		return err
	})
	require.NoError(t, err)

	tasks, err = repo.ListTasks(ctx, id)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "VIP1", tasks[0].Product.LevelName)

	ids, err := repo.ListAccountsWithActiveTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids)
}

func TestMemoryRepository_BankAccountIBANUnique(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	first := createAccount(t, repo, "923000001", "AAAAAAAAAA")
	second := createAccount(t, repo, "923000002", "BBBBBBBBBB")

	create := func(accountID int64) error {
		return repo.WithinTx(ctx, func(tx Tx) error {
			_, err := tx.CreateBankAccount(ctx, &model.BankAccount{
				AccountID: accountID,
				IBAN:      "GB82WEST12345698765432",
				IsActive:  true,
			})
			return err
		})
	}

	require.NoError(t, create(first))
	assert.ErrorIs(t, create(second), ErrIBANTaken)
}

func TestMemoryRepository_CanceledContext(t *testing.T) {
	repo := NewMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := repo.WithinTx(ctx, func(tx Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
