package handler

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/mmeshcher/investplatform/internal/model"
	"github.com/mmeshcher/investplatform/internal/service"
)

const maxProofSize = 5 << 20

// Banks возвращает реквизиты платформы для пополнения.
func (h *Handler) Banks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.service.ListBanks(r.Context())
	if err != nil {
		h.fail(w, r, err, "list banks error")
		return
	}
	writeJSON(w, http.StatusOK, banks)
}

type depositRequest struct {
	BankID int64        `json:"bank_id" validate:"required,gt=0"`
	Amount model.Amount `json:"amount" validate:"gt=0"`
}

// CreateDeposit принимает заявку на пополнение. Тело запроса может быть JSON или
// multipart/form-data с полями bank_id, amount и файлом proof.
func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	var (
		req   depositRequest
		proof *service.Proof
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxProofSize+1<<20)
		if err := r.ParseMultipartForm(maxProofSize); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "proof file is too large")
				return
			}
			writeError(w, http.StatusBadRequest, "malformed multipart body")
			return
		}

		bankID, err := strconv.ParseInt(r.FormValue("bank_id"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:  "validation failed",
				Fields: map[string]string{"bank_id": "must be a number"},
			})
			return
		}
		amount, err := model.ParseAmount(r.FormValue("amount"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:  "validation failed",
				Fields: map[string]string{"amount": "must be a decimal with at most two places"},
			})
			return
		}
		req = depositRequest{BankID: bankID, Amount: amount}
		if !h.check(w, &req) {
			return
		}

		file, header, err := r.FormFile("proof")
		switch {
		case err == nil:
			defer file.Close()
			proof = &service.Proof{Filename: header.Filename, Body: file}
		case !errors.Is(err, http.ErrMissingFile):
			writeError(w, http.StatusBadRequest, "malformed proof file")
			return
		}
	} else if !h.decode(w, r, &req) {
		return
	}

	d, err := h.service.CreateDeposit(r.Context(), accountID, req.BankID, req.Amount, proof)
	if err != nil {
		h.fail(w, r, err, "create deposit error")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// Deposits возвращает заявки на пополнение.
func (h *Handler) Deposits(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	deposits, err := h.service.ListDeposits(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, err, "list deposits error")
		return
	}
	writeJSON(w, http.StatusOK, deposits)
}

// BankAccounts возвращает счета для вывода.
func (h *Handler) BankAccounts(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	accounts, err := h.service.ListBankAccounts(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, err, "list bank accounts error")
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

type bankAccountRequest struct {
	BankName    string `json:"bank_name" validate:"required,max=100"`
	AccountName string `json:"account_name" validate:"required,max=200"`
	IBAN        string `json:"iban" validate:"required,max=64"`
}

// AddBankAccount привязывает счёт для вывода.
func (h *Handler) AddBankAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	var req bankAccountRequest
	if !h.decode(w, r, &req) {
		return
	}

	ba, err := h.service.AddBankAccount(r.Context(), model.BankAccount{
		AccountID:   accountID,
		BankName:    req.BankName,
		AccountName: req.AccountName,
		IBAN:        req.IBAN,
	})
	if err != nil {
		h.fail(w, r, err, "add bank account error")
		return
	}
	writeJSON(w, http.StatusCreated, ba)
}

type withdrawalRequest struct {
	BankAccountID int64        `json:"bank_account_id" validate:"required,gt=0"`
	Amount        model.Amount `json:"amount" validate:"gt=0"`
}

// CreateWithdrawal создаёт заявку на вывод и удерживает сумму с баланса.
func (h *Handler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	var req withdrawalRequest
	if !h.decode(w, r, &req) {
		return
	}

	wd, err := h.service.CreateWithdrawal(r.Context(), accountID, req.BankAccountID, req.Amount)
	if err != nil {
		h.fail(w, r, err, "create withdrawal error")
		return
	}
	writeJSON(w, http.StatusCreated, wd)
}

// Withdrawals возвращает заявки на вывод.
func (h *Handler) Withdrawals(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	withdrawals, err := h.service.ListWithdrawals(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, err, "list withdrawals error")
		return
	}
	writeJSON(w, http.StatusOK, withdrawals)
}

// Transactions возвращает журнал движения средств.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	entries, err := h.service.Transactions(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, err, "list transactions error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
