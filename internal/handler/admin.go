package handler

import (
	"context"
	"net/http"

	"github.com/mmeshcher/investplatform/internal/model"
)

// PendingDeposits возвращает заявки на пополнение, ожидающие решения.
func (h *Handler) PendingDeposits(w http.ResponseWriter, r *http.Request) {
	deposits, err := h.service.PendingDeposits(r.Context())
	if err != nil {
		h.fail(w, r, err, "list pending deposits error")
		return
	}
	writeJSON(w, http.StatusOK, deposits)
}

// ApproveDeposit одобряет заявку на пополнение.
func (h *Handler) ApproveDeposit(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approve deposit error", func(ctx context.Context, id int64) (any, error) {
		return h.service.ApproveDeposit(ctx, id)
	})
}

// RejectDeposit отклоняет заявку на пополнение.
func (h *Handler) RejectDeposit(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "reject deposit error", func(ctx context.Context, id int64) (any, error) {
		return h.service.RejectDeposit(ctx, id)
	})
}

// PendingWithdrawals возвращает заявки на вывод, ожидающие решения.
func (h *Handler) PendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	withdrawals, err := h.service.PendingWithdrawals(r.Context())
	if err != nil {
		h.fail(w, r, err, "list pending withdrawals error")
		return
	}
	writeJSON(w, http.StatusOK, withdrawals)
}

// ApproveWithdrawal одобряет заявку на вывод.
func (h *Handler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approve withdrawal error", func(ctx context.Context, id int64) (any, error) {
		return h.service.ApproveWithdrawal(ctx, id)
	})
}

// RejectWithdrawal отклоняет заявку на вывод с возвратом удержанной суммы.
func (h *Handler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "reject withdrawal error", func(ctx context.Context, id int64) (any, error) {
		return h.service.RejectWithdrawal(ctx, id)
	})
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, msg string, fn func(context.Context, int64) (any, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	res, err := fn(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, msg)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type productRequest struct {
	LevelName        string       `json:"level_name" validate:"required,max=50"`
	MinDepositAmount model.Amount `json:"min_deposit_amount" validate:"gte=0"`
	DailyIncome      model.Amount `json:"daily_income" validate:"gte=0"`
	DurationDays     int          `json:"duration_days" validate:"gt=0"`
	Order            int          `json:"order"`
	IsActive         *bool        `json:"is_active"`
}

// CreateProduct добавляет инвестиционный уровень.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.CreateProduct(r.Context(), model.Product{
		LevelName:        req.LevelName,
		MinDepositAmount: req.MinDepositAmount,
		DailyIncome:      req.DailyIncome,
		DurationDays:     req.DurationDays,
		Order:            req.Order,
		IsActive:         active(req.IsActive),
	})
	if err != nil {
		h.fail(w, r, err, "create product error")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type bankRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	AccountName string `json:"account_name" validate:"required,max=200"`
	IBAN        string `json:"iban" validate:"required,max=64"`
	IsActive    *bool  `json:"is_active"`
}

// CreateBank добавляет реквизиты платформы для пополнения.
func (h *Handler) CreateBank(w http.ResponseWriter, r *http.Request) {
	var req bankRequest
	if !h.decode(w, r, &req) {
		return
	}

	b, err := h.service.CreateBank(r.Context(), model.Bank{
		Name:        req.Name,
		AccountName: req.AccountName,
		IBAN:        req.IBAN,
		IsActive:    active(req.IsActive),
	})
	if err != nil {
		h.fail(w, r, err, "create bank error")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// Prizes возвращает все сектора колеса, включая неактивные.
func (h *Handler) Prizes(w http.ResponseWriter, r *http.Request) {
	prizes, err := h.service.ListPrizes(r.Context())
	if err != nil {
		h.fail(w, r, err, "list prizes error")
		return
	}
	writeJSON(w, http.StatusOK, prizes)
}

type prizeRequest struct {
	Name     string       `json:"name" validate:"required,max=100"`
	Value    model.Amount `json:"value" validate:"gte=0"`
	Weight   int          `json:"weight" validate:"gte=0"`
	IsActive *bool        `json:"is_active"`
}

// CreatePrize добавляет сектор колеса.
func (h *Handler) CreatePrize(w http.ResponseWriter, r *http.Request) {
	var req prizeRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.CreatePrize(r.Context(), model.Prize{
		Name:     req.Name,
		Value:    req.Value,
		Weight:   req.Weight,
		IsActive: active(req.IsActive),
	})
	if err != nil {
		h.fail(w, r, err, "create prize error")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// active по умолчанию считает новую запись активной.
func active(v *bool) bool {
	return v == nil || *v
}
