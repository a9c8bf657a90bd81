package handler

import (
	"net/http"
)

// Products возвращает доступные инвестиционные уровни.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.fail(w, r, err, "list products error")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// ActivateProduct активирует инвестиционный уровень за счёт основного баланса.
func (h *Handler) ActivateProduct(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	productID, ok := pathID(w, r)
	if !ok {
		return
	}

	task, err := h.service.ActivateProduct(r.Context(), accountID, productID)
	if err != nil {
		h.fail(w, r, err, "activate product error")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// Tasks начисляет причитающийся доход и возвращает задачи.
func (h *Handler) Tasks(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	overview, err := h.service.Tasks(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, err, "list tasks error")
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// Income начисляет причитающийся доход и возвращает сводку.
func (h *Handler) Income(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Income(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, err, "income summary error")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
