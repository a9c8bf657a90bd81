package handler

import (
	"net/http"

	"github.com/mmeshcher/investplatform/internal/model"
	"github.com/mmeshcher/investplatform/internal/service"
)

type registerRequest struct {
	Phone      string `json:"phone" validate:"required"`
	Password   string `json:"password" validate:"required,min=6,max=72"`
	InviteCode string `json:"invite_code" validate:"omitempty,max=32"`
}

type registerResponse struct {
	Account *model.Account `json:"account"`
	Warning string         `json:"warning,omitempty"`
}

// Register регистрирует учётную запись и открывает сессию. Неизвестный код
// приглашения не мешает регистрации и возвращается предупреждением.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	reg, err := h.service.Register(r.Context(), req.Phone, req.Password, req.InviteCode)
	if err != nil {
		h.fail(w, r, err, "register account error")
		return
	}

	resp := registerResponse{Account: reg.Account}
	if reg.InviteCodeErr != nil {
		resp.Warning = reg.InviteCodeErr.Error()
	}

	h.authMiddleware.SetAuthCookie(w, reg.Account.ID)
	writeJSON(w, http.StatusCreated, resp)
}

type loginRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login проверяет телефон и пароль и открывает сессию.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	accountID, err := h.service.Authenticate(r.Context(), req.Phone, req.Password)
	if err != nil {
		h.fail(w, r, err, "login error")
		return
	}

	h.authMiddleware.SetAuthCookie(w, accountID)
	w.WriteHeader(http.StatusOK)
}

// Logout закрывает сессию.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Account возвращает балансы и состояние учётной записи.
func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	acc, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, err, "get account error")
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

// ChangePassword меняет пароль учётной записи.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), accountID, req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(w, r, err, "change password error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Profile возвращает анкету пользователя.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetProfile(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, err, "get profile error")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type profileRequest struct {
	FullName string `json:"full_name" validate:"max=200"`
	BankName string `json:"bank_name" validate:"max=100"`
	IBAN     string `json:"iban" validate:"max=64"`
}

// UpdateProfile сохраняет анкету пользователя.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.UpdateProfile(r.Context(), model.Profile{
		AccountID: accountID,
		FullName:  req.FullName,
		BankName:  req.BankName,
		IBAN:      req.IBAN,
	})
	if err != nil {
		h.fail(w, r, err, "update profile error")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Team возвращает приглашённых пользователей.
func (h *Handler) Team(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	team, err := h.service.Team(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, err, "get team error")
		return
	}
	writeJSON(w, http.StatusOK, team)
}

var _ Service = (*service.Service)(nil)
