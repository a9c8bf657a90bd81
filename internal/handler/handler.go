// Package handler содержит HTTP-обработчики API инвестиционной платформы.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mmeshcher/investplatform/internal/middleware"
	"github.com/mmeshcher/investplatform/internal/model"
	"github.com/mmeshcher/investplatform/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error

	Register(ctx context.Context, phone, password, inviteCode string) (*service.Registration, error)
	Authenticate(ctx context.Context, phone, password string) (int64, error)
	ChangePassword(ctx context.Context, accountID int64, current, next string) error
	GetAccount(ctx context.Context, accountID int64) (*model.Account, error)
	GetProfile(ctx context.Context, accountID int64) (*model.Profile, error)
	UpdateProfile(ctx context.Context, p model.Profile) (*model.Profile, error)
	Team(ctx context.Context, accountID int64) (*service.Team, error)

	ListProducts(ctx context.Context) ([]model.Product, error)
	CreateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	ActivateProduct(ctx context.Context, accountID, productID int64) (*model.Task, error)
	Tasks(ctx context.Context, accountID int64) (*service.TasksOverview, error)
	Income(ctx context.Context, accountID int64) (*service.IncomeSummary, error)

	ListBanks(ctx context.Context) ([]model.Bank, error)
	CreateBank(ctx context.Context, b model.Bank) (*model.Bank, error)
	CreateDeposit(ctx context.Context, accountID, bankID int64, amount model.Amount, proof *service.Proof) (*model.Deposit, error)
	ApproveDeposit(ctx context.Context, depositID int64) (*model.Deposit, error)
	RejectDeposit(ctx context.Context, depositID int64) (*model.Deposit, error)
	ListDeposits(ctx context.Context, accountID int64) ([]model.Deposit, error)
	PendingDeposits(ctx context.Context) ([]model.Deposit, error)

	ListBankAccounts(ctx context.Context, accountID int64) ([]model.BankAccount, error)
	AddBankAccount(ctx context.Context, b model.BankAccount) (*model.BankAccount, error)
	CreateWithdrawal(ctx context.Context, accountID, bankAccountID int64, amount model.Amount) (*model.Withdrawal, error)
	ApproveWithdrawal(ctx context.Context, withdrawalID int64) (*model.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, withdrawalID int64) (*model.Withdrawal, error)
	ListWithdrawals(ctx context.Context, accountID int64) ([]model.Withdrawal, error)
	PendingWithdrawals(ctx context.Context) ([]model.Withdrawal, error)
	Transactions(ctx context.Context, accountID int64) ([]model.LedgerEntry, error)

	WheelStatus(ctx context.Context, accountID int64) (*service.WheelStatus, error)
	SpinWheel(ctx context.Context, accountID int64) (*model.Spin, error)
	ListSpins(ctx context.Context, accountID int64) ([]model.Spin, error)
	ListPrizes(ctx context.Context) ([]model.Prize, error)
	CreatePrize(ctx context.Context, p model.Prize) (*model.Prize, error)
}

// Handler реализует HTTP-обработчики API платформы.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	validate       *validator.Validate

	adminToken  string
	rateLimiter *middleware.RateLimiter
	metrics     http.Handler
	trustProxy  bool
}

// Option настраивает необязательные части Handler.
type Option func(*Handler)

// WithAdminToken включает административный API с указанным токеном.
func WithAdminToken(token string) Option {
	return func(h *Handler) { h.adminToken = token }
}

// WithRateLimiter ограничивает частоту запросов регистрации и входа.
func WithRateLimiter(rl *middleware.RateLimiter) Option {
	return func(h *Handler) { h.rateLimiter = rl }
}

// WithTrustedProxy берёт адрес клиента из X-Forwarded-For и X-Real-IP.
// Включается только за обратным прокси, который перезаписывает эти заголовки,
// иначе клиент обходит ограничение частоты подменой адреса.
func WithTrustedProxy(trust bool) Option {
	return func(h *Handler) { h.trustProxy = trust }
}

// WithMetrics публикует метрики по пути /metrics.
func WithMetrics(m http.Handler) Option {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, opts ...Option) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	h := &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		validate:       v,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decode читает JSON-тело запроса и проверяет его теги validate.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return h.check(w, dst)
}

func (h *Handler) check(w http.ResponseWriter, dst any) bool {
	err := h.validate.Struct(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
	return false
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// fail переводит ошибку сервиса в HTTP-ответ.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "validation failed",
			Fields: map[string]string{verr.Field: verr.Message},
		})
	case errors.Is(err, service.ErrInvalidPhone):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "validation failed",
			Fields: map[string]string{"phone": "invalid phone number"},
		})
	case errors.Is(err, service.ErrBelowMinimumAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid phone or password")
	case errors.Is(err, service.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, "insufficient funds")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotAnUpgrade),
		errors.Is(err, service.ErrNotPending),
		errors.Is(err, service.ErrQuotaExhausted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNoPrizesConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled):
		// клиент ушёл
	default:
		h.logger.Error(msg, zap.Error(err), zap.String("path", r.URL.Path))
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func (h *Handler) accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
	}
	return id, ok
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// Health проверяет доступность хранилища.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
