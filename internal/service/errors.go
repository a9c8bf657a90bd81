package service

import "errors"

// Ошибки бизнес-правил. Все проверки выполняются до изменения состояния.
var (
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrInvalidInviteCode  = errors.New("invitation code does not match any account")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicate          = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrBelowMinimumAmount = errors.New("amount is below the minimum")
	ErrNotAnUpgrade       = errors.New("product is not an upgrade of the current one")
	ErrNotPending         = errors.New("request is no longer pending")
	ErrQuotaExhausted     = errors.New("no spins left for today")
	ErrNoPrizesConfigured = errors.New("no prizes configured")
)

// ValidationError описывает некорректное значение поля запроса.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
