// Package middleware содержит HTTP middleware инвестиционной платформы.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type contextKey string

const accountIDKey contextKey = "accountID"

const (
	authCookieName = "auth_token"
	authCookieTTL  = 30 * 24 * time.Hour
)

// AuthMiddleware проверяет подписанный cookie сессии.
type AuthMiddleware struct {
	secretKey []byte
	secure    bool
}

// NewAuthMiddleware создаёт AuthMiddleware. При пустом секрете генерируется случайный ключ,
// и сессии не переживают перезапуск процесса.
func NewAuthMiddleware(secret string, secureCookie bool) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic("middleware: read random auth key: " + err.Error())
		}
	}

	return &AuthMiddleware{
		secretKey: key,
		secure:    secureCookie,
	}
}

// Middleware проверяет cookie и кладёт идентификатор учётной записи в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		accountID, ok := a.parse(cookie.Value)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid session")
			return
		}

		ctx := context.WithValue(r.Context(), accountIDKey, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetAuthCookie выдаёт cookie сессии для учётной записи.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, accountID int64) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    a.sign(strconv.FormatInt(accountID, 10)),
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookie удаляет cookie сессии.
func (a *AuthMiddleware) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *AuthMiddleware) sign(id string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(id))
	return id + "." + hex.EncodeToString(mac.Sum(nil))
}

func (a *AuthMiddleware) parse(value string) (int64, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return 0, false
	}

	_, expected, _ := strings.Cut(a.sign(id), ".")
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return 0, false
	}

	accountID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || accountID <= 0 {
		return 0, false
	}
	return accountID, true
}

// AccountIDFromContext извлекает идентификатор учётной записи из контекста запроса.
func AccountIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(accountIDKey).(int64)
	return id, ok
}

// WithAccountID возвращает контекст с идентификатором учётной записи.
func WithAccountID(ctx context.Context, accountID int64) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}
