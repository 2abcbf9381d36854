// Package middleware содержит HTTP middleware кассы прачечной.
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

const sessionKey contextKey = "session"

const (
	authCookieName = "pos_session"
	authCookieTTL  = 12 * time.Hour
)

// Session описывает авторизованного сотрудника и его точку.
type Session struct {
	StaffID int64
	StoreID int64
}

// AuthMiddleware проверяет сессию сотрудника по подписанному cookie.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт AuthMiddleware. При пустом секрете генерируется случайный ключ,
// и сессии не переживают перезапуск.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// Middleware проверяет cookie и кладёт сессию в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		session, ok := a.parseCookie(cookie.Value)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetAuthCookie выставляет cookie сессии сотрудника.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, s Session) {
	payload := strconv.FormatInt(s.StaffID, 10) + ":" + strconv.FormatInt(s.StoreID, 10)

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    payload + "." + a.sign(payload),
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *AuthMiddleware) sign(payload string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *AuthMiddleware) parseCookie(value string) (Session, bool) {
	payload, signature, ok := strings.Cut(value, ".")
	if !ok {
		return Session{}, false
	}

	if !hmac.Equal([]byte(signature), []byte(a.sign(payload))) {
		return Session{}, false
	}

	staff, store, ok := strings.Cut(payload, ":")
	if !ok {
		return Session{}, false
	}

	staffID, err := strconv.ParseInt(staff, 10, 64)
	if err != nil {
		return Session{}, false
	}
	storeID, err := strconv.ParseInt(store, 10, 64)
	if err != nil {
		return Session{}, false
	}

	return Session{StaffID: staffID, StoreID: storeID}, true
}

// GetSessionFromContext извлекает сессию сотрудника из контекста запроса.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}
