package infrastructure

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	pkgApp "github.com/siddharth-2002/API-Workindia/pkg/application"
)

const adminAPIKeyHeader = "x-api-key"

type AuthConfig struct {
	JWTSecret   []byte
	AdminAPIKey string
}

type userIDKey struct{}

// UserIDFromContext devolve o usuário autenticado pelo RequireUser.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey{}).(int64)
	return userID, ok
}

// RequestIDToContext copia o request id do chi para o contexto lido pelos loggers.
func RequestIDToContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestID := middleware.GetReqID(r.Context()); requestID != "" {
			r = r.WithContext(pkgApp.WithRequestID(r.Context(), requestID))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser valida o bearer token HS256 e coloca a claim id no contexto.
func RequireUser(auth AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				handleError(w, "Authorization token required", http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (interface{}, error) {
				return auth.JWTSecret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				handleError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			userID, err := claimUserID(claims["id"])
			if err != nil {
				handleError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey{}, userID)))
		})
	}
}

func claimUserID(claim interface{}) (int64, error) {
	switch v := claim.(type) {
	case float64:
		if v <= 0 || v != float64(int64(v)) {
			return 0, fmt.Errorf("invalid id claim %v", v)
		}
		return int64(v), nil
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("invalid id claim %q", v)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("missing id claim")
	}
}

// RequireAdminKey protege as rotas administrativas com a chave compartilhada.
func RequireAdminKey(auth AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(adminAPIKeyHeader)
			if auth.AdminAPIKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(auth.AdminAPIKey)) != 1 {
				handleError(w, "Invalid API key", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
