package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bookcraft-backend/internal/session"
)

type contextKey string

const IdentityKey contextKey = "identity"

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrInvalidToken = errors.New("invalid token")
)

// JWTAuth verifies HS256 tokens carrying a user_id claim and an optional
// tenant claim.
type JWTAuth struct {
	Secret        []byte
	DefaultTenant string
}

func NewJWTAuth(secret, defaultTenant string) *JWTAuth {
	return &JWTAuth{Secret: []byte(secret), DefaultTenant: defaultTenant}
}

// GenerateToken issues a token for userID. An empty tenant leaves the claim
// out so the default tenant applies.
func (j *JWTAuth) GenerateToken(tenant, userID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(ttl).Unix(),
		"iat":     time.Now().Unix(),
	}
	if tenant != "" {
		claims["tenant"] = tenant
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// ParseToken verifies tokenStr and returns the identity it names.
func (j *JWTAuth) ParseToken(tokenStr string) (session.Identity, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return session.Identity{}, ErrTokenExpired
		}
		return session.Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return session.Identity{}, ErrInvalidToken
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return session.Identity{}, ErrInvalidToken
	}
	tenant, _ := claims["tenant"].(string)
	if tenant == "" {
		tenant = j.DefaultTenant
	}
	return session.Identity{Tenant: tenant, UserID: userID}, nil
}

// Middleware validates the bearer token and attaches the identity to the
// request context.
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header", r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format", r)
			return
		}

		id, err := j.ParseToken(parts[1])
		if errors.Is(err, ErrTokenExpired) {
			writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", r)
			return
		}
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// GetIdentity extracts the caller's identity from request context
func GetIdentity(ctx context.Context) session.Identity {
	id, _ := ctx.Value(IdentityKey).(session.Identity)
	return id
}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id session.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}
