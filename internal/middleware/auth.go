package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/casanoova/compass/internal/models"
	"github.com/casanoova/compass/internal/services"
)

type authCtxKey int

const authKey authCtxKey = 7

type Claims struct {
	UID     string `json:"uid"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens. It implements services.TokenIssuer.
type Tokens struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewTokens(secret, issuer string) *Tokens {
	return &Tokens{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (t *Tokens) Issue(c services.Caller, purpose services.TokenPurpose, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		UID:     c.UserID,
		Email:   c.Email,
		Role:    string(c.Role),
		Purpose: string(purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   c.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *Tokens) parse(tok string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tok, &Claims{}, func(*jwt.Token) (interface{}, error) { return t.secret, nil }, opts...)
	if err != nil {
		return nil, err
	}
	if c, ok := parsed.Claims.(*Claims); ok && parsed.Valid {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

func (t *Tokens) Parse(tok string, purpose services.TokenPurpose) (services.Caller, error) {
	c, err := t.parse(tok)
	if err != nil {
		return services.Caller{}, err
	}
	if c.Purpose != string(purpose) {
		return services.Caller{}, errors.New("token purpose mismatch")
	}
	return services.Caller{UserID: c.UID, Email: c.Email, Role: models.Role(c.Role)}, nil
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// WithAuth attaches the session caller to the context when a valid bearer
// token is present. Requests without one pass through anonymously.
func WithAuth(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := bearer(r); tok != "" {
				if c, err := tokens.Parse(tok, services.PurposeSession); err == nil {
					ctx := context.WithValue(r.Context(), authKey, c)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CallerFromContext(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireBearer guards machine endpoints with a shared secret. An empty
// secret disables the endpoint.
func RequireBearer(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearer(r)
			if secret == "" || subtle.ConstantTimeCompare([]byte(tok), []byte(secret)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CallerFromContext(ctx context.Context) (services.Caller, bool) {
	if c, ok := ctx.Value(authKey).(services.Caller); ok && c.Authenticated() {
		return c, true
	}
	return services.Caller{}, false
}

// ContextWithCaller is used by tests and internal jobs to act as a caller.
func ContextWithCaller(ctx context.Context, c services.Caller) context.Context {
	return context.WithValue(ctx, authKey, c)
}
