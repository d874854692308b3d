package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casanoova/compass/internal/models"
	"github.com/casanoova/compass/internal/services"
)

var testCaller = services.Caller{UserID: "u1", Email: "a@example.com", Role: models.RoleAdmin}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("s3cret", "compass")
	tok, err := tokens.Issue(testCaller, services.PurposeSession, time.Hour)
	require.NoError(t, err)

	got, err := tokens.Parse(tok, services.PurposeSession)
	require.NoError(t, err)
	assert.Equal(t, testCaller, got)

	_, err = tokens.Parse(tok, services.PurposeMagicLink)
	assert.Error(t, err)

	_, err = NewTokens("other", "compass").Parse(tok, services.PurposeSession)
	assert.Error(t, err)
	_, err = NewTokens("s3cret", "someone-else").Parse(tok, services.PurposeSession)
	assert.Error(t, err)
}

func TestTokensExpire(t *testing.T) {
	tokens := NewTokens("s3cret", "")
	base := time.Now()
	tokens.now = func() time.Time { return base }
	tok, err := tokens.Issue(testCaller, services.PurposeMagicLink, time.Minute)
	require.NoError(t, err)

	tokens.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = tokens.Parse(tok, services.PurposeMagicLink)
	assert.Error(t, err)
}

func TestWithAuthAndRequireAuth(t *testing.T) {
	tokens := NewTokens("s3cret", "compass")
	var seen services.Caller
	h := WithAuth(tokens)(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CallerFromContext(r.Context())
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	magic, err := tokens.Issue(testCaller, services.PurposeMagicLink, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+magic)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "magic-link tokens are not sessions")

	session, err := tokens.Issue(testCaller, services.PurposeSession, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+session)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testCaller, seen)
}

func TestRequireBearer(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	for name, tc := range map[string]struct {
		secret, header string
		want           int
	}{
		"match":    {"cron", "Bearer cron", http.StatusOK},
		"mismatch": {"cron", "Bearer nope", http.StatusUnauthorized},
		"disabled": {"", "Bearer ", http.StatusUnauthorized},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.Header.Set("Authorization", tc.header)
			rec := httptest.NewRecorder()
			RequireBearer(tc.secret)(ok).ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example.com/"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLocaleMiddleware(t *testing.T) {
	var got string
	h := LocaleMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/?lang=", nil)
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "de", got)
	assert.Equal(t, "de", rec.Header().Get("Content-Language"))
}

func TestRequestIDAndLogger(t *testing.T) {
	var route string
	var status int
	h := RequestID(Logger(func(_ string, r string, s int, _ time.Duration) {
		route, status = r, s
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-1", RequestIDFromContext(r.Context()))
		w.WriteHeader(http.StatusTeapot)
	})))
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, http.StatusTeapot, status)
	assert.Equal(t, "unmatched", route)
}
