package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	require.NoError(t, Init())
}

func TestGenerateAndValidateToken(t *testing.T) {
	initTestSecret(t)

	token, err := GenerateToken("reviewer")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "reviewer", claims.UserID)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	initTestSecret(t)

	_, err := ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestInitRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	assert.Error(t, Init())
}

func TestMiddlewareSkipsPublicPaths(t *testing.T) {
	initTestSecret(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := JWTMiddleware(next)

	for _, path := range []string{"/health", "/api/login"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	initTestSecret(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})
	rec := httptest.NewRecorder()
	JWTMiddleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewarePassesClaimsToHandler(t *testing.T) {
	initTestSecret(t)

	token, err := GenerateToken("reviewer")
	require.NoError(t, err)

	var gotUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := GetClaimsFromContext(r.Context())
		require.NoError(t, err)
		gotUser = claims.UserID
	})

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	JWTMiddleware(next).ServeHTTP(rec, req)

	assert.Equal(t, "reviewer", gotUser)
}

func TestLoginHandler(t *testing.T) {
	initTestSecret(t)
	t.Setenv("API_USER", "ap-team")
	t.Setenv("API_PASSWORD", "hunter2")

	t.Run("valid credentials", func(t *testing.T) {
		body := strings.NewReader(`{"username":"ap-team","password":"hunter2"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/login", body)
		rec := httptest.NewRecorder()
		LoginHandler(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"token"`)
	})

	t.Run("wrong password", func(t *testing.T) {
		body := strings.NewReader(`{"username":"ap-team","password":"wrong"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/login", body)
		rec := httptest.NewRecorder()
		LoginHandler(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		body := strings.NewReader(`{"username":"ap-team"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/login", body)
		rec := httptest.NewRecorder()
		LoginHandler(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
