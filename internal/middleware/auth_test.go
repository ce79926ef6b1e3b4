package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRequest(t *testing.T, secret, authHeader string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	var seenUserID string
	h := AuthMiddleware(secret)(func(c echo.Context) error {
		seenUserID = UserID(c)
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, seenUserID
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	token, err := GenerateToken("secret", "waiter-1", "staff")
	require.NoError(t, err)

	rec, userID := runRequest(t, "secret", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "waiter-1", userID)
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	rec, _ := runRequest(t, "secret", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = runRequest(t, "secret", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := GenerateToken("other-secret", "waiter-1", "staff")
	require.NoError(t, err)
	rec, _ = runRequest(t, "secret", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
