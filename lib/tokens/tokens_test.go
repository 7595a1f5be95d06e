package tokens

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	secret  = []byte("supersecret")
	address = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func newEcho(mw echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, Caller(c).Hex())
	}, mw)
	return e
}

func get(e *echo.Echo, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateAccessToken(secret, 3600, address)
	require.NoError(t, err)

	parsed, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, address, parsed)

	_, err = ParseToken([]byte("other"), token)
	assert.Error(t, err)

	expired, err := GenerateAccessToken(secret, -10, address)
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.Error(t, err)

	noAddress, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"address": "bob"}).SignedString(secret)
	require.NoError(t, err)
	_, err = ParseToken(secret, noAddress)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	e := newEcho(Middleware(secret))
	token, err := GenerateAccessToken(secret, 3600, address)
	require.NoError(t, err)

	rec := get(e, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, address.Hex(), rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(e, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(e, "Bearer nope").Code)
	forged, err := GenerateAccessToken([]byte("other"), 3600, address)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(e, "Bearer "+forged).Code)
}

func TestAdminTokenMiddleware(t *testing.T) {
	e := newEcho(AdminTokenMiddleware("admin"))
	assert.Equal(t, http.StatusOK, get(e, "Bearer admin").Code)
	assert.Equal(t, http.StatusUnauthorized, get(e, "Bearer nimda").Code)
	assert.Equal(t, http.StatusBadRequest, get(e, "").Code)

	closed := newEcho(AdminTokenMiddleware(""))
	assert.Equal(t, http.StatusUnauthorized, get(closed, "Bearer admin").Code)
}
