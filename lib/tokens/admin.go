package tokens

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// AdminTokenMiddleware guards owner operations. Without a configured token
// every request is rejected.
func AdminTokenMiddleware(token string) echo.MiddlewareFunc {
	return middleware.KeyAuth(func(auth string, c echo.Context) (bool, error) {
		if token == "" {
			return false, nil
		}
		return subtle.ConstantTimeCompare([]byte(auth), []byte(token)) == 1, nil
	})
}
