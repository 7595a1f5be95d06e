package tokens

import (
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	kycommon "github.com/getAlby/kychub.go/common"
	"github.com/getAlby/kychub.go/lib/responses"
	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type jwtCustomClaims struct {
	Address string `json:"address"`

	jwt.StandardClaims
}

func (c *jwtCustomClaims) Valid() error {
	if !common.IsHexAddress(c.Address) {
		return errors.New("address claim is not an address")
	}
	return c.StandardClaims.Valid()
}

// GenerateAccessToken mints a token authenticating address, expiry is in seconds.
func GenerateAccessToken(secret []byte, expiry int, address common.Address) (string, error) {
	claims := &jwtCustomClaims{
		Address: address.Hex(),
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(time.Second * time.Duration(expiry)).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	t, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return t, nil
}

func ParseToken(secret []byte, token string) (common.Address, error) {
	claims := &jwtCustomClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return common.Address{}, err
	}
	if !parsed.Valid {
		return common.Address{}, errors.New("invalid token")
	}
	return common.HexToAddress(claims.Address), nil
}

// Middleware authenticates bearer tokens and stores the caller's address
// in the context, see Caller.
func Middleware(secret []byte) echo.MiddlewareFunc {
	config := middleware.DefaultJWTConfig
	config.SigningKey = secret
	config.SigningMethod = middleware.AlgorithmHS256
	config.Claims = &jwtCustomClaims{}
	config.SuccessHandler = func(c echo.Context) {
		token := c.Get(config.ContextKey).(*jwt.Token)
		claims := token.Claims.(*jwtCustomClaims)
		c.Set(kycommon.CallerContextKey, common.HexToAddress(claims.Address))
	}
	config.ErrorHandlerWithContext = func(err error, c echo.Context) error {
		return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
	}
	return middleware.JWTWithConfig(config)
}

// Caller is the address authenticated by Middleware.
func Caller(c echo.Context) common.Address {
	address, _ := c.Get(kycommon.CallerContextKey).(common.Address)
	return address
}
