package idempotency

import (
	"context"
	"fmt"
	"net/http"
	"time"

	kycommon "github.com/getAlby/kychub.go/common"
	"github.com/getAlby/kychub.go/lib/responses"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	maxKeyLength = 255
	// a request holding a key longer than this is assumed dead
	lockTTL = time.Minute
)

// Middleware replays the stored response of a request repeated with the same
// Idempotency-Key. Keys are scoped to the caller, method and path. Responses
// with a 5xx status are not stored so the request can be retried.
func Middleware(store Store, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		record := middleware.BodyDumpWithConfig(middleware.BodyDumpConfig{
			Handler: func(c echo.Context, _, body []byte) {
				status := c.Response().Status
				if status >= http.StatusInternalServerError {
					return
				}
				key := c.Get(scopedKeyContextKey).(string)
				err := store.Set(context.WithoutCancel(c.Request().Context()), key, &Response{
					StatusCode:  status,
					ContentType: c.Response().Header().Get(echo.HeaderContentType),
					Body:        body,
				}, ttl)
				if err != nil {
					c.Logger().Errorf("Storing idempotent response failed: %v", err)
				}
			},
		})(next)

		return func(c echo.Context) error {
			key := c.Request().Header.Get(kycommon.IdempotencyKeyHeader)
			if key == "" {
				return next(c)
			}
			if len(key) > maxKeyLength {
				return c.JSON(http.StatusBadRequest, responses.BadArgumentsError.WithMessage(
					fmt.Sprintf("%s must be at most %d characters", kycommon.IdempotencyKeyHeader, maxKeyLength)))
			}
			scoped := scopeKey(c, key)
			ctx := c.Request().Context()

			stored, err := store.Get(ctx, scoped)
			if err != nil {
				return err
			}
			if stored != nil {
				return replay(c, stored)
			}

			locked, err := store.Lock(ctx, scoped, lockTTL)
			if err != nil {
				return err
			}
			if !locked {
				return c.JSON(responses.IdempotencyConflictError.HttpStatusCode, responses.IdempotencyConflictError)
			}
			defer func() {
				if err := store.Unlock(context.WithoutCancel(ctx), scoped); err != nil {
					c.Logger().Errorf("Releasing idempotency key failed: %v", err)
				}
			}()

			// the previous holder may have stored its response and unlocked
			// between Get and Lock
			stored, err = store.Get(ctx, scoped)
			if err != nil {
				return err
			}
			if stored != nil {
				return replay(c, stored)
			}

			c.Set(scopedKeyContextKey, scoped)
			return record(c)
		}
	}
}

func replay(c echo.Context, stored *Response) error {
	c.Response().Header().Set(kycommon.IdempotentReplayHeader, "true")
	return c.Blob(stored.StatusCode, stored.ContentType, stored.Body)
}

const scopedKeyContextKey = "idempotency_key"

func scopeKey(c echo.Context, key string) string {
	return fmt.Sprintf("%v|%s|%s|%s", c.Get(kycommon.CallerContextKey), c.Request().Method, c.Request().URL.Path, key)
}
