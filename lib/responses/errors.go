package responses

import (
	"errors"
	"net/http"

	kycommon "github.com/getAlby/kychub.go/common"
	"github.com/getAlby/kychub.go/lib/service"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error          bool   `json:"error"`
	Code           int    `json:"code"`
	Message        string `json:"message"`
	HttpStatusCode int    `json:"-"`
}

// WithMessage keeps code and status and replaces the message.
func (er ErrorResponse) WithMessage(message string) ErrorResponse {
	er.Message = message
	return er
}

var GeneralServerError = ErrorResponse{
	Error:          true,
	Code:           6,
	Message:        "Something went wrong. Please try again later",
	HttpStatusCode: 500,
}

var BadArgumentsError = ErrorResponse{
	Error:          true,
	Code:           8,
	Message:        "Bad arguments",
	HttpStatusCode: 400,
}

var BadAuthError = ErrorResponse{
	Error:          true,
	Code:           1,
	Message:        "bad auth",
	HttpStatusCode: 401,
}

var ForbiddenError = ErrorResponse{
	Error:          true,
	Code:           3,
	Message:        "forbidden",
	HttpStatusCode: 403,
}

var NotFoundError = ErrorResponse{
	Error:          true,
	Code:           4,
	Message:        "not found",
	HttpStatusCode: 404,
}

var InvalidStateError = ErrorResponse{
	Error:          true,
	Code:           5,
	Message:        "invalid state",
	HttpStatusCode: 409,
}

var InsufficientPaymentError = ErrorResponse{
	Error:          true,
	Code:           7,
	Message:        "Insufficient payment",
	HttpStatusCode: 402,
}

var KYCRequiredError = ErrorResponse{
	Error:          true,
	Code:           9,
	Message:        "KYC verification required",
	HttpStatusCode: 403,
}

var InvalidProofError = ErrorResponse{
	Error:          true,
	Code:           10,
	Message:        "Invalid proof",
	HttpStatusCode: 400,
}

var IdempotencyConflictError = ErrorResponse{
	Error:          true,
	Code:           11,
	Message:        "a request with this idempotency key is in progress",
	HttpStatusCode: 409,
}

var errorResponses = []struct {
	err      error
	response ErrorResponse
}{
	{service.ErrInvalidInput, BadArgumentsError},
	{service.ErrUnauthorized, ForbiddenError},
	{service.ErrNotFound, NotFoundError},
	{service.ErrInvalidState, InvalidStateError},
	{service.ErrInsufficientPayment, InsufficientPaymentError},
	{service.ErrKYCRequired, KYCRequiredError},
	{service.ErrInvalidProof, InvalidProofError},
}

// FromError maps service errors to their response. The message is the
// error's own text so wrapped details reach the client. Anything else
// is a GeneralServerError and ok is false.
func FromError(err error) (response ErrorResponse, ok bool) {
	for _, candidate := range errorResponses {
		if errors.Is(err, candidate.err) {
			return candidate.response.WithMessage(err.Error()), true
		}
	}
	return GeneralServerError, false
}

func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if isErrAllowedForSentry(err) {
			captureException(err, c)
		}
		c.JSON(he.Code, he.Message)
		return
	}
	response, ok := FromError(err)
	if !ok {
		c.Logger().Error(err)
		captureException(err, c)
	}
	c.JSON(response.HttpStatusCode, response)
}

func captureException(err error, c echo.Context) {
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetExtra("Address", c.Get(kycommon.CallerContextKey))
			hub.CaptureException(err)
		})
	}
}

// bad auth responses are expected noise
func isErrAllowedForSentry(err error) bool {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return true
	}
	if he.Code == http.StatusUnauthorized {
		return false
	}
	if m, ok := he.Message.(echo.Map); ok && m["code"] == BadAuthError.Code {
		return false
	}
	return true
}
