package v2controllers

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/getAlby/kychub.go/lib/responses"
	"github.com/getAlby/kychub.go/lib/service"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// errorResponse answers with the mapped service error, unexpected errors go
// to the HTTP error handler which reports them.
func errorResponse(c echo.Context, err error) error {
	response, ok := responses.FromError(err)
	if !ok {
		return err
	}
	return c.JSON(response.HttpStatusCode, response)
}

func badArguments(c echo.Context, message string, err error) error {
	c.Logger().Errorf("%s: %v", message, err)
	return c.JSON(responses.BadArgumentsError.HttpStatusCode, responses.BadArgumentsError.WithMessage(message))
}

func addressParam(c echo.Context) (common.Address, error) {
	param := c.Param("address")
	if !common.IsHexAddress(param) {
		return common.Address{}, fmt.Errorf("%w: %q is not an address", service.ErrInvalidInput, param)
	}
	return common.HexToAddress(param), nil
}

func invoiceIDParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid invoice id %q", service.ErrInvalidInput, c.Param("id"))
	}
	return id, nil
}

// formatAmount renders base units with the configured number of decimals.
func formatAmount(amount *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(amount, -decimals).StringFixed(decimals)
}

func unix(t bun.NullTime) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
