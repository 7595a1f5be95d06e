package v2controllers

import (
	"net/http"

	kycommon "github.com/getAlby/kychub.go/common"
	"github.com/getAlby/kychub.go/lib/service"
	"github.com/getAlby/kychub.go/lib/tokens"
	"github.com/labstack/echo/v4"
)

// BalanceController : BalanceController struct
type BalanceController struct {
	svc *service.KychubService
}

func NewBalanceController(svc *service.KychubService) *BalanceController {
	return &BalanceController{svc: svc}
}

type BalanceEntry struct {
	Amount    string `json:"amount"`
	Formatted string `json:"formatted"`
}

type BalanceResponse struct {
	Address string                  `json:"address"`
	Balance map[string]BalanceEntry `json:"balance"`
}

// Balance reports the caller's received payouts and collected fees.
func (controller *BalanceController) Balance(c echo.Context) error {
	address := tokens.Caller(c)
	response := &BalanceResponse{Address: address.Hex(), Balance: map[string]BalanceEntry{}}
	for _, accountType := range []string{kycommon.AccountTypeCurrent, kycommon.AccountTypeFees} {
		balance, err := controller.svc.Balance(c.Request().Context(), address, accountType)
		if err != nil {
			c.Logger().Errorf("Failed to retrieve %s balance address:%s error: %v", accountType, address.Hex(), err)
			return errorResponse(c, err)
		}
		response.Balance[accountType] = BalanceEntry{
			Amount:    balance.String(),
			Formatted: formatAmount(balance, controller.svc.Config.AmountDecimals),
		}
	}
	return c.JSON(http.StatusOK, response)
}
