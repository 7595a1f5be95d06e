package v2controllers

import (
	"math/big"
	"net/http"

	"github.com/getAlby/kychub.go/lib/service"
	"github.com/getAlby/kychub.go/lib/tokens"
	"github.com/labstack/echo/v4"
)

// PayInvoiceController : Pay invoice controller struct
type PayInvoiceController struct {
	svc *service.KychubService
}

func NewPayInvoiceController(svc *service.KychubService) *PayInvoiceController {
	return &PayInvoiceController{svc: svc}
}

type PayInvoiceRequestBody struct {
	Amount string `json:"amount" validate:"required,u256"`
}

type PayInvoiceResponseBody struct {
	Invoice           *InvoiceResponseBody `json:"invoice"`
	Payout            string               `json:"payout"`
	PayoutFormatted   string               `json:"payout_formatted"`
	Fee               string               `json:"fee"`
	FeeFormatted      string               `json:"fee_formatted"`
	Refunded          string               `json:"refunded"`
	RefundedFormatted string               `json:"refunded_formatted"`
}

// PayInvoice settles an invoice with the amount sent by the caller.
// Requests should carry an Idempotency-Key so retries never pay twice.
func (controller *PayInvoiceController) PayInvoice(c echo.Context) error {
	caller := tokens.Caller(c)
	id, err := invoiceIDParam(c)
	if err != nil {
		return errorResponse(c, err)
	}
	var body PayInvoiceRequestBody
	if err := c.Bind(&body); err != nil {
		return badArguments(c, "Failed to load pay invoice request body", err)
	}
	if err := c.Validate(&body); err != nil {
		return badArguments(c, "Invalid pay invoice request body", err)
	}
	amount, _ := new(big.Int).SetString(body.Amount, 10)

	settlement, err := controller.svc.PayInvoice(c.Request().Context(), caller, id, amount)
	if err != nil {
		c.Logger().Errorf("Payment failed invoice_id:%d caller:%s error: %v", id, caller.Hex(), err)
		return errorResponse(c, err)
	}

	decimals := controller.svc.Config.AmountDecimals
	invoices := InvoiceController{svc: controller.svc}
	return c.JSON(http.StatusOK, &PayInvoiceResponseBody{
		Invoice:           invoices.invoiceResponse(settlement.Invoice),
		Payout:            settlement.Payout.String(),
		PayoutFormatted:   formatAmount(settlement.Payout.Big(), decimals),
		Fee:               settlement.Fee.String(),
		FeeFormatted:      formatAmount(settlement.Fee.Big(), decimals),
		Refunded:          settlement.Refunded.String(),
		RefundedFormatted: formatAmount(settlement.Refunded.Big(), decimals),
	})
}
