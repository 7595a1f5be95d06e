package v2controllers

import (
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/getAlby/kychub.go/db/models"
	"github.com/getAlby/kychub.go/lib/service"
	"github.com/getAlby/kychub.go/lib/tokens"
	"github.com/labstack/echo/v4"
)

// InvoiceController : Invoice controller struct
type InvoiceController struct {
	svc *service.KychubService
}

func NewInvoiceController(svc *service.KychubService) *InvoiceController {
	return &InvoiceController{svc: svc}
}

type CreateInvoiceRequestBody struct {
	Payer           string `json:"payer" validate:"required,eth_addr"`
	Amount          string `json:"amount" validate:"required,u256"`
	Description     string `json:"description" validate:"max=1024"`
	ExternalDataRef string `json:"external_data_ref" validate:"max=512"`
	DueDate         int64  `json:"due_date" validate:"required"`
	KYCRequired     bool   `json:"kyc_required"`
}

type InvoiceResponseBody struct {
	ID                  uint64 `json:"id"`
	Creator             string `json:"creator"`
	Payer               string `json:"payer"`
	Amount              string `json:"amount"`
	AmountFormatted     string `json:"amount_formatted"`
	Description         string `json:"description"`
	ExternalDataRef     string `json:"external_data_ref"`
	DueDate             int64  `json:"due_date"`
	Status              string `json:"status"`
	KYCRequired         bool   `json:"kyc_required"`
	PaidBy              string `json:"paid_by,omitempty"`
	PaidAmount          string `json:"paid_amount"`
	PaidAmountFormatted string `json:"paid_amount_formatted"`
	Fee                 string `json:"fee"`
	CreatedAt           int64  `json:"created_at"`
	PaidAt              int64  `json:"paid_at"`
	CancelledAt         int64  `json:"cancelled_at"`
}

type InvoiceListResponseBody struct {
	Address  string   `json:"address"`
	Invoices []uint64 `json:"invoices"`
}

func (controller *InvoiceController) invoiceResponse(invoice *models.Invoice) *InvoiceResponseBody {
	decimals := controller.svc.Config.AmountDecimals
	body := &InvoiceResponseBody{
		ID:                  invoice.ID,
		Creator:             invoice.Creator.Hex(),
		Payer:               invoice.Payer.Hex(),
		Amount:              invoice.Amount.String(),
		AmountFormatted:     formatAmount(invoice.Amount.Big(), decimals),
		Description:         invoice.Description,
		ExternalDataRef:     invoice.ExternalDataRef,
		DueDate:             invoice.DueDate.Unix(),
		Status:              invoice.Status.String(),
		KYCRequired:         invoice.KYCRequired,
		PaidAmount:          invoice.PaidAmount.String(),
		PaidAmountFormatted: formatAmount(invoice.PaidAmount.Big(), decimals),
		Fee:                 invoice.Fee.String(),
		CreatedAt:           invoice.CreatedAt.Unix(),
		PaidAt:              unix(invoice.PaidAt),
		CancelledAt:         unix(invoice.CancelledAt),
	}
	if invoice.PaidBy != nil {
		body.PaidBy = invoice.PaidBy.Hex()
	}
	return body
}

// CreateInvoice issues an invoice from the caller to the payer.
func (controller *InvoiceController) CreateInvoice(c echo.Context) error {
	creator := tokens.Caller(c)
	var body CreateInvoiceRequestBody
	if err := c.Bind(&body); err != nil {
		return badArguments(c, "Failed to load create invoice request body", err)
	}
	if err := c.Validate(&body); err != nil {
		return badArguments(c, "Invalid create invoice request body", err)
	}
	// the u256 tag guarantees a decimal integer
	amount, _ := new(big.Int).SetString(body.Amount, 10)

	invoice, err := controller.svc.CreateInvoice(c.Request().Context(), service.NewInvoice{
		Creator:         creator,
		Payer:           common.HexToAddress(body.Payer),
		Amount:          amount,
		Description:     body.Description,
		ExternalDataRef: body.ExternalDataRef,
		DueDate:         time.Unix(body.DueDate, 0),
		KYCRequired:     body.KYCRequired,
	})
	if err != nil {
		c.Logger().Errorf("Error creating invoice creator:%s error: %v", creator.Hex(), err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, controller.invoiceResponse(invoice))
}

func (controller *InvoiceController) GetInvoice(c echo.Context) error {
	id, err := invoiceIDParam(c)
	if err != nil {
		return errorResponse(c, err)
	}
	invoice, err := controller.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, controller.invoiceResponse(invoice))
}

func (controller *InvoiceController) SendInvoice(c echo.Context) error {
	caller := tokens.Caller(c)
	id, err := invoiceIDParam(c)
	if err != nil {
		return errorResponse(c, err)
	}
	invoice, err := controller.svc.SendInvoice(c.Request().Context(), caller, id)
	if err != nil {
		c.Logger().Errorf("Error sending invoice id:%d caller:%s error: %v", id, caller.Hex(), err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, controller.invoiceResponse(invoice))
}

func (controller *InvoiceController) CancelInvoice(c echo.Context) error {
	caller := tokens.Caller(c)
	id, err := invoiceIDParam(c)
	if err != nil {
		return errorResponse(c, err)
	}
	invoice, err := controller.svc.CancelInvoice(c.Request().Context(), caller, id)
	if err != nil {
		c.Logger().Errorf("Error cancelling invoice id:%d caller:%s error: %v", id, caller.Hex(), err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, controller.invoiceResponse(invoice))
}

// GetCreatedInvoices lists the ids of the invoices the address issued, oldest first.
func (controller *InvoiceController) GetCreatedInvoices(c echo.Context) error {
	address, err := addressParam(c)
	if err != nil {
		return errorResponse(c, err)
	}
	ids, err := controller.svc.GetUserCreatedInvoices(c.Request().Context(), address)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, &InvoiceListResponseBody{Address: address.Hex(), Invoices: ids})
}

// GetReceivedInvoices lists the ids of the invoices addressed to the address, oldest first.
func (controller *InvoiceController) GetReceivedInvoices(c echo.Context) error {
	address, err := addressParam(c)
	if err != nil {
		return errorResponse(c, err)
	}
	ids, err := controller.svc.GetUserReceivedInvoices(c.Request().Context(), address)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, &InvoiceListResponseBody{Address: address.Hex(), Invoices: ids})
}
