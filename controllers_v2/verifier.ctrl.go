package v2controllers

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/getAlby/kychub.go/lib/service"
	"github.com/labstack/echo/v4"
)

// VerifierController manages the verifier role, mounted behind the admin token.
type VerifierController struct {
	svc *service.KychubService
}

func NewVerifierController(svc *service.KychubService) *VerifierController {
	return &VerifierController{svc: svc}
}

type AddVerifierRequestBody struct {
	Address string `json:"address" validate:"required,eth_addr"`
}

type VerifierResponseBody struct {
	Address string `json:"address"`
	Changed bool   `json:"changed"`
}

type VerifierListResponseBody struct {
	Verifiers []string `json:"verifiers"`
}

func (controller *VerifierController) AddVerifier(c echo.Context) error {
	var body AddVerifierRequestBody
	if err := c.Bind(&body); err != nil {
		return badArguments(c, "Failed to load add verifier request body", err)
	}
	if err := c.Validate(&body); err != nil {
		return badArguments(c, "Invalid add verifier request body", err)
	}
	address := common.HexToAddress(body.Address)
	added, err := controller.svc.AddVerifier(c.Request().Context(), address)
	if err != nil {
		c.Logger().Errorf("Failed to add verifier %s: %v", address.Hex(), err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, &VerifierResponseBody{Address: address.Hex(), Changed: added})
}

func (controller *VerifierController) RemoveVerifier(c echo.Context) error {
	address, err := addressParam(c)
	if err != nil {
		return errorResponse(c, err)
	}
	removed, err := controller.svc.RemoveVerifier(c.Request().Context(), address)
	if err != nil {
		c.Logger().Errorf("Failed to remove verifier %s: %v", address.Hex(), err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, &VerifierResponseBody{Address: address.Hex(), Changed: removed})
}

func (controller *VerifierController) ListVerifiers(c echo.Context) error {
	verifiers, err := controller.svc.ListVerifiers(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	response := &VerifierListResponseBody{Verifiers: make([]string, 0, len(verifiers))}
	for _, verifier := range verifiers {
		response.Verifiers = append(response.Verifiers, verifier.Address.Hex())
	}
	return c.JSON(http.StatusOK, response)
}
