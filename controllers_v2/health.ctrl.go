package v2controllers

import (
	"net/http"

	"github.com/getAlby/kychub.go/lib/service"
	"github.com/labstack/echo/v4"
)

type HealthController struct {
	svc *service.KychubService
}

func NewHealthController(svc *service.KychubService) *HealthController {
	return &HealthController{svc: svc}
}

type HealthResponse struct {
	Result string `json:"result"`
}

// Check reports OK while the store answers.
func (controller *HealthController) Check(c echo.Context) error {
	if _, err := controller.svc.InvoiceCounter(c.Request().Context()); err != nil {
		c.Logger().Errorf("Health check failed: %v", err)
		return c.JSON(http.StatusServiceUnavailable, &HealthResponse{Result: "UNAVAILABLE"})
	}
	return c.JSON(http.StatusOK, &HealthResponse{
		Result: "OK",
	})
}
