package transport

import (
	v2controllers "github.com/getAlby/kychub.go/controllers_v2"
	"github.com/getAlby/kychub.go/lib/service"
	"github.com/labstack/echo/v4"
)

// Middlewares are the route level middlewares built from the configuration.
type Middlewares struct {
	Auth            echo.MiddlewareFunc
	Admin           echo.MiddlewareFunc
	Log             echo.MiddlewareFunc
	StrictRateLimit echo.MiddlewareFunc
	Idempotency     echo.MiddlewareFunc
	Cache           echo.MiddlewareFunc
}

func RegisterV2Endpoints(svc *service.KychubService, e *echo.Echo, mw Middlewares) {
	e.GET("/health", v2controllers.NewHealthController(svc).Check)
	e.GET("/v2/info", v2controllers.NewInfoController(svc).GetInfo, mw.Cache)

	secured := e.Group("", mw.Auth, mw.Log)
	// the limiter runs after auth so it is keyed by the caller
	securedWithStrictRateLimit := e.Group("", mw.Auth, mw.StrictRateLimit, mw.Log)
	admin := e.Group("/v2/admin", mw.Admin, mw.Log)

	kycCtrl := v2controllers.NewKYCController(svc)
	secured.POST("/v2/kyc", kycCtrl.SubmitKYC)
	secured.GET("/v2/kyc/:address", kycCtrl.GetKYCStatus)
	secured.GET("/v2/kyc/:address/valid", kycCtrl.IsKYCValid)
	secured.GET("/v2/kyc/:address/level", kycCtrl.GetKYCLevel)
	secured.POST("/v2/kyc/:address/verify", kycCtrl.VerifyKYC)
	secured.POST("/v2/kyc/:address/revoke", kycCtrl.RevokeKYC)

	invoiceCtrl := v2controllers.NewInvoiceController(svc)
	secured.POST("/v2/invoices", invoiceCtrl.CreateInvoice)
	secured.GET("/v2/invoices/:id", invoiceCtrl.GetInvoice)
	secured.POST("/v2/invoices/:id/send", invoiceCtrl.SendInvoice)
	secured.POST("/v2/invoices/:id/cancel", invoiceCtrl.CancelInvoice)
	securedWithStrictRateLimit.POST("/v2/invoices/:id/payments", v2controllers.NewPayInvoiceController(svc).PayInvoice, mw.Idempotency)
	secured.GET("/v2/users/:address/invoices/created", invoiceCtrl.GetCreatedInvoices)
	secured.GET("/v2/users/:address/invoices/received", invoiceCtrl.GetReceivedInvoices)

	secured.GET("/v2/balance", v2controllers.NewBalanceController(svc).Balance)

	verifierCtrl := v2controllers.NewVerifierController(svc)
	admin.GET("/verifiers", verifierCtrl.ListVerifiers)
	admin.POST("/verifiers", verifierCtrl.AddVerifier)
	admin.DELETE("/verifiers/:address", verifierCtrl.RemoveVerifier)
}
