package v2controllers

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/getAlby/kychub.go/db/models"
	"github.com/getAlby/kychub.go/lib/commitment"
	"github.com/getAlby/kychub.go/lib/service"
	"github.com/getAlby/kychub.go/lib/tokens"
	"github.com/getAlby/kychub.go/lib/zkp"
	"github.com/labstack/echo/v4"
)

// KYCController : KYC attestation controller struct
type KYCController struct {
	svc *service.KychubService
}

func NewKYCController(svc *service.KychubService) *KYCController {
	return &KYCController{svc: svc}
}

type SubmitKYCRequestBody struct {
	Commitment      string `json:"commitment" validate:"required"`
	ExternalDataRef string `json:"external_data_ref" validate:"max=512"`
}

type VerifyKYCRequestBody struct {
	Proof          []string `json:"proof" validate:"required,len=8"`
	PublicInputs   []string `json:"public_inputs" validate:"required,min=1"`
	Level          string   `json:"level" validate:"required"`
	ValidityPeriod int64    `json:"validity_period" validate:"gte=0"`
}

type KYCStatusResponseBody struct {
	Subject         string `json:"subject"`
	Commitment      string `json:"commitment,omitempty"`
	IsVerified      bool   `json:"is_verified"`
	IsValid         bool   `json:"is_valid"`
	Level           string `json:"level"`
	EffectiveLevel  string `json:"effective_level"`
	ExternalDataRef string `json:"external_data_ref,omitempty"`
	VerifiedBy      string `json:"verified_by,omitempty"`
	VerifiedAt      int64  `json:"verified_at"`
	ExpiresAt       int64  `json:"expires_at"`
	RevokedAt       int64  `json:"revoked_at"`
}

type KYCValidResponseBody struct {
	Subject string `json:"subject"`
	IsValid bool   `json:"is_valid"`
}

type KYCLevelResponseBody struct {
	Subject string `json:"subject"`
	Level   string `json:"level"`
	Value   uint8  `json:"value"`
}

func (controller *KYCController) statusResponse(attestation *models.Attestation) *KYCStatusResponseBody {
	now := controller.svc.Now()
	body := &KYCStatusResponseBody{
		Subject:         attestation.Subject.Hex(),
		IsVerified:      attestation.IsVerified,
		IsValid:         attestation.IsValidAt(now),
		Level:           attestation.Level.String(),
		EffectiveLevel:  attestation.LevelAt(now).String(),
		ExternalDataRef: attestation.ExternalDataRef,
		VerifiedAt:      unix(attestation.VerifiedAt),
		ExpiresAt:       unix(attestation.ExpiresAt),
		RevokedAt:       unix(attestation.RevokedAt),
	}
	if !attestation.Commitment.IsZero() {
		body.Commitment = attestation.Commitment.Hex()
	}
	if attestation.VerifiedBy != nil {
		body.VerifiedBy = attestation.VerifiedBy.Hex()
	}
	return body
}

// SubmitKYC stores the caller's commitment and resets any verification.
func (controller *KYCController) SubmitKYC(c echo.Context) error {
	subject := tokens.Caller(c)
	var body SubmitKYCRequestBody
	if err := c.Bind(&body); err != nil {
		return badArguments(c, "Failed to load submit kyc request body", err)
	}
	if err := c.Validate(&body); err != nil {
		return badArguments(c, "Invalid submit kyc request body", err)
	}
	commit, err := commitment.Parse(body.Commitment)
	if err != nil {
		return errorResponse(c, fmt.Errorf("%w: %w", service.ErrInvalidCommitment, err))
	}

	attestation, err := controller.svc.SubmitKYC(c.Request().Context(), subject, commit, body.ExternalDataRef)
	if err != nil {
		c.Logger().Errorf("Error submitting kyc commitment subject:%s error: %v", subject.Hex(), err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, controller.statusResponse(attestation))
}

// VerifyKYC records the calling verifier's attestation of the subject's commitment.
func (controller *KYCController) VerifyKYC(c echo.Context) error {
	caller := tokens.Caller(c)
	subject, err := addressParam(c)
	if err != nil {
		return errorResponse(c, err)
	}
	var body VerifyKYCRequestBody
	if err := c.Bind(&body); err != nil {
		return badArguments(c, "Failed to load verify kyc request body", err)
	}
	if err := c.Validate(&body); err != nil {
		return badArguments(c, "Invalid verify kyc request body", err)
	}
	proof, err := zkp.ParseProof(body.Proof)
	if err != nil {
		return errorResponse(c, fmt.Errorf("%w: %w", service.ErrInvalidInput, err))
	}
	publicInputs, err := zkp.ParsePublicInputs(body.PublicInputs)
	if err != nil {
		return errorResponse(c, fmt.Errorf("%w: %w", service.ErrInvalidPublicInputs, err))
	}
	level, err := models.ParseKYCLevel(body.Level)
	if err != nil {
		// refused by the service once the proof was checked
		level = models.KYCLevelInvalid
	}

	attestation, err := controller.svc.VerifyKYC(c.Request().Context(), caller, service.VerifyKYCRequest{
		Subject:        subject,
		Proof:          proof,
		PublicInputs:   publicInputs,
		Level:          level,
		ValidityPeriod: validityPeriod(body.ValidityPeriod),
	})
	if err != nil {
		c.Logger().Errorf("Error verifying kyc subject:%s verifier:%s error: %v", subject.Hex(), caller.Hex(), err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, controller.statusResponse(attestation))
}

func (controller *KYCController) RevokeKYC(c echo.Context) error {
	caller := tokens.Caller(c)
	subject, err := addressParam(c)
	if err != nil {
		return errorResponse(c, err)
	}
	attestation, err := controller.svc.RevokeKYC(c.Request().Context(), caller, subject)
	if err != nil {
		c.Logger().Errorf("Error revoking kyc subject:%s verifier:%s error: %v", subject.Hex(), caller.Hex(), err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, controller.statusResponse(attestation))
}

func (controller *KYCController) GetKYCStatus(c echo.Context) error {
	subject, err := addressParam(c)
	if err != nil {
		return errorResponse(c, err)
	}
	attestation, err := controller.svc.GetKYCStatus(c.Request().Context(), subject)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, controller.statusResponse(attestation))
}

func (controller *KYCController) IsKYCValid(c echo.Context) error {
	subject, err := addressParam(c)
	if err != nil {
		return errorResponse(c, err)
	}
	valid, err := controller.svc.IsKYCValid(c.Request().Context(), subject)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, &KYCValidResponseBody{Subject: subject.Hex(), IsValid: valid})
}

func (controller *KYCController) GetKYCLevel(c echo.Context) error {
	subject, err := addressParam(c)
	if err != nil {
		return errorResponse(c, err)
	}
	level, err := controller.svc.GetKYCLevel(c.Request().Context(), subject)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, &KYCLevelResponseBody{Subject: subject.Hex(), Level: level.String(), Value: uint8(level)})
}

// validityPeriod saturates instead of wrapping around, the service refuses
// periods above service.MaxValidityPeriod.
func validityPeriod(seconds int64) time.Duration {
	if seconds > int64(math.MaxInt64/time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds) * time.Second
}
