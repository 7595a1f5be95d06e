package v2controllers

import (
	"net/http"

	"github.com/getAlby/kychub.go/db/models"
	"github.com/getAlby/kychub.go/lib/commitment"
	"github.com/getAlby/kychub.go/lib/fees"
	"github.com/getAlby/kychub.go/lib/service"
	"github.com/labstack/echo/v4"
)

// InfoController : InfoController struct
type InfoController struct {
	svc *service.KychubService
}

func NewInfoController(svc *service.KychubService) *InfoController {
	return &InfoController{svc: svc}
}

type InfoResponse struct {
	FeeBps             uint32            `json:"fee_bps"`
	FeeDenominator     int               `json:"fee_denominator"`
	FeeCollector       string            `json:"fee_collector"`
	AmountDecimals     int32             `json:"amount_decimals"`
	KYCLevels          map[string]uint8  `json:"kyc_levels"`
	CountryCodes       map[string]uint64 `json:"country_codes"`
	CommitmentProtocol string            `json:"commitment_protocol"`
	ProofVerifier      string            `json:"proof_verifier"`
	MaxPublicInputs    int               `json:"max_public_inputs"`
	ProofMaxAgeSeconds int64             `json:"proof_max_age_seconds"`
}

// GetInfo describes how clients have to build commitments and proofs.
// It only depends on the configuration and is served from the HTTP cache.
func (controller *InfoController) GetInfo(c echo.Context) error {
	levels := map[string]uint8{}
	for _, level := range models.KYCLevels() {
		levels[level.String()] = uint8(level)
	}
	cfg := controller.svc.Config
	return c.JSON(http.StatusOK, &InfoResponse{
		FeeBps:             cfg.FeeBps,
		FeeDenominator:     fees.BasisPointsDenominator,
		FeeCollector:       cfg.FeeCollectorAddress.Hex(),
		AmountDecimals:     cfg.AmountDecimals,
		KYCLevels:          levels,
		CountryCodes:       commitment.CountryCodes(),
		CommitmentProtocol: commitment.Protocol,
		ProofVerifier:      cfg.ProofVerifier,
		MaxPublicInputs:    cfg.MaxPublicInputs,
		ProofMaxAgeSeconds: cfg.ProofMaxAge,
	})
}
