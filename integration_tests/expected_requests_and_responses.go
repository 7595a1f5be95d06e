package integration_tests

type ExpectedSubmitKYCRequestBody struct {
	Commitment      string `json:"commitment"`
	ExternalDataRef string `json:"external_data_ref"`
}

type ExpectedVerifyKYCRequestBody struct {
	Proof          []string `json:"proof"`
	PublicInputs   []string `json:"public_inputs"`
	Level          string   `json:"level"`
	ValidityPeriod int64    `json:"validity_period"`
}

type ExpectedKYCStatusResponseBody struct {
	Subject         string `json:"subject"`
	Commitment      string `json:"commitment"`
	IsVerified      bool   `json:"is_verified"`
	IsValid         bool   `json:"is_valid"`
	Level           string `json:"level"`
	EffectiveLevel  string `json:"effective_level"`
	ExternalDataRef string `json:"external_data_ref"`
	VerifiedBy      string `json:"verified_by"`
	VerifiedAt      int64  `json:"verified_at"`
	ExpiresAt       int64  `json:"expires_at"`
	RevokedAt       int64  `json:"revoked_at"`
}

type ExpectedKYCValidResponseBody struct {
	Subject string `json:"subject"`
	IsValid bool   `json:"is_valid"`
}

type ExpectedKYCLevelResponseBody struct {
	Subject string `json:"subject"`
	Level   string `json:"level"`
	Value   uint8  `json:"value"`
}

type ExpectedCreateInvoiceRequestBody struct {
	Payer           string `json:"payer"`
	Amount          string `json:"amount"`
	Description     string `json:"description"`
	ExternalDataRef string `json:"external_data_ref"`
	DueDate         int64  `json:"due_date"`
	KYCRequired     bool   `json:"kyc_required"`
}

type ExpectedInvoiceResponseBody struct {
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
	PaidBy              string `json:"paid_by"`
	PaidAmount          string `json:"paid_amount"`
	PaidAmountFormatted string `json:"paid_amount_formatted"`
	Fee                 string `json:"fee"`
	CreatedAt           int64  `json:"created_at"`
	PaidAt              int64  `json:"paid_at"`
	CancelledAt         int64  `json:"cancelled_at"`
}

type ExpectedInvoiceListResponseBody struct {
	Address  string   `json:"address"`
	Invoices []uint64 `json:"invoices"`
}

type ExpectedPayInvoiceRequestBody struct {
	Amount string `json:"amount"`
}

type ExpectedPayInvoiceResponseBody struct {
	Invoice           *ExpectedInvoiceResponseBody `json:"invoice"`
	Payout            string                       `json:"payout"`
	PayoutFormatted   string                       `json:"payout_formatted"`
	Fee               string                       `json:"fee"`
	FeeFormatted      string                       `json:"fee_formatted"`
	Refunded          string                       `json:"refunded"`
	RefundedFormatted string                       `json:"refunded_formatted"`
}

type ExpectedBalanceEntry struct {
	Amount    string `json:"amount"`
	Formatted string `json:"formatted"`
}

type ExpectedBalanceResponse struct {
	Address string                          `json:"address"`
	Balance map[string]ExpectedBalanceEntry `json:"balance"`
}

type ExpectedVerifierResponseBody struct {
	Address string `json:"address"`
	Changed bool   `json:"changed"`
}

type ExpectedVerifierListResponseBody struct {
	Verifiers []string `json:"verifiers"`
}

type ExpectedInfoResponse struct {
	FeeBps             uint32            `json:"fee_bps"`
	FeeDenominator     int               `json:"fee_denominator"`
	FeeCollector       string            `json:"fee_collector"`
	AmountDecimals     int32             `json:"amount_decimals"`
	KYCLevels          map[string]uint8  `json:"kyc_levels"`
	CountryCodes       map[string]uint64 `json:"country_codes"`
	CommitmentProtocol string            `json:"commitment_protocol"`
}
