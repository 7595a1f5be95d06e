package integration_tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/ethereum/go-ethereum/common"
	kycommon "github.com/getAlby/kychub.go/common"
	"github.com/getAlby/kychub.go/db"
	"github.com/getAlby/kychub.go/lib/commitment"
	"github.com/getAlby/kychub.go/lib/idempotency"
	"github.com/getAlby/kychub.go/lib/responses"
	"github.com/getAlby/kychub.go/lib/service"
	"github.com/getAlby/kychub.go/lib/tokens"
	"github.com/getAlby/kychub.go/lib/transport"
	"github.com/getAlby/kychub.go/lib/zkp"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/ziflex/lecho/v3"
)

const adminToken = "admin-secret"

var (
	creator      = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	payer        = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	verifier     = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	feeCollector = common.HexToAddress("0x00000000000000000000000000000000000000fe")
	stranger     = common.HexToAddress("0x0000000000000000000000000000000000000666")

	// any eight integers, the verifier under test decides
	testProof = []string{"1", "2", "3", "4", "5", "6", "7", "8"}
)

func KychubTestServiceInit(proofVerifier zkp.ProofVerifier) (svc *service.KychubService, err error) {
	c := &service.Config{
		DatabaseUri:          kycommon.MemoryDatabaseUri,
		JWTSecret:            []byte("SECRET"),
		JWTAccessTokenExpiry: 3600,
		AdminToken:           adminToken,
		DefaultRateLimit:     1000,
		StrictRateLimit:      1000,
		BurstRateLimit:       1000,
		FeeBps:               50,
		FeeCollectorAddress:  feeCollector,
		AmountDecimals:       6,
		Verifiers:            service.AddressList{verifier},
		ProofVerifier:        "test",
		MaxPublicInputs:      16,
		ProofMaxAge:          3600,
		ProofMaxClockSkew:    300,
		IdempotencyTTL:       3600,
	}

	ctx := context.Background()
	store, err := db.OpenStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	svc = &service.KychubService{
		Config:        c,
		Store:         store,
		ProofVerifier: proofVerifier,
		Logger:        lecho.New(io.Discard, lecho.WithLevel(log.OFF)),
		EventPubSub:   service.NewPubsub(),
	}
	if err := svc.BootstrapVerifiers(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// newEcho wires the service the way the server does.
func newEcho(svc *service.KychubService) (*echo.Echo, error) {
	e := transport.InitEcho(svc.Config, svc.Logger)
	cacheClient, err := transport.CreateCacheClient()
	if err != nil {
		return nil, err
	}
	idempotencyStore, err := idempotency.NewMemoryStore(1000)
	if err != nil {
		return nil, err
	}
	transport.RegisterV2Endpoints(svc, e, transport.Middlewares{
		Auth:            tokens.Middleware(svc.Config.JWTSecret),
		Admin:           tokens.AdminTokenMiddleware(svc.Config.AdminToken),
		Log:             transport.CreateLoggingMiddleware(svc.Logger),
		StrictRateLimit: transport.CreateRateLimitMiddleware(svc.Config.StrictRateLimit, svc.Config.BurstRateLimit),
		Idempotency:     idempotency.Middleware(idempotencyStore, time.Duration(svc.Config.IdempotencyTTL)*time.Second),
		Cache:           cacheClient.Middleware(),
	})
	return e, nil
}

type TestSuite struct {
	suite.Suite
	echo    *echo.Echo
	service *service.KychubService
}

func (suite *TestSuite) init(proofVerifier zkp.ProofVerifier) {
	svc, err := KychubTestServiceInit(proofVerifier)
	suite.Require().NoError(err)
	e, err := newEcho(svc)
	suite.Require().NoError(err)
	suite.service = svc
	suite.echo = e
}

func (suite *TestSuite) token(address common.Address) string {
	token, err := tokens.GenerateAccessToken(suite.service.Config.JWTSecret, 3600, address)
	suite.Require().NoError(err)
	return token
}

// do sends body as JSON, authenticated as caller unless caller is nil.
// headers are name, value pairs.
func (suite *TestSuite) do(method, path string, caller *common.Address, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(suite.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if caller != nil {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", suite.token(*caller)))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	suite.echo.ServeHTTP(rec, req)
	return rec
}

func (suite *TestSuite) decode(rec *httptest.ResponseRecorder, status int, target interface{}) {
	suite.Require().Equal(status, rec.Code, rec.Body.String())
	suite.Require().NoError(json.NewDecoder(rec.Body).Decode(target))
}

func checkErrResponse(suite *TestSuite, rec *httptest.ResponseRecorder, expected responses.ErrorResponse) *responses.ErrorResponse {
	errorResponse := &responses.ErrorResponse{}
	assert.Equal(suite.T(), expected.HttpStatusCode, rec.Code, rec.Body.String())
	assert.NoError(suite.T(), json.NewDecoder(rec.Body).Decode(errorResponse))
	assert.True(suite.T(), errorResponse.Error)
	assert.Equal(suite.T(), expected.Code, errorResponse.Code)
	return errorResponse
}

func testAttributes() commitment.Attributes {
	return commitment.Attributes{
		FirstName:      "Ada",
		LastName:       "Lovelace",
		DateOfBirth:    -4_861_872_000,
		CountryCode:    commitment.CountryCode("GB"),
		DocumentNumber: "P1234567",
	}
}

// submitCommitment stores a fresh commitment for subject and returns it.
func (suite *TestSuite) submitCommitment(subject common.Address) commitment.Commitment {
	salt, err := commitment.NewSalt()
	suite.Require().NoError(err)
	c := commitment.Commit(testAttributes(), salt)
	rec := suite.do(http.MethodPost, "/v2/kyc", &subject, &ExpectedSubmitKYCRequestBody{
		Commitment:      c.Hex(),
		ExternalDataRef: "vault://kyc/" + subject.Hex(),
	})
	status := &ExpectedKYCStatusResponseBody{}
	suite.decode(rec, http.StatusOK, status)
	assert.Equal(suite.T(), c.Hex(), status.Commitment)
	assert.False(suite.T(), status.IsVerified)
	return c
}

func verifyRequest(c commitment.Commitment, level string, period time.Duration) *ExpectedVerifyKYCRequestBody {
	return &ExpectedVerifyKYCRequestBody{
		Proof:          testProof,
		PublicInputs:   []string{c.BigInt().String()},
		Level:          level,
		ValidityPeriod: int64(period / time.Second),
	}
}

func (suite *TestSuite) verifyKYC(subject common.Address, c commitment.Commitment, level string) *ExpectedKYCStatusResponseBody {
	rec := suite.do(http.MethodPost, "/v2/kyc/"+subject.Hex()+"/verify", &verifier, verifyRequest(c, level, time.Hour))
	status := &ExpectedKYCStatusResponseBody{}
	suite.decode(rec, http.StatusOK, status)
	return status
}

func (suite *TestSuite) createInvoice(from, to common.Address, amount int64, kycRequired bool) *ExpectedInvoiceResponseBody {
	rec := suite.do(http.MethodPost, "/v2/invoices", &from, &ExpectedCreateInvoiceRequestBody{
		Payer:       to.Hex(),
		Amount:      big.NewInt(amount).String(),
		Description: "consulting",
		DueDate:     time.Now().Add(7 * 24 * time.Hour).Unix(),
		KYCRequired: kycRequired,
	})
	invoice := &ExpectedInvoiceResponseBody{}
	suite.decode(rec, http.StatusOK, invoice)
	return invoice
}

func (suite *TestSuite) payInvoice(caller common.Address, id uint64, amount string, headers ...string) *httptest.ResponseRecorder {
	return suite.do(http.MethodPost, fmt.Sprintf("/v2/invoices/%d/payments", id), &caller, &ExpectedPayInvoiceRequestBody{Amount: amount}, headers...)
}
