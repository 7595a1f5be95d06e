package integration_tests

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/getAlby/kychub.go/lib/commitment"
	"github.com/getAlby/kychub.go/lib/fees"
	"github.com/getAlby/kychub.go/lib/responses"
	"github.com/getAlby/kychub.go/lib/zkp"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type AdminTestSuite struct {
	TestSuite
}

func (suite *AdminTestSuite) SetupTest() {
	suite.init(zkp.AcceptAll)
}

func (suite *AdminTestSuite) admin(method, path, body string, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	suite.echo.ServeHTTP(rec, req)
	return rec
}

func (suite *AdminTestSuite) TestRequiresAdminToken() {
	rec := suite.admin(http.MethodGet, "/v2/admin/verifiers", "", "wrong")
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)

	// a user token is no admin token
	rec = suite.admin(http.MethodGet, "/v2/admin/verifiers", "", suite.token(verifier))
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)
}

func (suite *AdminTestSuite) TestManageVerifiers() {
	list := &ExpectedVerifierListResponseBody{}
	suite.decode(suite.admin(http.MethodGet, "/v2/admin/verifiers", "", adminToken), http.StatusOK, list)
	assert.Equal(suite.T(), []string{verifier.Hex()}, list.Verifiers)

	added := &ExpectedVerifierResponseBody{}
	suite.decode(suite.admin(http.MethodPost, "/v2/admin/verifiers", `{"address":"`+stranger.Hex()+`"}`, adminToken), http.StatusOK, added)
	assert.True(suite.T(), added.Changed)

	again := &ExpectedVerifierResponseBody{}
	suite.decode(suite.admin(http.MethodPost, "/v2/admin/verifiers", `{"address":"`+stranger.Hex()+`"}`, adminToken), http.StatusOK, again)
	assert.False(suite.T(), again.Changed)

	// the new verifier can attest right away
	c := suite.submitCommitment(payer)
	rec := suite.do(http.MethodPost, "/v2/kyc/"+payer.Hex()+"/verify", &stranger, verifyRequest(c, "full", time.Hour))
	assert.Equal(suite.T(), http.StatusOK, rec.Code, rec.Body.String())

	removed := &ExpectedVerifierResponseBody{}
	suite.decode(suite.admin(http.MethodDelete, "/v2/admin/verifiers/"+verifier.Hex(), "", adminToken), http.StatusOK, removed)
	assert.True(suite.T(), removed.Changed)

	rec = suite.do(http.MethodPost, "/v2/kyc/"+payer.Hex()+"/revoke", &verifier, nil)
	checkErrResponse(&suite.TestSuite, rec, responses.ForbiddenError)

	rec = suite.admin(http.MethodPost, "/v2/admin/verifiers", `{"address":"0x12"}`, adminToken)
	checkErrResponse(&suite.TestSuite, rec, responses.BadArgumentsError)
}

func (suite *AdminTestSuite) TestInfoAndHealth() {
	info := &ExpectedInfoResponse{}
	suite.decode(suite.do(http.MethodGet, "/v2/info", nil, nil), http.StatusOK, info)
	assert.Equal(suite.T(), uint32(50), info.FeeBps)
	assert.Equal(suite.T(), fees.BasisPointsDenominator, info.FeeDenominator)
	assert.Equal(suite.T(), feeCollector.Hex(), info.FeeCollector)
	assert.Equal(suite.T(), int32(6), info.AmountDecimals)
	assert.Equal(suite.T(), map[string]uint8{"none": 0, "basic": 1, "advanced": 2, "full": 3}, info.KYCLevels)
	assert.Equal(suite.T(), commitment.CountryCode("DE"), info.CountryCodes["DE"])
	assert.Equal(suite.T(), commitment.Protocol, info.CommitmentProtocol)

	health := map[string]string{}
	suite.decode(suite.do(http.MethodGet, "/health", nil, nil), http.StatusOK, &health)
	assert.Equal(suite.T(), "OK", health["result"])
}

func TestAdminTestSuite(t *testing.T) {
	suite.Run(t, new(AdminTestSuite))
}
