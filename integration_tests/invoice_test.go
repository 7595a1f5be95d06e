package integration_tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/getAlby/kychub.go/lib/responses"
	"github.com/getAlby/kychub.go/lib/zkp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type InvoiceTestSuite struct {
	TestSuite
}

func (suite *InvoiceTestSuite) SetupTest() {
	suite.init(zkp.AcceptAll)
}

func (suite *InvoiceTestSuite) TestCreateInvoice() {
	invoice := suite.createInvoice(creator, payer, 1_500_000, true)
	assert.Equal(suite.T(), uint64(1), invoice.ID)
	assert.Equal(suite.T(), creator.Hex(), invoice.Creator)
	assert.Equal(suite.T(), payer.Hex(), invoice.Payer)
	assert.Equal(suite.T(), "1500000", invoice.Amount)
	assert.Equal(suite.T(), "1.500000", invoice.AmountFormatted)
	assert.Equal(suite.T(), "created", invoice.Status)
	assert.True(suite.T(), invoice.KYCRequired)
	assert.Equal(suite.T(), "0", invoice.PaidAmount)
	assert.Zero(suite.T(), invoice.PaidAt)

	fetched := &ExpectedInvoiceResponseBody{}
	suite.decode(suite.do(http.MethodGet, "/v2/invoices/1", &stranger, nil), http.StatusOK, fetched)
	assert.Equal(suite.T(), invoice, fetched)
}

func (suite *InvoiceTestSuite) TestCreateInvoiceValidation() {
	valid := func() *ExpectedCreateInvoiceRequestBody {
		return &ExpectedCreateInvoiceRequestBody{
			Payer:   payer.Hex(),
			Amount:  "100",
			DueDate: time.Now().Add(time.Hour).Unix(),
		}
	}

	zero := valid()
	zero.Amount = "0"
	errorResponse := checkErrResponse(&suite.TestSuite, suite.do(http.MethodPost, "/v2/invoices", &creator, zero), responses.BadArgumentsError)
	assert.Contains(suite.T(), errorResponse.Message, "Amount must be greater than 0")

	past := valid()
	past.DueDate = time.Now().Add(-time.Minute).Unix()
	errorResponse = checkErrResponse(&suite.TestSuite, suite.do(http.MethodPost, "/v2/invoices", &creator, past), responses.BadArgumentsError)
	assert.Contains(suite.T(), errorResponse.Message, "Due date must be in the future")

	for _, mutate := range []func(*ExpectedCreateInvoiceRequestBody){
		func(b *ExpectedCreateInvoiceRequestBody) { b.Payer = "0x1234" },
		func(b *ExpectedCreateInvoiceRequestBody) { b.Amount = "-5" },
		func(b *ExpectedCreateInvoiceRequestBody) { b.Amount = "1.5" },
		// 2^256
		func(b *ExpectedCreateInvoiceRequestBody) {
			b.Amount = "115792089237316195423570985008687907853269984665640564039457584007913129639936"
		},
		func(b *ExpectedCreateInvoiceRequestBody) { b.DueDate = 0 },
	} {
		body := valid()
		mutate(body)
		checkErrResponse(&suite.TestSuite, suite.do(http.MethodPost, "/v2/invoices", &creator, body), responses.BadArgumentsError)
	}
}

func (suite *InvoiceTestSuite) TestSendAndCancel() {
	invoice := suite.createInvoice(creator, payer, 100, false)
	path := fmt.Sprintf("/v2/invoices/%d", invoice.ID)

	rec := suite.do(http.MethodPost, path+"/send", &payer, nil)
	errorResponse := checkErrResponse(&suite.TestSuite, rec, responses.ForbiddenError)
	assert.Contains(suite.T(), errorResponse.Message, "Only creator can send")

	sent := &ExpectedInvoiceResponseBody{}
	suite.decode(suite.do(http.MethodPost, path+"/send", &creator, nil), http.StatusOK, sent)
	assert.Equal(suite.T(), "sent", sent.Status)

	rec = suite.do(http.MethodPost, path+"/cancel", &payer, nil)
	errorResponse = checkErrResponse(&suite.TestSuite, rec, responses.ForbiddenError)
	assert.Contains(suite.T(), errorResponse.Message, "Only creator can cancel")

	cancelled := &ExpectedInvoiceResponseBody{}
	suite.decode(suite.do(http.MethodPost, path+"/cancel", &creator, nil), http.StatusOK, cancelled)
	assert.Equal(suite.T(), "cancelled", cancelled.Status)
	assert.NotZero(suite.T(), cancelled.CancelledAt)

	checkErrResponse(&suite.TestSuite, suite.do(http.MethodPost, path+"/cancel", &creator, nil), responses.InvalidStateError)
	checkErrResponse(&suite.TestSuite, suite.do(http.MethodPost, path+"/send", &creator, nil), responses.InvalidStateError)
	checkErrResponse(&suite.TestSuite, suite.payInvoice(payer, invoice.ID, "100"), responses.InvalidStateError)
}

func (suite *InvoiceTestSuite) TestUnknownInvoice() {
	checkErrResponse(&suite.TestSuite, suite.do(http.MethodGet, "/v2/invoices/42", &creator, nil), responses.NotFoundError)
	checkErrResponse(&suite.TestSuite, suite.do(http.MethodPost, "/v2/invoices/42/send", &creator, nil), responses.NotFoundError)
	checkErrResponse(&suite.TestSuite, suite.do(http.MethodGet, "/v2/invoices/0", &creator, nil), responses.BadArgumentsError)
	checkErrResponse(&suite.TestSuite, suite.do(http.MethodGet, "/v2/invoices/abc", &creator, nil), responses.BadArgumentsError)
}

func (suite *InvoiceTestSuite) TestUserInvoiceLists() {
	first := suite.createInvoice(creator, payer, 100, false)
	second := suite.createInvoice(creator, stranger, 200, false)
	third := suite.createInvoice(stranger, payer, 300, false)

	created := &ExpectedInvoiceListResponseBody{}
	suite.decode(suite.do(http.MethodGet, "/v2/users/"+creator.Hex()+"/invoices/created", &creator, nil), http.StatusOK, created)
	assert.Equal(suite.T(), []uint64{first.ID, second.ID}, created.Invoices)

	received := &ExpectedInvoiceListResponseBody{}
	suite.decode(suite.do(http.MethodGet, "/v2/users/"+payer.Hex()+"/invoices/received", &creator, nil), http.StatusOK, received)
	assert.Equal(suite.T(), []uint64{first.ID, third.ID}, received.Invoices)

	empty := &ExpectedInvoiceListResponseBody{}
	suite.decode(suite.do(http.MethodGet, "/v2/users/"+verifier.Hex()+"/invoices/created", &creator, nil), http.StatusOK, empty)
	assert.Empty(suite.T(), empty.Invoices)
	assert.NotNil(suite.T(), empty.Invoices)
}

func TestInvoiceTestSuite(t *testing.T) {
	suite.Run(t, new(InvoiceTestSuite))
}
