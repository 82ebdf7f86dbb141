package handlers_test

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/sprintertech/intent-engine/api/handlers"
	"github.com/sprintertech/intent-engine/errs"
	"github.com/sprintertech/intent-engine/intent"
	"github.com/sprintertech/intent-engine/protocol/rff"
	"github.com/sprintertech/intent-engine/transfers"
	"github.com/stretchr/testify/suite"
)

type fakeStarter struct {
	req intent.Request
	id  string
	err error
}

func (f *fakeStarter) Start(req intent.Request) (string, error) {
	f.req = req
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

type TransferHandlerTestSuite struct {
	suite.Suite

	starter *fakeStarter
	handler *handlers.TransferHandler
}

func TestRunTransferHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TransferHandlerTestSuite))
}

func (s *TransferHandlerTestSuite) SetupTest() {
	s.starter = &fakeStarter{id: "8e2f5a"}
	s.handler = handlers.NewTransferHandler(s.starter, map[uint64]struct{}{
		1:   {},
		137: {},
	})
}

func (s *TransferHandlerTestSuite) post(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/transfers", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	s.handler.HandleTransfer(recorder, req)
	return recorder
}

func (s *TransferHandlerTestSuite) Test_HandleTransfer_InvalidBody() {
	recorder := s.post("invalid")

	s.Equal(http.StatusBadRequest, recorder.Code)
}

func (s *TransferHandlerTestSuite) Test_HandleTransfer_MissingHolder() {
	recorder := s.post(`{"destinationChainId":137,"token":"USDC","amount":"100"}`)

	s.Equal(http.StatusBadRequest, recorder.Code)
	s.Contains(recorder.Body.String(), "holder")
}

func (s *TransferHandlerTestSuite) Test_HandleTransfer_NonPositiveAmount() {
	recorder := s.post(`{"holder":"0xd606A00c1A39dA53EA7Bb3Ab570BBE40b156EB66","destinationChainId":137,"token":"USDC","amount":"0"}`)

	s.Equal(http.StatusBadRequest, recorder.Code)
	s.Contains(recorder.Body.String(), "amount")
}

func (s *TransferHandlerTestSuite) Test_HandleTransfer_UnsupportedChain() {
	recorder := s.post(`{"holder":"0xd606A00c1A39dA53EA7Bb3Ab570BBE40b156EB66","destinationChainId":5,"token":"USDC","amount":"100"}`)

	s.Equal(http.StatusBadRequest, recorder.Code)
	s.Contains(recorder.Body.String(), "not supported")
}

func (s *TransferHandlerTestSuite) Test_HandleTransfer_StartsTransfer() {
	recorder := s.post(`{"holder":"0xd606A00c1A39dA53EA7Bb3Ab570BBE40b156EB66","destinationChainId":137,"token":"USDC","amount":"100000000","gas":"50000"}`)

	s.Equal(http.StatusAccepted, recorder.Code)

	resp := map[string]string{}
	_ = json.Unmarshal(recorder.Body.Bytes(), &resp)
	s.Equal("8e2f5a", resp["id"])

	s.Equal(common.HexToAddress("0xd606A00c1A39dA53EA7Bb3Ab570BBE40b156EB66"), s.starter.req.Holder)
	s.Equal(uint64(137), s.starter.req.DestChainID)
	s.Equal("USDC", s.starter.req.DestSymbol)
	s.Equal(big.NewInt(100000000), s.starter.req.Amount)
	s.Equal(big.NewInt(50000), s.starter.req.Gas)
}

func (s *TransferHandlerTestSuite) Test_HandleTransfer_StartFailure() {
	s.starter.err = errs.New(errs.CodeTokenNotSupported, "no such token")

	recorder := s.post(`{"holder":"0xd606A00c1A39dA53EA7Bb3Ab570BBE40b156EB66","destinationChainId":137,"token":"ABC","amount":"100"}`)

	s.Equal(http.StatusInternalServerError, recorder.Code)
}

type fakeReader struct {
	transfer  *transfers.Transfer
	refundErr error
	refunded  []string
}

func (f *fakeReader) Transfer(id string) (*transfers.Transfer, bool) {
	if f.transfer == nil || f.transfer.ID != id {
		return nil, false
	}
	return f.transfer, true
}

func (f *fakeReader) Refund(ctx context.Context, id string) error {
	f.refunded = append(f.refunded, id)
	return f.refundErr
}

type StatusHandlerTestSuite struct {
	suite.Suite

	reader  *fakeReader
	handler *handlers.StatusHandler
}

func TestRunStatusHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(StatusHandlerTestSuite))
}

func (s *StatusHandlerTestSuite) SetupTest() {
	s.reader = &fakeReader{}
	s.handler = handlers.NewStatusHandler(s.reader)
}

func (s *StatusHandlerTestSuite) get(id string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/transfers/"+id, nil)
	req = mux.SetURLVars(req, map[string]string{"transferId": id})
	recorder := httptest.NewRecorder()
	s.handler.HandleStatus(recorder, req)
	return recorder
}

func (s *StatusHandlerTestSuite) refund(id string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/transfers/"+id+"/refund", nil)
	req = mux.SetURLVars(req, map[string]string{"transferId": id})
	recorder := httptest.NewRecorder()
	s.handler.HandleRefund(recorder, req)
	return recorder
}

func (s *StatusHandlerTestSuite) Test_HandleStatus_NotFound() {
	recorder := s.get("missing")

	s.Equal(http.StatusNotFound, recorder.Code)
}

func (s *StatusHandlerTestSuite) Test_HandleStatus_ReturnsTransfer() {
	s.reader.transfer = &transfers.Transfer{
		ID:     "8e2f5a",
		Status: transfers.StatusFulfilled,
		Rff: &rff.RequestForFunds{
			ID:          big.NewInt(42),
			RequestHash: common.HexToHash("0xabcd"),
		},
	}

	recorder := s.get("8e2f5a")

	s.Equal(http.StatusOK, recorder.Code)

	resp := handlers.StatusResponse{}
	_ = json.Unmarshal(recorder.Body.Bytes(), &resp)
	s.Equal("8e2f5a", resp.ID)
	s.Equal("fulfilled", resp.Status)
	s.NotEmpty(resp.RequestHash)
	s.Empty(resp.ErrorCode)
}

func (s *StatusHandlerTestSuite) Test_HandleStatus_FailedTransferCarriesError() {
	s.reader.transfer = &transfers.Transfer{
		ID:          "8e2f5a",
		Status:      transfers.StatusFailed,
		ErrorCode:   errs.CodeLiquidityTimeout,
		ErrorReason: "no solver fulfilled the request",
	}

	recorder := s.get("8e2f5a")

	resp := handlers.StatusResponse{}
	_ = json.Unmarshal(recorder.Body.Bytes(), &resp)
	s.Equal("failed", resp.Status)
	s.Equal("LIQUIDITY_TIMEOUT", resp.ErrorCode)
	s.Contains(resp.ErrorReason, "no solver")
}

func (s *StatusHandlerTestSuite) Test_HandleRefund_Accepted() {
	recorder := s.refund("8e2f5a")

	s.Equal(http.StatusAccepted, recorder.Code)
	s.Equal([]string{"8e2f5a"}, s.reader.refunded)
}

func (s *StatusHandlerTestSuite) Test_HandleRefund_NotExpiredConflicts() {
	s.reader.refundErr = errs.New(errs.CodeRffNotExpired, "request has not expired yet")

	recorder := s.refund("8e2f5a")

	s.Equal(http.StatusConflict, recorder.Code)
}

func (s *StatusHandlerTestSuite) Test_HandleRefund_FailurePropagates() {
	s.reader.refundErr = errs.New(errs.CodeCosmosError, "broadcast failed")

	recorder := s.refund("8e2f5a")

	s.Equal(http.StatusInternalServerError, recorder.Code)
}
