package transfers_test

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sprintertech/intent-engine/errs"
	"github.com/sprintertech/intent-engine/intent"
	"github.com/sprintertech/intent-engine/protocol/rff"
	"github.com/sprintertech/intent-engine/transfers"
	"github.com/stretchr/testify/suite"
)

type fakeExecutor struct {
	result    *rff.RequestForFunds
	err       error
	refundErr error

	refunds int
}

func (f *fakeExecutor) Execute(ctx context.Context, req intent.Request, fulfillmentTimeout time.Duration) (*rff.RequestForFunds, error) {
	return f.result, f.err
}

func (f *fakeExecutor) ClaimRefund(ctx context.Context, r *rff.RequestForFunds) error {
	f.refunds++
	if f.refundErr != nil {
		return f.refundErr
	}
	r.Refunded = true
	return nil
}

type recordingMetrics struct {
	started      atomic.Int32
	fulfillments atomic.Int32
	refunds      atomic.Int32
	failures     atomic.Int32
}

func (m *recordingMetrics) TrackTransferStarted()            { m.started.Add(1) }
func (m *recordingMetrics) TrackFulfillment(d time.Duration) { m.fulfillments.Add(1) }
func (m *recordingMetrics) TrackRefund()                     { m.refunds.Add(1) }
func (m *recordingMetrics) TrackFailure()                    { m.failures.Add(1) }

type TrackerTestSuite struct {
	suite.Suite

	executor *fakeExecutor
	metrics  *recordingMetrics
	tracker  *transfers.Tracker
}

func TestRunTrackerTestSuite(t *testing.T) {
	suite.Run(t, new(TrackerTestSuite))
}

func (s *TrackerTestSuite) SetupTest() {
	s.executor = &fakeExecutor{
		result: &rff.RequestForFunds{ID: big.NewInt(1), Fulfilled: true},
	}
	s.metrics = &recordingMetrics{}
	s.tracker = transfers.NewTracker(context.Background(), s.executor, s.metrics, time.Second)
}

func (s *TrackerTestSuite) request() intent.Request {
	return intent.Request{
		DestChainID: 137,
		DestSymbol:  "USDC",
		Amount:      big.NewInt(100),
	}
}

func (s *TrackerTestSuite) waitForTerminal(id string) *transfers.Transfer {
	var tr *transfers.Transfer
	s.Eventually(func() bool {
		snapshot, ok := s.tracker.Transfer(id)
		if !ok || snapshot.Status == transfers.StatusProcessing {
			return false
		}
		tr = snapshot
		return true
	}, time.Second, time.Millisecond)
	return tr
}

func (s *TrackerTestSuite) Test_Start_TransferFulfilled() {
	id, err := s.tracker.Start(s.request())
	s.Nil(err)
	s.NotEmpty(id)

	tr := s.waitForTerminal(id)
	s.Equal(transfers.StatusFulfilled, tr.Status)
	s.NotNil(tr.Rff)
	s.Equal(int32(1), s.metrics.started.Load())
	s.Eventually(func() bool {
		return s.metrics.fulfillments.Load() == 1
	}, time.Second, time.Millisecond)
}

func (s *TrackerTestSuite) Test_Start_TransferRefunded() {
	s.executor.result = &rff.RequestForFunds{ID: big.NewInt(1), Refunded: true}

	id, _ := s.tracker.Start(s.request())

	tr := s.waitForTerminal(id)
	s.Equal(transfers.StatusRefunded, tr.Status)
	s.Eventually(func() bool {
		return s.metrics.refunds.Load() == 1
	}, time.Second, time.Millisecond)
}

func (s *TrackerTestSuite) Test_Start_TransferFailedCarriesCode() {
	s.executor.result = nil
	s.executor.err = errs.New(errs.CodeLiquidityTimeout, "no solver fulfilled the request")

	id, _ := s.tracker.Start(s.request())

	tr := s.waitForTerminal(id)
	s.Equal(transfers.StatusFailed, tr.Status)
	s.Equal(errs.CodeLiquidityTimeout, tr.ErrorCode)
	s.Contains(tr.ErrorReason, "no solver")
	s.Eventually(func() bool {
		return s.metrics.failures.Load() == 1
	}, time.Second, time.Millisecond)
}

func (s *TrackerTestSuite) Test_Transfer_UnknownID() {
	_, ok := s.tracker.Transfer("missing")

	s.False(ok)
}

func (s *TrackerTestSuite) Test_Refund_UnknownTransferFails() {
	err := s.tracker.Refund(context.Background(), "missing")

	s.NotNil(err)
}

func (s *TrackerTestSuite) Test_Refund_WithoutSubmittedRequestFails() {
	s.executor.err = errs.New(errs.CodeProtocolRelayError, "collection failed")
	s.executor.result = nil

	id, _ := s.tracker.Start(s.request())
	s.waitForTerminal(id)

	err := s.tracker.Refund(context.Background(), id)

	s.True(errs.IsCode(err, errs.CodeRffNotExpired))
}

func (s *TrackerTestSuite) Test_Refund_MarksTransferRefunded() {
	s.executor.result = &rff.RequestForFunds{ID: big.NewInt(1)}
	s.executor.err = errs.New(errs.CodeLiquidityTimeout, "no solver fulfilled the request")

	id, _ := s.tracker.Start(s.request())
	s.waitForTerminal(id)

	err := s.tracker.Refund(context.Background(), id)
	s.Nil(err)

	tr, _ := s.tracker.Transfer(id)
	s.Equal(transfers.StatusRefunded, tr.Status)
	s.Equal(1, s.executor.refunds)
	s.Equal(int32(1), s.metrics.refunds.Load())
}
