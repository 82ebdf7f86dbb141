package rff_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sprintertech/intent-engine/errs"
	"github.com/sprintertech/intent-engine/protocol/rff"
	"github.com/stretchr/testify/suite"
)

type fakeSubscription struct {
	fulfilled    chan struct{}
	errs         chan error
	unsubscribes atomic.Int32
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{
		fulfilled: make(chan struct{}, 1),
		errs:      make(chan error, 1),
	}
}

func (f *fakeSubscription) Fulfilled() <-chan struct{} {
	return f.fulfilled
}

func (f *fakeSubscription) Err() <-chan error {
	return f.errs
}

func (f *fakeSubscription) Unsubscribe() {
	f.unsubscribes.Add(1)
}

type fakeSubscriber struct {
	sub *fakeSubscription
	err error
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, requestHash common.Hash) (rff.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

type fakeStatusFetcher struct {
	status rff.Status
	err    error
}

func (f *fakeStatusFetcher) RequestStatus(ctx context.Context, requestHash common.Hash) (*rff.StatusResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &rff.StatusResponse{Status: f.status}, nil
}

type WaiterTestSuite struct {
	suite.Suite

	subscriber *fakeSubscriber
	status     *fakeStatusFetcher
	request    *rff.RequestForFunds
}

func TestRunWaiterTestSuite(t *testing.T) {
	suite.Run(t, new(WaiterTestSuite))
}

func (s *WaiterTestSuite) SetupTest() {
	s.subscriber = &fakeSubscriber{sub: newFakeSubscription()}
	s.status = &fakeStatusFetcher{status: rff.StatusDeposited}
	s.request = &rff.RequestForFunds{
		RequestHash: common.HexToHash("0x01"),
	}
}

func (s *WaiterTestSuite) Test_Wait_PushSignalWins() {
	waiter := rff.NewWaiter(s.subscriber, s.status, time.Hour)
	s.subscriber.sub.fulfilled <- struct{}{}

	err := waiter.Wait(context.Background(), s.request, time.Second)

	s.Nil(err)
	s.True(s.request.Fulfilled)
	s.Equal(int32(1), s.subscriber.sub.unsubscribes.Load())
}

func (s *WaiterTestSuite) Test_Wait_PollDetectsFulfillment() {
	s.status.status = rff.StatusFulfilled
	waiter := rff.NewWaiter(s.subscriber, s.status, time.Millisecond)

	err := waiter.Wait(context.Background(), s.request, time.Second)

	s.Nil(err)
	s.True(s.request.Fulfilled)
}

func (s *WaiterTestSuite) Test_Wait_PolledExpiryIsLiquidityTimeout() {
	s.status.status = rff.StatusExpired
	waiter := rff.NewWaiter(s.subscriber, s.status, time.Millisecond)

	err := waiter.Wait(context.Background(), s.request, time.Second)

	s.True(errs.IsCode(err, errs.CodeLiquidityTimeout))
	s.False(s.request.Fulfilled)
}

func (s *WaiterTestSuite) Test_Wait_TimeoutIsLiquidityTimeout() {
	waiter := rff.NewWaiter(s.subscriber, s.status, time.Hour)

	err := waiter.Wait(context.Background(), s.request, 10*time.Millisecond)

	s.True(errs.IsCode(err, errs.CodeLiquidityTimeout))
}

func (s *WaiterTestSuite) Test_Wait_SubscriptionErrorFallsBackToPolling() {
	s.subscriber.sub.errs <- context.DeadlineExceeded
	s.status.status = rff.StatusFulfilled
	waiter := rff.NewWaiter(s.subscriber, s.status, time.Millisecond)

	err := waiter.Wait(context.Background(), s.request, time.Second)

	s.Nil(err)
	s.True(s.request.Fulfilled)
}

func (s *WaiterTestSuite) Test_Wait_PollErrorsTolerated() {
	s.status.err = context.DeadlineExceeded
	waiter := rff.NewWaiter(s.subscriber, s.status, time.Millisecond)

	err := waiter.Wait(context.Background(), s.request, 50*time.Millisecond)

	s.True(errs.IsCode(err, errs.CodeLiquidityTimeout))
}
