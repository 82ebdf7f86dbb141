package rff

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sprintertech/intent-engine/errs"
	"github.com/sprintertech/intent-engine/fees"
	"github.com/sprintertech/intent-engine/intent"
)

const (
	// FEE_REBUILDS bounds how often an expired fee window may force a full
	// Intent rebuild before the whole transfer fails.
	FEE_REBUILDS = 3
)

type IntentBuilder interface {
	Build(ctx context.Context, req intent.Request) (*intent.Intent, *fees.FeeTable, error)
}

type Approver interface {
	EnsureApprovals(ctx context.Context, i *intent.Intent) error
}

type RequestBuilder interface {
	Build(ctx context.Context, i *intent.Intent) (*RequestForFunds, error)
}

type RequestSubmitter interface {
	Submit(ctx context.Context, r *RequestForFunds) error
}

type RequestCollector interface {
	Collect(ctx context.Context, r *RequestForFunds) error
}

type FulfillmentWaiter interface {
	Wait(ctx context.Context, r *RequestForFunds, timeout time.Duration) error
}

type RefundClaimer interface {
	Refund(ctx context.Context, r *RequestForFunds) error
}

// Manager drives a transfer through the request state machine:
// BUILDING -> SUBMITTED -> COLLECTING -> FULFILLED, with the refund path as
// the alternative terminal after expiry. An expired fee window discards the
// in-flight request and restarts from BUILDING against a freshly fetched
// fee table; the stale table is unreachable afterwards.
type Manager struct {
	intents   IntentBuilder
	approver  Approver
	builder   RequestBuilder
	submitter RequestSubmitter
	collector RequestCollector
	waiter    FulfillmentWaiter
	refunder  RefundClaimer
}

func NewManager(
	intents IntentBuilder,
	approver Approver,
	builder RequestBuilder,
	submitter RequestSubmitter,
	collector RequestCollector,
	waiter FulfillmentWaiter,
	refunder RefundClaimer,
) *Manager {
	return &Manager{
		intents:   intents,
		approver:  approver,
		builder:   builder,
		submitter: submitter,
		collector: collector,
		waiter:    waiter,
		refunder:  refunder,
	}
}

// Execute runs one transfer to a terminal state. The fulfillment wait is
// bounded by the caller supplied timeout.
func (m *Manager) Execute(ctx context.Context, req intent.Request, fulfillmentTimeout time.Duration) (*RequestForFunds, error) {
	var lastErr error
	for attempt := 0; attempt < FEE_REBUILDS; attempt++ {
		i, _, err := m.intents.Build(ctx, req)
		if err != nil {
			return nil, err
		}
		if i.IsAvailableBalanceInsufficient {
			return nil, errs.New(errs.CodeInsufficientBalance, "available balance cannot cover %s plus fees", req.Amount)
		}

		if err := m.approver.EnsureApprovals(ctx, i); err != nil {
			return nil, err
		}

		r, err := m.builder.Build(ctx, i)
		if err != nil {
			return nil, err
		}

		if err := m.submitter.Submit(ctx, r); err != nil {
			return nil, err
		}

		err = m.collector.Collect(ctx, r)
		if errs.IsCode(err, errs.CodeRffFeeExpired) {
			log.Warn().Msgf("Fee window expired for request %s, rebuilding intent", r.Identifier())
			lastErr = err
			continue
		}
		if err != nil {
			return r, err
		}

		if err := m.waiter.Wait(ctx, r, fulfillmentTimeout); err != nil {
			return r, err
		}

		return r, nil
	}

	return nil, errs.Wrap(errs.CodeRffFeeExpired, lastErr, "fee window expired %d times", FEE_REBUILDS)
}

// ClaimRefund claims back the funds of an expired request.
func (m *Manager) ClaimRefund(ctx context.Context, r *RequestForFunds) error {
	return m.refunder.Refund(ctx, r)
}
