package rff

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/sprintertech/intent-engine/errs"
)

const (
	FULFILLMENT_POLL_INTERVAL = 5 * time.Second
)

// Subscription is a push-based fulfillment signal filtered by request
// identifier. Unsubscribe has to be safe to call more than once because the
// race below may cancel a subscription that is resolving concurrently.
type Subscription interface {
	Fulfilled() <-chan struct{}
	Err() <-chan error
	Unsubscribe()
}

type Subscriber interface {
	Subscribe(ctx context.Context, requestHash common.Hash) (Subscription, error)
}

type StatusFetcher interface {
	RequestStatus(ctx context.Context, requestHash common.Hash) (*StatusResponse, error)
}

// Waiter detects fulfillment by racing the push subscription against a
// periodic status poll. First signal wins and the loser's resource is
// released.
type Waiter struct {
	subscriber   Subscriber
	status       StatusFetcher
	pollInterval time.Duration
}

func NewWaiter(subscriber Subscriber, status StatusFetcher, pollInterval time.Duration) *Waiter {
	if pollInterval == 0 {
		pollInterval = FULFILLMENT_POLL_INTERVAL
	}

	return &Waiter{
		subscriber:   subscriber,
		status:       status,
		pollInterval: pollInterval,
	}
}

// Wait blocks until the request is fulfilled, expires, or the timeout
// elapses. Timeouts surface as a liquidity timeout rather than hanging.
func (w *Waiter) Wait(ctx context.Context, r *RequestForFunds, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sub, err := w.subscriber.Subscribe(ctx, r.RequestHash)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	polled := make(chan Status, 1)
	pollErr := make(chan error, 1)
	go w.poll(ctx, r.RequestHash, polled, pollErr)

	for {
		select {
		case <-sub.Fulfilled():
			r.Fulfilled = true
			return nil
		case err := <-sub.Err():
			log.Warn().Msgf("Fulfillment subscription for %s failed: %s", r.Identifier(), err)
			// polling keeps running as the fallback signal
		case status := <-polled:
			switch status {
			case StatusFulfilled:
				r.Fulfilled = true
				return nil
			case StatusExpired:
				return errs.New(errs.CodeLiquidityTimeout, "request %s expired before fulfillment", r.Identifier())
			}
		case err := <-pollErr:
			log.Warn().Msgf("Fulfillment poll for %s failed: %s", r.Identifier(), err)
		case <-ctx.Done():
			return errs.New(errs.CodeLiquidityTimeout, "no solver fulfilled request %s within %s", r.Identifier(), timeout)
		}
	}
}

func (w *Waiter) poll(ctx context.Context, requestHash common.Hash, polled chan Status, pollErr chan error) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status, err := w.status.RequestStatus(ctx, requestHash)
			if err != nil {
				select {
				case pollErr <- err:
				default:
				}
				continue
			}

			if status.Status == StatusFulfilled || status.Status == StatusExpired {
				select {
				case polled <- status.Status:
				default:
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
