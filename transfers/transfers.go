package transfers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sprintertech/intent-engine/errs"
	"github.com/sprintertech/intent-engine/intent"
	"github.com/sprintertech/intent-engine/protocol/rff"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusFulfilled  Status = "fulfilled"
	StatusRefunded   Status = "refunded"
	StatusFailed     Status = "failed"
)

// Transfer is one tracked bridge flow from intent computation to its
// terminal state.
type Transfer struct {
	ID      string
	Status  Status
	Request intent.Request
	Rff     *rff.RequestForFunds

	ErrorCode   errs.Code
	ErrorReason string

	StartedAt  time.Time
	FinishedAt time.Time
}

type Executor interface {
	Execute(ctx context.Context, req intent.Request, fulfillmentTimeout time.Duration) (*rff.RequestForFunds, error)
	ClaimRefund(ctx context.Context, r *rff.RequestForFunds) error
}

type Metrics interface {
	TrackTransferStarted()
	TrackFulfillment(duration time.Duration)
	TrackRefund()
	TrackFailure()
}

// Tracker starts transfers and records their progress so status polls
// outlive the HTTP request that started the flow.
type Tracker struct {
	ctx      context.Context
	executor Executor
	metrics  Metrics
	timeout  time.Duration

	mu        sync.RWMutex
	transfers map[string]*Transfer
}

// NewTracker creates a tracker whose transfers run on ctx, not on the
// request context of the caller.
func NewTracker(
	ctx context.Context,
	executor Executor,
	metrics Metrics,
	fulfillmentTimeout time.Duration,
) *Tracker {
	return &Tracker{
		ctx:       ctx,
		executor:  executor,
		metrics:   metrics,
		timeout:   fulfillmentTimeout,
		transfers: make(map[string]*Transfer),
	}
}

// Start launches the transfer flow and returns its tracking ID immediately.
func (t *Tracker) Start(req intent.Request) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	id := hex.EncodeToString(b)

	t.mu.Lock()
	t.transfers[id] = &Transfer{
		ID:        id,
		Status:    StatusProcessing,
		Request:   req,
		StartedAt: time.Now(),
	}
	t.mu.Unlock()

	t.metrics.TrackTransferStarted()
	go t.run(id, req)

	return id, nil
}

// Transfer returns a snapshot of the tracked transfer.
func (t *Tracker) Transfer(id string) (*Transfer, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tr, ok := t.transfers[id]
	if !ok {
		return nil, false
	}

	snapshot := *tr
	return &snapshot, true
}

// Refund claims back the funds of a transfer whose request expired
// unfulfilled.
func (t *Tracker) Refund(ctx context.Context, id string) error {
	t.mu.RLock()
	tr, ok := t.transfers[id]
	var r *rff.RequestForFunds
	if ok {
		r = tr.Rff
	}
	t.mu.RUnlock()

	if !ok {
		return fmt.Errorf("transfer %s not found", id)
	}
	if r == nil {
		return errs.New(errs.CodeRffNotExpired, "transfer %s has no submitted request", id)
	}

	if err := t.executor.ClaimRefund(ctx, r); err != nil {
		return err
	}

	t.mu.Lock()
	tr.Rff = r
	if r.Refunded {
		tr.Status = StatusRefunded
		tr.FinishedAt = time.Now()
	}
	if r.Fulfilled {
		tr.Status = StatusFulfilled
		tr.FinishedAt = time.Now()
	}
	t.mu.Unlock()

	if r.Refunded {
		t.metrics.TrackRefund()
	}
	return nil
}

func (t *Tracker) run(id string, req intent.Request) {
	start := time.Now()
	r, err := t.executor.Execute(t.ctx, req, t.timeout)

	t.mu.Lock()
	tr := t.transfers[id]
	tr.Rff = r
	tr.FinishedAt = time.Now()
	switch {
	case err != nil:
		tr.Status = StatusFailed
		tr.ErrorCode = errs.CodeOf(err)
		tr.ErrorReason = err.Error()
	case r != nil && r.Refunded:
		tr.Status = StatusRefunded
	default:
		tr.Status = StatusFulfilled
	}
	status := tr.Status
	t.mu.Unlock()

	switch status {
	case StatusFulfilled:
		t.metrics.TrackFulfillment(time.Since(start))
	case StatusRefunded:
		t.metrics.TrackRefund()
	case StatusFailed:
		t.metrics.TrackFailure()
		log.Warn().Str("transfer", id).Msgf("Transfer failed: %s", err)
	}
}
