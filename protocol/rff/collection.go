package rff

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sprintertech/intent-engine/errs"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	COLLECTION_PATH    = "/api/v1/create-rff"
	COLLECTION_RETRIES = 3

	collectionHandshakeTimeout = 10 * time.Second
)

type collectionRequest struct {
	ID string `msgpack:"id"`
}

type collectionFrame struct {
	Status  uint8  `msgpack:"status"`
	Idx     int    `msgpack:"idx"`
	Errored bool   `msgpack:"errored"`
	Error   string `msgpack:"error"`
}

// progress tracks one collection attempt. It only lives for the duration of
// the attempt and is discarded on completion or retry.
type progress struct {
	expected     map[int]struct{}
	acknowledged map[int]struct{}
}

func newProgress(expected []int) *progress {
	p := &progress{
		expected:     make(map[int]struct{}, len(expected)),
		acknowledged: make(map[int]struct{}, len(expected)),
	}
	for _, idx := range expected {
		p.expected[idx] = struct{}{}
	}

	return p
}

func (p *progress) ack(idx int) {
	p.acknowledged[idx] = struct{}{}
}

func (p *progress) complete() bool {
	for idx := range p.expected {
		if _, ok := p.acknowledged[idx]; !ok {
			return false
		}
	}

	return true
}

// Collector drives the on-chain collection of previously authorized source
// funds into escrow and reconciles per-chain acknowledgements.
type Collector struct {
	url    string
	dialer *websocket.Dialer
}

func NewCollector(url string) *Collector {
	return &Collector{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: collectionHandshakeTimeout,
		},
	}
}

// Collect opens a collection stream for the request and waits until every
// expected source chain acknowledged. Failed attempts retry with a fresh
// connection; an expired fee window aborts retries immediately because the
// whole Intent has to be rebuilt against fresh fees.
func (c *Collector) Collect(ctx context.Context, r *RequestForFunds) error {
	var err error
	for attempt := 1; attempt <= COLLECTION_RETRIES; attempt++ {
		err = c.collectOnce(ctx, r)
		if err == nil {
			r.Deposited = true
			return nil
		}

		if errs.IsCode(err, errs.CodeRffFeeExpired) || ctx.Err() != nil {
			return err
		}

		log.Warn().Msgf("Collection attempt %d/%d for request %s failed: %s", attempt, COLLECTION_RETRIES, r.Identifier(), err)
	}

	return errs.Wrap(errs.CodeProtocolRelayError, err, "collection failed after %d attempts", COLLECTION_RETRIES)
}

func (c *Collector) collectOnce(ctx context.Context, r *RequestForFunds) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url+COLLECTION_PATH, nil)
	if err != nil {
		return errs.Wrap(errs.CodeProtocolRelayError, err, "failed to connect to collection stream")
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	payload, err := msgpack.Marshal(collectionRequest{ID: r.Identifier()})
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return errs.Wrap(errs.CodeProtocolRelayError, err, "failed to send collection request")
	}

	p := newProgress(r.ExpectedCollectionIndexes())
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errs.Wrap(errs.CodeProtocolRelayError, err, "collection stream closed")
		}

		f := new(collectionFrame)
		if err := msgpack.Unmarshal(frame, f); err != nil {
			return errs.Wrap(errs.CodeProtocolRelayError, err, "malformed collection frame")
		}

		switch f.Status {
		case StatusChainCollected:
			log.Debug().Msgf("Source %d collected for request %s", f.Idx, r.Identifier())
			p.ack(f.Idx)
		case StatusChainFailed:
			return errs.New(errs.CodeProtocolRelayError, "collection failed for source %d: %s", f.Idx, f.Error)
		case StatusFeeExpired:
			return errs.New(errs.CodeRffFeeExpired, "fee window expired for request %s", r.Identifier())
		case StatusStreamComplete:
			if !p.complete() {
				return errs.New(errs.CodeProtocolRelayError, "collection stream completed with %d/%d sources acknowledged", len(p.acknowledged), len(p.expected))
			}
			return nil
		default:
			return errs.New(errs.CodeProtocolRelayError, "unknown collection status %#x", f.Status)
		}
	}
}
