package relay

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sprintertech/intent-engine/errs"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	SPONSORED_APPROVALS_PATH = "/api/v1/create-sponsored-approvals"

	handshakeTimeout = 10 * time.Second
)

// Client streams signed permits to the relay that executes them on-chain on
// the user's behalf and reconciles the per-chain acknowledgements.
type Client struct {
	url    string
	dialer *websocket.Dialer
}

func NewClient(url string) *Client {
	return &Client{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// CreateSponsoredApprovals sends the full batch in one frame and reads one
// acknowledgement per batch entry. Any error-bearing frame aborts the whole
// batch; retrying callers must reopen a fresh connection with a fresh batch.
func (c *Client) CreateSponsoredApprovals(ctx context.Context, batch []ChainOperations) error {
	if len(batch) == 0 {
		return nil
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url+SPONSORED_APPROVALS_PATH, nil)
	if err != nil {
		return errs.Wrap(errs.CodeProtocolRelayError, err, "failed to connect to relay")
	}
	defer conn.Close()

	// tear the socket down on cancellation so reads unblock
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	payload, err := msgpack.Marshal(batch)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return errs.Wrap(errs.CodeProtocolRelayError, err, "failed to send approval batch")
	}

	acked := 0
	for acked < len(batch) {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errs.Wrap(errs.CodeProtocolRelayError, err, "relay stream closed after %d/%d acks", acked, len(batch))
		}

		ack := new(Ack)
		if err := msgpack.Unmarshal(frame, ack); err != nil {
			return errs.Wrap(errs.CodeProtocolRelayError, err, "malformed relay frame")
		}

		if ack.Errored {
			return errs.New(errs.CodeProtocolRelayError, "approval %d failed: %s", ack.PartIdx, ack.Error)
		}
		if ack.Error != "" {
			return errs.New(errs.CodeProtocolRelayError, "relay error: %s", ack.Error)
		}

		log.Debug().Msgf("Sponsored approval %d confirmed", ack.PartIdx)
		acked++
	}

	err = conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		log.Debug().Msgf("Failed closing relay connection: %s", err)
	}

	return nil
}
