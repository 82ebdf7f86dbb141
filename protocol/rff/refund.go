package rff

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sprintertech/intent-engine/chains/cosmos"
	"github.com/sprintertech/intent-engine/errs"
)

type refundMsg struct {
	Creator     string `json:"creator"`
	ID          string `json:"id"`
	RequestHash string `json:"request_hash"`
}

// Refunder claims expired requests back from escrow.
type Refunder struct {
	broadcaster Broadcaster
}

func NewRefunder(broadcaster Broadcaster) *Refunder {
	return &Refunder{
		broadcaster: broadcaster,
	}
}

// Refund submits the refund claim. Claims against a not yet expired request
// surface a distinct error so callers can wait and retry; claims against an
// already refunded or already filled request are idempotent successes.
func (r *Refunder) Refund(ctx context.Context, request *RequestForFunds) error {
	msg := refundMsg{
		Creator:     request.Parties[0].Hex(),
		RequestHash: request.RequestHash.Hex(),
	}
	if request.ID != nil {
		msg.ID = request.ID.String()
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, err = r.broadcaster.Broadcast(ctx, []cosmos.Msg{
		{
			TypeURL: cosmos.MsgTypeRefundReq,
			Value:   value,
		},
	})
	if err != nil {
		return classifyRefundError(request, err)
	}

	request.Refunded = true
	return nil
}

func classifyRefundError(request *RequestForFunds, err error) error {
	var e *errs.Error
	if !errors.As(err, &e) {
		return err
	}

	reason := strings.ToLower(e.Error())
	switch {
	case strings.Contains(reason, "not expired"):
		return errs.Wrap(errs.CodeRffNotExpired, err, "request %s not yet expired", request.Identifier())
	case strings.Contains(reason, "already refunded"):
		log.Debug().Msgf("Request %s already refunded", request.Identifier())
		request.Refunded = true
		return nil
	case strings.Contains(reason, "already filled"), strings.Contains(reason, "already fulfilled"):
		log.Debug().Msgf("Request %s already filled", request.Identifier())
		request.Fulfilled = true
		return nil
	default:
		return err
	}
}
