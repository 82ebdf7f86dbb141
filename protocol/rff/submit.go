package rff

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog/log"
	"github.com/sprintertech/intent-engine/chains/cosmos"
)

type Broadcaster interface {
	Broadcast(ctx context.Context, msgs []cosmos.Msg) (*cosmos.BroadcastResult, error)
}

type createRequestMsg struct {
	Creator     string          `json:"creator"`
	Sources     []requestSource `json:"sources"`
	Destination requestDest     `json:"destination"`
	Parties     []string        `json:"parties"`
	Nonce       string          `json:"nonce"`
	Expiry      string          `json:"expiry"`
	Signature   string          `json:"signature"`
}

type requestSource struct {
	ChainID  uint64 `json:"chain_id"`
	Token    string `json:"token"`
	Amount   string `json:"amount"`
	Universe string `json:"universe"`
	Holder   string `json:"holder"`
}

type requestDest struct {
	ChainID  uint64 `json:"chain_id"`
	Token    string `json:"token"`
	Amount   string `json:"amount"`
	Gas      string `json:"gas"`
	Universe string `json:"universe"`
}

// Submitter records a signed request on the coordination chain and resolves
// the numeric intent id the chain assigns to it.
type Submitter struct {
	broadcaster Broadcaster
}

func NewSubmitter(broadcaster Broadcaster) *Submitter {
	return &Submitter{
		broadcaster: broadcaster,
	}
}

// Submit broadcasts MsgCreateRequestForFunds and sets the resulting id on
// the request.
func (s *Submitter) Submit(ctx context.Context, r *RequestForFunds) error {
	sources := make([]requestSource, len(r.Sources))
	for i, src := range r.Sources {
		sources[i] = requestSource{
			ChainID:  src.ChainID,
			Token:    src.TokenContract.Hex(),
			Amount:   src.Amount.String(),
			Universe: string(src.Universe),
			Holder:   src.Holder.Hex(),
		}
	}

	parties := make([]string, len(r.Parties))
	for i, p := range r.Parties {
		parties[i] = p.Hex()
	}

	msg := createRequestMsg{
		Creator: r.Parties[0].Hex(),
		Sources: sources,
		Destination: requestDest{
			ChainID:  r.Destination.ChainID,
			Token:    r.Destination.TokenContract.Hex(),
			Amount:   r.Destination.Amount.String(),
			Gas:      r.Destination.Gas.String(),
			Universe: string(r.Destination.Universe),
		},
		Parties:   parties,
		Nonce:     r.Nonce.String(),
		Expiry:    r.Expiry.String(),
		Signature: hexutil.Encode(r.Signature),
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	result, err := s.broadcaster.Broadcast(ctx, []cosmos.Msg{
		{
			TypeURL: cosmos.MsgTypeCreateRequestForFunds,
			Value:   value,
		},
	})
	if err != nil {
		return err
	}

	id, err := result.IntentID()
	if err != nil {
		return err
	}

	r.ID = id
	log.Info().Msgf("Submitted request for funds with id %s in tx %s", id, result.TxHash)
	return nil
}
