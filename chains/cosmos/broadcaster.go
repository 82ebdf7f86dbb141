package cosmos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/sprintertech/intent-engine/errs"
)

const (
	MsgTypeCreateRequestForFunds = "/rff.v1.MsgCreateRequestForFunds"
	MsgTypeRefundReq             = "/rff.v1.MsgRefundReq"
)

// Msg is a coordination-chain message with its protobuf type URL and
// JSON-encoded body.
type Msg struct {
	TypeURL string          `json:"type_url"`
	Value   json.RawMessage `json:"value"`
}

// TxSigner signs the prepared coordination-chain transaction bytes. The
// account and key management behind it is out of scope for the engine.
type TxSigner interface {
	SignTx(ctx context.Context, msgs []Msg) ([]byte, error)
}

type BroadcastResult struct {
	TxHash string
	Code   uint32
	RawLog string
	Events []Event
}

type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

type broadcastRequest struct {
	TxBytes string `json:"tx_bytes"`
	Mode    string `json:"mode"`
}

type broadcastResponse struct {
	TxResponse struct {
		TxHash string  `json:"txhash"`
		Code   uint32  `json:"code"`
		RawLog string  `json:"raw_log"`
		Events []Event `json:"events"`
	} `json:"tx_response"`
}

// Broadcaster submits signed transactions to the coordination chain and
// decodes the synchronous execution result.
type Broadcaster struct {
	url    string
	signer TxSigner
	Client *http.Client
}

func NewBroadcaster(url string, signer TxSigner) *Broadcaster {
	return &Broadcaster{
		url:    url,
		signer: signer,
		Client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Broadcast signs and submits the messages. Non-zero execution codes wrap
// into a CosmosError carrying the raw log for upstream classification.
func (b *Broadcaster) Broadcast(ctx context.Context, msgs []Msg) (*BroadcastResult, error) {
	txBytes, err := b.signer.SignTx(ctx, msgs)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(broadcastRequest{
		TxBytes: fmt.Sprintf("%x", txBytes),
		Mode:    "BROADCAST_MODE_SYNC",
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/cosmos/tx/v1beta1/txs", b.url)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.CodeCosmosError, err, "broadcast request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.CodeCosmosError, "unexpected status code: %d, %s", resp.StatusCode, url)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.CodeCosmosError, err, "failed to read response body")
	}

	r := new(broadcastResponse)
	if err := json.Unmarshal(raw, r); err != nil {
		return nil, errs.Wrap(errs.CodeCosmosError, err, "failed to unmarshal broadcast response")
	}

	result := &BroadcastResult{
		TxHash: r.TxResponse.TxHash,
		Code:   r.TxResponse.Code,
		RawLog: r.TxResponse.RawLog,
		Events: r.TxResponse.Events,
	}
	if result.Code != 0 {
		return result, errs.New(errs.CodeCosmosError, "tx %s failed with code %d: %s", result.TxHash, result.Code, result.RawLog)
	}

	return result, nil
}

// EventAttribute finds one attribute in the decoded tx events.
func (r *BroadcastResult) EventAttribute(eventType string, key string) (string, bool) {
	for _, e := range r.Events {
		if e.Type != eventType {
			continue
		}

		if v, ok := e.Attributes[key]; ok {
			return v, true
		}
	}

	return "", false
}

// IntentID extracts the numeric id the chain assigned to a created request.
func (r *BroadcastResult) IntentID() (*big.Int, error) {
	v, ok := r.EventAttribute("create_request_for_funds", "intent_id")
	if !ok {
		return nil, errs.New(errs.CodeCosmosError, "tx %s has no intent_id event", r.TxHash)
	}

	id, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return nil, errs.New(errs.CodeCosmosError, "invalid intent_id %s", v)
	}

	return id, nil
}
