package rff

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/hashicorp/go-retryablehttp"
)

// Status values of the v2 protocol variant.
type Status string

const (
	StatusCreated   Status = "created"
	StatusDeposited Status = "deposited"
	StatusFulfilled Status = "fulfilled"
	StatusExpired   Status = "expired"

	API_RETRIES    = 3
	API_RETRY_WAIT = 500 * time.Millisecond
)

type SubmitResponse struct {
	RequestHash string `json:"request_hash"`
}

type StatusResponse struct {
	RequestHash string `json:"request_hash"`
	Status      Status `json:"status"`
	Solver      string `json:"solver"`
}

// API is the v2 REST protocol variant: submission returns the request hash
// instead of a numeric id and status is exposed explicitly, including
// expiry.
type API struct {
	url        string
	HTTPClient *http.Client
}

func NewAPI(url string) *API {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = API_RETRIES - 1 // RetryMax is a number of retries after an initial attempt
	retryClient.RetryWaitMin = API_RETRY_WAIT
	retryClient.RetryWaitMax = API_RETRY_WAIT
	retryClient.Logger = nil

	return &API{
		url:        url,
		HTTPClient: retryClient.StandardClient(),
	}
}

// Submit posts the signed request and sets the canonical request hash
// returned by the coordination layer.
func (a *API) Submit(ctx context.Context, r *RequestForFunds) error {
	body, err := json.Marshal(map[string]any{
		"request":   submitRequestBody(r),
		"signature": hexutil.Encode(r.Signature),
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/rff", a.url)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status code: %d, %s", resp.StatusCode, url)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	s := new(SubmitResponse)
	if err := json.Unmarshal(raw, s); err != nil {
		return err
	}

	r.RequestHash = common.HexToHash(s.RequestHash)
	return nil
}

// RequestStatus polls the request by its hash.
func (a *API) RequestStatus(ctx context.Context, requestHash common.Hash) (*StatusResponse, error) {
	url := fmt.Sprintf("%s/rff/%s", a.url, requestHash.Hex())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, %s", resp.StatusCode, url)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	s := new(StatusResponse)
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, err
	}

	return s, nil
}

func submitRequestBody(r *RequestForFunds) map[string]any {
	sources := make([]map[string]any, len(r.Sources))
	for i, src := range r.Sources {
		sources[i] = map[string]any{
			"chain_id": src.ChainID,
			"token":    src.TokenContract.Hex(),
			"amount":   src.Amount.String(),
			"universe": string(src.Universe),
			"holder":   src.Holder.Hex(),
		}
	}

	parties := make([]string, len(r.Parties))
	for i, p := range r.Parties {
		parties[i] = p.Hex()
	}

	return map[string]any{
		"sources": sources,
		"destination": map[string]any{
			"chain_id": r.Destination.ChainID,
			"token":    r.Destination.TokenContract.Hex(),
			"amount":   r.Destination.Amount.String(),
			"gas":      r.Destination.Gas.String(),
			"universe": string(r.Destination.Universe),
		},
		"parties": parties,
		"nonce":   r.Nonce.String(),
		"expiry":  r.Expiry.String(),
	}
}
