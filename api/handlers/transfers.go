package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/sprintertech/intent-engine/errs"
	"github.com/sprintertech/intent-engine/intent"
	"github.com/sprintertech/intent-engine/transfers"
)

type TransferBody struct {
	Holder             string  `json:"holder"`
	DestinationChainId uint64  `json:"destinationChainId"`
	Token              string  `json:"token"`
	Amount             *BigInt `json:"amount"`
	Gas                *BigInt `json:"gas"`
}

type TransferStarter interface {
	Start(req intent.Request) (string, error)
}

type TransferHandler struct {
	transfers TransferStarter
	chains    map[uint64]struct{}
}

func NewTransferHandler(transfers TransferStarter, chains map[uint64]struct{}) *TransferHandler {
	return &TransferHandler{
		transfers: transfers,
		chains:    chains,
	}
}

// HandleTransfer starts the bridge flow for the requested amount and returns
// status code 202 with the tracking ID once the transfer has been accepted
func (h *TransferHandler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	b := &TransferBody{}
	d := json.NewDecoder(r.Body)
	err := d.Decode(b)
	if err != nil {
		JSONError(w, fmt.Errorf("invalid request body: %s", err), http.StatusBadRequest)
		return
	}

	err = h.validate(b)
	if err != nil {
		JSONError(w, fmt.Errorf("invalid request body: %s", err), http.StatusBadRequest)
		return
	}

	req := intent.Request{
		Holder:      common.HexToAddress(b.Holder),
		DestChainID: b.DestinationChainId,
		DestSymbol:  b.Token,
		Amount:      b.Amount.Int,
	}
	if b.Gas != nil {
		req.Gas = b.Gas.Int
	}

	id, err := h.transfers.Start(req)
	if err != nil {
		JSONError(w, fmt.Errorf("starting transfer failed: %s", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
}

func (h *TransferHandler) validate(b *TransferBody) error {
	if b.Holder == "" {
		return fmt.Errorf("missing field 'holder'")
	}

	if b.Token == "" {
		return fmt.Errorf("missing field 'token'")
	}

	if b.Amount == nil || b.Amount.Sign() <= 0 {
		return fmt.Errorf("field 'amount' must be a positive integer")
	}

	if b.DestinationChainId == 0 {
		return fmt.Errorf("missing field 'destinationChainId'")
	}

	_, ok := h.chains[b.DestinationChainId]
	if !ok {
		return fmt.Errorf("chain '%d' not supported", b.DestinationChainId)
	}

	return nil
}

type TransferReader interface {
	Transfer(id string) (*transfers.Transfer, bool)
	Refund(ctx context.Context, id string) error
}

type StatusResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RequestHash string `json:"requestHash,omitempty"`
	ErrorCode   string `json:"errorCode,omitempty"`
	ErrorReason string `json:"errorReason,omitempty"`
}

type StatusHandler struct {
	transfers TransferReader
}

func NewStatusHandler(transfers TransferReader) *StatusHandler {
	return &StatusHandler{
		transfers: transfers,
	}
}

// HandleStatus returns the current state of a tracked transfer
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, ok := vars["transferId"]
	if !ok {
		JSONError(w, fmt.Errorf("missing 'transferId'"), http.StatusBadRequest)
		return
	}

	t, ok := h.transfers.Transfer(id)
	if !ok {
		JSONError(w, fmt.Errorf("transfer %s not found", id), http.StatusNotFound)
		return
	}

	resp := StatusResponse{
		ID:          t.ID,
		Status:      string(t.Status),
		ErrorCode:   string(t.ErrorCode),
		ErrorReason: t.ErrorReason,
	}
	if t.Rff != nil {
		resp.RequestHash = t.Rff.Identifier()
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}

// HandleRefund claims back the funds of an expired transfer
func (h *StatusHandler) HandleRefund(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, ok := vars["transferId"]
	if !ok {
		JSONError(w, fmt.Errorf("missing 'transferId'"), http.StatusBadRequest)
		return
	}

	err := h.transfers.Refund(r.Context(), id)
	if errs.IsCode(err, errs.CodeRffNotExpired) {
		JSONError(w, err, http.StatusConflict)
		return
	}
	if err != nil {
		JSONError(w, err, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
