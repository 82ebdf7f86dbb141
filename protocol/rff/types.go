package rff

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sprintertech/intent-engine/config"
)

type State string

const (
	StateBuilding   State = "BUILDING"
	StateSubmitted  State = "SUBMITTED"
	StateCollecting State = "COLLECTING"
	StateFulfilled  State = "FULFILLED"
	StateRefunded   State = "REFUNDED"
	StateExpired    State = "EXPIRED"
)

// Collection stream status codes.
const (
	StatusChainCollected uint8 = 0x10
	StatusChainFailed    uint8 = 0x1a
	StatusFeeExpired     uint8 = 0x13
	StatusStreamComplete uint8 = 0xff
)

type Source struct {
	ChainID       uint64
	TokenContract common.Address
	Amount        *big.Int
	Universe      config.Universe
	Holder        common.Address
}

type Destination struct {
	ChainID       uint64
	TokenContract common.Address
	Amount        *big.Int
	Decimals      uint8
	Gas           *big.Int
	Universe      config.Universe
}

// RequestForFunds is the canonical, identifier-bearing transfer request
// recorded with the coordination layer. Either ID (v1) or RequestHash (v2)
// identifies it, depending on the protocol variant that submitted it.
type RequestForFunds struct {
	ID          *big.Int
	RequestHash common.Hash

	Sources     []Source
	Destination Destination
	Parties     []common.Address
	Nonce       *big.Int
	Expiry      *big.Int
	Signature   []byte

	Deposited bool
	Fulfilled bool
	Refunded  bool
}

// ExpectedCollectionIndexes lists the source indexes the collection stream
// has to acknowledge before it may complete.
func (r *RequestForFunds) ExpectedCollectionIndexes() []int {
	idxs := make([]int, len(r.Sources))
	for i := range r.Sources {
		idxs[i] = i
	}

	return idxs
}

// Identifier renders the canonical identifier for streams and status polls.
func (r *RequestForFunds) Identifier() string {
	if r.ID != nil {
		return r.ID.String()
	}

	return r.RequestHash.Hex()
}
