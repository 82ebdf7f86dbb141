package relay

import (
	"github.com/sprintertech/intent-engine/chains/evm/permit"
	"github.com/sprintertech/intent-engine/config"
)

// PermitOperation is one signed spend authorization inside a sponsored
// approval batch.
type PermitOperation struct {
	SigR         []byte `msgpack:"sig_r"`
	SigS         []byte `msgpack:"sig_s"`
	SigV         uint8  `msgpack:"sig_v"`
	TokenAddress string `msgpack:"token_address"`
	Value        string `msgpack:"value"`
	Variant      string `msgpack:"variant"`
	Deadline     int64  `msgpack:"deadline"`
}

// ChainOperations groups the permit operations of one chain for one holder.
type ChainOperations struct {
	Address    string            `msgpack:"address"`
	ChainID    uint64            `msgpack:"chain_id"`
	Universe   string            `msgpack:"universe"`
	Operations []PermitOperation `msgpack:"operations"`
}

// Ack is one per-operation acknowledgement frame. A frame with Errored set
// fails the whole batch.
type Ack struct {
	Errored bool   `msgpack:"errored"`
	PartIdx int    `msgpack:"part_idx"`
	Error   string `msgpack:"error"`
}

// NewChainOperations converts signed authorizations into the wire batch
// grouped per chain, preserving signing order.
func NewChainOperations(holder string, universes map[uint64]config.Universe, auths []*permit.Authorization) []ChainOperations {
	groups := make([]ChainOperations, 0)
	idx := make(map[uint64]int)

	for _, a := range auths {
		op := PermitOperation{
			SigR:         a.R[:],
			SigS:         a.S[:],
			SigV:         a.V,
			TokenAddress: a.TokenAddress.Hex(),
			Value:        a.Value.String(),
			Variant:      string(a.Variant),
			Deadline:     a.Deadline.Int64(),
		}

		i, ok := idx[a.ChainID]
		if !ok {
			groups = append(groups, ChainOperations{
				Address:  holder,
				ChainID:  a.ChainID,
				Universe: string(universes[a.ChainID]),
			})
			i = len(groups) - 1
			idx[a.ChainID] = i
		}

		groups[i].Operations = append(groups[i].Operations, op)
	}

	return groups
}
