package relay

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/sprintertech/intent-engine/chains/evm/permit"
	"github.com/sprintertech/intent-engine/config"
	"github.com/sprintertech/intent-engine/intent"
)

type ApprovalRelayer interface {
	CreateSponsoredApprovals(ctx context.Context, batch []ChainOperations) error
}

// Approver makes sure the vault on every source chain is authorized to pull
// the selected funds, signing permits only where the live allowance falls
// short and relaying them gaslessly in one batch.
type Approver struct {
	signer  *permit.Signer
	relayer ApprovalRelayer
	store   *config.TokenStore
}

func NewApprover(signer *permit.Signer, relayer ApprovalRelayer, store *config.TokenStore) *Approver {
	return &Approver{
		signer:  signer,
		relayer: relayer,
		store:   store,
	}
}

// EnsureApprovals signs and relays the missing spend authorizations for all
// Intent sources. Sources whose allowance already covers the amount are
// skipped.
func (a *Approver) EnsureApprovals(ctx context.Context, i *intent.Intent) error {
	auths := make([]*permit.Authorization, 0)
	universes := make(map[uint64]config.Universe)

	for _, source := range i.Sources {
		vault, err := a.store.Vault(source.ChainID)
		if err != nil {
			return err
		}

		needed, err := a.signer.NeedsApproval(source.ChainID, source.TokenContract, vault, source.Amount)
		if err != nil {
			return err
		}
		if !needed {
			continue
		}

		_, tc, err := a.store.ConfigByAddress(source.ChainID, source.TokenContract)
		if err != nil {
			return err
		}

		auth, err := a.signer.Permit(ctx, source.ChainID, tc, vault, source.Amount)
		if err != nil {
			return err
		}

		auths = append(auths, auth)
		universes[source.ChainID] = source.Universe
	}

	if len(auths) == 0 {
		return nil
	}

	holder := i.Sources[0].Holder
	batch := NewChainOperations(holder.Hex(), universes, auths)
	log.Debug().Msgf("Relaying %d sponsored approvals across %d chains", len(auths), len(batch))

	return a.relayer.CreateSponsoredApprovals(ctx, batch)
}
