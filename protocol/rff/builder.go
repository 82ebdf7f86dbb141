package rff

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/sprintertech/intent-engine/chains/evm/signature"
	"github.com/sprintertech/intent-engine/errs"
	"github.com/sprintertech/intent-engine/intent"
)

const (
	DOMAIN_NAME = "RequestForFunds"
	VERSION     = "1.0.0"

	INTENT_LIFETIME = 10 * time.Minute
)

type VaultResolver interface {
	Vault(chainID uint64) (common.Address, error)
}

// Builder assembles the on-chain request struct from an Intent and obtains
// the user's signature over its domain-separated hash.
type Builder struct {
	signer   signature.TypedSigner
	vaults   VaultResolver
	lifetime time.Duration
}

func NewBuilder(signer signature.TypedSigner, vaults VaultResolver, lifetime time.Duration) *Builder {
	if lifetime == 0 {
		lifetime = INTENT_LIFETIME
	}

	return &Builder{
		signer:   signer,
		vaults:   vaults,
		lifetime: lifetime,
	}
}

// Build creates the signed request. User rejection of the signature is
// terminal and surfaces as a distinct error kind.
func (b *Builder) Build(ctx context.Context, i *intent.Intent) (*RequestForFunds, error) {
	nonce, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, err
	}

	vault, err := b.vaults.Vault(i.Destination.ChainID)
	if err != nil {
		return nil, err
	}

	sources := make([]Source, len(i.Sources))
	for n, s := range i.Sources {
		sources[n] = Source{
			ChainID:       s.ChainID,
			TokenContract: s.TokenContract,
			Amount:        s.Amount,
			Universe:      s.Universe,
			Holder:        s.Holder,
		}
	}

	r := &RequestForFunds{
		Sources: sources,
		Destination: Destination{
			ChainID:       i.Destination.ChainID,
			TokenContract: i.Destination.TokenContract,
			Amount:        i.Destination.Amount,
			Decimals:      i.Destination.Decimals,
			Gas:           i.Destination.Gas,
			Universe:      i.Destination.Universe,
		},
		Parties: []common.Address{b.signer.Address(), vault},
		Nonce:   nonce,
		Expiry:  new(big.Int).SetInt64(time.Now().Add(b.lifetime).Unix()),
	}

	hash, data, err := requestHash(r)
	if err != nil {
		return nil, err
	}
	r.RequestHash = common.BytesToHash(hash)

	sig, err := b.signer.SignTypedData(ctx, data)
	if err != nil {
		if errs.IsCode(err, errs.CodeUserDeniedIntentSignature) || errs.IsCode(err, errs.CodeUserDeniedAllowance) {
			return nil, errs.Wrap(errs.CodeUserDeniedIntentSignature, err, "user denied intent signature")
		}
		return nil, err
	}
	r.Signature = sig

	return r, nil
}

// requestHash calculates the deterministic domain-separated hash identifying
// the request, in the same way the escrow contracts recompute it.
func requestHash(r *RequestForFunds) ([]byte, apitypes.TypedData, error) {
	sources := make([]map[string]any, len(r.Sources))
	for i, s := range r.Sources {
		sources[i] = map[string]any{
			"chainId": new(big.Int).SetUint64(s.ChainID),
			"token":   s.TokenContract.Hex(),
			"amount":  s.Amount,
			"holder":  s.Holder.Hex(),
		}
	}

	parties := make([]string, len(r.Parties))
	for i, p := range r.Parties {
		parties[i] = p.Hex()
	}

	msg := apitypes.TypedDataMessage{
		"sources":          sources,
		"destinationChain": new(big.Int).SetUint64(r.Destination.ChainID),
		"destinationToken": r.Destination.TokenContract.Hex(),
		"amount":           r.Destination.Amount,
		"gas":              r.Destination.Gas,
		"parties":          parties,
		"nonce":            r.Nonce,
		"expiry":           r.Expiry,
	}

	chainId := math.HexOrDecimal256(*new(big.Int).SetUint64(r.Destination.ChainID))
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"Source": []apitypes.Type{
				{Name: "chainId", Type: "uint256"},
				{Name: "token", Type: "address"},
				{Name: "amount", Type: "uint256"},
				{Name: "holder", Type: "address"},
			},
			"Request": []apitypes.Type{
				{Name: "sources", Type: "Source[]"},
				{Name: "destinationChain", Type: "uint256"},
				{Name: "destinationToken", Type: "address"},
				{Name: "amount", Type: "uint256"},
				{Name: "gas", Type: "uint256"},
				{Name: "parties", Type: "address[]"},
				{Name: "nonce", Type: "uint256"},
				{Name: "expiry", Type: "uint256"},
			},
		},
		PrimaryType: "Request",
		Domain: apitypes.TypedDataDomain{
			Name:    DOMAIN_NAME,
			Version: VERSION,
			ChainId: &chainId,
		},
		Message: msg,
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return []byte{}, typedData, err
	}

	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return []byte{}, typedData, err
	}

	rawData := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(messageHash)))
	return crypto.Keccak256(rawData), typedData, nil
}
