package signature

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// TypedSigner produces EIP-712 signatures over typed data. Wallet backed
// implementations return a user-denied error from the errs taxonomy when the
// user rejects the prompt so callers can special-case UI retry.
type TypedSigner interface {
	Address() common.Address
	SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error)
}

// LocalSigner signs typed data with an in-process private key.
type LocalSigner struct {
	key *ecdsa.PrivateKey
}

func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{
		key: key,
	}
}

func (s *LocalSigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

func (s *LocalSigner) SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error) {
	digest, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return nil, err
	}

	// on-chain verifiers expect the legacy 27/28 recovery id
	if sig[64] < 27 {
		sig[64] += 27
	}

	return sig, nil
}

// SplitRSV splits a 65 byte signature into its r, s and v components.
func SplitRSV(sig []byte) (r [32]byte, s [32]byte, v uint8, err error) {
	if len(sig) != 65 {
		return r, s, v, fmt.Errorf("invalid signature length %d", len(sig))
	}

	copy(r[:], sig[:32])
	copy(s[:], sig[32:64])
	v = sig[64]
	if v < 27 {
		v += 27
	}

	return r, s, v, nil
}
