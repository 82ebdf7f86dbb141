package cosmos

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

type signedTx struct {
	Messages  []Msg  `json:"messages"`
	Signer    string `json:"signer"`
	Signature string `json:"signature"`
}

// LocalTxSigner assembles and signs coordination-chain transactions with a
// local secp256k1 key. The gateway accepts the JSON envelope directly, so
// no protobuf encoding happens client side.
type LocalTxSigner struct {
	key *ecdsa.PrivateKey
}

func NewLocalTxSigner(key *ecdsa.PrivateKey) *LocalTxSigner {
	return &LocalTxSigner{
		key: key,
	}
}

func (s *LocalTxSigner) SignTx(ctx context.Context, msgs []Msg) ([]byte, error) {
	body, err := json.Marshal(msgs)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256(body)
	sig, err := crypto.Sign(digest[:], s.key)
	if err != nil {
		return nil, err
	}

	return json.Marshal(signedTx{
		Messages:  msgs,
		Signer:    crypto.PubkeyToAddress(s.key.PublicKey).Hex(),
		Signature: hexutil.Encode(sig),
	})
}
