package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer produces the custom signature of a transaction from its digest. The
// signature format is defined by the account contract validating it, so it
// is returned as opaque bytes.
type Signer interface {
	Sign(digest common.Hash) ([]byte, error)
}

// SignTx computes the digest of tx, has it signed and returns the signed
// transaction. A descriptor can be signed at most once.
func SignTx(tx *UnsignedTx, s Signer) (*SignedTx, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: no signer", ErrSigning)
	}
	if !tx.markSigned() {
		return nil, ErrAlreadySigned
	}
	digest, err := tx.Digest()
	if err != nil {
		tx.unmarkSigned()
		return nil, err
	}
	sig, err := s.Sign(digest)
	if err != nil {
		tx.unmarkSigned()
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	if len(sig) == 0 {
		tx.unmarkSigned()
		return nil, fmt.Errorf("%w: empty signature", ErrSigning)
	}
	return &SignedTx{tx: tx.Copy(), customSignature: common.CopyBytes(sig)}, nil
}

// Hash returns the network transaction hash:
// keccak256(digest || keccak256(customSignature)).
func (s *SignedTx) Hash() (common.Hash, error) {
	digest, err := s.tx.Digest()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(digest.Bytes(), crypto.Keccak256(s.customSignature)), nil
}
