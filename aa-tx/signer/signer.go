// Package signer provides Signer implementations producing custom
// signatures for account-abstraction transactions.
package signer

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	hdwallet "github.com/ethereum-optimism/go-ethereum-hdwallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/types"
)

// DefaultHDPath is the first account of the standard Ethereum derivation path.
const DefaultHDPath = "m/44'/60'/0'/0/0"

// ECDSASigner signs digests with a secp256k1 key. Signatures are 65 bytes,
// r || s || v with v in {27, 28}, which is what ECDSA-validating account
// contracts recover from.
type ECDSASigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

var _ types.Signer = (*ECDSASigner)(nil)

// NewECDSASigner wraps an existing private key.
func NewECDSASigner(key *ecdsa.PrivateKey) (*ECDSASigner, error) {
	if key == nil || key.D == nil || key.D.Sign() == 0 {
		return nil, fmt.Errorf("%w: missing private key", types.ErrSigning)
	}
	return &ECDSASigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// NewECDSASignerFromHex parses a hex private key, with or without 0x prefix.
func NewECDSASignerFromHex(hexKey string) (*ECDSASigner, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, fmt.Errorf("%w: missing private key", types.ErrSigning)
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid private key: %v", types.ErrSigning, err)
	}
	return NewECDSASigner(key)
}

// NewECDSASignerFromMnemonic derives the key at hdPath from a BIP-39 mnemonic.
func NewECDSASignerFromMnemonic(mnemonic, hdPath string) (*ECDSASigner, error) {
	if hdPath == "" {
		hdPath = DefaultHDPath
	}
	wallet, err := hdwallet.NewFromMnemonic(strings.TrimSpace(mnemonic))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid mnemonic: %v", types.ErrSigning, err)
	}
	path, err := hdwallet.ParseDerivationPath(hdPath)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hd path %q: %v", types.ErrSigning, hdPath, err)
	}
	account, err := wallet.Derive(path, false)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to derive account: %v", types.ErrSigning, err)
	}
	key, err := wallet.PrivateKey(account)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to derive key: %v", types.ErrSigning, err)
	}
	return NewECDSASigner(key)
}

// Address returns the address of the signing key. For account-abstraction
// transactions this is the account owner, not the transaction sender.
func (s *ECDSASigner) Address() common.Address {
	return s.address
}

// Sign signs the digest and checks the result recovers to the signer before
// returning it.
func (s *ECDSASigner) Sign(digest common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(digest.Bytes(), s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSigning, err)
	}
	if err := verify(digest, sig, s.address); err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// Verify checks that sig, in the format produced by ECDSASigner, was made
// by addr over digest.
func Verify(digest common.Hash, sig []byte, addr common.Address) error {
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: signature must be %d bytes, got %d", types.ErrSigning, crypto.SignatureLength, len(sig))
	}
	normalized := common.CopyBytes(sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	return verify(digest, normalized, addr)
}

func verify(digest common.Hash, sig []byte, addr common.Address) error {
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return fmt.Errorf("%w: failed to recover signer: %v", types.ErrSigning, err)
	}
	if got := crypto.PubkeyToAddress(*pub); got != addr {
		return fmt.Errorf("%w: signature recovers to %s, expected %s", types.ErrSigning, got, addr)
	}
	return nil
}
