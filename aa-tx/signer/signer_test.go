package signer

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/types"
)

const (
	testKeyHex  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	// the mnemonic every local dev chain ships with; its first account is testAddress
	testMnemonic = "test test test test test test test test test test test junk"
)

func TestNewECDSASignerFromHex(t *testing.T) {
	s, err := NewECDSASignerFromHex(testKeyHex)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(testAddress), s.Address())

	s, err = NewECDSASignerFromHex(testKeyHex[2:])
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(testAddress), s.Address())

	for name, bad := range map[string]string{
		"empty":   "",
		"garbage": "0xnothex",
		"short":   "0x1234",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewECDSASignerFromHex(bad)
			require.ErrorIs(t, err, types.ErrSigning)
		})
	}
}

func TestNewECDSASignerNilKey(t *testing.T) {
	_, err := NewECDSASigner(nil)
	require.ErrorIs(t, err, types.ErrSigning)
	_, err = NewECDSASigner(&ecdsa.PrivateKey{})
	require.ErrorIs(t, err, types.ErrSigning)
}

func TestNewECDSASignerFromMnemonic(t *testing.T) {
	s, err := NewECDSASignerFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(testAddress), s.Address())

	other, err := NewECDSASignerFromMnemonic(testMnemonic, "m/44'/60'/0'/0/1")
	require.NoError(t, err)
	require.NotEqual(t, s.Address(), other.Address())

	_, err = NewECDSASignerFromMnemonic("not a mnemonic", "")
	require.ErrorIs(t, err, types.ErrSigning)
	_, err = NewECDSASignerFromMnemonic(testMnemonic, "m/bad")
	require.ErrorIs(t, err, types.ErrSigning)
}

func TestSignDeterministic(t *testing.T) {
	s, err := NewECDSASignerFromHex(testKeyHex)
	require.NoError(t, err)
	digest := crypto.Keccak256Hash([]byte("digest"))

	a, err := s.Sign(digest)
	require.NoError(t, err)
	b, err := s.Sign(digest)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, crypto.SignatureLength)
	require.Contains(t, []byte{27, 28}, a[crypto.RecoveryIDOffset])

	require.NoError(t, Verify(digest, a, s.Address()))
}

func TestVerifyRejects(t *testing.T) {
	s, err := NewECDSASignerFromHex(testKeyHex)
	require.NoError(t, err)
	digest := crypto.Keccak256Hash([]byte("digest"))
	sig, err := s.Sign(digest)
	require.NoError(t, err)

	require.ErrorIs(t, Verify(crypto.Keccak256Hash([]byte("other")), sig, s.Address()), types.ErrSigning)
	require.ErrorIs(t, Verify(digest, sig, common.Address{0x01}), types.ErrSigning)
	require.ErrorIs(t, Verify(digest, sig[:64], s.Address()), types.ErrSigning)
}

func TestSignTxWithECDSASigner(t *testing.T) {
	s, err := NewECDSASignerFromHex(testKeyHex)
	require.NoError(t, err)
	to := common.HexToAddress("0x5249Fd99f1C1aE9B04C65427257Fc3B8cD976620")
	tx := &types.UnsignedTx{
		From:    common.HexToAddress("0x63127D9Eb6E2e7e67CF045026dA12B16F712B178"),
		To:      &to,
		Nonce:   3,
		ChainID: common.Big1,
	}

	signed, err := types.SignTx(tx, s)
	require.NoError(t, err)
	digest, err := signed.Digest()
	require.NoError(t, err)
	require.NoError(t, Verify(digest, signed.CustomSignature(), s.Address()))

	_, err = types.SignTx(tx, s)
	require.ErrorIs(t, err, types.ErrAlreadySigned)
}
