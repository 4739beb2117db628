package types

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// eip712Envelope is the RLP list following the type byte on the wire.
// Positions 7 to 9 hold the (v, r, s) triple of plain transactions; with a
// custom signature they carry the chain id and two empty strings.
type eip712Envelope struct {
	Nonce           uint64
	GasTipCap       *uint256.Int
	GasFeeCap       *uint256.Int
	Gas             uint64
	To              *common.Address `rlp:"nil"`
	Value           *uint256.Int
	Data            []byte
	V               *big.Int
	R               []byte
	S               []byte
	ChainID         *big.Int
	From            common.Address
	GasPerPubdata   *uint256.Int
	FactoryDeps     [][]byte
	CustomSignature []byte
	PaymasterParams [][]byte
}

// MarshalBinary returns the wire encoding accepted by eth_sendRawTransaction.
func (s *SignedTx) MarshalBinary() ([]byte, error) {
	if len(s.customSignature) == 0 {
		return nil, fmt.Errorf("%w: empty custom signature", ErrMalformedTransaction)
	}
	tx := s.tx
	if tx.ChainID == nil {
		return nil, fmt.Errorf("%w: missing chain id", ErrMalformedTransaction)
	}
	env := eip712Envelope{
		Nonce:           tx.Nonce,
		GasTipCap:       orZero(tx.gasTipCap()),
		GasFeeCap:       orZero(tx.GasPrice),
		Gas:             tx.GasLimit,
		To:              tx.To,
		Value:           orZero(tx.Value),
		Data:            tx.Data,
		V:               tx.ChainID,
		ChainID:         tx.ChainID,
		From:            tx.From,
		GasPerPubdata:   tx.gasPerPubdata(),
		FactoryDeps:     tx.CustomData.FactoryDeps,
		CustomSignature: s.customSignature,
		PaymasterParams: [][]byte{},
	}
	if env.FactoryDeps == nil {
		env.FactoryDeps = [][]byte{}
	}
	if pp := tx.CustomData.PaymasterParams; pp != nil {
		env.PaymasterParams = [][]byte{pp.Paymaster.Bytes(), pp.Input}
	}

	var buf bytes.Buffer
	buf.WriteByte(EIP712TxType)
	if err := rlp.Encode(&buf, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTransaction, err)
	}
	return buf.Bytes(), nil
}

// Serialize encodes s for broadcast.
func Serialize(s *SignedTx) (*RawTx, error) {
	raw, err := s.MarshalBinary()
	if err != nil {
		return nil, err
	}
	hash, err := s.Hash()
	if err != nil {
		return nil, err
	}
	return &RawTx{Bytes: raw, Hash: hash, From: s.tx.From, Nonce: s.tx.Nonce}, nil
}

// DecodeSignedTx parses the wire encoding produced by MarshalBinary.
func DecodeSignedTx(raw []byte) (*SignedTx, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedTransaction)
	}
	if raw[0] != EIP712TxType {
		return nil, fmt.Errorf("%w: unexpected transaction type %#x", ErrMalformedTransaction, raw[0])
	}
	var env eip712Envelope
	if err := rlp.DecodeBytes(raw[1:], &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTransaction, err)
	}
	if len(env.CustomSignature) == 0 {
		return nil, fmt.Errorf("%w: empty custom signature", ErrMalformedTransaction)
	}
	if env.ChainID == nil || env.ChainID.Sign() == 0 {
		return nil, fmt.Errorf("%w: missing chain id", ErrMalformedTransaction)
	}

	tx := &UnsignedTx{
		From:      env.From,
		To:        env.To,
		Data:      env.Data,
		Value:     orZero(env.Value),
		Nonce:     env.Nonce,
		GasLimit:  env.Gas,
		GasPrice:  orZero(env.GasFeeCap),
		GasTipCap: orZero(env.GasTipCap),
		ChainID:   env.ChainID,
		CustomData: CustomData{
			GasPerPubdata: orZero(env.GasPerPubdata),
		},
		signed: 1,
	}
	if len(env.FactoryDeps) > 0 {
		tx.CustomData.FactoryDeps = env.FactoryDeps
	}
	switch len(env.PaymasterParams) {
	case 0:
	case 2:
		if len(env.PaymasterParams[0]) != common.AddressLength {
			return nil, fmt.Errorf("%w: invalid paymaster address", ErrMalformedTransaction)
		}
		tx.CustomData.PaymasterParams = &PaymasterParams{
			Paymaster: common.BytesToAddress(env.PaymasterParams[0]),
			Input:     env.PaymasterParams[1],
		}
	default:
		return nil, fmt.Errorf("%w: paymaster params must have 2 elements, got %d", ErrMalformedTransaction, len(env.PaymasterParams))
	}
	return &SignedTx{tx: tx, customSignature: env.CustomSignature}, nil
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
