package types

import (
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

const (
	// EIP712TxType is the account-abstraction transaction type (113).
	EIP712TxType = 0x71

	// DefaultGasPerPubdata is the default gas price per byte of pubdata
	// published to L1.
	DefaultGasPerPubdata = 50_000
)

const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// PaymasterParams names a contract paying the fees of a transaction.
type PaymasterParams struct {
	Paymaster common.Address
	Input     []byte
}

// CustomData carries the fields specific to type-113 transactions, except for
// the custom signature which only exists on SignedTx.
type CustomData struct {
	GasPerPubdata   *uint256.Int
	FactoryDeps     [][]byte
	PaymasterParams *PaymasterParams
}

// UnsignedTx is a fully populated account-abstraction transaction that has
// not been signed yet.
type UnsignedTx struct {
	From      common.Address
	To        *common.Address
	Data      []byte
	Value     *uint256.Int
	Nonce     uint64
	GasLimit  uint64
	GasPrice  *uint256.Int // maxFeePerGas
	GasTipCap *uint256.Int // maxPriorityFeePerGas, GasPrice when nil
	ChainID   *big.Int

	CustomData CustomData

	// set once a signature has been produced for this descriptor
	signed uint32
}

// Type returns the transaction type. It is fixed for this transaction kind.
func (tx *UnsignedTx) Type() uint8 { return EIP712TxType }

func (tx *UnsignedTx) gasTipCap() *uint256.Int {
	if tx.GasTipCap != nil {
		return tx.GasTipCap
	}
	return tx.GasPrice
}

func (tx *UnsignedTx) gasPerPubdata() *uint256.Int {
	if tx.CustomData.GasPerPubdata != nil {
		return tx.CustomData.GasPerPubdata
	}
	return uint256.NewInt(DefaultGasPerPubdata)
}

// Copy returns a deep copy of the descriptor. The copy is unsigned.
func (tx *UnsignedTx) Copy() *UnsignedTx {
	cpy := &UnsignedTx{
		From:     tx.From,
		Data:     common.CopyBytes(tx.Data),
		Nonce:    tx.Nonce,
		GasLimit: tx.GasLimit,
	}
	if tx.To != nil {
		to := *tx.To
		cpy.To = &to
	}
	if tx.Value != nil {
		cpy.Value = new(uint256.Int).Set(tx.Value)
	}
	if tx.GasPrice != nil {
		cpy.GasPrice = new(uint256.Int).Set(tx.GasPrice)
	}
	if tx.GasTipCap != nil {
		cpy.GasTipCap = new(uint256.Int).Set(tx.GasTipCap)
	}
	if tx.ChainID != nil {
		cpy.ChainID = new(big.Int).Set(tx.ChainID)
	}
	if tx.CustomData.GasPerPubdata != nil {
		cpy.CustomData.GasPerPubdata = new(uint256.Int).Set(tx.CustomData.GasPerPubdata)
	}
	if tx.CustomData.FactoryDeps != nil {
		cpy.CustomData.FactoryDeps = make([][]byte, len(tx.CustomData.FactoryDeps))
		for i, dep := range tx.CustomData.FactoryDeps {
			cpy.CustomData.FactoryDeps[i] = common.CopyBytes(dep)
		}
	}
	if pp := tx.CustomData.PaymasterParams; pp != nil {
		cpy.CustomData.PaymasterParams = &PaymasterParams{
			Paymaster: pp.Paymaster,
			Input:     common.CopyBytes(pp.Input),
		}
	}
	return cpy
}

func (tx *UnsignedTx) markSigned() bool {
	return atomic.CompareAndSwapUint32(&tx.signed, 0, 1)
}

func (tx *UnsignedTx) unmarkSigned() {
	atomic.StoreUint32(&tx.signed, 0)
}

// Signed reports whether a signature was already produced for tx.
func (tx *UnsignedTx) Signed() bool {
	return atomic.LoadUint32(&tx.signed) == 1
}

// SignedTx is an account-abstraction transaction with its custom signature
// attached. It is only obtained through SignTx or DecodeSignedTx.
type SignedTx struct {
	tx              *UnsignedTx
	customSignature []byte
}

// Tx returns a copy of the signed fields. The copy is marked as signed and
// cannot be signed again.
func (s *SignedTx) Tx() *UnsignedTx {
	cpy := s.tx.Copy()
	cpy.signed = 1
	return cpy
}

// CustomSignature returns a copy of the opaque signature blob.
func (s *SignedTx) CustomSignature() []byte { return common.CopyBytes(s.customSignature) }

func (s *SignedTx) From() common.Address { return s.tx.From }
func (s *SignedTx) Nonce() uint64        { return s.tx.Nonce }

func (s *SignedTx) ChainID() *big.Int {
	if s.tx.ChainID == nil {
		return nil
	}
	return new(big.Int).Set(s.tx.ChainID)
}

// RawTx is the wire encoding of a SignedTx, ready for broadcast.
type RawTx struct {
	Bytes []byte
	// Hash is the transaction hash computed locally.
	Hash common.Hash
	From common.Address
	Nonce uint64
}

// PendingTx is a transaction the network accepted into its mempool.
type PendingTx struct {
	Hash  common.Hash
	From  common.Address
	Nonce uint64
}

// Receipt is the outcome of a mined transaction.
type Receipt struct {
	TxHash          common.Hash
	BlockNumber     uint64
	Status          uint64
	ContractAddress common.Address
	Logs            []*gethtypes.Log
}

// Succeeded reports whether the transaction executed successfully.
func (r *Receipt) Succeeded() bool {
	return r.Status == ReceiptStatusSuccessful
}

// StatusString renders the receipt status the way the CLI reports it.
func (r *Receipt) StatusString() string {
	if r.Succeeded() {
		return "Success"
	}
	return "Failed"
}

// CallRequest is the call envelope sent for gas estimation.
type CallRequest struct {
	From            common.Address
	To              *common.Address
	Data            []byte
	Value           *big.Int
	GasPerPubdata   *uint256.Int
	FactoryDeps     [][]byte
	PaymasterParams *PaymasterParams
}
