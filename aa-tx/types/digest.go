package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/holiman/uint256"
)

const (
	eip712DomainName    = "zkSync"
	eip712DomainVersion = "2"
	eip712PrimaryType   = "Transaction"
)

var eip712Types = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
	},
	eip712PrimaryType: {
		{Name: "txType", Type: "uint256"},
		{Name: "from", Type: "uint256"},
		{Name: "to", Type: "uint256"},
		{Name: "gasLimit", Type: "uint256"},
		{Name: "gasPerPubdataByteLimit", Type: "uint256"},
		{Name: "maxFeePerGas", Type: "uint256"},
		{Name: "maxPriorityFeePerGas", Type: "uint256"},
		{Name: "paymaster", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "value", Type: "uint256"},
		{Name: "data", Type: "bytes"},
		{Name: "factoryDeps", Type: "bytes32[]"},
		{Name: "paymasterInput", Type: "bytes"},
	},
}

// TypedData returns the EIP-712 structure signed for tx.
func (tx *UnsignedTx) TypedData() (apitypes.TypedData, error) {
	if tx.ChainID == nil || tx.ChainID.Sign() <= 0 {
		return apitypes.TypedData{}, fmt.Errorf("%w: missing chain id", ErrMalformedTransaction)
	}
	deps := make([]interface{}, 0, len(tx.CustomData.FactoryDeps))
	for i, dep := range tx.CustomData.FactoryDeps {
		h, err := HashBytecode(dep)
		if err != nil {
			return apitypes.TypedData{}, fmt.Errorf("factory dep %d: %w", i, err)
		}
		deps = append(deps, h.Bytes())
	}

	var to *big.Int
	if tx.To != nil {
		to = addressToBig(*tx.To)
	} else {
		to = new(big.Int)
	}
	paymaster, paymasterInput := new(big.Int), []byte{}
	if pp := tx.CustomData.PaymasterParams; pp != nil {
		paymaster = addressToBig(pp.Paymaster)
		paymasterInput = common.CopyBytes(pp.Input)
	}

	return apitypes.TypedData{
		Types:       eip712Types,
		PrimaryType: eip712PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:    eip712DomainName,
			Version: eip712DomainVersion,
			ChainId: (*math.HexOrDecimal256)(new(big.Int).Set(tx.ChainID)),
		},
		Message: apitypes.TypedDataMessage{
			"txType":                 big.NewInt(EIP712TxType),
			"from":                   addressToBig(tx.From),
			"to":                     to,
			"gasLimit":               new(big.Int).SetUint64(tx.GasLimit),
			"gasPerPubdataByteLimit": tx.gasPerPubdata().ToBig(),
			"maxFeePerGas":           u256ToBig(tx.GasPrice),
			"maxPriorityFeePerGas":   u256ToBig(tx.gasTipCap()),
			"paymaster":              paymaster,
			"nonce":                  new(big.Int).SetUint64(tx.Nonce),
			"value":                  u256ToBig(tx.Value),
			"data":                   append([]byte{}, tx.Data...),
			"factoryDeps":            deps,
			"paymasterInput":         paymasterInput,
		},
	}, nil
}

// Digest returns the EIP-712 signing hash of tx. A signature never takes
// part in it.
func (tx *UnsignedTx) Digest() (common.Hash, error) {
	typed, err := tx.TypedData()
	if err != nil {
		return common.Hash{}, err
	}
	digest, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrMalformedTransaction, err)
	}
	return common.BytesToHash(digest), nil
}

// Digest returns the signing hash of the signed transaction's fields.
func (s *SignedTx) Digest() (common.Hash, error) {
	return s.tx.Digest()
}

func addressToBig(addr common.Address) *big.Int {
	return new(big.Int).SetBytes(addr.Bytes())
}

func u256ToBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}
