package pipeline

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/types"
)

// DeployRequest describes an account contract deployment.
type DeployRequest struct {
	// Deployer pays for and signs the deployment.
	Deployer common.Address
	Bytecode []byte
	// ABI is needed only to encode ConstructorArgs.
	ABI             *abi.ABI
	ConstructorArgs []interface{}
	// Salt selects a create2 deployment with a nonce-independent address.
	Salt  *common.Hash
	Value *big.Int
}

type DeployResult struct {
	Address     common.Address
	TxHash      common.Hash
	BlockNumber uint64
	Nonce       uint64
}

// Deploy deploys an account contract and waits until it is mined. Every
// failure is a *types.DeploymentError naming the first failing stage.
func (p *Pipeline) Deploy(ctx context.Context, req DeployRequest) (*DeployResult, error) {
	fail := func(stage string, err error) (*DeployResult, error) {
		return nil, &types.DeploymentError{Stage: stage, Err: err}
	}

	input, err := encodeConstructor(req)
	if err != nil {
		return fail(StageEncode, err)
	}
	intent := &types.CreateIntent{
		Bytecode:         req.Bytecode,
		ConstructorInput: input,
		Salt:             req.Salt,
		Value:            req.Value,
	}

	var predicted *common.Address
	if req.Salt != nil {
		codeHash, err := types.HashBytecode(req.Bytecode)
		if err != nil {
			return fail(StageEncode, err)
		}
		addr := types.Create2Address(req.Deployer, codeHash, *req.Salt, input)
		predicted = &addr
		p.log.Info("Predicted create2 address", "address", addr, "salt", *req.Salt)
	}

	pending, stage, err := p.submit(ctx, req.Deployer, func(ctx context.Context) (*types.UnsignedTx, error) {
		return p.builder.BuildCreate(ctx, req.Deployer, intent)
	})
	if err != nil {
		return fail(stage, err)
	}

	receipt, err := p.Wait(ctx, pending)
	if err != nil {
		return fail(StageConfirm, err)
	}
	if !receipt.Succeeded() {
		return fail(StageConfirm, fmt.Errorf("%w: deployment %s reverted in block %d", types.ErrTransactionFailed, pending.Hash, receipt.BlockNumber))
	}

	addr, err := deployedAddress(receipt, predicted)
	if err != nil {
		return fail(StageAddress, err)
	}
	p.log.Info("Account deployed", "address", addr, "hash", pending.Hash, "block", receipt.BlockNumber)
	return &DeployResult{
		Address:     addr,
		TxHash:      pending.Hash,
		BlockNumber: receipt.BlockNumber,
		Nonce:       pending.Nonce,
	}, nil
}

func encodeConstructor(req DeployRequest) ([]byte, error) {
	if len(req.ConstructorArgs) == 0 {
		return []byte{}, nil
	}
	if req.ABI == nil {
		return nil, fmt.Errorf("%d constructor arguments given without an ABI", len(req.ConstructorArgs))
	}
	// packing with an empty method name encodes constructor arguments
	input, err := req.ABI.Pack("", req.ConstructorArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode constructor arguments: %w", err)
	}
	return input, nil
}

// deployedAddress takes the last ContractDeployed event of the receipt,
// checking it against the predicted address when there is one.
func deployedAddress(receipt *types.Receipt, predicted *common.Address) (common.Address, error) {
	deployed := types.DeployedContracts(receipt.Logs)
	var addr common.Address
	switch {
	case len(deployed) > 0:
		addr = deployed[len(deployed)-1]
	case receipt.ContractAddress != (common.Address{}):
		addr = receipt.ContractAddress
	case predicted != nil:
		return *predicted, nil
	default:
		return common.Address{}, fmt.Errorf("receipt of %s has no ContractDeployed event", receipt.TxHash)
	}
	if predicted != nil && *predicted != addr {
		return common.Address{}, fmt.Errorf("deployed address %s differs from predicted %s", addr, *predicted)
	}
	return addr, nil
}
