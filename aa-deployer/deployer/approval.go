package deployer

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/types"
)

const erc20ABIJSON = `[
	{"type":"function","name":"approve","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"allowance","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

var erc20ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic(err)
	}
	erc20ABI = parsed
}

type ApprovalResult struct {
	TxHash      common.Hash
	BlockNumber uint64
	Status      string
	Succeeded   bool
	NonceBefore uint64
	NonceAfter  uint64
	// Allowance is read back after confirmation. Nil when the read failed.
	Allowance   *big.Int
	ExplorerURL string
}

// Approve makes the account contract approve spender for amount of token and
// waits for the result. A reverted approval is returned with a "Failed"
// status, not as an error.
func (ds *DeployerService) Approve(ctx context.Context, cfg *ApproveConfig) (*ApprovalResult, error) {
	l := ds.Log.New("flow", uuid.NewString(), "account", cfg.Account)

	balance, err := ds.Pipeline.Balance(ctx, cfg.Account)
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return nil, fmt.Errorf("%w: account %s has no funds", types.ErrInsufficientFunds, cfg.Account)
	}
	nonceBefore, err := ds.Pipeline.Nonce(ctx, cfg.Account)
	if err != nil {
		return nil, err
	}
	l.Info("Approving spender", "token", cfg.Token, "spender", cfg.Spender, "amount", cfg.Amount, "balance", balance, "nonce", nonceBefore)

	data, err := erc20ABI.Pack("approve", cfg.Spender, cfg.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to encode approve: %w", err)
	}
	pending, err := ds.Pipeline.SubmitCall(ctx, cfg.Account, &types.CallIntent{To: cfg.Token, Data: data})
	if err != nil {
		l.Error("Approval not sent", "err", err)
		return nil, err
	}
	result := &ApprovalResult{
		TxHash:      pending.Hash,
		NonceBefore: nonceBefore,
		ExplorerURL: ds.Network.TxURL(pending.Hash),
	}
	if result.ExplorerURL != "" {
		l.Info("Approval on explorer", "url", result.ExplorerURL)
	}

	receipt, err := ds.Pipeline.Wait(ctx, pending)
	if err != nil {
		return nil, err
	}
	result.BlockNumber = receipt.BlockNumber
	result.Status = receipt.StatusString()
	result.Succeeded = receipt.Succeeded()
	l.Info("Approval mined", "hash", pending.Hash, "block", receipt.BlockNumber, "status", result.Status)

	if result.NonceAfter, err = ds.Pipeline.Nonce(ctx, cfg.Account); err != nil {
		return nil, err
	}
	allowance, err := ds.allowance(ctx, cfg.Token, cfg.Account, cfg.Spender)
	if err != nil {
		l.Warn("Failed to read allowance", "err", err)
	} else {
		result.Allowance = allowance
	}
	return result, nil
}

func (ds *DeployerService) allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	out, err := ds.Client.CallContract(ctx, token, data)
	if err != nil {
		return nil, err
	}
	values, err := erc20ABI.Unpack("allowance", out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode allowance: %w", err)
	}
	allowance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance type %T", values[0])
	}
	return allowance, nil
}
