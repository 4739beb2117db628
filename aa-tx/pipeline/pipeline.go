// Package pipeline drives account-abstraction transactions from intent to
// receipt: build, sign, serialize, broadcast and confirm.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/builder"
	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/types"
)

const (
	StageBuild     = "build"
	StageSign      = "sign"
	StageSerialize = "serialize"
	StageBroadcast = "broadcast"
	StageConfirm   = "confirm"
	StageEncode    = "encode"
	StageAddress   = "address"
)

// ChainClient is the full chain surface the pipeline needs.
type ChainClient interface {
	builder.ChainClient
	Broadcast(ctx context.Context, raw []byte) (common.Hash, error)
	WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

type Config struct {
	Builder builder.Config
	// ConfirmTimeout bounds receipt waiting. Zero waits as long as the
	// caller's context allows.
	ConfirmTimeout time.Duration
}

type Pipeline struct {
	log     log.Logger
	client  ChainClient
	builder *builder.Builder
	signer  types.Signer

	locks          *accountLocks
	confirmTimeout time.Duration
}

func New(log log.Logger, client ChainClient, signer types.Signer, cfg Config) *Pipeline {
	return &Pipeline{
		log:            log,
		client:         client,
		builder:        builder.NewBuilder(log, client, cfg.Builder),
		signer:         signer,
		locks:          newAccountLocks(),
		confirmTimeout: cfg.ConfirmTimeout,
	}
}

// SubmitCall executes intent from account and returns once the network
// accepted the transaction.
func (p *Pipeline) SubmitCall(ctx context.Context, account common.Address, intent *types.CallIntent) (*types.PendingTx, error) {
	pending, _, err := p.submit(ctx, account, func(ctx context.Context) (*types.UnsignedTx, error) {
		return p.builder.BuildCall(ctx, account, intent)
	})
	return pending, err
}

// SubmitCreate deploys intent from deployer and returns once the network
// accepted the transaction.
func (p *Pipeline) SubmitCreate(ctx context.Context, deployer common.Address, intent *types.CreateIntent) (*types.PendingTx, error) {
	pending, _, err := p.submit(ctx, deployer, func(ctx context.Context) (*types.UnsignedTx, error) {
		return p.builder.BuildCreate(ctx, deployer, intent)
	})
	return pending, err
}

func (p *Pipeline) submit(ctx context.Context, account common.Address, build func(context.Context) (*types.UnsignedTx, error)) (*types.PendingTx, string, error) {
	unlock, err := p.locks.lock(ctx, account)
	if err != nil {
		return nil, StageBuild, fmt.Errorf("failed to acquire account lock: %w", err)
	}
	defer unlock()

	tx, err := build(ctx)
	if err != nil {
		return nil, StageBuild, err
	}

	signed, err := types.SignTx(tx, p.signer)
	if err != nil {
		p.builder.Release(tx)
		return nil, StageSign, err
	}

	raw, err := types.Serialize(signed)
	if err != nil {
		p.builder.Release(tx)
		return nil, StageSerialize, err
	}

	// Abandoning the flow before this point has no on-chain effect.
	if err := ctx.Err(); err != nil {
		p.builder.Release(tx)
		return nil, StageBroadcast, err
	}

	p.log.Info("Broadcasting transaction", "from", raw.From, "nonce", raw.Nonce, "hash", raw.Hash, "size", len(raw.Bytes))
	hash, err := p.client.Broadcast(ctx, raw.Bytes)
	if err != nil {
		var rejected *types.RejectedError
		if errors.As(err, &rejected) {
			p.builder.Release(tx)
			return nil, StageBroadcast, err
		}
		// the node may hold the transaction, its nonce must not be reused
		p.log.Warn("Broadcast outcome unknown", "from", raw.From, "nonce", raw.Nonce, "hash", raw.Hash, "err", err)
		return nil, StageBroadcast, &types.BroadcastUnknownError{Hash: raw.Hash, From: raw.From, Nonce: raw.Nonce, Err: err}
	}
	if hash != raw.Hash {
		p.log.Warn("Network reported a different transaction hash", "local", raw.Hash, "network", hash)
	}
	p.log.Info("Transaction sent", "hash", hash, "from", raw.From, "nonce", raw.Nonce)
	return &types.PendingTx{Hash: hash, From: raw.From, Nonce: raw.Nonce}, "", nil
}

// Wait blocks until the transaction is mined. A receipt with a failed status
// is returned without error; cancelling ctx only stops polling, the
// transaction stays submitted.
func (p *Pipeline) Wait(ctx context.Context, pending *types.PendingTx) (*types.Receipt, error) {
	if p.confirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.confirmTimeout)
		defer cancel()
	}
	p.log.Info("Waiting for confirmation", "hash", pending.Hash)
	receipt, err := p.client.WaitForReceipt(ctx, pending.Hash)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for receipt of %s: %w", pending.Hash, err)
	}
	p.log.Info("Transaction confirmed", "hash", pending.Hash, "block", receipt.BlockNumber, "status", receipt.StatusString())
	return receipt, nil
}

// SubmitCallAndWait is SubmitCall followed by Wait.
func (p *Pipeline) SubmitCallAndWait(ctx context.Context, account common.Address, intent *types.CallIntent) (*types.Receipt, error) {
	pending, err := p.SubmitCall(ctx, account, intent)
	if err != nil {
		return nil, err
	}
	return p.Wait(ctx, pending)
}

// Nonce returns the current on-chain nonce of account.
func (p *Pipeline) Nonce(ctx context.Context, account common.Address) (uint64, error) {
	return p.client.Nonce(ctx, account)
}

// Balance returns the native balance of account.
func (p *Pipeline) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	return p.client.Balance(ctx, account)
}
