// Package builder assembles unsigned account-abstraction transactions from
// call intents and live chain state.
package builder

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/types"
)

// ChainClient is the chain state the builder reads.
type ChainClient interface {
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
	Nonce(ctx context.Context, addr common.Address) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, req types.CallRequest) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

type Config struct {
	// GasPerPubdata is the pubdata price limit put on every transaction.
	// Zero means types.DefaultGasPerPubdata.
	GasPerPubdata uint64
}

type Builder struct {
	log    log.Logger
	client ChainClient

	gasPerPubdata uint64
	nonces        *nonceTracker
}

func NewBuilder(log log.Logger, client ChainClient, cfg Config) *Builder {
	gasPerPubdata := cfg.GasPerPubdata
	if gasPerPubdata == 0 {
		gasPerPubdata = types.DefaultGasPerPubdata
	}
	return &Builder{
		log:           log,
		client:        client,
		gasPerPubdata: gasPerPubdata,
		nonces:        newNonceTracker(),
	}
}

// BuildCall returns an unsigned transaction executing intent from account.
// Nonce and balance are those of account, never of whoever signs.
func (b *Builder) BuildCall(ctx context.Context, account common.Address, intent *types.CallIntent) (*types.UnsignedTx, error) {
	to := intent.To
	return b.build(ctx, account, &to, intent.Data, intent.Value, nil)
}

// BuildCreate returns an unsigned transaction deploying intent from deployer
// through the contract deployer, publishing the bytecode as a factory dep.
func (b *Builder) BuildCreate(ctx context.Context, deployer common.Address, intent *types.CreateIntent) (*types.UnsignedTx, error) {
	call, _, err := intent.ToCall()
	if err != nil {
		return nil, err
	}
	to := call.To
	return b.build(ctx, deployer, &to, call.Data, call.Value, [][]byte{common.CopyBytes(intent.Bytecode)})
}

// Release gives back the nonce of a transaction that will never be
// broadcast, so the next build can reuse it.
func (b *Builder) Release(tx *types.UnsignedTx) {
	if b.nonces.release(tx.From, tx.Nonce) {
		b.log.Debug("Released nonce", "account", tx.From, "nonce", tx.Nonce)
	}
}

func (b *Builder) build(ctx context.Context, from common.Address, to *common.Address, data []byte, value *big.Int, deps [][]byte) (*types.UnsignedTx, error) {
	balance, err := b.client.Balance(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", from, err)
	}
	if balance.Sign() <= 0 {
		return nil, fmt.Errorf("%w: account %s has no balance to pay for gas", types.ErrInsufficientFunds, from)
	}

	if value == nil {
		value = new(big.Int)
	}
	val, overflow := uint256.FromBig(value)
	if overflow || value.Sign() < 0 {
		return nil, fmt.Errorf("%w: invalid value %s", types.ErrMalformedTransaction, value)
	}

	gasPerPubdata := uint256.NewInt(b.gasPerPubdata)
	gasLimit, err := b.client.EstimateGas(ctx, types.CallRequest{
		From:          from,
		To:            to,
		Data:          data,
		Value:         value,
		GasPerPubdata: gasPerPubdata,
		FactoryDeps:   deps,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrGasEstimation, err)
	}

	var (
		chainNonce uint64
		gasPrice   *big.Int
		chainID    *big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if chainNonce, err = b.client.Nonce(gctx, from); err != nil {
			return fmt.Errorf("failed to get nonce of %s: %w", from, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if gasPrice, err = b.client.GasPrice(gctx); err != nil {
			return fmt.Errorf("failed to get gas price: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if chainID, err = b.client.ChainID(gctx); err != nil {
			return fmt.Errorf("failed to get chain id: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	price, overflow := uint256.FromBig(gasPrice)
	if overflow {
		return nil, fmt.Errorf("%w: gas price %s overflows", types.ErrMalformedTransaction, gasPrice)
	}

	tx := &types.UnsignedTx{
		From:      from,
		To:        to,
		Data:      common.CopyBytes(data),
		Value:     val,
		Nonce:     b.nonces.reserve(from, chainNonce),
		GasLimit:  gasLimit,
		GasPrice:  price,
		GasTipCap: new(uint256.Int).Set(price),
		ChainID:   chainID,
		CustomData: types.CustomData{
			GasPerPubdata: gasPerPubdata,
			FactoryDeps:   deps,
		},
	}
	b.log.Debug("Built transaction", "from", from, "to", to, "nonce", tx.Nonce, "chainNonce", chainNonce,
		"gasLimit", gasLimit, "gasPrice", gasPrice, "chainID", chainID, "balance", balance)
	return tx, nil
}
