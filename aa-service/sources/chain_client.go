package sources

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/types"
)

var errReceiptNotMined = pkgerrors.New("receipt has no block number")

// jsonrpc "invalid params", returned when a raw transaction cannot be parsed
const invalidParamsCode = -32602

type ChainClientConfig struct {
	// CallTimeout bounds every single request.
	CallTimeout time.Duration
	// PollInterval is the delay between receipt queries.
	PollInterval time.Duration
	// RateLimit caps requests per second. Zero disables limiting.
	RateLimit float64
	RateBurst int
}

func ChainClientDefaultConfig() *ChainClientConfig {
	return &ChainClientConfig{
		CallTimeout:  10 * time.Second,
		PollInterval: time.Second,
	}
}

// ChainClient talks to an L2 node. Standard calls go through ethclient; the
// type-113 specific ones are issued as raw JSON-RPC requests.
type ChainClient struct {
	log     log.Logger
	config  *ChainClientConfig
	rpc     *rpc.Client
	eth     *ethclient.Client
	limiter *rate.Limiter
}

func NewChainClient(log log.Logger, client *rpc.Client, config *ChainClientConfig) *ChainClient {
	cfg := *config
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = ChainClientDefaultConfig().PollInterval
	}
	config = &cfg

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}
	return &ChainClient{
		log:     log,
		config:  config,
		rpc:     client,
		eth:     ethclient.NewClient(client),
		limiter: limiter,
	}
}

func (c *ChainClient) Close() {
	c.rpc.Close()
}

// call runs fn under the rate limiter and the per-call timeout and tags its
// error as an RPC error.
func (c *ChainClient) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %s: rate limiter: %w", types.ErrRPC, method, err)
		}
	}
	cctx := ctx
	if c.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, c.config.CallTimeout)
		defer cancel()
	}
	err := fn(cctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(cctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", types.ErrChainClientTimeout, method, err)
	}
	return fmt.Errorf("%w: %s: %w", types.ErrRPC, method, err)
}

func (c *ChainClient) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	var balance *big.Int
	err := c.call(ctx, "eth_getBalance", func(ctx context.Context) (err error) {
		balance, err = c.eth.BalanceAt(ctx, addr, nil)
		return err
	})
	return balance, err
}

// Nonce returns the latest transaction count of addr.
func (c *ChainClient) Nonce(ctx context.Context, addr common.Address) (uint64, error) {
	var nonce uint64
	err := c.call(ctx, "eth_getTransactionCount", func(ctx context.Context) (err error) {
		nonce, err = c.eth.NonceAt(ctx, addr, nil)
		return err
	})
	return nonce, err
}

func (c *ChainClient) GasPrice(ctx context.Context) (*big.Int, error) {
	var price *big.Int
	err := c.call(ctx, "eth_gasPrice", func(ctx context.Context) (err error) {
		price, err = c.eth.SuggestGasPrice(ctx)
		return err
	})
	return price, err
}

func (c *ChainClient) ChainID(ctx context.Context) (*big.Int, error) {
	var id *big.Int
	err := c.call(ctx, "eth_chainId", func(ctx context.Context) (err error) {
		id, err = c.eth.ChainID(ctx)
		return err
	})
	return id, err
}

func (c *ChainClient) EstimateGas(ctx context.Context, req types.CallRequest) (uint64, error) {
	var gas hexutil.Uint64
	err := c.call(ctx, "eth_estimateGas", func(ctx context.Context) error {
		return c.rpc.CallContext(ctx, &gas, "eth_estimateGas", toCallArg(req))
	})
	return uint64(gas), err
}

// CallContract executes a read-only call against the latest state.
func (c *ChainClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	var out []byte
	err := c.call(ctx, "eth_call", func(ctx context.Context) (err error) {
		out, err = c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		return err
	})
	return out, err
}

// Broadcast submits raw wire bytes. An error answered by the node is a
// *types.RejectedError carrying the node's message.
func (c *ChainClient) Broadcast(ctx context.Context, raw []byte) (common.Hash, error) {
	var hash common.Hash
	err := c.call(ctx, "eth_sendRawTransaction", func(ctx context.Context) error {
		return c.rpc.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Bytes(raw))
	})
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return common.Hash{}, &types.RejectedError{Reason: rpcErr.Error(), Malformed: isMalformed(rpcErr)}
	}
	return hash, err
}

func isMalformed(err rpc.Error) bool {
	if err.ErrorCode() == invalidParamsCode {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "failed to parse") || strings.Contains(msg, "failed to serialize")
}

type rpcReceipt struct {
	TransactionHash common.Hash      `json:"transactionHash"`
	BlockNumber     *hexutil.Big     `json:"blockNumber"`
	Status          hexutil.Uint64   `json:"status"`
	ContractAddress *common.Address  `json:"contractAddress"`
	Logs            []*gethtypes.Log `json:"logs"`
}

// Receipt returns the receipt of hash, or ethereum.NotFound while it is
// not mined.
func (c *ChainClient) Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var r *rpcReceipt
	err := c.call(ctx, "eth_getTransactionReceipt", func(ctx context.Context) error {
		return c.rpc.CallContext(ctx, &r, "eth_getTransactionReceipt", hash)
	})
	if err != nil {
		return nil, err
	}
	if r == nil || r.BlockNumber == nil {
		return nil, ethereum.NotFound
	}
	if !(*big.Int)(r.BlockNumber).IsUint64() {
		return nil, pkgerrors.Wrapf(errReceiptNotMined, "invalid block number %s", r.BlockNumber)
	}
	receipt := &types.Receipt{
		TxHash:      r.TransactionHash,
		BlockNumber: (*big.Int)(r.BlockNumber).Uint64(),
		Status:      uint64(r.Status),
		Logs:        r.Logs,
	}
	if r.ContractAddress != nil {
		receipt.ContractAddress = *r.ContractAddress
	}
	return receipt, nil
}

// WaitForReceipt polls until hash is mined or ctx is done.
func (c *ChainClient) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.Receipt(ctx, hash)
		switch {
		case err == nil:
			return receipt, nil
		case errors.Is(err, ethereum.NotFound):
			c.log.Trace("Transaction not yet mined", "hash", hash)
		default:
			c.log.Warn("Receipt retrieval failed", "hash", hash, "err", err)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: receipt of %s: %v", types.ErrChainClientTimeout, hash, ctx.Err())
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func toCallArg(req types.CallRequest) map[string]interface{} {
	arg := map[string]interface{}{
		"from": req.From,
	}
	if req.To != nil {
		arg["to"] = req.To
	}
	if len(req.Data) > 0 {
		arg["data"] = hexutil.Bytes(req.Data)
	}
	if req.Value != nil {
		arg["value"] = (*hexutil.Big)(req.Value)
	}
	customPubdata := req.GasPerPubdata != nil && !req.GasPerPubdata.Eq(uint256.NewInt(types.DefaultGasPerPubdata))
	if len(req.FactoryDeps) == 0 && req.PaymasterParams == nil && !customPubdata {
		return arg
	}

	// the node estimates against the same pubdata limit and published
	// bytecode the transaction will carry
	meta := map[string]interface{}{}
	if req.GasPerPubdata != nil {
		meta["gasPerPubdata"] = (*hexutil.Big)(req.GasPerPubdata.ToBig())
	}
	deps := make([][]uint16, len(req.FactoryDeps))
	for i, dep := range req.FactoryDeps {
		deps[i] = byteArray(dep)
	}
	meta["factoryDeps"] = deps
	if pp := req.PaymasterParams; pp != nil {
		meta["paymasterParams"] = map[string]interface{}{
			"paymaster":      pp.Paymaster,
			"paymasterInput": byteArray(pp.Input),
		}
	}
	arg["type"] = hexutil.Uint64(types.EIP712TxType)
	arg["eip712Meta"] = meta
	return arg
}

// byteArray renders bytes as a JSON array of numbers, which is how the node
// expects eip712Meta byte fields.
func byteArray(b []byte) []uint16 {
	out := make([]uint16, len(b))
	for i, v := range b {
		out[i] = uint16(v)
	}
	return out
}
