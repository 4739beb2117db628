// Package testutils provides an in-memory chain client for exercising the
// transaction pipeline without a node.
package testutils

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/types"
)

// FakeChainClient mines every accepted transaction immediately. Fields may be
// set before use; recorded calls are read through the accessor methods.
type FakeChainClient struct {
	mu sync.Mutex

	Balances    map[common.Address]*big.Int
	Nonces      map[common.Address]uint64
	GasPriceWei *big.Int
	GasEstimate uint64
	ChainIDNum  *big.Int

	// EstimateErr fails every estimation, as a reverting call would.
	EstimateErr error
	// RPCErr fails every call.
	RPCErr error
	// RejectReason makes Broadcast reject every transaction.
	RejectReason string
	// Revert makes mined transactions fail.
	Revert bool
	// HoldReceipts makes WaitForReceipt block until its context is done.
	HoldReceipts bool
	// StaleNonces stops Broadcast from advancing account nonces, as a node
	// whose state lags behind its mempool would.
	StaleNonces bool
	// CallResults holds the return data of read-only calls per contract.
	CallResults map[common.Address][]byte

	calls            []string
	estimates        []types.CallRequest
	nonceQueries     []common.Address
	broadcasts       []*types.SignedTx
	receipts         map[common.Hash]*types.Receipt
	deploymentNonces map[common.Address]uint64
	block            uint64
}

func NewFakeChainClient() *FakeChainClient {
	return &FakeChainClient{
		Balances:         make(map[common.Address]*big.Int),
		Nonces:           make(map[common.Address]uint64),
		CallResults:      make(map[common.Address][]byte),
		GasPriceWei:      big.NewInt(25_000_000),
		GasEstimate:      250_000,
		ChainIDNum:       big.NewInt(300),
		receipts:         make(map[common.Hash]*types.Receipt),
		deploymentNonces: make(map[common.Address]uint64),
		block:            100,
	}
}

func (f *FakeChainClient) record(call string) error {
	f.calls = append(f.calls, call)
	return f.RPCErr
}

func (f *FakeChainClient) Balance(_ context.Context, addr common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("balance"); err != nil {
		return nil, err
	}
	if b, ok := f.Balances[addr]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (f *FakeChainClient) Nonce(_ context.Context, addr common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("nonce"); err != nil {
		return 0, err
	}
	f.nonceQueries = append(f.nonceQueries, addr)
	return f.Nonces[addr], nil
}

func (f *FakeChainClient) GasPrice(context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("gasPrice"); err != nil {
		return nil, err
	}
	return new(big.Int).Set(f.GasPriceWei), nil
}

func (f *FakeChainClient) EstimateGas(_ context.Context, req types.CallRequest) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("estimateGas"); err != nil {
		return 0, err
	}
	f.estimates = append(f.estimates, req)
	if f.EstimateErr != nil {
		return 0, f.EstimateErr
	}
	return f.GasEstimate, nil
}

func (f *FakeChainClient) ChainID(context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("chainId"); err != nil {
		return nil, err
	}
	return new(big.Int).Set(f.ChainIDNum), nil
}

func (f *FakeChainClient) CallContract(_ context.Context, to common.Address, _ []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("call"); err != nil {
		return nil, err
	}
	return append([]byte(nil), f.CallResults[to]...), nil
}

func (f *FakeChainClient) Broadcast(_ context.Context, raw []byte) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("broadcast"); err != nil {
		return common.Hash{}, err
	}
	tx, err := types.DecodeSignedTx(raw)
	if err != nil {
		return common.Hash{}, &types.RejectedError{Reason: fmt.Sprintf("failed to parse transaction: %v", err), Malformed: true}
	}
	if f.RejectReason != "" {
		return common.Hash{}, &types.RejectedError{Reason: f.RejectReason}
	}
	if tx.ChainID().Cmp(f.ChainIDNum) != 0 {
		return common.Hash{}, &types.RejectedError{Reason: "invalid chain id"}
	}
	if want := f.Nonces[tx.From()]; tx.Nonce() < want {
		return common.Hash{}, &types.RejectedError{Reason: fmt.Sprintf("nonce too low: have %d, want %d", tx.Nonce(), want)}
	}
	hash, err := tx.Hash()
	if err != nil {
		return common.Hash{}, err
	}
	f.broadcasts = append(f.broadcasts, tx)
	if !f.StaleNonces {
		f.Nonces[tx.From()] = tx.Nonce() + 1
	}

	f.block++
	receipt := &types.Receipt{
		TxHash:      hash,
		BlockNumber: f.block,
		Status:      types.ReceiptStatusSuccessful,
	}
	if f.Revert {
		receipt.Status = types.ReceiptStatusFailed
	} else if log := f.deployLog(tx, hash); log != nil {
		receipt.Logs = append(receipt.Logs, log)
	}
	f.receipts[hash] = receipt
	return hash, nil
}

// deployLog emits the ContractDeployed event a deployment would.
func (f *FakeChainClient) deployLog(tx *types.SignedTx, hash common.Hash) *gethtypes.Log {
	unsigned := tx.Tx()
	if unsigned.To == nil || *unsigned.To != types.ContractDeployerAddress || len(unsigned.CustomData.FactoryDeps) == 0 {
		return nil
	}
	method, salt, codeHash, input, err := types.DecodeCreateCall(unsigned.Data)
	if err != nil {
		return nil
	}
	var addr common.Address
	switch method {
	case "createAccount":
		addr = types.CreateAddress(unsigned.From, f.deploymentNonces[unsigned.From])
		f.deploymentNonces[unsigned.From]++
	case "create2Account":
		addr = types.Create2Address(unsigned.From, codeHash, salt, input)
	default:
		return nil
	}
	return &gethtypes.Log{
		Address: types.ContractDeployerAddress,
		Topics: []common.Hash{
			types.ContractDeployedTopic,
			common.BytesToHash(unsigned.From.Bytes()),
			codeHash,
			common.BytesToHash(addr.Bytes()),
		},
		TxHash: hash,
	}
}

func (f *FakeChainClient) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	if err := f.record("waitForReceipt"); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	receipt, ok := f.receipts[hash]
	hold := f.HoldReceipts
	f.mu.Unlock()

	if hold || !ok {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %v", types.ErrChainClientTimeout, ctx.Err())
	}
	return receipt, nil
}

// Calls returns the names of the methods called so far, in order.
func (f *FakeChainClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Estimates returns the estimation requests received.
func (f *FakeChainClient) Estimates() []types.CallRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.CallRequest(nil), f.estimates...)
}

// NonceQueries returns the addresses whose nonce was requested.
func (f *FakeChainClient) NonceQueries() []common.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]common.Address(nil), f.nonceQueries...)
}

// Broadcasts returns the decoded transactions accepted so far.
func (f *FakeChainClient) Broadcasts() []*types.SignedTx {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.SignedTx(nil), f.broadcasts...)
}
