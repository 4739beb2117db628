package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/signer"
	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/testutils"
	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/types"
)

const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	account = common.HexToAddress("0x63127D9Eb6E2e7e67CF045026dA12B16F712B178")
	token   = common.HexToAddress("0x5249Fd99f1C1aE9B04C65427257Fc3B8cD976620")
	approve = common.FromHex("0x095ea7b30000000000000000000000009ea9b0cc1919def1a3cfaef4f7a66ee3c36f86fc0000000000000000000000000000000000000000000000000000000000989680")
)

type failingSigner struct{}

func (failingSigner) Sign(common.Hash) ([]byte, error) { return nil, errors.New("hsm unavailable") }

func newTestPipeline(t *testing.T, cfg Config) (*Pipeline, *testutils.FakeChainClient, *signer.ECDSASigner) {
	s, err := signer.NewECDSASignerFromHex(testKeyHex)
	require.NoError(t, err)
	client := testutils.NewFakeChainClient()
	client.Balances[account] = big.NewInt(5e17)
	client.Balances[s.Address()] = big.NewInt(1e18)
	client.Nonces[account] = 3
	return New(log.New(), client, s, cfg), client, s
}

func TestSubmitApproval(t *testing.T) {
	p, client, s := newTestPipeline(t, Config{})

	receipt, err := p.SubmitCallAndWait(context.Background(), account, &types.CallIntent{To: token, Data: approve})
	require.NoError(t, err)
	require.True(t, receipt.Succeeded())
	require.Equal(t, "Success", receipt.StatusString())

	broadcasts := client.Broadcasts()
	require.Len(t, broadcasts, 1)
	tx := broadcasts[0].Tx()
	require.Equal(t, account, tx.From)
	require.Equal(t, token, *tx.To)
	require.Equal(t, uint64(3), tx.Nonce)
	require.Equal(t, uint8(113), tx.Type())
	require.True(t, tx.Value.IsZero())
	require.Equal(t, approve, tx.Data)

	// the account contract recovers the owner from the custom signature
	digest, err := broadcasts[0].Digest()
	require.NoError(t, err)
	require.NoError(t, signer.Verify(digest, broadcasts[0].CustomSignature(), s.Address()))

	hash, err := broadcasts[0].Hash()
	require.NoError(t, err)
	require.Equal(t, hash, receipt.TxHash)

	nonce, err := p.Nonce(context.Background(), account)
	require.NoError(t, err)
	require.Equal(t, uint64(4), nonce)
}

func TestSubmitRejected(t *testing.T) {
	p, client, _ := newTestPipeline(t, Config{})
	client.RejectReason = "Validation revert: Account validation error: invalid signature"

	_, err := p.SubmitCall(context.Background(), account, &types.CallIntent{To: token, Data: approve})
	require.ErrorIs(t, err, types.ErrRejectedByNetwork)
	var rejected *types.RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, client.RejectReason, rejected.Reason)

	// the nonce was not consumed
	client.RejectReason = ""
	pending, err := p.SubmitCall(context.Background(), account, &types.CallIntent{To: token, Data: approve})
	require.NoError(t, err)
	require.Equal(t, uint64(3), pending.Nonce)
}

// lostReplyClient delivers every transaction to the node but loses the
// answer, as a timed-out eth_sendRawTransaction would.
type lostReplyClient struct {
	*testutils.FakeChainClient
	lose bool
}

func (c *lostReplyClient) Broadcast(ctx context.Context, raw []byte) (common.Hash, error) {
	hash, err := c.FakeChainClient.Broadcast(ctx, raw)
	if err != nil || !c.lose {
		return hash, err
	}
	return common.Hash{}, fmt.Errorf("%w: eth_sendRawTransaction: %v", types.ErrChainClientTimeout, context.DeadlineExceeded)
}

func TestSubmitBroadcastOutcomeUnknown(t *testing.T) {
	_, fake, s := newTestPipeline(t, Config{})
	fake.StaleNonces = true
	client := &lostReplyClient{FakeChainClient: fake, lose: true}
	p := New(log.New(), client, s, Config{})

	_, err := p.SubmitCall(context.Background(), account, &types.CallIntent{To: token, Data: approve})
	require.ErrorIs(t, err, types.ErrBroadcastUnknown)
	require.ErrorIs(t, err, types.ErrChainClientTimeout)
	var unknown *types.BroadcastUnknownError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, account, unknown.From)
	require.Equal(t, uint64(3), unknown.Nonce)

	broadcasts := fake.Broadcasts()
	require.Len(t, broadcasts, 1)
	hash, err := broadcasts[0].Hash()
	require.NoError(t, err)
	require.Equal(t, hash, unknown.Hash)

	// the node still reports nonce 3, the next transaction must not reuse it
	client.lose = false
	pending, err := p.SubmitCall(context.Background(), account, &types.CallIntent{To: token, Data: approve})
	require.NoError(t, err)
	require.Equal(t, uint64(4), pending.Nonce)
}

func TestSubmitEstimationFailure(t *testing.T) {
	p, client, _ := newTestPipeline(t, Config{})
	client.EstimateErr = errors.New("execution reverted")

	_, err := p.SubmitCall(context.Background(), account, &types.CallIntent{To: token, Data: approve})
	require.ErrorIs(t, err, types.ErrGasEstimation)
	require.NotContains(t, client.Calls(), "broadcast")
	require.Empty(t, client.Broadcasts())
}

func TestSubmitSigningFailure(t *testing.T) {
	_, client, _ := newTestPipeline(t, Config{})
	p := New(log.New(), client, failingSigner{}, Config{})

	_, err := p.SubmitCall(context.Background(), account, &types.CallIntent{To: token, Data: approve})
	require.ErrorIs(t, err, types.ErrSigning)
	require.NotContains(t, client.Calls(), "broadcast")
}

func TestSubmitCancelledBeforeBroadcast(t *testing.T) {
	p, client, _ := newTestPipeline(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.SubmitCall(ctx, account, &types.CallIntent{To: token, Data: approve})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, client.Broadcasts())
}

func TestWaitTimeout(t *testing.T) {
	p, client, _ := newTestPipeline(t, Config{ConfirmTimeout: 20 * time.Millisecond})
	client.HoldReceipts = true

	pending, err := p.SubmitCall(context.Background(), account, &types.CallIntent{To: token, Data: approve})
	require.NoError(t, err)
	_, err = p.Wait(context.Background(), pending)
	require.ErrorIs(t, err, types.ErrChainClientTimeout)
	require.Len(t, client.Broadcasts(), 1, "the transaction stays submitted")
}

func TestWaitReportsFailure(t *testing.T) {
	p, client, _ := newTestPipeline(t, Config{})
	client.Revert = true

	receipt, err := p.SubmitCallAndWait(context.Background(), account, &types.CallIntent{To: token, Data: approve})
	require.NoError(t, err)
	require.False(t, receipt.Succeeded())
	require.Equal(t, "Failed", receipt.StatusString())
}

func TestConcurrentSubmitsUseDistinctNonces(t *testing.T) {
	p, client, _ := newTestPipeline(t, Config{})
	client.StaleNonces = true

	const n = 5
	var (
		wg      sync.WaitGroup
		pending = make([]*types.PendingTx, n)
		errs    = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pending[i], errs[i] = p.SubmitCall(context.Background(), account, &types.CallIntent{To: token, Data: approve})
		}(i)
	}
	wg.Wait()

	nonces := make(map[uint64]bool)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		nonces[pending[i].Nonce] = true
	}
	require.Len(t, nonces, n)
	for i := uint64(3); i < 3+n; i++ {
		require.True(t, nonces[i], "missing nonce %d", i)
	}
}

func TestDeploy(t *testing.T) {
	p, client, s := newTestPipeline(t, Config{})
	code := bytes.Repeat([]byte{0x60}, 32)

	res, err := p.Deploy(context.Background(), DeployRequest{Deployer: s.Address(), Bytecode: code})
	require.NoError(t, err)
	require.NotEqual(t, common.Address{}, res.Address)
	require.Equal(t, types.CreateAddress(s.Address(), 0), res.Address)
	require.NotEqual(t, common.Hash{}, res.TxHash)

	broadcasts := client.Broadcasts()
	require.Len(t, broadcasts, 1)
	tx := broadcasts[0].Tx()
	require.Equal(t, s.Address(), tx.From)
	require.Equal(t, types.ContractDeployerAddress, *tx.To)
	require.Equal(t, [][]byte{code}, tx.CustomData.FactoryDeps)

	second, err := p.Deploy(context.Background(), DeployRequest{Deployer: s.Address(), Bytecode: code})
	require.NoError(t, err)
	require.Equal(t, types.CreateAddress(s.Address(), 1), second.Address)
	require.Greater(t, second.Nonce, res.Nonce)
}

func TestDeployCreate2(t *testing.T) {
	p, _, s := newTestPipeline(t, Config{})
	code := bytes.Repeat([]byte{0x60}, 32)
	salt := common.HexToHash("0x1234")
	codeHash, err := types.HashBytecode(code)
	require.NoError(t, err)

	res, err := p.Deploy(context.Background(), DeployRequest{Deployer: s.Address(), Bytecode: code, Salt: &salt})
	require.NoError(t, err)
	require.Equal(t, types.Create2Address(s.Address(), codeHash, salt, []byte{}), res.Address)
}

func TestDeployFailures(t *testing.T) {
	code := bytes.Repeat([]byte{0x60}, 32)
	tests := []struct {
		name  string
		setup func(client *testutils.FakeChainClient, deployer common.Address)
		req   func(deployer common.Address) DeployRequest
		stage string
		cause error
	}{
		{
			name:  "unfunded",
			setup: func(c *testutils.FakeChainClient, d common.Address) { c.Balances[d] = new(big.Int) },
			stage: StageBuild,
			cause: types.ErrInsufficientFunds,
		},
		{
			name:  "estimation",
			setup: func(c *testutils.FakeChainClient, _ common.Address) { c.EstimateErr = errors.New("bytecode not published") },
			stage: StageBuild,
			cause: types.ErrGasEstimation,
		},
		{
			name:  "rejected",
			setup: func(c *testutils.FakeChainClient, _ common.Address) { c.RejectReason = "nonce too high" },
			stage: StageBroadcast,
			cause: types.ErrRejectedByNetwork,
		},
		{
			name:  "reverted",
			setup: func(c *testutils.FakeChainClient, _ common.Address) { c.Revert = true },
			stage: StageConfirm,
			cause: types.ErrTransactionFailed,
		},
		{
			name: "badBytecode",
			req: func(d common.Address) DeployRequest {
				return DeployRequest{Deployer: d, Bytecode: code[:30]}
			},
			stage: StageBuild,
			cause: types.ErrMalformedTransaction,
		},
		{
			name: "argsWithoutABI",
			req: func(d common.Address) DeployRequest {
				return DeployRequest{Deployer: d, Bytecode: code, ConstructorArgs: []interface{}{big.NewInt(1)}}
			},
			stage: StageEncode,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, client, s := newTestPipeline(t, Config{})
			if test.setup != nil {
				test.setup(client, s.Address())
			}
			req := DeployRequest{Deployer: s.Address(), Bytecode: code}
			if test.req != nil {
				req = test.req(s.Address())
			}

			res, err := p.Deploy(context.Background(), req)
			require.Nil(t, res)
			require.ErrorIs(t, err, types.ErrDeployment)
			var derr *types.DeploymentError
			require.ErrorAs(t, err, &derr)
			require.Equal(t, test.stage, derr.Stage)
			if test.cause != nil {
				require.ErrorIs(t, err, test.cause)
			}
		})
	}
}

func TestDeployedAddress(t *testing.T) {
	predicted := common.HexToAddress("0x01")
	receipt := &types.Receipt{ContractAddress: predicted}
	addr, err := deployedAddress(receipt, &predicted)
	require.NoError(t, err)
	require.Equal(t, predicted, addr)

	_, err = deployedAddress(&types.Receipt{ContractAddress: common.HexToAddress("0x02")}, &predicted)
	require.Error(t, err)

	_, err = deployedAddress(&types.Receipt{}, nil)
	require.Error(t, err)
}
