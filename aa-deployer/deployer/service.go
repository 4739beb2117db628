package deployer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/hackflu/foundry-Account-Abstraction/aa-service/dial"
	"github.com/hackflu/foundry-Account-Abstraction/aa-service/sources"
	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/builder"
	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/pipeline"
	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/signer"
)

// ChainClient is what the deployer needs from the node: the pipeline's
// surface plus read-only contract calls.
type ChainClient interface {
	pipeline.ChainClient
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// KeySigner signs digests and knows its own address.
type KeySigner interface {
	Sign(digest common.Hash) ([]byte, error)
	Address() common.Address
}

type DeployerService struct {
	Log      log.Logger
	Version  string
	Network  *NetworkConfig
	Client   ChainClient
	Signer   KeySigner
	Pipeline *pipeline.Pipeline

	closeClient func()
	stopped     atomic.Bool
}

func NewDeployerService(ctx context.Context, version string, cfg *CLIConfig, log log.Logger) (*DeployerService, error) {
	var ds DeployerService
	if err := ds.initFromCLIConfig(ctx, version, cfg, log); err != nil {
		return nil, errors.Join(err, ds.Stop(ctx))
	}
	return &ds, nil
}

// NewDeployerServiceFromClient wires a service around an existing client.
func NewDeployerServiceFromClient(log log.Logger, client ChainClient, s KeySigner, network *NetworkConfig, cfg pipeline.Config) *DeployerService {
	return &DeployerService{
		Log:      log,
		Network:  network,
		Client:   client,
		Signer:   s,
		Pipeline: pipeline.New(log, client, s, cfg),
	}
}

func (ds *DeployerService) initFromCLIConfig(ctx context.Context, version string, cfg *CLIConfig, log log.Logger) error {
	ds.Version = version
	ds.Log = log
	ds.Network = cfg.Network

	if err := ds.initSigner(cfg); err != nil {
		return fmt.Errorf("failed to load signing key: %w", err)
	}
	if err := ds.initChainClient(ctx, cfg); err != nil {
		return fmt.Errorf("failed to start L2 client: %w", err)
	}
	ds.Pipeline = pipeline.New(log, ds.Client, ds.Signer, pipeline.Config{
		Builder:        builder.Config{GasPerPubdata: cfg.GasPerPubdata},
		ConfirmTimeout: cfg.ConfirmTimeout,
	})
	return nil
}

func (ds *DeployerService) initSigner(cfg *CLIConfig) error {
	var (
		s   *signer.ECDSASigner
		err error
	)
	if cfg.Mnemonic != "" {
		s, err = signer.NewECDSASignerFromMnemonic(cfg.Mnemonic, cfg.HDPath)
	} else {
		s, err = signer.NewECDSASignerFromHex(cfg.PrivateKey)
	}
	if err != nil {
		return err
	}
	ds.Signer = s
	ds.Log.Info("Loaded signing key", "address", s.Address())
	return nil
}

func (ds *DeployerService) initChainClient(ctx context.Context, cfg *CLIConfig) error {
	rpcClient, err := dial.DialRPCClientWithTimeout(ctx, dial.DefaultDialTimeout, ds.Log, cfg.L2EthRpc)
	if err != nil {
		return err
	}
	client := sources.NewChainClient(ds.Log, rpcClient, &sources.ChainClientConfig{
		CallTimeout:  cfg.RPCTimeout,
		PollInterval: cfg.PollInterval,
		RateLimit:    cfg.RPCRateLimit,
		RateBurst:    1,
	})
	ds.Client = client
	ds.closeClient = client.Close
	return nil
}

func (ds *DeployerService) Stop(ctx context.Context) error {
	if ds.stopped.Swap(true) {
		return nil
	}
	if ds.closeClient != nil {
		ds.closeClient()
	}
	if ds.Log != nil {
		ds.Log.Debug("Deployer stopped")
	}
	return nil
}

func (ds *DeployerService) Stopped() bool {
	return ds.stopped.Load()
}
