package deployer

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"

	"github.com/hackflu/foundry-Account-Abstraction/aa-deployer/flags"
	aalog "github.com/hackflu/foundry-Account-Abstraction/aa-service/log"
)

// NetworkConfig is the optional TOML network profile.
type NetworkConfig struct {
	RPC      string            `toml:"rpc"`
	Explorer string            `toml:"explorer"`
	Tokens   map[string]string `toml:"tokens"`
}

func LoadNetworkConfig(path string) (*NetworkConfig, error) {
	var cfg NetworkConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read network config %s: %w", path, err)
	}
	for alias, addr := range cfg.Tokens {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("token %q has invalid address %q", alias, addr)
		}
	}
	return &cfg, nil
}

// ResolveToken accepts a hex address or a token alias of the profile.
func (n *NetworkConfig) ResolveToken(token string) (common.Address, error) {
	if common.IsHexAddress(token) {
		return common.HexToAddress(token), nil
	}
	if n != nil {
		for alias, addr := range n.Tokens {
			if strings.EqualFold(alias, token) {
				return common.HexToAddress(addr), nil
			}
		}
	}
	return common.Address{}, fmt.Errorf("unknown token %q", token)
}

// TxURL links a transaction on the block explorer, empty without one.
func (n *NetworkConfig) TxURL(hash common.Hash) string {
	if n == nil || n.Explorer == "" {
		return ""
	}
	return strings.TrimRight(n.Explorer, "/") + "/tx/" + hash.Hex()
}

type CLIConfig struct {
	L2EthRpc   string
	PrivateKey string
	Mnemonic   string
	HDPath     string

	RPCTimeout     time.Duration
	RPCRateLimit   float64
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	GasPerPubdata  uint64

	Network   *NetworkConfig
	LogConfig aalog.CLIConfig
}

func (c *CLIConfig) Check() error {
	var result *multierror.Error
	if c.L2EthRpc == "" {
		result = multierror.Append(result, errors.New("no L2 RPC given, set --l2-eth-rpc or a network profile"))
	}
	switch {
	case c.PrivateKey == "" && c.Mnemonic == "":
		result = multierror.Append(result, errors.New("one of --private-key or --mnemonic is required"))
	case c.PrivateKey != "" && c.Mnemonic != "":
		result = multierror.Append(result, errors.New("--private-key and --mnemonic are mutually exclusive"))
	}
	if c.RPCTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("rpc timeout must be positive, got %s", c.RPCTimeout))
	}
	if c.PollInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("poll interval must be positive, got %s", c.PollInterval))
	}
	if c.ConfirmTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("confirm timeout must not be negative, got %s", c.ConfirmTimeout))
	}
	if c.RPCRateLimit < 0 {
		result = multierror.Append(result, fmt.Errorf("rpc rate limit must not be negative, got %v", c.RPCRateLimit))
	}
	return result.ErrorOrNil()
}

func NewConfig(ctx *cli.Context) (*CLIConfig, error) {
	cfg := &CLIConfig{
		L2EthRpc:       ctx.String(flags.L2EthRpcFlag.Name),
		PrivateKey:     ctx.String(flags.PrivateKeyFlag.Name),
		Mnemonic:       ctx.String(flags.MnemonicFlag.Name),
		HDPath:         ctx.String(flags.HDPathFlag.Name),
		RPCTimeout:     ctx.Duration(flags.RPCTimeoutFlag.Name),
		RPCRateLimit:   ctx.Float64(flags.RPCRateLimitFlag.Name),
		ConfirmTimeout: ctx.Duration(flags.ConfirmTimeoutFlag.Name),
		PollInterval:   ctx.Duration(flags.PollIntervalFlag.Name),
		GasPerPubdata:  ctx.Uint64(flags.GasPerPubdataFlag.Name),
		LogConfig:      aalog.ReadCLIConfig(ctx),
	}
	if path := ctx.Path(flags.NetworkConfigFlag.Name); path != "" {
		network, err := LoadNetworkConfig(path)
		if err != nil {
			return nil, err
		}
		cfg.Network = network
		if cfg.L2EthRpc == "" {
			cfg.L2EthRpc = network.RPC
		}
	}
	return cfg, nil
}

type DeployConfig struct {
	Artifact string
	Salt     *common.Hash
}

func NewDeployConfig(ctx *cli.Context) (*DeployConfig, error) {
	cfg := &DeployConfig{Artifact: ctx.Path(flags.ArtifactFlag.Name)}
	if s := ctx.String(flags.SaltFlag.Name); s != "" {
		salt, err := parseSalt(s)
		if err != nil {
			return nil, err
		}
		cfg.Salt = &salt
	}
	return cfg, nil
}

func parseSalt(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid salt %q: %w", s, err)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("salt must be %d bytes, got %d", common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}

type ApproveConfig struct {
	Account common.Address
	Token   common.Address
	Spender common.Address
	Amount  *big.Int
}

func NewApproveConfig(ctx *cli.Context, network *NetworkConfig) (*ApproveConfig, error) {
	var result *multierror.Error
	parseAddr := func(name string) common.Address {
		s := ctx.String(name)
		if !common.IsHexAddress(s) {
			result = multierror.Append(result, fmt.Errorf("--%s: invalid address %q", name, s))
			return common.Address{}
		}
		return common.HexToAddress(s)
	}

	cfg := &ApproveConfig{
		Account: parseAddr(flags.AccountFlag.Name),
		Spender: parseAddr(flags.SpenderFlag.Name),
	}
	token, err := network.ResolveToken(ctx.String(flags.TokenFlag.Name))
	if err != nil {
		result = multierror.Append(result, err)
	}
	cfg.Token = token
	amount, err := parseAmount(ctx.String(flags.AmountFlag.Name))
	if err != nil {
		result = multierror.Append(result, err)
	}
	cfg.Amount = amount
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseAmount accepts decimal or 0x-prefixed hex integers.
func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if amount.BitLen() > 256 {
		return nil, fmt.Errorf("amount %s exceeds 256 bits", s)
	}
	return amount, nil
}
