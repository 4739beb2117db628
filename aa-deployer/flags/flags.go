package flags

import (
	"time"

	"github.com/urfave/cli/v2"

	aaservice "github.com/hackflu/foundry-Account-Abstraction/aa-service"
	aalog "github.com/hackflu/foundry-Account-Abstraction/aa-service/log"
	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/signer"
	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/types"
)

const EnvVarPrefix = "AA_DEPLOYER"

func prefixEnvVars(name string) []string {
	return aaservice.PrefixEnvVar(EnvVarPrefix, name)
}

var (
	L2EthRpcFlag = &cli.StringFlag{
		Name:    "l2-eth-rpc",
		Usage:   "HTTP or websocket URL of the L2 node. Overrides the network profile",
		EnvVars: prefixEnvVars("L2_ETH_RPC"),
	}
	NetworkConfigFlag = &cli.PathFlag{
		Name:    "network-config",
		Usage:   "Path to a TOML network profile with rpc, explorer and token aliases",
		EnvVars: prefixEnvVars("NETWORK_CONFIG"),
	}
	PrivateKeyFlag = &cli.StringFlag{
		Name:    "private-key",
		Usage:   "Hex private key of the signing key",
		EnvVars: prefixEnvVars("PRIVATE_KEY"),
	}
	MnemonicFlag = &cli.StringFlag{
		Name:    "mnemonic",
		Usage:   "Mnemonic to derive the signing key from",
		EnvVars: prefixEnvVars("MNEMONIC"),
	}
	HDPathFlag = &cli.StringFlag{
		Name:    "hd-path",
		Usage:   "HD derivation path used with --mnemonic",
		Value:   signer.DefaultHDPath,
		EnvVars: prefixEnvVars("HD_PATH"),
	}
	RPCTimeoutFlag = &cli.DurationFlag{
		Name:    "rpc-timeout",
		Usage:   "Timeout of a single RPC call",
		Value:   10 * time.Second,
		EnvVars: prefixEnvVars("RPC_TIMEOUT"),
	}
	RPCRateLimitFlag = &cli.Float64Flag{
		Name:    "rpc-rate-limit",
		Usage:   "Maximum RPC calls per second, 0 disables the limit",
		EnvVars: prefixEnvVars("RPC_RATE_LIMIT"),
	}
	ConfirmTimeoutFlag = &cli.DurationFlag{
		Name:    "confirm-timeout",
		Usage:   "How long to wait for a transaction receipt",
		Value:   2 * time.Minute,
		EnvVars: prefixEnvVars("CONFIRM_TIMEOUT"),
	}
	PollIntervalFlag = &cli.DurationFlag{
		Name:    "poll-interval",
		Usage:   "Interval between receipt polls",
		Value:   time.Second,
		EnvVars: prefixEnvVars("POLL_INTERVAL"),
	}
	GasPerPubdataFlag = &cli.Uint64Flag{
		Name:    "gas-per-pubdata",
		Usage:   "Gas per pubdata byte limit of built transactions",
		Value:   types.DefaultGasPerPubdata,
		EnvVars: prefixEnvVars("GAS_PER_PUBDATA"),
	}
)

// deploy
var (
	ArtifactFlag = &cli.PathFlag{
		Name:     "artifact",
		Usage:    "Path to the compiled account contract artifact (JSON with abi and bytecode)",
		Required: true,
		EnvVars:  prefixEnvVars("ARTIFACT"),
	}
	SaltFlag = &cli.StringFlag{
		Name:    "salt",
		Usage:   "32-byte hex salt. Deploys with create2 when set",
		EnvVars: prefixEnvVars("SALT"),
	}
)

// approve
var (
	AccountFlag = &cli.StringFlag{
		Name:     "account",
		Usage:    "Address of the deployed account contract sending the approval",
		Required: true,
		EnvVars:  prefixEnvVars("ACCOUNT"),
	}
	TokenFlag = &cli.StringFlag{
		Name:     "token",
		Usage:    "ERC-20 token address or an alias from the network profile",
		Required: true,
		EnvVars:  prefixEnvVars("TOKEN"),
	}
	SpenderFlag = &cli.StringFlag{
		Name:     "spender",
		Usage:    "Address allowed to spend the tokens",
		Required: true,
		EnvVars:  prefixEnvVars("SPENDER"),
	}
	AmountFlag = &cli.StringFlag{
		Name:     "amount",
		Usage:    "Allowance in token base units",
		Required: true,
		EnvVars:  prefixEnvVars("AMOUNT"),
	}
)

func init() {
	Flags = []cli.Flag{
		L2EthRpcFlag,
		NetworkConfigFlag,
		PrivateKeyFlag,
		MnemonicFlag,
		HDPathFlag,
		RPCTimeoutFlag,
		RPCRateLimitFlag,
		ConfirmTimeoutFlag,
		PollIntervalFlag,
		GasPerPubdataFlag,
	}
	Flags = append(Flags, aalog.CLIFlags(EnvVarPrefix)...)

	DeployFlags = []cli.Flag{ArtifactFlag, SaltFlag}
	ApproveFlags = []cli.Flag{AccountFlag, TokenFlag, SpenderFlag, AmountFlag}
}

var (
	Flags        []cli.Flag
	DeployFlags  []cli.Flag
	ApproveFlags []cli.Flag
)
