package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/hackflu/foundry-Account-Abstraction/aa-deployer/deployer"
	"github.com/hackflu/foundry-Account-Abstraction/aa-deployer/flags"
	aaservice "github.com/hackflu/foundry-Account-Abstraction/aa-service"
	aalog "github.com/hackflu/foundry-Account-Abstraction/aa-service/log"
)

var (
	Version   = "v0.0.1"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	aalog.SetupDefaults()

	app := cli.NewApp()
	app.Flags = flags.Flags
	app.Version = aaservice.FormatVersion(Version, GitCommit, GitDate, "")
	app.Name = "aa-deployer"
	app.Usage = "Deploy and drive account-abstraction wallets on zkSync-style rollups"
	app.Description = "Builds, signs and broadcasts type-113 transactions for account contracts"
	app.Commands = []*cli.Command{
		{
			Name:   "deploy",
			Usage:  "Deploy an account contract through the contract deployer",
			Flags:  flags.DeployFlags,
			Action: deployer.DeployMain(Version),
		},
		{
			Name:   "approve",
			Usage:  "Approve an ERC-20 spender from a deployed account contract",
			Flags:  flags.ApproveFlags,
			Action: deployer.ApproveMain(Version),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}
