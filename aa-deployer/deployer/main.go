package deployer

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	aalog "github.com/hackflu/foundry-Account-Abstraction/aa-service/log"
)

// ErrApprovalFailed is returned by the approve command when the approval
// was mined but reverted.
var ErrApprovalFailed = errors.New("approval reverted")

func setup(ctx *cli.Context, version string) (*DeployerService, error) {
	cfg, err := NewConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid CLI flags: %w", err)
	}
	l := aalog.NewLogger(os.Stderr, cfg.LogConfig)
	return NewDeployerService(ctx.Context, version, cfg, l)
}

// DeployMain is the action of the deploy command.
func DeployMain(version string) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		deployCfg, err := NewDeployConfig(ctx)
		if err != nil {
			return err
		}
		art, err := LoadArtifact(deployCfg.Artifact)
		if err != nil {
			return err
		}
		ds, err := setup(ctx, version)
		if err != nil {
			return err
		}
		defer ds.Stop(ctx.Context)

		res, err := ds.DeployAccount(ctx.Context, art, deployCfg.Salt)
		if err != nil {
			return err
		}
		WriteDeployResult(ctx.App.Writer, res, ds.Network.TxURL(res.TxHash))
		return nil
	}
}

// ApproveMain is the action of the approve command.
func ApproveMain(version string) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		ds, err := setup(ctx, version)
		if err != nil {
			return err
		}
		defer ds.Stop(ctx.Context)

		approveCfg, err := NewApproveConfig(ctx, ds.Network)
		if err != nil {
			return err
		}
		res, err := ds.Approve(ctx.Context, approveCfg)
		if err != nil {
			return err
		}
		WriteApprovalResult(ctx.App.Writer, res)
		if !res.Succeeded {
			return fmt.Errorf("%w: %s", ErrApprovalFailed, res.TxHash)
		}
		return nil
	}
}
