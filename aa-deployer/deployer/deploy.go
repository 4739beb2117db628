package deployer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/hackflu/foundry-Account-Abstraction/aa-tx/pipeline"
)

// DeployAccount deploys the artifact's contract from the signer's address
// with no constructor arguments.
func (ds *DeployerService) DeployAccount(ctx context.Context, art *Artifact, salt *common.Hash) (*pipeline.DeployResult, error) {
	l := ds.Log.New("flow", uuid.NewString())
	deployer := ds.Signer.Address()
	l.Info("Deploying account", "deployer", deployer, "codeSize", len(art.Bytecode), "create2", salt != nil)

	result, err := ds.Pipeline.Deploy(ctx, pipeline.DeployRequest{
		Deployer: deployer,
		Bytecode: art.Bytecode,
		ABI:      &art.ABI,
		Salt:     salt,
	})
	if err != nil {
		l.Error("Deployment failed", "err", err)
		return nil, err
	}
	if url := ds.Network.TxURL(result.TxHash); url != "" {
		l.Info("Deployment on explorer", "url", url)
	}
	return result, nil
}
