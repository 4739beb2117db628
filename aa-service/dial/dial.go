package dial

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
)

// DefaultDialTimeout is the default timeout for dialing a client.
const DefaultDialTimeout = 1 * time.Minute

// DialRPCClientWithTimeout connects to url, giving up after timeout. The
// connection is verified with a chain id request.
func DialRPCClientWithTimeout(ctx context.Context, timeout time.Duration, log log.Logger, url string) (*rpc.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	var chainID string
	if err := client.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach %s: %w", url, err)
	}
	log.Info("Connected to RPC", "url", url, "chainID", chainID)
	return client, nil
}
