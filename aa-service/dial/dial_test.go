package dial

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

type ethService struct{}

func (ethService) ChainId() hexutil.Uint64 { return 300 }

func TestDialRPCClientWithTimeout(t *testing.T) {
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", ethService{}))
	httpSrv := httptest.NewServer(srv)
	t.Cleanup(httpSrv.Close)
	t.Cleanup(srv.Stop)

	client, err := DialRPCClientWithTimeout(context.Background(), time.Second, log.New(), httpSrv.URL)
	require.NoError(t, err)
	client.Close()
}

func TestDialUnreachable(t *testing.T) {
	srv := rpc.NewServer()
	httpSrv := httptest.NewServer(srv)
	t.Cleanup(httpSrv.Close)
	t.Cleanup(srv.Stop)

	// no eth namespace registered, the liveness check fails
	_, err := DialRPCClientWithTimeout(context.Background(), time.Second, log.New(), httpSrv.URL)
	require.ErrorContains(t, err, "failed to reach")
}
