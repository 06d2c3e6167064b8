package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"

	"github.com/foltz-ar/checkout-service/internal/health"
	"github.com/foltz-ar/checkout-service/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestServer_ReflectsDependencies(t *testing.T) {
	t.Parallel()

	var down atomic.Bool
	checks := health.NewChecks(map[string]health.Pinger{
		"redis": health.PingFunc(func(context.Context) error {
			if down.Load() {
				return errors.New("refused")
			}
			return nil
		}),
	})
	s := NewServer(logging.Discard(), checks, "checkout")

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, s.health)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := healthpb.NewHealthClient(conn)

	ctx := context.Background()
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, s.Refresh(ctx))
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "checkout"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	down.Store(true)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, s.Refresh(ctx))
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
