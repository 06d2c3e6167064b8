package grpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/foltz-ar/checkout-service/internal/health"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server exposes grpc.health.v1.Health for the checkout service, kept in sync
// with the dependency checks.
type Server struct {
	log      *slog.Logger
	checks   *health.Checks
	health   *grpchealth.Server
	service  string
	interval time.Duration
}

func NewServer(log *slog.Logger, checks *health.Checks, service string) *Server {
	return &Server{
		log:      log,
		checks:   checks,
		health:   grpchealth.NewServer(),
		service:  service,
		interval: 10 * time.Second,
	}
}

// Refresh runs the checks once and publishes the result for both the named
// service and the server as a whole.
func (s *Server) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, err := range s.checks.Run(ctx) {
		if err != nil {
			s.log.Warn("dependency unhealthy", "dependency", name, "err", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.service, status)
	return status
}

// Run listens on addr and refreshes the status every interval until ctx is
// done.
func (s *Server) Run(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, s.health)

	s.Refresh(ctx)
	go func() {
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				s.health.Shutdown()
				gs.GracefulStop()
				return
			case <-t.C:
				s.Refresh(ctx)
			}
		}
	}()

	s.log.Info("grpc health listening", "addr", addr)
	return gs.Serve(lis)
}
