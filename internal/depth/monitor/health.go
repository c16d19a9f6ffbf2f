package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/banshee-data/depthgrid/internal/monitoring"
)

// HealthService is the service name reported alongside the overall "" entry.
const HealthService = "depthgrid.Pipeline"

// HealthServer exposes the standard gRPC health protocol.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
}

// NewHealthServer returns a server reporting NOT_SERVING until SetServing.
func NewHealthServer() *HealthServer {
	h := &HealthServer{
		server: grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(h.server, h.health)
	h.SetServing(false)
	return h
}

// SetServing flips both the overall and the pipeline service status.
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(HealthService, status)
}

// ListenAndServe listens on addr and calls Serve.
func (h *HealthServer) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return h.Serve(ctx, lis)
}

// Serve serves on lis until ctx is cancelled. On shutdown every status is
// set to NOT_SERVING before the server stops gracefully.
func (h *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("[health] gRPC health on %s", lis.Addr())
		errc <- h.server.Serve(lis)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	h.health.Shutdown()
	h.server.GracefulStop()
	monitoring.Logf("[health] gRPC server stopped")
	return nil
}

// Track reports SERVING for as long as run executes.
func (h *HealthServer) Track(run func() error) error {
	h.SetServing(true)
	defer h.SetServing(false)
	return run()
}
