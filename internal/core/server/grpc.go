// Package server provides gRPC server lifecycle management.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/solatis/rulebuilder/internal/core/api"
	"github.com/solatis/rulebuilder/internal/core/auth"
	"github.com/solatis/rulebuilder/internal/core/config"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// shutdownTimeout bounds GracefulStop before the server is stopped hard.
const shutdownTimeout = 30 * time.Second

// GRPCServer manages gRPC server lifecycle.
type GRPCServer struct {
	server  *grpc.Server
	health  *health.Server
	service *api.BuilderAPIService
	config  *config.BuilderAPIConfig
	log     *slog.Logger
}

// NewGRPCServer creates gRPC server with service registration. A nil
// authenticator serves without authentication and is only accepted when the
// configuration does not require it.
func NewGRPCServer(cfg *config.BuilderAPIConfig, service *api.BuilderAPIService, authenticator *auth.Authenticator, log *slog.Logger) (*GRPCServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if authenticator == nil && cfg.RequireAuth {
		return nil, fmt.Errorf("authenticator cannot be nil when require_auth is set")
	}
	if log == nil {
		log = slog.Default()
	}

	interceptors := []grpc.UnaryServerInterceptor{logInterceptor(log)}
	if authenticator != nil {
		interceptors = append(interceptors, authenticator.UnaryInterceptor())
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	api.RegisterBuilderAPIServer(server, service)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(api.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &GRPCServer{
		server:  server,
		health:  healthServer,
		service: service,
		config:  cfg,
		log:     log,
	}, nil
}

// Start binds the configured address and serves until Shutdown.
func (s *GRPCServer) Start(ctx context.Context) error {
	addr := s.config.Addr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener and sweeps idle sessions until Shutdown or ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, listener net.Listener) error {
	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.service.Run(sweepCtx)

	s.log.InfoContext(ctx, "builder api listening", "addr", listener.Addr().String())
	return s.server.Serve(listener)
}

// Shutdown marks the server not serving and stops it gracefully, forcing a
// stop once ctx is done or shutdownTimeout passes.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.log.InfoContext(ctx, "builder api stopped")
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return fmt.Errorf("shutdown cancelled by context: %w", ctx.Err())
	case <-time.After(shutdownTimeout):
		s.server.Stop()
		return fmt.Errorf("graceful shutdown timeout, forced stop")
	}
}

func logInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.DebugContext(ctx, "rpc", "method", info.FullMethod, "duration", time.Since(start), "error", err)
		return resp, err
	}
}
