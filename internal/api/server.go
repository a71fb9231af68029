package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/miradorstack/flake-triage/internal/config"
)

// Server owns the gRPC listener for the FlakeTriage service, its health endpoint and
// reflection.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	logger     *slog.Logger
}

// NewServer listens on cfg.Address and registers service.
func NewServer(cfg config.ServerConfig, service FlakeTriageServer, logger *slog.Logger, opts ...grpc.ServerOption) (*Server, error) {
	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}
	return NewServerOn(lis, service, logger, opts...), nil
}

// NewServerOn serves on an existing listener. Every call is counted by go-grpc-prometheus
// and logged at debug level, or warn level when it fails.
func NewServerOn(lis net.Listener, service FlakeTriageServer, logger *slog.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{listener: lis, logger: logger}

	grpc_prometheus.EnableHandlingTimeHistogram()
	serverOpts := append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor, s.logUnary),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	}, opts...)
	s.grpcServer = grpc.NewServer(serverOpts...)

	RegisterFlakeTriageServer(s.grpcServer, service)
	grpc_prometheus.Register(s.grpcServer)

	s.health = health.NewServer()
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s.grpcServer, s.health)

	reflection.Register(s.grpcServer)
	return s
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "rpc handled",
		slog.String("method", info.FullMethod),
		slog.String("code", status.Code(err).String()),
		slog.Duration("duration", time.Since(start)))
	return resp, err
}

// Start blocks serving requests until Shutdown.
func (s *Server) Start() error {
	if s.grpcServer == nil || s.listener == nil {
		return fmt.Errorf("server not initialised")
	}
	return s.grpcServer.Serve(s.listener)
}

// Shutdown reports NOT_SERVING to health probes, drains in-flight calls, and forces the
// stop once ctx is done.
func (s *Server) Shutdown(ctx context.Context) {
	if s.grpcServer == nil {
		return
	}
	s.health.Shutdown()

	drained := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}
}

// Address is the bound listener address, useful when listening on port 0.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
