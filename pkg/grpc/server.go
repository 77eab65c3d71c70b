// Package grpc serves the standard grpc.health.v1.Health service. Health
// follows the probes it is given (database, cache), so orchestrators can
// route traffic away from an instance whose dependencies are down.
//
//	srv := grpc.New(map[string]grpc.Probe{"database": dbPing, "cache": store.Ping})
//	go srv.Watch(ctx, 10*time.Second)
//	go srv.Serve(lis)
//	defer srv.Stop()
package grpc

import (
	"context"
	"net"
	"runtime/debug"
	"sort"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/shashiranjanraj/cafe/pkg/logger"
	"github.com/shashiranjanraj/cafe/pkg/metrics"
)

// Probe reports whether one dependency is usable.
type Probe func(ctx context.Context) error

type Server struct {
	srv    *grpc.Server
	health *health.Server
	probes map[string]Probe
	names  []string
}

func New(probes map[string]Probe) *Server {
	s := &Server{
		srv: grpc.NewServer(
			grpc.ChainUnaryInterceptor(recoveryInterceptor, loggingInterceptor, metricsInterceptor),
			grpc.MaxRecvMsgSize(4<<20),
			grpc.MaxSendMsgSize(4<<20),
		),
		health: health.NewServer(),
		probes: probes,
	}
	for name := range probes {
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)

	grpc_health_v1.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)
	return s
}

// Check runs every probe once and publishes the result. The overall ("")
// service is SERVING only when every probe passes.
func (s *Server) Check(ctx context.Context) bool {
	all := true
	for _, name := range s.names {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := s.probes[name](pctx)
		cancel()

		st := grpc_health_v1.HealthCheckResponse_SERVING
		if err != nil {
			st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			all = false
			logger.Warn("grpc: probe failed", "probe", name, "error", err)
		}
		s.health.SetServingStatus(name, st)
	}
	overall := grpc_health_v1.HealthCheckResponse_SERVING
	if !all {
		overall = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", overall)
	return all
}

// Watch re-runs the probes every interval until ctx ends.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	s.Check(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Check(ctx)
		}
	}
}

// Serve blocks serving lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	logger.Info("gRPC server starting", "addr", lis.Addr().String())
	return s.srv.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs.
func (s *Server) Stop() {
	logger.Info("gRPC server shutting down")
	s.health.Shutdown()
	s.srv.GracefulStop()
}

func recoveryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("grpc: panic recovered", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

func loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logger.Debug("grpc: request",
		"method", info.FullMethod,
		"duration_ms", time.Since(start).Milliseconds(),
		"code", status.Code(err).String(),
	)
	return resp, err
}

func metricsInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	metrics.GRPCHandled.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
	metrics.GRPCDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
	return resp, err
}
