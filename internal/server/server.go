// Package server binds the HTTP API and the gRPC health service and shuts
// both down when the context ends.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/shashiranjanraj/cafe/config"
	"github.com/shashiranjanraj/cafe/internal/kernel"
	grpcserver "github.com/shashiranjanraj/cafe/pkg/grpc"
	"github.com/shashiranjanraj/cafe/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// Options name the listen addresses. An empty GRPCAddr disables gRPC.
type Options struct {
	HTTPAddr string
	GRPCAddr string
}

func OptionsFromConfig() Options {
	opts := Options{HTTPAddr: ":" + config.AppPort()}
	if p := config.GRPCPort(); p != "" {
		opts.GRPCAddr = ":" + p
	}
	return opts
}

// Run serves until ctx is cancelled or a listener fails.
func Run(ctx context.Context, k *kernel.Kernel, opts Options) error {
	handler, err := k.Handler()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	k.Start(ctx)

	srv := &http.Server{
		Addr:              opts.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http: listening", "addr", opts.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	var health *grpcserver.Server
	if opts.GRPCAddr != "" {
		lis, err := net.Listen("tcp", opts.GRPCAddr)
		if err != nil {
			_ = srv.Close()
			return fmt.Errorf("grpc: listen %s: %w", opts.GRPCAddr, err)
		}
		probes := make(map[string]grpcserver.Probe)
		for name, p := range k.Probes() {
			probes[name] = p
		}
		health = grpcserver.New(probes)
		go health.Watch(ctx, 10*time.Second)
		go func() {
			if err := health.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("server: shutting down")
	case err = <-errCh:
		logger.Error("server: listener failed", "error", err)
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Error("http: shutdown", "error", serr)
	}
	if health != nil {
		health.Stop()
	}
	k.Events.Wait()
	return err
}
