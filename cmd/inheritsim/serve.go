package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/GoSim-25-26J-441/inheritance-core/internal/simd"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/logger"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

type serveOptions struct {
	grpcAddr        string
	httpAddr        string
	callbacks       bool
	rateLimit       float64
	rateBurst       int
	shutdownTimeout time.Duration
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sweep run API over HTTP and gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.grpcAddr, "grpc-addr", ":50051", "gRPC listen address")
	flags.StringVar(&opts.httpAddr, "http-addr", ":8080", "HTTP listen address")
	flags.BoolVar(&opts.callbacks, "callbacks", true, "send completion callbacks for runs that set callback_url")
	flags.Float64Var(&opts.rateLimit, "rate-limit", 5, "run create/start requests per second per client (0 disables)")
	flags.IntVar(&opts.rateBurst, "rate-burst", 10, "burst size for --rate-limit")
	flags.DurationVar(&opts.shutdownTimeout, "shutdown-timeout", 10*time.Second, "grace period for in-flight requests and runs")

	return cmd
}

func runServe(ctx context.Context, opts *serveOptions) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	store := simd.NewRunStore()
	executor := simd.NewRunExecutor(store)
	if opts.callbacks {
		executor.SetNotifier(simd.NewNotifier())
	}

	limiter := simd.NewClientLimiter(opts.rateLimit, opts.rateBurst)

	// TODO: add TLS and authentication before exposing the gRPC port beyond localhost.
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(simd.UnaryRateLimitInterceptor(limiter)))
	simd.RegisterSweepServiceServer(grpcServer, simd.NewSweepGRPCServer(store, executor))

	grpcLis, err := net.Listen("tcp", opts.grpcAddr)
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC on %s: %w", opts.grpcAddr, err)
	}

	api := simd.NewHTTPServer(store, executor)
	api.SetRateLimiter(limiter)

	httpSrv := &http.Server{
		Addr:              opts.httpAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("gRPC server listening", "addr", opts.grpcAddr)
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("gRPC server error", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "addr", opts.httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.shutdownTimeout)
	defer cancel()

	grpcServer.GracefulStop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	if err := executor.Shutdown(shutdownCtx); err != nil {
		logger.Error("run shutdown error", "error", err, "active_runs", executor.ActiveRuns())
		return err
	}
	return nil
}
