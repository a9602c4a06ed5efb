// Command vidgraph-server starts the VidGraph gRPC server and its ops listener.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/vidgraph/internal/config"
	"github.com/and161185/vidgraph/internal/crypto"
	"github.com/and161185/vidgraph/internal/metrics"
	"github.com/and161185/vidgraph/internal/migrate"
	"github.com/and161185/vidgraph/internal/repository/postgres"
	grpcserver "github.com/and161185/vidgraph/internal/server/grpc"
	"github.com/and161185/vidgraph/internal/server/ops"
	"github.com/and161185/vidgraph/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	logger := newLogger(cfg.Dev)
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("httpAddr", cfg.HTTPAddr),
		zap.Bool("dev", cfg.Dev),
	)
	if cfg.RelaxExpiry {
		logger.Warn("assertion expiry checks are relaxed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ver, err := migrate.Up(ctx, cfg.DSN, logger)
	if err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}
	logger.Info("schema ready", zap.Int64("version", ver))

	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	followRepo := postgres.NewFollowRepo(db)
	messageRepo := postgres.NewMessageRepo(db)
	notificationRepo := postgres.NewNotificationRepo(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	// Services
	secrets := make(map[string][]byte, len(cfg.BotTokens))
	for name, tok := range cfg.BotTokens {
		secrets[name] = []byte(tok)
	}
	authSvc := service.NewAuthService(userRepo, service.AuthConfig{
		Secrets:       secrets,
		DefaultSecret: cfg.DefaultBot,
		SignKey:       []byte(cfg.JWTKey),
		TTL:           cfg.SessionTTL,
		Verify:        crypto.VerifyOptions{MaxAge: cfg.AuthMaxAge, RelaxExpiry: cfg.RelaxExpiry},
	}, logger.Named("auth"), rec)
	notificationSvc := service.NewNotificationService(userRepo, notificationRepo, rec)
	socialSvc := service.NewSocialService(userRepo, followRepo, rec).NotifyFollows(notificationSvc)
	messageSvc := service.NewMessageService(userRepo, messageRepo, rec)

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.LoggingUnary(logger),
			grpcserver.MetricsUnary(rec),
			grpcserver.RecoverUnary(logger),
			grpcserver.TimeoutUnary(cfg.RequestTimeout),
		),
	}
	if cfg.TLSCert != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	} else {
		logger.Warn("serving plaintext gRPC (dev)")
	}
	s := grpc.NewServer(opts...)
	grpcserver.RegisterVidGraphServer(s, grpcserver.New(authSvc, socialSvc, messageSvc, notificationSvc, logger))

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           ops.NewRouter(reg, db, logger.Named("ops")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening (gRPC)", zap.String("addr", cfg.Addr), zap.Bool("tls", cfg.TLSCert != ""))
		errCh <- s.Serve(lis)
	}()
	go func() {
		logger.Info("listening (ops)", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	hs.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		s.Stop()
	}
	logger.Info("shutdown complete")
}

func newLogger(dev bool) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if dev {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}
