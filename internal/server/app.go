// Package server wires the chat auth server together: configuration, key
// material, storage, the account and auth services, and the HTTP and gRPC
// transports, and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/hildxd/chat-server/internal/cryptox"
	"github.com/hildxd/chat-server/internal/logging"
	"github.com/hildxd/chat-server/internal/server/auth"
	"github.com/hildxd/chat-server/internal/server/config"
	gs "github.com/hildxd/chat-server/internal/server/grpc"
	httpx "github.com/hildxd/chat-server/internal/server/http"
	"github.com/hildxd/chat-server/internal/server/keys"
	"github.com/hildxd/chat-server/internal/server/metrics"
	"github.com/hildxd/chat-server/internal/server/repositories/repomanager"
	"github.com/hildxd/chat-server/internal/server/services"
	"github.com/hildxd/chat-server/internal/telemetry"
)

const serviceName = "chat-server"

type App struct {
	config          *config.Config
	logger          logging.Logger
	db              *sql.DB
	metrics         *metrics.Metrics
	authService     *services.AuthService
	router          *httpx.Router
	shutdownTracing func(context.Context) error
}

// NewApp builds every dependency named by c. Log output goes to stdout.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	logger := logging.New(c.LogLevel, logOut)

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, c.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("tracing init error: %w", err)
	}

	privatePEM, publicPEM, err := loadKeys(ctx, c)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	issuer, err := auth.NewIssuer(privatePEM)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}
	verifier, err := auth.NewVerifier(publicPEM)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	db, rm, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("db init error: %w", err)
	}

	mtr := metrics.New()
	hasher := cryptox.NewHasher(cryptox.DefaultArgon2Params())
	accounts := services.NewAccountService(db, rm, hasher, c.HashWorkers, logger, mtr)
	authService := services.NewAuthService(accounts, issuer, verifier, logger, mtr)

	return &App{
		config:          c,
		logger:          logger,
		db:              db,
		metrics:         mtr,
		authService:     authService,
		router:          httpx.NewRouter(authService, db, mtr, logger),
		shutdownTracing: shutdownTracing,
	}, nil
}

// loadKeys resolves the signing key and the verification key. An empty
// public key source is derived from the private key.
func loadKeys(ctx context.Context, c *config.Config) (privatePEM, publicPEM []byte, err error) {
	loader := keys.NewLoader(keys.S3Config{
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		UsePathStyle: c.S3UsePathStyle,
	})

	privatePEM, err = loader.Load(ctx, c.PrivateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("load private key: %w", err)
	}

	if c.PublicKey == "" {
		publicPEM, err = cryptox.PublicPEMFromPrivate(privatePEM)
		if err != nil {
			return nil, nil, fmt.Errorf("derive public key: %w", err)
		}
		return privatePEM, publicPEM, nil
	}

	publicPEM, err = loader.Load(ctx, c.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("load public key: %w", err)
	}
	return privatePEM, publicPEM, nil
}

// Handler exposes the HTTP API handler.
func (app *App) Handler() http.Handler {
	return app.router
}

// Run serves HTTP and gRPC until ctx is cancelled, a termination signal is
// received, or either server fails. Resources are released before returning.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	httpServer := httpx.NewServer(app.config.HTTPAddr, app.router, app.logger, app.config.ShutdownTimeout)
	grpcServer := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.authService)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpServer.Run(gctx) })
	g.Go(func() error { return grpcServer.Run(gctx) })

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped with error", "error", err)
	}

	app.Close(context.WithoutCancel(ctx))
	app.logger.Info(ctx, "App stopped")
	return err
}

// Close releases the database pool and flushes pending spans.
func (app *App) Close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, app.config.ShutdownTimeout)
	defer cancel()

	if err := app.shutdownTracing(shutdownCtx); err != nil {
		app.logger.Warn(ctx, "tracing shutdown failed", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close failed", "error", err)
	}
}
