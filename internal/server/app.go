// Package server initializes and runs the identity service: it opens the
// database, applies migrations, seeds the first admin, starts the mail
// dispatcher and the revocation sweeper, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/edustack/identity/internal/logging"
	"github.com/edustack/identity/internal/server/auth"
	"github.com/edustack/identity/internal/server/config"
	"github.com/edustack/identity/internal/server/mail"
	"github.com/edustack/identity/internal/server/password"
	"github.com/edustack/identity/internal/server/repositories/repomanager"
	"github.com/edustack/identity/internal/server/services"
)

// revocationSweepInterval is how often expired revocation entries are purged.
// Entries older than the refresh-token lifetime belong to tokens that can no
// longer verify anyway.
const revocationSweepInterval = time.Hour

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	repos      repomanager.RepositoryManager
	accounts   *services.AccountService
	admins     *services.AdminService
	dispatcher *mail.Dispatcher
}

func NewApp(cfg *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()

	tokens, err := auth.NewTokenService(
		[]byte(cfg.AccessSecretKey), []byte(cfg.RefreshSecretKey),
		cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration,
	)
	if err != nil {
		return nil, fmt.Errorf("token service init error: %w", err)
	}

	hasher := password.NewHasher(cfg.BcryptCost)

	baseURL := mail.NormalizeBaseURL(cfg.FrontendBaseURL, config.DefaultFrontendBaseURL)
	courier := mail.NewAPICourier(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFromEmail, cfg.MailFromName, baseURL)
	dispatcher := mail.NewDispatcher(courier, logger)

	accounts := services.NewAccountService(db, repos, tokens, hasher, dispatcher, logger, cfg)
	admins := services.NewAdminService(db, repos, tokens, hasher, logger)

	return &App{
		config:     cfg,
		logger:     logger,
		db:         db,
		repos:      repos,
		accounts:   accounts,
		admins:     admins,
		dispatcher: dispatcher,
	}, nil
}

// Accounts exposes the account coordinator to the embedding transport.
func (app *App) Accounts() *services.AccountService {
	return app.accounts
}

// Admins exposes the admin coordinator to the embedding transport.
func (app *App) Admins() *services.AdminService {
	return app.admins
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runRevocationSweeper periodically drops revocation entries older than the
// refresh-token lifetime, keeping the set bounded.
func (app *App) runRevocationSweeper(ctx context.Context) {
	ticker := time.NewTicker(revocationSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-app.config.RefreshTokenValidityDuration)
			n, err := app.repos.Revocations(app.db).PurgeOlderThan(ctx, cutoff)
			if err != nil {
				app.logger.Error(ctx, "revocation sweep failed", "error", err.Error())
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "revocation sweep", "purged", n)
			}
		}
	}
}

// Run starts the background workers and blocks until the context is cancelled
// or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.repos.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	if err := app.admins.Seed(ctx, app.config.AdminUsername, app.config.AdminPassword); err != nil {
		return fmt.Errorf("admin seed error: %w", err)
	}

	app.dispatcher.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runRevocationSweeper(ctx)
	}()

	<-ctx.Done()

	wg.Wait()
	app.dispatcher.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
	app.logger.Info(ctx, "App stopped")
	return nil
}
