package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/racanlabs/go-auth-service/auth"
	"github.com/racanlabs/go-auth-service/auth/hosted"
	"github.com/racanlabs/go-auth-service/auth/selfhosted"
	"github.com/racanlabs/go-auth-service/internal/config"
	"github.com/racanlabs/go-auth-service/internal/email"
	"github.com/racanlabs/go-auth-service/internal/mongodb"
	resetmongo "github.com/racanlabs/go-auth-service/resettokens/mongorepo"
	"github.com/racanlabs/go-auth-service/server"
	sessionmongo "github.com/racanlabs/go-auth-service/sessions/mongorepo"
	"github.com/racanlabs/go-auth-service/token"
	"github.com/racanlabs/go-auth-service/tokenstore"
	usermongo "github.com/racanlabs/go-auth-service/users/mongorepo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msg(fmt.Sprintf("recovered from panic: %v", r))
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	setupLogger(cfg.Env)
	displayAppname(cfg.AppName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, cleanup, err := buildBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("buildBackend: %w", err)
	}
	defer cleanup()

	srv, err := server.New(cfg, backend)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: cfg.Addr(), Handler: srv}
	go listenAndServe(httpServer, cfg.Backend)

	<-ctx.Done()
	return shutdown(httpServer)
}

// buildBackend constructs the single auth backend this process runs with.
// The choice is made once at startup and never revisited per request.
func buildBackend(ctx context.Context, cfg *config.Config) (auth.Backend, func(), error) {
	if cfg.Backend == "hosted" {
		return buildHostedBackend(ctx, cfg)
	}
	return buildSelfHostedBackend(ctx, cfg)
}

func buildHostedBackend(ctx context.Context, cfg *config.Config) (auth.Backend, func(), error) {
	client := hosted.NewClient(cfg.HostedBaseURL, cfg.HostedAPIKey)

	var opts []hosted.BackendOption
	if cfg.OAuthIssuerURL != "" {
		oauthCfg, err := hosted.NewOAuthConfig(ctx, cfg.OAuthIssuerURL, cfg.OAuthClientID, cfg.OAuthClientSecret, cfg.OAuthRedirectURL)
		if err != nil {
			return nil, nil, fmt.Errorf("hosted.NewOAuthConfig: %w", err)
		}
		opts = append(opts, hosted.WithOAuth(oauthCfg))
	}

	backend, err := hosted.New(client, tokenstore.NewMemoryStore(), opts...)
	if err != nil {
		return nil, nil, err
	}
	return backend, func() {}, nil
}

func buildSelfHostedBackend(ctx context.Context, cfg *config.Config) (auth.Backend, func(), error) {
	client, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoPoolSize, cfg.MongoTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("mongodb.Connect: %w", err)
	}
	cleanup := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
	}

	db := client.Database(cfg.MongoDatabase)
	userRepo := usermongo.New(db)
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("EnsureIndexes: %w", err)
	}

	manager := token.New(
		token.NewHMACSigner(cfg.JWTSecret),
		token.WithSessionTTL(cfg.SessionTTL),
		token.WithIssuer(cfg.BaseURL),
	)

	backend, err := selfhosted.New(
		selfhosted.Repos{
			Users:       userRepo,
			Sessions:    sessionmongo.New(db),
			ResetTokens: resetmongo.New(db),
		},
		manager,
		tokenstore.NewMemoryStore(),
		email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom),
		selfhosted.WithResetLinkBase(cfg.BaseURL),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return backend, cleanup, nil
}

func setupLogger(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if env == "local" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func listenAndServe(httpServer *http.Server, backendName string) {
	log.Info().Str("addr", httpServer.Addr).Str("backend", backendName).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
