package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/justinabrahms/deskchess/internal/archive"
	"github.com/justinabrahms/deskchess/internal/auth"
	"github.com/justinabrahms/deskchess/internal/config"
	"github.com/justinabrahms/deskchess/internal/web"
)

func main() {
	var (
		showHelp   bool
		configPath string
	)
	flag.BoolVar(&showHelp, "help", false, "Show help information")
	flag.BoolVar(&showHelp, "h", false, "Show help information")
	flag.StringVar(&configPath, "config", "", "Path to a config file")
	flag.Parse()

	if showHelp {
		showHelpMessage()
		return
	}

	// Setup logging
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Development.Level())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := archive.Open(ctx, cfg.Archive)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Archive.Driver).Msg("Failed to open archive")
	}
	defer store.Close()

	secret := []byte(cfg.Auth.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			log.Fatal().Err(err).Msg("Failed to generate seat token secret")
		}
		log.Warn().Msg("auth.secret not set, seat tokens will not survive a restart")
	}
	issuer, err := auth.NewIssuer(secret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token issuer")
	}

	hub := web.NewHub()
	go hub.Run(ctx)

	service := web.NewService(cfg.Game, issuer, store, hub)
	go service.Run(ctx, 250*time.Millisecond, 24*time.Hour)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      service.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		log.Info().Str("addr", srv.Addr).Str("archive", cfg.Archive.Driver).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	cancel()

	log.Info().Msg("Server exited")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func showHelpMessage() {
	fmt.Println(`deskchess server

DESCRIPTION:
    Hosts two-player chess games over HTTP. Each game hands out one seat
    token per side; moves are only accepted from the side to move.
    Watchers follow a game over a websocket. Finished games are archived.

USAGE:
    chess-server [OPTIONS]

OPTIONS:
    -h, --help       Show this help message
    -config PATH     Read configuration from PATH instead of config.yaml

CONFIGURATION:
    config.yaml is looked up in the current directory and ./config.
    Every key can be overridden with a DESKCHESS_ environment variable,
    e.g. DESKCHESS_SERVER_PORT=9000.

    Example config.yaml:
        server:
          host: localhost
          port: 8080
        game:
          clock_initial: 10m
          clock_increment: 5s
        auth:
          secret: "change-me-to-32-random-bytes"
          token_ttl: 24h
        archive:
          driver: postgres      # or memory
          dsn: postgres://localhost/deskchess?sslmode=disable
        development:
          log_level: debug

API ENDPOINTS:
    GET  /api/health                      - Service health check
    POST /api/games                       - Create a game, returns seat tokens
    GET  /api/games                       - List live games
    POST /api/games/import                - Start a game from PGN or a save file
    GET  /api/games/{id}                  - Game state
    GET  /api/games/{id}/moves?from=e2    - Legal targets of a piece
    POST /api/games/{id}/moves            - Play a move (seat token)
    POST /api/games/{id}/promotion        - Choose a promotion piece (seat token)
    POST /api/games/{id}/back             - Take back the last move (seat token)
    POST /api/games/{id}/resign           - Resign (seat token)
    GET  /api/games/{id}/pgn              - PGN export
    GET  /api/games/{id}/save             - Binary save file
    GET  /api/archive                     - Recently finished games
    GET  /api/archive/{id}                - One finished game
    GET  /ws?gameId={id}                  - Websocket event stream

EXAMPLES:
    curl -X POST http://localhost:8080/api/games \
      -H "Content-Type: application/json" \
      -d '{"white": "Alice", "black": "Bob", "clock": {"initial": "5m"}}'

    curl -X POST http://localhost:8080/api/games/$ID/moves \
      -H "Authorization: Bearer $WHITE_TOKEN" \
      -d '{"move": "e2e4"}'`)
}
