package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Rajput-xv/room-T-D/internal/content"
	"github.com/Rajput-xv/room-T-D/internal/game"
	"github.com/Rajput-xv/room-T-D/internal/logging"
	"github.com/Rajput-xv/room-T-D/internal/presence"
	"github.com/Rajput-xv/room-T-D/internal/server"
	"github.com/Rajput-xv/room-T-D/internal/signaling"
	"github.com/Rajput-xv/room-T-D/internal/store"
)

func main() {
	_ = godotenv.Load()
	logging.Init()

	cfg := &server.Config{}
	cmd := &cobra.Command{
		Use:           "roomtd-server",
		Short:         "Multiplayer truth-or-dare game server",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cfg.BindFlags(cmd.Flags())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *server.Config) error {
	roomStore, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// Room state does not outlive the server process; clear anything a
	// previous run left behind.
	if n, err := roomStore.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear stale rooms: %w", err)
	} else if n > 0 {
		slog.Info("cleared stale rooms from previous run", "count", n)
	}

	catalog := content.Load(cfg.TruthsFile, cfg.DaresFile)
	truths, dares := catalog.Counts()
	slog.Info("content catalog loaded", "truths", truths, "dares", dares)

	registry := game.NewRegistry(roomStore, catalog)
	hub := signaling.NewHub(registry)
	monitor := presence.NewMonitor(registry, hub)

	go hub.Run(ctx)
	go monitor.Run(ctx)

	return server.New(cfg, registry, catalog, hub).Run(ctx)
}

// openStore picks postgres when a database URL is configured and falls back
// to the in-memory store otherwise.
func openStore(ctx context.Context, cfg *server.Config) (game.RoomStore, func(), error) {
	if cfg.DatabaseURL == "" {
		slog.Info("using in-memory room store")
		return store.NewMemory(), func() {}, nil
	}
	pg, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("using postgres room store")
	return pg, pg.Close, nil
}
