package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nlerner/breslov-rag/internal/avatar"
	"github.com/nlerner/breslov-rag/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and WebSocket chat server",
	Long: `Starts the API server: POST /api/query for questions, GET /api/books
and /api/stats for corpus information, and /ws/chat for the interactive
chat with an optional speaking avatar.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	history, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer history.Close()

	eng, err := newEngine(cmd.Context(), cfg, history)
	if err != nil {
		return err
	}

	var avatarClient *avatar.Client
	if cfg.Avatar.Enabled {
		apiKey := os.Getenv("HEYGEN_API_KEY")
		if apiKey == "" {
			log.Printf("serve: HEYGEN_API_KEY not set, avatar disabled")
		} else {
			avatarClient = avatar.NewClient(apiKey, cfg.Avatar.AvatarID, cfg.Avatar.Voice, cfg.Avatar.Quality)
		}
	}

	srv := server.New(server.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		DefaultTopK:    cfg.Server.TopK,
		RatePerMinute:  cfg.Server.RateLimit.PerMinute,
		RatePerHour:    cfg.Server.RateLimit.PerHour,
	}, eng, avatarClient)

	// Serve until interrupted, then drain connections.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
		log.Println("serve: shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
