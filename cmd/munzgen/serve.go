package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/munzgen/munzgen-agent/internal/api"
	"github.com/munzgen/munzgen-agent/internal/bridge"
	"github.com/munzgen/munzgen-agent/internal/config"
	"github.com/munzgen/munzgen-agent/internal/db"
	"github.com/munzgen/munzgen-agent/internal/events"
	"github.com/munzgen/munzgen-agent/internal/frames"
	"github.com/munzgen/munzgen-agent/internal/genai"
	"github.com/munzgen/munzgen-agent/internal/library"
	"github.com/munzgen/munzgen-agent/internal/logging"
	"github.com/munzgen/munzgen-agent/internal/media"
	"github.com/munzgen/munzgen-agent/internal/settings"
	"github.com/munzgen/munzgen-agent/internal/studio"
	"github.com/munzgen/munzgen-agent/internal/templates"
	"github.com/munzgen/munzgen-agent/internal/ui"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the editor API, event stream and tray",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting munzgen agent", "version", config.Version, "data_dir", cfg.DataDir(), "db", cfg.DBPath())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	authToken, err := ensureAuthToken(ctx, database)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	keys := genai.NewKeyRing(cfg.GenAIAPIKey())
	client := genai.NewHTTPClient(cfg.GenAIBaseURL(), keys, pollOptions(cfg), logger)

	store := media.NewStore(cfg.MediaLimitBytes())
	grabber := frames.NewGrabber(cfg.FFmpegPath(), logger)
	if _, ok := grabber.Available(); !ok {
		logger.Warn("ffmpeg not found, generations will run without a reference frame", "path", cfg.FFmpegPath())
	}

	lib, err := library.New(ctx, database.Conn(), logger)
	if err != nil {
		return fmt.Errorf("failed to open material library: %w", err)
	}
	catalog, err := templates.Load()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	hub := events.NewHub(api.CheckOrigin, logger)
	br := bridge.New(cfg.BridgeURL(), bridge.NewHTTPProber(cfg.BridgeURL()), logger)

	st := studio.New(studio.Deps{
		Client:    client,
		Keys:      keys,
		Media:     store,
		Frames:    grabber,
		Library:   lib,
		Templates: catalog,
		Bridge:    br,
		Jobs:      studio.NewJobRepository(database.Conn()),
		Publisher: hub,
		Logger:    logger,
	})
	hub.SetSnapshot(func() any { return st.Session().Snapshot() })

	settingsSvc, err := settings.New(database, keys, settings.NewCachedProbe(settings.SystemProber{}, logger), grabber.Available, logger)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		Studio:         st,
		Settings:       settingsSvc,
		Tokens:         database,
		Hub:            hub,
		MediaServer:    media.NewServer(store, logger),
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Logger:         logger,
		StartTime:      startTime,
		Version:        config.Version,
	})

	printBanner(os.Stdout, apiServer.URL(), authToken, keys.Source())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return st.Run(gctx)
	})
	g.Go(func() error {
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var tray *ui.Tray
	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray = ui.NewTray(ui.TrayConfig{
			Studio:    st,
			EditorURL: editorLink(cfg.EditorURL(), apiServer.URL(), authToken),
			Logger:    logger,
			OnQuit:    stop,
		})
		go tray.Run()
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Hijacked websocket connections are not closed by Shutdown.
		hub.Close()
		if tray != nil {
			tray.Quit()
		}
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown HTTP server", "error", err)
		}
		return nil
	})

	err = g.Wait()
	if err != nil {
		logger.Error("agent stopped with error", "error", err)
	}
	logger.Info("shutdown complete")
	return err
}

func pollOptions(cfg config.Config) genai.PollOptions {
	return genai.PollOptions{
		Interval:    cfg.PollInterval(),
		Timeout:     cfg.PollTimeout(),
		MaxAttempts: cfg.PollMaxAttempts(),
	}
}

type configStore interface {
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

func ensureAuthToken(ctx context.Context, store configStore) (string, error) {
	existing, err := store.GetConfig(ctx, api.AuthTokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := store.SetConfig(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}

	return token, nil
}

// editorLink points the front end at this agent and hands it the token.
func editorLink(editorURL, apiURL, token string) string {
	if editorURL == "" {
		return ""
	}
	u, err := url.Parse(editorURL)
	if err != nil {
		return editorURL
	}
	q := u.Query()
	q.Set("agent", apiURL)
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

const bannerWidth = 59

func printBanner(w io.Writer, apiURL, token, keySource string) {
	title := "MUNZGEN AGENT v" + config.Version
	left := (bannerWidth - len(title)) / 2

	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔"+strings.Repeat("═", bannerWidth)+"╗")
	fmt.Fprintf(w, "║%s%-*s║\n", strings.Repeat(" ", left), bannerWidth-left, title)
	fmt.Fprintln(w, "╠"+strings.Repeat("═", bannerWidth)+"╣")
	fmt.Fprintf(w, "║  API URL:    %-44s ║\n", apiURL)
	fmt.Fprintf(w, "║  Auth Token: %-44s ║\n", token)
	fmt.Fprintf(w, "║  API Key:    %-44s ║\n", keySource)
	fmt.Fprintln(w, "╚"+strings.Repeat("═", bannerWidth)+"╝")
	fmt.Fprintln(w)
}
