package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/korjavin/cookalong/pkg/api"
	"github.com/korjavin/cookalong/pkg/config"
	"github.com/korjavin/cookalong/pkg/control"
	"github.com/korjavin/cookalong/pkg/logger"
	"github.com/korjavin/cookalong/pkg/openai"
	"github.com/korjavin/cookalong/pkg/planner"
	"github.com/korjavin/cookalong/pkg/recipes"
	"github.com/korjavin/cookalong/pkg/scheduler"
	"github.com/korjavin/cookalong/pkg/state"
	"github.com/korjavin/cookalong/pkg/stats"
	"github.com/korjavin/cookalong/pkg/storage"
	"github.com/korjavin/cookalong/pkg/telegram"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Global.Error("%v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	serveFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Load configuration from this file before reading the environment",
			Value: ".env",
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "Override PORT",
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "Override DATA_DIR",
		},
	}

	return &cli.App{
		Name:      "cookalong",
		Usage:     "Keep time while cooking several recipes at once",
		UsageText: "cookalong [COMMAND] [OPTIONS]",
		Flags:     serveFlags,
		Action:    serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (and the Telegram bot when configured)",
				Flags:  serveFlags,
				Action: serve,
			},
			{
				Name:      "plan",
				Usage:     "Print a back-to-back schedule for recipes in a YAML file",
				UsageText: "cookalong plan --file recipes.yaml [--recipe id ...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "YAML recipe file",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:    "recipe",
						Aliases: []string{"r"},
						Usage:   "Recipe ids to plan, in order (default: every recipe in the file)",
					},
				},
				Action: plan,
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	if cfg.LogFile != "" {
		rotator := logger.RotateTo(cfg.LogFile, 10, 5)
		defer rotator.Close()
	}
	log := logger.Global
	log.Info("Starting cookalong...")

	// Initialize storage
	store, err := storage.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	// Initialize services
	recipeService := recipes.New(store)
	if cfg.RecipesFile != "" {
		if _, err := recipeService.LoadFile(cfg.RecipesFile); err != nil {
			return err
		}
	}

	var generator planner.Generator
	if cfg.OpenAIAPIKey != "" {
		generator = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIAPIBase, cfg.OpenAIModel)
	} else {
		log.Warn("OPENAI_API_KEY not set, previews use back-to-back schedules")
	}
	previews := planner.NewPreviewService(store, recipeService, generator)
	statsService := stats.New(store)

	registry := state.New()
	sessions := control.New(registry,
		control.WithTickInterval(cfg.TickInterval),
		control.WithFreezeElapsedOnEnd(cfg.FreezeElapsedOnEnd),
	)
	sessions.OnStarted(statsService.RecordStarted)
	sessions.OnEnded(statsService.RecordFinished)

	// Background jobs
	jobs := scheduler.New(sessions, store, cfg.SessionTTL, cfg.JanitorInterval, cfg.GCInterval)
	jobs.Start()
	defer jobs.Stop()

	// Telegram bot
	if cfg.BotToken != "" {
		bot, err := telegram.New(cfg.BotToken)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}
		handlers := telegram.NewHandlers(bot, sessions, previews)
		go bot.Start(handlers.Commands(), handlers.Callbacks())
		defer func() {
			bot.Stop()
			handlers.Close()
		}()
	}

	// Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := newHTTPServer(addr, api.NewRouter(sessions, recipeService, previews, statsService, cfg.APIKey))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown error: %v", err)
	}

	log.Info("Server stopped")
	return nil
}

// newHTTPServer builds the API server. Request contexts are cancelled as soon
// as Shutdown starts, so live session streams end instead of holding it open.
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	baseCtx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancel)
	return srv
}

func plan(c *cli.Context) error {
	list, err := recipes.ParseFile(c.String("file"))
	if err != nil {
		return err
	}

	if ids := c.StringSlice("recipe"); len(ids) > 0 {
		byID := make(map[string]int, len(list))
		for i, recipe := range list {
			byID[recipe.ID] = i
		}
		selected := list[:0:0]
		for _, id := range ids {
			i, ok := byID[id]
			if !ok {
				return fmt.Errorf("recipe %q is not in %s", id, c.String("file"))
			}
			selected = append(selected, list[i])
		}
		list = selected
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(planner.Linear(list))
}
