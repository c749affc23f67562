package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/meikuraledutech/paramgraph"
	"github.com/meikuraledutech/paramgraph/internal/config"
	"github.com/meikuraledutech/paramgraph/memstore"
	"github.com/meikuraledutech/paramgraph/postgres"
)

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewDefaultConfig()
	// The default config path is optional; an explicit one must exist.
	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil || cmd.IsSet("config") {
		if err := config.Load(path, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Postgres.URL = url
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "paramgraph",
		Level:      cfg.App.Level(),
		JSONFormat: cmd.Bool("json-logs"),
	})

	var store paramgraph.Store
	if cfg.Postgres.Enabled() {
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
		logger.Info("using postgres store")
	} else {
		store = memstore.New()
		logger.Info("DATABASE_URL is not set, using in-memory store")
	}

	compiler := paramgraph.NewCompiler(
		paramgraph.WithConstants(cfg.Compiler.Constants()),
		paramgraph.WithLogger(logger.Named("compiler")),
	)

	app := newApp(store, compiler, logger.Named("http"))
	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	logger.Info("listening", "address", cfg.App.HTTP.Address())
	if err := app.Listen(cfg.App.HTTP.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "paramgraph-server",
		Usage:  "Inspect, analyse and compile particle script graphs over HTTP",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "json-logs",
				Usage: "Write logs as JSON",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		hclog.Default().Error("application error", "error", err)
		os.Exit(1)
	}
}
