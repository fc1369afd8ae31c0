package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/nlquery/internal/api"
	"github.com/dbsmedya/nlquery/internal/config"
	"github.com/dbsmedya/nlquery/internal/database"
	"github.com/dbsmedya/nlquery/internal/logger"
	"github.com/dbsmedya/nlquery/internal/ratelimit"
)

var (
	serveListen string
	serveWatch  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve starts the HTTP API and runs until SIGINT or SIGTERM.

Endpoints:
  POST /query    {"question": "...", "db_type": "postgresql|mysql|oracle"}
  GET  /schema   the tables questions are answered from
  GET  /health   service and per-database status (also GET /)
  GET  /ui       a browser form for /query

With --watch the configuration file is reloaded when it changes; the
rate limit is applied immediately, other settings need a restart.

Example:
  nlquery serve --config nlquery.yaml --listen :8000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "",
		"Override the listen address (e.g. :8000)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false,
		"Reload the rate limit when the configuration file changes")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx := database.SetupSignalHandlerWithCallback(func(sig os.Signal) {
		log.Infof("Received %s, shutting down", sig)
	})

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	limiter := ratelimit.NewFromConfig(cfg.RateLimit, log)
	if serveWatch {
		if err := watchRateLimit(limiter, log); err != nil {
			return err
		}
	}

	srv := api.NewServer(api.Options{
		Pipeline:      a.pipeline,
		Health:        a.manager,
		Limiter:       limiter,
		Config:        cfg.Server,
		SweepInterval: cfg.RateLimit.SweepInterval,
		Version:       Version,
		Logger:        log,
	})
	return srv.Serve(ctx)
}

// watchRateLimit applies rate_limit changes from the config file as they are saved.
func watchRateLimit(limiter *ratelimit.Limiter, log *logger.Logger) error {
	path := configPath()
	if path == "" {
		return fmt.Errorf("--watch needs a configuration file")
	}
	_, err := config.Watch(path, func(next *config.Config, err error) {
		if err != nil {
			log.Warnf("Ignoring configuration change: %v", err)
			return
		}
		limiter.SetLimit(next.RateLimit.Requests, next.RateLimit.Window)
		log.Infof("Rate limit now %d requests per %s", next.RateLimit.Requests, next.RateLimit.Window)
	})
	return err
}
