package cmd

import (
	"context"
	"fmt"

	"github.com/dbsmedya/nlquery/internal/config"
	"github.com/dbsmedya/nlquery/internal/database"
	"github.com/dbsmedya/nlquery/internal/llm"
	"github.com/dbsmedya/nlquery/internal/logger"
	"github.com/dbsmedya/nlquery/internal/mockdb"
	"github.com/dbsmedya/nlquery/internal/pipeline"
)

// app holds the collaborators shared by serve and ask.
type app struct {
	manager  *database.Manager
	mock     *mockdb.Responder
	pipeline *pipeline.Pipeline
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{manager: database.NewManager(cfg, log)}
	if err := a.manager.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to databases: %w", err)
	}
	opts.Live = a.manager
	opts.Logger = log

	if gen := llm.NewOpenAI(cfg.LLM, log); gen != nil {
		opts.Generator = gen
		log.Infof("SQL generation via model %s", cfg.LLM.Model)
	} else {
		log.Info("No model configured, using keyword rules")
	}

	if cfg.Query.MockFallback {
		a.mock, err = mockdb.Open(ctx, mockdb.Options{MaxRows: cfg.Query.MaxRows, Logger: log})
		if err != nil {
			_ = a.manager.Close()
			return nil, fmt.Errorf("failed to open mock dataset: %w", err)
		}
		opts.Mock = a.mock
	}

	a.pipeline = pipeline.New(opts)
	return a, nil
}

func (a *app) Close() {
	if a.mock != nil {
		_ = a.mock.Close()
	}
	_ = a.manager.Close()
}
