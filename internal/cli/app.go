package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/callaudit/internal/audit"
	"github.com/ppiankov/callaudit/internal/cache"
	"github.com/ppiankov/callaudit/internal/logging"
	"github.com/ppiankov/callaudit/internal/model"
	"github.com/ppiankov/callaudit/internal/pipeline"
	"github.com/ppiankov/callaudit/internal/relay"
	"github.com/ppiankov/callaudit/internal/rules"
	"github.com/ppiankov/callaudit/internal/sentiment"
	"github.com/ppiankov/callaudit/internal/store"
)

// app wires the components a command needs from the effective config
type app struct {
	cfg      *model.Config
	logger   *zap.Logger
	table    *rules.Table
	store    store.Store
	relay    *relay.Dispatcher
	pipeline *pipeline.Pipeline
}

func newApp(cfg *model.Config) (*app, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	table, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	c := cache.New(cfg.Cache)

	scorer, err := sentiment.New(cfg.Sentiment, cfg.HTTP, c)
	if err != nil {
		return nil, err
	}

	auditor, err := audit.New(table, scorer, logger)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	dispatcher := relay.NewDispatcher(relay.NewClient(cfg.Relay), logger)

	p := pipeline.NewPipeline(cfg, auditor,
		pipeline.WithLogger(logger),
		pipeline.WithSink(st),
		pipeline.WithRelay(dispatcher),
		pipeline.WithCache(c),
	)

	logger.Debug("components ready",
		zap.String("rules_version", table.Version()),
		zap.String("rules_hash", table.Hash()),
		zap.String("scorer", scorer.Name()),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("relay", dispatcher != nil),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		table:    table,
		store:    st,
		relay:    dispatcher,
		pipeline: p,
	}, nil
}

// Close drains pending relay deliveries, then closes the store
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.relay.Close(ctx); err != nil {
		a.logger.Warn("relay drain incomplete", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}
