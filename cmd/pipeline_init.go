package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pawprint/leakwatch/internal/catalog"
	"github.com/pawprint/leakwatch/internal/classify"
	"github.com/pawprint/leakwatch/internal/collector"
	"github.com/pawprint/leakwatch/internal/dedup"
	"github.com/pawprint/leakwatch/internal/fetcher"
	"github.com/pawprint/leakwatch/internal/notify"
	"github.com/pawprint/leakwatch/internal/scanner"
	"github.com/pawprint/leakwatch/internal/store"
)

// pipelineEnv holds the initialized store, scheduler, and runner needed by
// the scan/watch/serve commands.
type pipelineEnv struct {
	Store     store.Store
	Scheduler *notify.Scheduler
	Runner    *scanner.Runner
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, source catalog, HTTP client, classifier,
// and delivery scheduler, and wires them into a Runner. Callers should
// defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load source catalog")
	}
	zap.L().Info("source catalog loaded",
		zap.String("game", cat.GameName),
		zap.Int("developers", len(cat.Developers)),
		zap.Int("groups", len(cat.Groups)),
		zap.Int("keywords", len(cat.Keywords)),
	)

	client := fetcher.New(fetcher.Options{
		UserAgent:        cfg.Fetcher.UserAgent,
		Timeout:          cfg.Fetcher.Timeout(),
		MaxRetries:       cfg.Fetcher.MaxRetries,
		BaseBackoff:      cfg.Fetcher.BaseBackoff(),
		MaxBackoff:       cfg.Fetcher.MaxBackoff(),
		RotateUserAgents: cfg.Bypass.Enabled,
	})

	rules := classify.DefaultRuleset()
	if cfg.Classify.VerifiedThreshold > 0 {
		rules.VerifiedThreshold = cfg.Classify.VerifiedThreshold
	}
	classifier := classify.New(rules, cat.GameID, cat.IsKnownDeveloper)

	var notifier notify.Notifier
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhook(cfg.Notify.WebhookURL)
	} else {
		zap.L().Warn("no webhook configured, notifications will be logged only")
		notifier = notify.NewLogNotifier()
	}

	scheduler := notify.NewScheduler(notifier, notify.SchedulerOptions{
		ChannelID:      cfg.Notify.ChannelID,
		BatchInterval:  cfg.Scan.BatchInterval(),
		ImmediateTries: cfg.Notify.ImmediateRetries,
		ImmediateDelay: cfg.Notify.ImmediateDelay(),
	})

	runner := scanner.NewRunner(
		cat,
		collector.New(client, cat),
		dedup.New(cfg.Scan.DedupWindow()),
		classifier,
		scheduler,
		st,
	)

	return &pipelineEnv{
		Store:     st,
		Scheduler: scheduler,
		Runner:    runner,
	}, nil
}
