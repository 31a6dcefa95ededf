// Package scanner orchestrates the discovery cycle: walk the source catalog,
// drop duplicates, classify what remains, persist it, and hand it to the
// delivery scheduler.
package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pawprint/leakwatch/internal/catalog"
	"github.com/pawprint/leakwatch/internal/classify"
	"github.com/pawprint/leakwatch/internal/dedup"
	"github.com/pawprint/leakwatch/internal/model"
	"github.com/pawprint/leakwatch/internal/notify"
	"github.com/pawprint/leakwatch/internal/store"
)

// Collector fetches candidate items for one source.
type Collector interface {
	Collect(ctx context.Context, src model.SourceDescriptor) ([]model.Item, error)
}

// Runner drives discovery cycles. At most one cycle runs at a time: a cycle
// started while another is in flight returns immediately with Skipped set.
type Runner struct {
	cat        *catalog.Catalog
	collector  Collector
	dedup      *dedup.Store
	classifier *classify.Classifier
	scheduler  *notify.Scheduler
	store      store.Store

	running atomic.Bool

	mu         sync.Mutex
	lastResult *model.CycleResult
	recordIDs  map[string]string
}

// NewRunner wires the pipeline stages together. The scheduler's delivery
// hook is claimed by the runner so message IDs land back on stored records.
func NewRunner(
	cat *catalog.Catalog,
	col Collector,
	dd *dedup.Store,
	cls *classify.Classifier,
	sched *notify.Scheduler,
	st store.Store,
) *Runner {
	r := &Runner{
		cat:        cat,
		collector:  col,
		dedup:      dd,
		classifier: cls,
		scheduler:  sched,
		store:      st,
		recordIDs:  make(map[string]string),
	}
	sched.OnDelivered = r.onDelivered
	return r
}

// Running reports whether a cycle is currently in flight.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// LastResult returns the most recent completed cycle summary, or nil before
// the first cycle finishes.
func (r *Runner) LastResult() *model.CycleResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastResult
}

// RunCycle executes one discovery cycle. A source failure is confined to
// that source; the cycle continues with the rest of the catalog.
func (r *Runner) RunCycle(ctx context.Context) (*model.CycleResult, error) {
	if !r.running.CompareAndSwap(false, true) {
		zap.L().Info("discovery cycle already running, skipping")
		r.log(ctx, model.EventScanSkipped, "cycle skipped: previous cycle still running", nil)
		return &model.CycleResult{Skipped: true}, nil
	}
	defer r.running.Store(false)

	result := &model.CycleResult{StartedAt: time.Now().UTC()}
	var classified []model.ClassifiedItem

	for _, src := range r.cat.Sources() {
		sr := model.SourceResult{Source: src}

		items, err := r.collector.Collect(ctx, src)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			sr.Error = err.Error()
			result.Sources = append(result.Sources, sr)
			zap.L().Warn("source failed",
				zap.String("source", src.DisplayName),
				zap.String("kind", string(src.Kind)),
				zap.Error(err),
			)
			r.log(ctx, model.EventError, "source failed: "+src.DisplayName, map[string]any{
				"source_id": src.ID,
				"kind":      string(src.Kind),
				"error":     err.Error(),
			})
			continue
		}

		for _, item := range items {
			if r.dedup.Seen(item) {
				sr.Duplicates++
				continue
			}
			// The in-memory window resets on restart; the store is the
			// durable backstop against re-notifying recorded items.
			known, err := r.store.IsKnownAsset(ctx, item.SourceType, item.ExternalID)
			if err != nil {
				zap.L().Warn("known-asset lookup failed",
					zap.String("external_id", item.ExternalID),
					zap.Error(err),
				)
			} else if known {
				sr.Duplicates++
				continue
			}
			ci, err := r.classifier.Classify(item)
			if err != nil {
				zap.L().Debug("item rejected by classifier",
					zap.String("external_id", item.ExternalID),
					zap.Error(err),
				)
				continue
			}
			classified = append(classified, ci)
			sr.ItemsFound++
		}

		result.Sources = append(result.Sources, sr)
		result.ItemsFound += sr.ItemsFound
		result.Duplicates += sr.Duplicates
	}

	// Persist before delivery so every notification references a stored row.
	records, err := r.store.RecordItems(ctx, classified)
	if err != nil {
		zap.L().Error("failed to persist cycle items", zap.Error(err))
		r.log(ctx, model.EventError, "persist failed", map[string]any{"error": err.Error()})
	} else {
		r.mu.Lock()
		for _, rec := range records {
			r.recordIDs[rec.Fingerprint()] = rec.ID
		}
		r.mu.Unlock()
	}

	for _, ci := range classified {
		if err := r.scheduler.Submit(ctx, ci); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			zap.L().Warn("delivery submit failed",
				zap.String("name", ci.Name),
				zap.Error(err),
			)
		}
	}

	result.FinishedAt = time.Now().UTC()

	if err := r.store.SetSetting(ctx, store.SettingLastCycleAt, result.FinishedAt.Format(time.RFC3339)); err != nil {
		zap.L().Warn("failed to record cycle timestamp", zap.Error(err))
	}
	r.log(ctx, model.EventScan, "discovery cycle complete", map[string]any{
		"items_found": result.ItemsFound,
		"duplicates":  result.Duplicates,
		"sources":     len(result.Sources),
		"duration_ms": result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	})

	zap.L().Info("discovery cycle complete",
		zap.Int("items_found", result.ItemsFound),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("sources", len(result.Sources)),
		zap.Duration("took", result.FinishedAt.Sub(result.StartedAt)),
	)

	r.mu.Lock()
	r.lastResult = result
	r.mu.Unlock()
	return result, nil
}

// Watch runs discovery cycles on the configured cadence until the context is
// canceled. Batch flushes and offline replay ride a faster tick so tier-1
// items never wait a full scan interval.
func (r *Runner) Watch(ctx context.Context, scanInterval time.Duration) error {
	if _, err := r.RunCycle(ctx); err != nil {
		return err
	}

	scanTicker := time.NewTicker(scanInterval)
	defer scanTicker.Stop()
	flushTicker := time.NewTicker(30 * time.Second)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-scanTicker.C:
			if _, err := r.RunCycle(ctx); err != nil {
				return err
			}
		case <-flushTicker.C:
			r.scheduler.FlushOffline(ctx)
			if err := r.scheduler.MaybeFlushBatch(ctx); err != nil {
				zap.L().Warn("batch flush failed", zap.Error(err))
			}
		}
	}
}

func (r *Runner) onDelivered(item model.ClassifiedItem, messageID string) {
	ctx := context.Background()

	r.mu.Lock()
	id, ok := r.recordIDs[item.Fingerprint()]
	if ok {
		delete(r.recordIDs, item.Fingerprint())
	}
	r.mu.Unlock()

	if ok {
		if err := r.store.UpdateDelivery(ctx, id, messageID); err != nil {
			zap.L().Warn("failed to attach message id",
				zap.String("record_id", id),
				zap.Error(err),
			)
		}
	}

	event := model.EventNotify
	if item.Tier != 1 {
		event = model.EventBatchNotify
	}
	r.log(ctx, event, "delivered: "+item.Name, map[string]any{
		"tier":       item.Tier,
		"message_id": messageID,
	})
}

func (r *Runner) log(ctx context.Context, event model.EventType, msg string, meta map[string]any) {
	entry := model.LogEntry{EventType: event, Message: msg, Metadata: meta}
	if err := r.store.CreateLog(ctx, entry); err != nil {
		zap.L().Debug("log write failed", zap.Error(err))
	}
}
