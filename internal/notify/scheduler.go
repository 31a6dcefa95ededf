package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawprint/leakwatch/internal/model"
)

// SchedulerOptions tunes delivery behavior.
type SchedulerOptions struct {
	ChannelID      string
	BatchInterval  time.Duration
	ImmediateTries int
	ImmediateDelay time.Duration
}

// Scheduler routes classified items: tier 1 goes out immediately (with a
// bounded retry and an offline-replay queue), tiers 2 and 3 accumulate into a
// batch that flushes as one grouped summary per interval. The batch is
// flushed atomically: either the summary is sent and the queue cleared, or
// the queue is left intact for the next tick.
type Scheduler struct {
	notifier Notifier
	opts     SchedulerOptions

	mu         sync.Mutex
	batch      []model.ClassifiedItem
	batchStart time.Time
	offline    []model.ClassifiedItem

	// actions maps an action custom ID to the items it resolves to. One
	// outstanding batch per category: a new flush supersedes the previous
	// mapping for each category it contains.
	actions        map[string][]model.ClassifiedItem
	categoryAction map[string]string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	// OnDelivered, when set, is called after each successful immediate or
	// batch send so the caller can persist delivery records.
	OnDelivered func(item model.ClassifiedItem, messageID string)
}

// NewScheduler creates a Scheduler.
func NewScheduler(notifier Notifier, opts SchedulerOptions) *Scheduler {
	if opts.BatchInterval <= 0 {
		opts.BatchInterval = 5 * time.Minute
	}
	if opts.ImmediateTries <= 0 {
		opts.ImmediateTries = 3
	}
	if opts.ImmediateDelay <= 0 {
		opts.ImmediateDelay = 3 * time.Second
	}
	return &Scheduler{
		notifier:       notifier,
		opts:           opts,
		batchStart:     time.Now(),
		actions:        make(map[string][]model.ClassifiedItem),
		categoryAction: make(map[string]string),
		now:            time.Now,
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
}

// Submit routes one classified item.
func (s *Scheduler) Submit(ctx context.Context, item model.ClassifiedItem) error {
	if item.Tier == 1 {
		return s.deliverImmediate(ctx, item)
	}

	s.mu.Lock()
	// The batch window opens when the first item lands in an empty queue, so
	// an idle stretch does not count against the next batch.
	if len(s.batch) == 0 {
		s.batchStart = s.now()
	}
	s.batch = append(s.batch, item)
	size := len(s.batch)
	s.mu.Unlock()

	zap.L().Debug("item added to batch queue",
		zap.String("name", item.Name),
		zap.Int("tier", item.Tier),
		zap.Int("batch_size", size),
	)
	return nil
}

func (s *Scheduler) deliverImmediate(ctx context.Context, item model.ClassifiedItem) error {
	msg := buildMessage(s.opts.ChannelID, item)

	for attempt := 0; attempt < s.opts.ImmediateTries; attempt++ {
		if !s.notifier.Ready() {
			zap.L().Warn("channel not ready, retrying delivery",
				zap.String("name", item.Name),
				zap.Int("attempt", attempt+1),
			)
			if err := s.sleep(ctx, s.opts.ImmediateDelay); err != nil {
				return err
			}
			continue
		}

		messageID, err := s.notifier.SendImmediate(ctx, msg)
		if err != nil {
			zap.L().Warn("immediate delivery failed",
				zap.String("name", item.Name),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			if serr := s.sleep(ctx, s.opts.ImmediateDelay); serr != nil {
				return serr
			}
			continue
		}

		if s.OnDelivered != nil {
			s.OnDelivered(item, messageID)
		}
		return nil
	}

	// Channel unavailable: keep the item for replay once connectivity returns.
	s.mu.Lock()
	s.offline = append(s.offline, item)
	queued := len(s.offline)
	s.mu.Unlock()

	zap.L().Info("channel offline, queued item for replay",
		zap.String("name", item.Name),
		zap.Int("offline_queue", queued),
	)
	return nil
}

// FlushOffline replays queued tier-1 items once the channel is reachable.
// Items that still fail stay queued.
func (s *Scheduler) FlushOffline(ctx context.Context) {
	if !s.notifier.Ready() {
		return
	}

	s.mu.Lock()
	pending := s.offline
	s.offline = nil
	s.mu.Unlock()

	var remaining []model.ClassifiedItem
	for _, item := range pending {
		messageID, err := s.notifier.SendImmediate(ctx, buildMessage(s.opts.ChannelID, item))
		if err != nil {
			remaining = append(remaining, item)
			continue
		}
		if s.OnDelivered != nil {
			s.OnDelivered(item, messageID)
		}
	}

	if len(remaining) > 0 {
		s.mu.Lock()
		s.offline = append(remaining, s.offline...)
		s.mu.Unlock()
	} else if len(pending) > 0 {
		zap.L().Info("offline queue replayed", zap.Int("count", len(pending)))
	}
}

// OfflineLen returns the offline-replay queue depth.
func (s *Scheduler) OfflineLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.offline)
}

// BatchLen returns the current batch queue depth.
func (s *Scheduler) BatchLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batch)
}

// MaybeFlushBatch flushes when the batch window, measured from the first
// queued item, has elapsed. Called on every scheduler tick.
func (s *Scheduler) MaybeFlushBatch(ctx context.Context) error {
	s.mu.Lock()
	due := s.now().Sub(s.batchStart) >= s.opts.BatchInterval && len(s.batch) > 0
	s.mu.Unlock()

	if !due {
		return nil
	}
	return s.FlushBatch(ctx)
}

// FlushBatch sends the accumulated lower-tier items as one grouped summary.
// On send failure the queue is left intact so nothing is lost.
func (s *Scheduler) FlushBatch(ctx context.Context) error {
	s.mu.Lock()
	if len(s.batch) == 0 {
		s.mu.Unlock()
		return nil
	}
	pending := make([]model.ClassifiedItem, len(s.batch))
	copy(pending, s.batch)
	s.mu.Unlock()

	// Defensive second dedup pass: the same fingerprint may have been
	// submitted by different sources within one window.
	seen := make(map[string]struct{}, len(pending))
	unique := pending[:0]
	for _, item := range pending {
		fp := item.Fingerprint()
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		unique = append(unique, item)
	}

	byCategory := make(map[string][]model.ClassifiedItem)
	counts := make(map[string]int)
	tier2, tier3 := 0, 0
	for _, item := range unique {
		category := Categorize(item.Item)
		byCategory[category] = append(byCategory[category], item)
		counts[category]++
		switch item.Tier {
		case 2:
			tier2++
		case 3:
			tier3++
		}
	}

	batchID := "batch_" + uuid.NewString()

	var actions []Action
	for _, category := range categoryOrder {
		if counts[category] == 0 {
			continue
		}
		actions = append(actions, Action{
			ID:    fmt.Sprintf("view_category_%s_%s", category, batchID),
			Label: CategoryLabel(category),
			Emoji: categoryEmoji[category],
		})
	}
	actions = append(actions,
		Action{ID: "view_all_" + batchID, Label: "View All", Emoji: "👁️", Style: "success"},
		Action{ID: "dismiss_" + batchID, Label: "Dismiss", Emoji: "❌", Style: "secondary"},
	)

	summary := BatchSummary{
		ChannelID:      s.opts.ChannelID,
		BatchID:        batchID,
		Total:          len(unique),
		CategoryCounts: counts,
		Tier2Count:     tier2,
		Tier3Count:     tier3,
		Actions:        actions,
	}

	if !s.notifier.Ready() {
		zap.L().Info("channel offline, keeping batch for next tick",
			zap.Int("batch_size", len(unique)),
		)
		return nil
	}

	messageID, err := s.notifier.SendBatchSummary(ctx, summary)
	if err != nil {
		zap.L().Warn("batch summary send failed, keeping queue",
			zap.Int("batch_size", len(unique)),
			zap.Error(err),
		)
		return err
	}

	s.mu.Lock()
	// Supersede the previous batch mapping for each category present in this
	// flush, then record the new ones.
	for category, items := range byCategory {
		if old, ok := s.categoryAction[category]; ok {
			delete(s.actions, old)
		}
		actionID := fmt.Sprintf("view_category_%s_%s", category, batchID)
		s.actions[actionID] = items
		s.categoryAction[category] = actionID
	}
	s.actions["view_all_"+batchID] = unique
	// Drop only the snapshotted prefix. Items submitted while the send was in
	// flight stay queued for the next tick.
	n := len(pending)
	if n > len(s.batch) {
		n = len(s.batch)
	}
	s.batch = s.batch[n:]
	s.batchStart = s.now()
	s.mu.Unlock()

	if s.OnDelivered != nil {
		for _, item := range unique {
			s.OnDelivered(item, messageID)
		}
	}

	zap.L().Info("batch summary sent",
		zap.String("batch_id", batchID),
		zap.Int("total", len(unique)),
		zap.Int("tier2", tier2),
		zap.Int("tier3", tier3),
	)
	return nil
}

// Resolve returns the item list behind an action custom ID, for the
// interaction handler. The boolean is false when the batch was superseded.
func (s *Scheduler) Resolve(actionID string) ([]model.ClassifiedItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.actions[actionID]
	return items, ok
}

// buildMessage renders a classified item as an immediate notification.
func buildMessage(channelID string, item model.ClassifiedItem) Message {
	fields := []Field{
		{Name: "Type", Value: string(item.SourceType), Inline: true},
		{Name: "Confidence", Value: fmt.Sprintf("%d%%", item.Confidence), Inline: true},
	}
	if item.CreatorName != "" {
		fields = append(fields, Field{Name: "Creator", Value: item.CreatorName, Inline: true})
	}
	return Message{
		ChannelID:    channelID,
		Title:        item.Name,
		Description:  item.Description,
		Tier:         item.Tier,
		ThumbnailURL: item.ThumbnailURL,
		Fields:       fields,
	}
}
