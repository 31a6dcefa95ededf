package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawprint/leakwatch/internal/model"
)

// fakeNotifier records sends and can be toggled offline or made to fail.
type fakeNotifier struct {
	mu        sync.Mutex
	ready     bool
	failSends int

	immediate []Message
	batches   []BatchSummary
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ready: true}
}

func (f *fakeNotifier) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeNotifier) setReady(ready bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = ready
}

func (f *fakeNotifier) SendImmediate(ctx context.Context, msg Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSends > 0 {
		f.failSends--
		return "", fmt.Errorf("send failed")
	}
	f.immediate = append(f.immediate, msg)
	return fmt.Sprintf("msg-%d", len(f.immediate)), nil
}

func (f *fakeNotifier) SendBatchSummary(ctx context.Context, summary BatchSummary) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSends > 0 {
		f.failSends--
		return "", fmt.Errorf("send failed")
	}
	f.batches = append(f.batches, summary)
	return fmt.Sprintf("batch-msg-%d", len(f.batches)), nil
}

func newTestScheduler(n Notifier) *Scheduler {
	s := NewScheduler(n, SchedulerOptions{
		ChannelID:      "chan-1",
		BatchInterval:  5 * time.Minute,
		ImmediateTries: 3,
		ImmediateDelay: time.Millisecond,
	})
	s.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return s
}

func tierItem(name string, tier int) model.ClassifiedItem {
	return model.ClassifiedItem{
		Item: model.Item{
			SourceType: model.SourceTypeAsset,
			ExternalID: name,
			Name:       name,
			ChangeKind: model.ChangeKindAdded,
		},
		Classification: model.Classification{Tier: tier},
	}
}

func TestSubmit_TierOneGoesOutImmediately(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)

	var deliveredID string
	s.OnDelivered = func(item model.ClassifiedItem, messageID string) {
		deliveredID = messageID
	}

	require.NoError(t, s.Submit(context.Background(), tierItem("Huge Dragon Pet", 1)))

	require.Len(t, n.immediate, 1)
	assert.Equal(t, "Huge Dragon Pet", n.immediate[0].Title)
	assert.Equal(t, "chan-1", n.immediate[0].ChannelID)
	assert.Equal(t, "msg-1", deliveredID)
	assert.Equal(t, 0, s.BatchLen())
}

func TestSubmit_LowerTiersQueue(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)

	require.NoError(t, s.Submit(context.Background(), tierItem("mesh_a", 2)))
	require.NoError(t, s.Submit(context.Background(), tierItem("misc_b", 3)))

	assert.Empty(t, n.immediate)
	assert.Equal(t, 2, s.BatchLen())
}

func TestSubmit_TierOneRetriesThenOfflineQueue(t *testing.T) {
	n := newFakeNotifier()
	n.failSends = 3
	s := newTestScheduler(n)

	require.NoError(t, s.Submit(context.Background(), tierItem("Huge Pet", 1)))

	assert.Empty(t, n.immediate)
	assert.Equal(t, 1, s.OfflineLen(), "exhausted retries park the item for replay")
}

func TestFlushOffline_ReplaysWhenReady(t *testing.T) {
	n := newFakeNotifier()
	n.setReady(false)
	s := newTestScheduler(n)

	require.NoError(t, s.Submit(context.Background(), tierItem("Huge Pet", 1)))
	require.Equal(t, 1, s.OfflineLen())

	// Still offline: nothing moves.
	s.FlushOffline(context.Background())
	assert.Equal(t, 1, s.OfflineLen())

	n.setReady(true)
	s.FlushOffline(context.Background())
	assert.Equal(t, 0, s.OfflineLen())
	require.Len(t, n.immediate, 1)
	assert.Equal(t, "Huge Pet", n.immediate[0].Title)
}

func TestFlushBatch_GroupsByCategory(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	ctx := context.Background()

	require.NoError(t, s.Submit(ctx, tierItem("dragon_mesh", 2)))
	require.NoError(t, s.Submit(ctx, tierItem("background_music.mp3", 2)))
	require.NoError(t, s.Submit(ctx, tierItem("mystery", 3)))

	require.NoError(t, s.FlushBatch(ctx))
	require.Len(t, n.batches, 1)

	summary := n.batches[0]
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Tier2Count)
	assert.Equal(t, 1, summary.Tier3Count)
	assert.Equal(t, 1, summary.CategoryCounts[CategoryModels])
	assert.Equal(t, 1, summary.CategoryCounts[CategoryAudio])
	assert.Equal(t, 1, summary.CategoryCounts[CategoryOther])
	assert.Equal(t, 0, s.BatchLen())

	// Category buttons plus view-all and dismiss.
	require.Len(t, summary.Actions, 5)
	assert.True(t, strings.HasPrefix(summary.Actions[0].ID, "view_category_"))
	assert.True(t, strings.HasPrefix(summary.Actions[3].ID, "view_all_"))
	assert.True(t, strings.HasPrefix(summary.Actions[4].ID, "dismiss_"))
}

func TestFlushBatch_SecondPassDedup(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	ctx := context.Background()

	item := tierItem("dragon_mesh", 2)
	require.NoError(t, s.Submit(ctx, item))
	require.NoError(t, s.Submit(ctx, item))

	require.NoError(t, s.FlushBatch(ctx))
	require.Len(t, n.batches, 1)
	assert.Equal(t, 1, n.batches[0].Total)
}

func TestFlushBatch_FailureKeepsQueue(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	ctx := context.Background()

	require.NoError(t, s.Submit(ctx, tierItem("dragon_mesh", 2)))

	n.failSends = 1
	require.Error(t, s.FlushBatch(ctx))
	assert.Equal(t, 1, s.BatchLen(), "failed flush loses nothing")

	require.NoError(t, s.FlushBatch(ctx))
	assert.Equal(t, 0, s.BatchLen())
	require.Len(t, n.batches, 1)
}

func TestFlushBatch_OfflineKeepsQueue(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	ctx := context.Background()

	require.NoError(t, s.Submit(ctx, tierItem("dragon_mesh", 2)))
	n.setReady(false)

	require.NoError(t, s.FlushBatch(ctx))
	assert.Empty(t, n.batches)
	assert.Equal(t, 1, s.BatchLen())
}

// blockingNotifier parks SendBatchSummary until released so the test can
// land a Submit while a flush is in flight.
type blockingNotifier struct {
	fakeNotifier
	entered chan struct{}
	release chan struct{}
}

func (b *blockingNotifier) SendBatchSummary(ctx context.Context, summary BatchSummary) (string, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return b.fakeNotifier.SendBatchSummary(ctx, summary)
}

func TestFlushBatch_KeepsItemsSubmittedMidFlush(t *testing.T) {
	n := &blockingNotifier{
		fakeNotifier: fakeNotifier{ready: true},
		entered:      make(chan struct{}, 1),
		release:      make(chan struct{}),
	}
	s := newTestScheduler(n)
	ctx := context.Background()

	require.NoError(t, s.Submit(ctx, tierItem("dragon_mesh", 2)))

	done := make(chan error, 1)
	go func() { done <- s.FlushBatch(ctx) }()

	<-n.entered
	require.NoError(t, s.Submit(ctx, tierItem("phoenix_mesh", 2)))
	close(n.release)
	require.NoError(t, <-done)

	require.Len(t, n.batches, 1)
	assert.Equal(t, 1, n.batches[0].Total)
	assert.Equal(t, 1, s.BatchLen(), "item landed mid-flush stays queued")

	require.NoError(t, s.FlushBatch(ctx))
	require.Len(t, n.batches, 2)
	all, ok := s.Resolve("view_all_" + n.batches[1].BatchID)
	require.True(t, ok)
	require.Len(t, all, 1)
	assert.Equal(t, "phoenix_mesh", all[0].Name)
}

func TestMaybeFlushBatch_WindowStartsAtFirstItem(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	// An hour of empty ticks must not pre-age the next batch.
	for i := 0; i < 120; i++ {
		now = now.Add(30 * time.Second)
		require.NoError(t, s.MaybeFlushBatch(ctx))
	}

	require.NoError(t, s.Submit(ctx, tierItem("dragon_mesh", 2)))
	now = now.Add(30 * time.Second)
	require.NoError(t, s.MaybeFlushBatch(ctx))
	assert.Empty(t, n.batches, "fresh item accumulates for the full window")

	now = now.Add(5 * time.Minute)
	require.NoError(t, s.MaybeFlushBatch(ctx))
	require.Len(t, n.batches, 1)
}

func TestFlushBatch_EmptyQueueIsNoop(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)

	require.NoError(t, s.FlushBatch(context.Background()))
	assert.Empty(t, n.batches)
}

func TestMaybeFlushBatch_RespectsWindow(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }
	s.batchStart = now

	require.NoError(t, s.Submit(ctx, tierItem("dragon_mesh", 2)))

	require.NoError(t, s.MaybeFlushBatch(ctx))
	assert.Empty(t, n.batches, "window not elapsed yet")

	now = now.Add(5 * time.Minute)
	require.NoError(t, s.MaybeFlushBatch(ctx))
	require.Len(t, n.batches, 1)
}

func TestResolve_ActionMappings(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	ctx := context.Background()

	require.NoError(t, s.Submit(ctx, tierItem("dragon_mesh", 2)))
	require.NoError(t, s.Submit(ctx, tierItem("mystery", 3)))
	require.NoError(t, s.FlushBatch(ctx))

	summary := n.batches[0]
	batchID := summary.BatchID

	models, ok := s.Resolve("view_category_" + CategoryModels + "_" + batchID)
	require.True(t, ok)
	require.Len(t, models, 1)
	assert.Equal(t, "dragon_mesh", models[0].Name)

	all, ok := s.Resolve("view_all_" + batchID)
	require.True(t, ok)
	assert.Len(t, all, 2)

	_, ok = s.Resolve("view_category_" + CategoryAudio + "_" + batchID)
	assert.False(t, ok, "category absent from the batch has no mapping")
}

func TestResolve_NewFlushSupersedesCategory(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	ctx := context.Background()

	require.NoError(t, s.Submit(ctx, tierItem("dragon_mesh", 2)))
	require.NoError(t, s.FlushBatch(ctx))
	first := n.batches[0].BatchID

	require.NoError(t, s.Submit(ctx, tierItem("phoenix_mesh", 2)))
	require.NoError(t, s.FlushBatch(ctx))
	second := n.batches[1].BatchID

	_, ok := s.Resolve("view_category_" + CategoryModels + "_" + first)
	assert.False(t, ok, "older batch mapping for the category is gone")

	items, ok := s.Resolve("view_category_" + CategoryModels + "_" + second)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "phoenix_mesh", items[0].Name)
}

func TestSubmit_BatchDeliveryHookFires(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	ctx := context.Background()

	var delivered []string
	s.OnDelivered = func(item model.ClassifiedItem, messageID string) {
		delivered = append(delivered, item.Name+":"+messageID)
	}

	require.NoError(t, s.Submit(ctx, tierItem("dragon_mesh", 2)))
	require.NoError(t, s.Submit(ctx, tierItem("mystery", 3)))
	require.NoError(t, s.FlushBatch(ctx))

	assert.ElementsMatch(t, []string{"dragon_mesh:batch-msg-1", "mystery:batch-msg-1"}, delivered)
}
