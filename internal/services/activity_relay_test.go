package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/internal/infrastructure/buffer"
	"github.com/fastygo/todo/repository"
)

type switchHealth struct{ online atomic.Bool }

func (s *switchHealth) IsOnline() bool { return s.online.Load() }

type memoryFeed struct {
	mu      sync.Mutex
	items   []domain.Activity
	failing bool
}

var errFeedDown = errors.New("feed down")

func (f *memoryFeed) Append(_ context.Context, activity domain.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errFeedDown
	}
	f.items = append(f.items, activity)
	return nil
}

func (f *memoryFeed) Recent(_ context.Context, ownerID string, limit int) ([]domain.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Activity
	for i := len(f.items) - 1; i >= 0 && len(out) < limit; i-- {
		if f.items[i].OwnerID == ownerID {
			out = append(out, f.items[i])
		}
	}
	return out, nil
}

func (f *memoryFeed) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func (f *memoryFeed) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

var _ repository.ActivityRepository = (*memoryFeed)(nil)

func newRelay(t *testing.T, health ConnectionHealth, feed repository.ActivityRepository, retries int) (*ActivityRelay, *buffer.Store) {
	t.Helper()
	store, err := buffer.Open(filepath.Join(t.TempDir(), "outbox.db"), "activity_outbox")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewActivityRelay(store, health, feed, nil, RelayConfig{Interval: time.Hour, MaxRetries: retries}), store
}

func sample(owner string) domain.Activity {
	return domain.Activity{OwnerID: owner, TaskID: "t1", Kind: domain.ActivityCreated, OccurredAt: time.Now()}
}

func TestBridgeDeliversImmediatelyWhenOnline(t *testing.T) {
	health := &switchHealth{}
	health.online.Store(true)
	feed := &memoryFeed{}
	relay, _ := newRelay(t, health, feed, 3)

	require.NoError(t, NewActivityBridge(relay).Record(context.Background(), sample("o1")))
	assert.Equal(t, 1, feed.len())
	assert.Zero(t, relay.Size())

	items, err := feed.Recent(context.Background(), "o1", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotEmpty(t, items[0].ID, "outbox id becomes the activity id")
}

func TestBridgeBuffersWhileOfflineAndDrainsLater(t *testing.T) {
	health := &switchHealth{}
	feed := &memoryFeed{}
	relay, _ := newRelay(t, health, feed, 3)
	bridge := NewActivityBridge(relay)
	ctx := context.Background()

	require.NoError(t, bridge.Record(ctx, sample("o1")))
	require.NoError(t, bridge.Record(ctx, sample("o1")))
	assert.Equal(t, 2, relay.Size())

	delivered, err := relay.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, delivered, "offline drain is skipped")

	health.online.Store(true)
	delivered, err = relay.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)
	assert.Zero(t, relay.Size())
	assert.Equal(t, 2, feed.len())
}

func TestDrainRetriesThenDrops(t *testing.T) {
	health := &switchHealth{}
	health.online.Store(true)
	feed := &memoryFeed{failing: true}
	relay, store := newRelay(t, health, feed, 2)
	ctx := context.Background()

	require.NoError(t, NewActivityBridge(relay).Record(ctx, sample("o1")))
	assert.Equal(t, 1, relay.Size(), "failed immediate delivery falls back to the outbox")

	_, err := relay.Drain(ctx)
	require.NoError(t, err)
	items, err := store.Peek(10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Retries)

	_, err = relay.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, relay.Size())

	feed.setFailing(false)
	assert.Zero(t, feed.len())
}

func TestBridgeRejectsActivityWithoutOwner(t *testing.T) {
	relay, _ := newRelay(t, nil, &memoryFeed{}, 3)

	err := NewActivityBridge(relay).Record(context.Background(), domain.Activity{})
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}
