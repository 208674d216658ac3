package task

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
	"github.com/fastygo/todo/repository/boltdb"
	redisRepo "github.com/fastygo/todo/repository/redis"
)

// Thursday.
var statsNow = time.Date(2024, 3, 14, 15, 30, 0, 0, time.UTC)

func completedOn(day time.Time, created time.Time) domain.Task {
	at := day
	return domain.Task{ID: day.String(), Title: "t", CreatedAt: created, UpdatedAt: created, CompletedAt: &at}
}

func daysAgo(n int) time.Time {
	return statsNow.AddDate(0, 0, -n)
}

func TestComputeStatisticsEmpty(t *testing.T) {
	stats := ComputeStatistics(nil, statsNow)

	assert.Zero(t, stats.TotalCount)
	assert.Zero(t, stats.CompletionRate)
	assert.Zero(t, stats.CurrentCompletionStreak)
	assert.Zero(t, stats.LongestCompletionStreak)
	assert.NotNil(t, stats.CategoryStats)
}

func TestComputeStatisticsCompletionRate(t *testing.T) {
	old := statsNow.AddDate(0, -2, 0)
	tasks := []domain.Task{
		completedOn(daysAgo(40), old),
		completedOn(daysAgo(41), old),
		{ID: "pending", Title: "p", CreatedAt: old},
		{ID: "binned", Title: "d", CreatedAt: old, Deleted: true},
	}

	stats := ComputeStatistics(tasks, statsNow)
	assert.Equal(t, 3, stats.TotalCount)
	assert.Equal(t, 2, stats.CompletedCount)
	assert.Equal(t, 1, stats.PendingCount)
	assert.Equal(t, 1, stats.DeletedCount)
	assert.InDelta(t, 66.6666, stats.CompletionRate, 0.001)
}

func TestCurrentStreakCountsBackFromToday(t *testing.T) {
	created := daysAgo(10)
	tasks := []domain.Task{
		completedOn(daysAgo(2), created),
		completedOn(daysAgo(1), created),
		completedOn(statsNow.Add(-time.Hour), created),
		completedOn(statsNow.Add(-2*time.Hour), created),
	}

	stats := ComputeStatistics(tasks, statsNow)
	assert.Equal(t, 3, stats.CurrentCompletionStreak)
	assert.Equal(t, 3, stats.LongestCompletionStreak)
}

func TestCurrentStreakAnchorsOnYesterday(t *testing.T) {
	created := daysAgo(10)
	tasks := []domain.Task{
		completedOn(daysAgo(1), created),
		completedOn(daysAgo(2), created),
	}

	stats := ComputeStatistics(tasks, statsNow)
	assert.Equal(t, 2, stats.CurrentCompletionStreak)
}

func TestStreakWithGap(t *testing.T) {
	created := daysAgo(10)
	tasks := []domain.Task{
		completedOn(daysAgo(5), created),
		completedOn(daysAgo(4), created),
		completedOn(daysAgo(2), created),
	}

	stats := ComputeStatistics(tasks, statsNow)
	assert.Zero(t, stats.CurrentCompletionStreak)
	assert.Equal(t, 2, stats.LongestCompletionStreak)
}

func TestStreakIgnoresDeletedTasks(t *testing.T) {
	created := daysAgo(10)
	binned := completedOn(daysAgo(1), created)
	binned.Deleted = true
	tasks := []domain.Task{completedOn(statsNow, created), binned}

	stats := ComputeStatistics(tasks, statsNow)
	assert.Equal(t, 1, stats.CurrentCompletionStreak)
}

func TestWeekAndMonthWindows(t *testing.T) {
	// Week of 2024-03-14 starts on Sunday 2024-03-10.
	sunday := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	tasks := []domain.Task{
		{ID: "1", Title: "this week", CreatedAt: sunday},
		completedOn(statsNow, sunday.Add(time.Hour)),
		{ID: "3", Title: "last saturday", CreatedAt: sunday.Add(-time.Second)},
		{ID: "4", Title: "last month", CreatedAt: time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)},
	}

	stats := ComputeStatistics(tasks, statsNow)
	assert.Equal(t, 2, stats.ThisWeekCount)
	assert.Equal(t, 1, stats.ThisWeekCompletedCount)
	assert.Equal(t, 3, stats.ThisMonthCount)
	assert.Equal(t, 1, stats.ThisMonthCompletedCount)
}

func TestAverageCompletionPerDayUsesThirtyDayWindow(t *testing.T) {
	created := daysAgo(60)
	tasks := []domain.Task{
		completedOn(statsNow.AddDate(0, 0, -30), created),
		completedOn(daysAgo(3), created),
		completedOn(daysAgo(31), created),
	}

	stats := ComputeStatistics(tasks, statsNow)
	assert.InDelta(t, 2.0/30.0, stats.AverageCompletionPerDay, 1e-9)
}

func TestPriorityAndCategoryBreakdown(t *testing.T) {
	created := daysAgo(2)
	work1 := completedOn(daysAgo(1), created)
	work1.Category = "work"
	work1.Priority = domain.PriorityHigh
	tasks := []domain.Task{
		work1,
		{ID: "w2", Category: "work", Priority: domain.PriorityHigh, CreatedAt: created},
		{ID: "h1", Category: "home", Priority: domain.PriorityUrgent, CreatedAt: created},
		{ID: "a1", Category: "admin", CreatedAt: created},
		{ID: "n1", CreatedAt: created},
	}

	stats := ComputeStatistics(tasks, statsNow)
	assert.Equal(t, domain.PriorityStats{Normal: 2, High: 2, Urgent: 1}, stats.PriorityStats)
	require.Len(t, stats.CategoryStats, 3)
	assert.Equal(t, domain.CategoryStat{
		Category:       "work",
		TotalCount:     2,
		CompletedCount: 1,
		PendingCount:   1,
		CompletionRate: 50,
	}, stats.CategoryStats[0])
	assert.Equal(t, "admin", stats.CategoryStats[1].Category)
	assert.Equal(t, "home", stats.CategoryStats[2].Category)
}

func newStatsCache(t *testing.T) (repository.StatisticsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisRepo.NewStatisticsCache(client), mr
}

func TestGetStatisticsUsesAndInvalidatesCache(t *testing.T) {
	cache, mr := newStatsCache(t)
	f := setup(t, WithStatisticsCache(cache, time.Minute))
	ctx := context.Background()
	task := f.create(t, ownerA, domain.TaskDraft{Title: "cached"})

	stats, err := f.uc.GetStatistics(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCount)
	assert.True(t, mr.Exists("stats:"+ownerA))

	_, err = f.uc.ToggleCompletion(ctx, ownerA, task.ID)
	require.NoError(t, err)
	assert.False(t, mr.Exists("stats:"+ownerA))

	stats, err = f.uc.GetStatistics(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CompletedCount)
	assert.Equal(t, 1, stats.CurrentCompletionStreak)
}

type failingTasks struct {
	repository.TaskRepository
}

var errStoreDown = errors.New("store unavailable")

func (failingTasks) ListAll(context.Context, string) ([]domain.Task, error) {
	return nil, errStoreDown
}

func TestGetStatisticsPropagatesStoreErrors(t *testing.T) {
	uc := New(failingTasks{}, nil, nil)

	_, err := uc.GetStatistics(context.Background(), ownerA)
	assert.ErrorIs(t, err, errStoreDown)
}

// gatedTasks parks the next ListAll after it has read the store until release is closed.
type gatedTasks struct {
	repository.TaskRepository
	armed   atomic.Bool
	loads   atomic.Int32
	loaded  chan struct{}
	release chan struct{}
}

func newGatedTasks(t *testing.T) *gatedTasks {
	t.Helper()
	store, err := boltdb.Open(filepath.Join(t.TempDir(), "todo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return &gatedTasks{
		TaskRepository: boltdb.NewTaskRepository(store),
		loaded:         make(chan struct{}),
		release:        make(chan struct{}),
	}
}

func (g *gatedTasks) ListAll(ctx context.Context, ownerID string) ([]domain.Task, error) {
	g.loads.Add(1)
	tasks, err := g.TaskRepository.ListAll(ctx, ownerID)
	if g.armed.CompareAndSwap(true, false) {
		close(g.loaded)
		<-g.release
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the statistics load")
	}
}

func TestStatisticsLoadOverlappingMutationIsNotCached(t *testing.T) {
	cache, mr := newStatsCache(t)
	tasks := newGatedTasks(t)
	uc := New(tasks, nil, nil, WithStatisticsCache(cache, time.Minute), WithClock(func() time.Time { return statsNow }))
	ctx := context.Background()

	task, err := uc.CreateTask(ctx, ownerA, domain.TaskDraft{Title: "racy"})
	require.NoError(t, err)

	tasks.armed.Store(true)
	done := make(chan error, 1)
	go func() {
		_, err := uc.GetStatistics(ctx, ownerA)
		done <- err
	}()
	waitFor(t, tasks.loaded)

	changed, err := uc.ToggleCompletion(ctx, ownerA, task.ID)
	require.NoError(t, err)
	require.True(t, changed)

	close(tasks.release)
	require.NoError(t, <-done)
	assert.False(t, mr.Exists("stats:"+ownerA))

	stats, err := uc.GetStatistics(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CompletedCount)
}

func TestStatisticsLoadSurvivesCallerCancellation(t *testing.T) {
	cache, mr := newStatsCache(t)
	tasks := newGatedTasks(t)
	uc := New(tasks, nil, nil, WithStatisticsCache(cache, time.Minute), WithClock(func() time.Time { return statsNow }))
	ctx := context.Background()

	_, err := uc.CreateTask(ctx, ownerA, domain.TaskDraft{Title: "shared"})
	require.NoError(t, err)

	tasks.armed.Store(true)
	callerCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		_, err := uc.GetStatistics(callerCtx, ownerA)
		done <- err
	}()
	waitFor(t, tasks.loaded)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(tasks.release)
	assert.Eventually(t, func() bool { return mr.Exists("stats:" + ownerA) }, 2*time.Second, 5*time.Millisecond)

	stats, err := uc.GetStatistics(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCount)
	assert.Equal(t, int32(1), tasks.loads.Load())
}
