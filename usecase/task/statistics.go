package task

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/pkg/logger"
)

// averageWindowDays is the trailing window of AverageCompletionPerDay.
const averageWindowDays = 30

// GetStatistics aggregates the owner's whole task history. A cached snapshot is served when
// available; concurrent misses for one owner share a single load that outlives any one caller.
func (uc *UseCase) GetStatistics(ctx context.Context, ownerID string) (*domain.Statistics, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}

	if uc.cache != nil {
		cached, found, err := uc.cache.Get(ctx, ownerID)
		if err != nil {
			logger.WithRequestID(ctx, uc.logger).Warn("statistics cache read failed", zap.String("owner_id", ownerID), zap.Error(err))
		}
		if found {
			return cached, nil
		}
	}

	ch := uc.flight.DoChan(ownerID, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.loadTimeout)
		defer cancel()
		return uc.loadStatistics(loadCtx, ownerID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Statistics), nil
	}
}

// loadStatistics reads the cache generation before the task set, so a snapshot that overlaps a
// mutation is never stored.
func (uc *UseCase) loadStatistics(ctx context.Context, ownerID string) (*domain.Statistics, error) {
	log := logger.WithRequestID(ctx, uc.logger)

	cacheable := uc.cache != nil
	var generation int64
	if cacheable {
		gen, err := uc.cache.Generation(ctx, ownerID)
		if err != nil {
			log.Warn("statistics cache generation read failed", zap.String("owner_id", ownerID), zap.Error(err))
			cacheable = false
		}
		generation = gen
	}

	tasks, err := uc.tasks.ListAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	stats := ComputeStatistics(tasks, uc.now())

	if cacheable {
		stored, err := uc.cache.Set(ctx, ownerID, generation, &stats, uc.cacheTTL)
		switch {
		case err != nil:
			log.Warn("statistics cache write failed", zap.String("owner_id", ownerID), zap.Error(err))
		case !stored:
			log.Debug("statistics snapshot outdated by a concurrent change", zap.String("owner_id", ownerID))
		}
	}
	return &stats, nil
}

// ComputeStatistics derives the statistics snapshot from a fully loaded task set.
// Calendar math runs in UTC and weeks start on Sunday.
func ComputeStatistics(tasks []domain.Task, now time.Time) domain.Statistics {
	now = now.UTC()
	today := dateOf(now)
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	windowStart := now.AddDate(0, 0, -averageWindowDays)

	stats := domain.Statistics{CategoryStats: []domain.CategoryStat{}}
	categories := map[string]*domain.CategoryStat{}
	completionDays := map[time.Time]struct{}{}
	recentCompletions := 0

	for i := range tasks {
		task := &tasks[i]
		if task.Deleted {
			stats.DeletedCount++
			continue
		}

		completed := task.IsCompleted()
		stats.TotalCount++
		if completed {
			stats.CompletedCount++
			completionDays[dateOf(*task.CompletedAt)] = struct{}{}
			if !task.CompletedAt.Before(windowStart) {
				recentCompletions++
			}
		}

		if !task.CreatedAt.Before(weekStart) {
			stats.ThisWeekCount++
			if completed {
				stats.ThisWeekCompletedCount++
			}
		}
		if !task.CreatedAt.Before(monthStart) {
			stats.ThisMonthCount++
			if completed {
				stats.ThisMonthCompletedCount++
			}
		}

		stats.PriorityStats.Add(task.Priority)

		if task.Category != "" {
			cat, ok := categories[task.Category]
			if !ok {
				cat = &domain.CategoryStat{Category: task.Category}
				categories[task.Category] = cat
			}
			cat.TotalCount++
			if completed {
				cat.CompletedCount++
			}
		}
	}

	stats.PendingCount = stats.TotalCount - stats.CompletedCount
	stats.CompletionRate = domain.CompletionRate(stats.CompletedCount, stats.TotalCount)
	stats.AverageCompletionPerDay = float64(recentCompletions) / averageWindowDays

	for _, cat := range categories {
		cat.PendingCount = cat.TotalCount - cat.CompletedCount
		cat.CompletionRate = domain.CompletionRate(cat.CompletedCount, cat.TotalCount)
		stats.CategoryStats = append(stats.CategoryStats, *cat)
	}
	slices.SortFunc(stats.CategoryStats, func(a, b domain.CategoryStat) int {
		if a.TotalCount != b.TotalCount {
			return b.TotalCount - a.TotalCount
		}
		return strings.Compare(a.Category, b.Category)
	})

	days := make([]time.Time, 0, len(completionDays))
	for day := range completionDays {
		days = append(days, day)
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })

	stats.CurrentCompletionStreak = currentStreak(completionDays, today)
	stats.LongestCompletionStreak = longestStreak(days)
	return stats
}

// currentStreak counts consecutive completion days ending today, or yesterday when nothing
// was completed yet today.
func currentStreak(days map[time.Time]struct{}, today time.Time) int {
	anchor := today
	if _, ok := days[anchor]; !ok {
		anchor = today.AddDate(0, 0, -1)
		if _, ok := days[anchor]; !ok {
			return 0
		}
	}
	streak := 0
	for day := anchor; ; day = day.AddDate(0, 0, -1) {
		if _, ok := days[day]; !ok {
			return streak
		}
		streak++
	}
}

// longestStreak scans distinct ascending days for the longest run of consecutive dates.
func longestStreak(days []time.Time) int {
	if len(days) == 0 {
		return 0
	}
	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Equal(days[i-1].AddDate(0, 0, 1)) {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
