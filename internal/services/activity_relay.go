package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/internal/infrastructure/buffer"
	"github.com/fastygo/todo/repository"
)

// ConnectionHealth reports whether the activity sink is reachable.
type ConnectionHealth interface {
	IsOnline() bool
}

// RelayConfig controls how often the outbox is drained.
type RelayConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	// MaxAge drops undelivered items older than this. Zero keeps them forever.
	MaxAge time.Duration
}

// ActivityRelay delivers outbox items to the activity feed. Items that cannot be
// delivered right away wait in the Bolt outbox until a cron tick drains them.
type ActivityRelay struct {
	store   *buffer.Store
	monitor ConnectionHealth
	feed    repository.ActivityRepository
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     RelayConfig
}

func NewActivityRelay(
	store *buffer.Store,
	monitor ConnectionHealth,
	feed repository.ActivityRepository,
	logger *zap.Logger,
	cfg RelayConfig,
) *ActivityRelay {
	if cfg.Interval < time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &ActivityRelay{
		store:   store,
		monitor: monitor,
		feed:    feed,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if _, err := r.Drain(ctx); err != nil {
			r.logger.Error("activity outbox drain failed", zap.Error(err))
		}
	})

	return r
}

func (r *ActivityRelay) Start() {
	if r == nil || r.cron == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("activity relay started", zap.Duration("interval", r.cfg.Interval))
}

// Stop waits for a running drain to finish or for ctx to expire.
func (r *ActivityRelay) Stop(ctx context.Context) {
	if r == nil || r.cron == nil {
		return
	}
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	r.logger.Info("activity relay stopped")
}

// Submit delivers the item immediately when the sink is online and falls back to the outbox.
func (r *ActivityRelay) Submit(ctx context.Context, item buffer.Item) error {
	if r == nil || r.store == nil {
		return fmt.Errorf("activity relay not configured")
	}

	if r.online() {
		err := r.deliver(ctx, item)
		if err == nil {
			return nil
		}
		r.logger.Warn("activity delivery failed, buffering", zap.String("owner_id", item.OwnerID), zap.Error(err))
	}
	return r.store.Enqueue(item)
}

// Drain delivers one batch from the outbox and returns how many items were delivered.
func (r *ActivityRelay) Drain(ctx context.Context) (int, error) {
	if r == nil || r.store == nil {
		return 0, nil
	}
	if !r.online() {
		r.logger.Debug("skipping activity drain (offline)")
		return 0, nil
	}

	if r.cfg.MaxAge > 0 {
		dropped, err := r.store.Prune(time.Now().Add(-r.cfg.MaxAge))
		if err != nil {
			return 0, err
		}
		if dropped > 0 {
			r.logger.Warn("dropped stale activity items", zap.Int("count", dropped))
		}
	}

	items, err := r.store.Peek(r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	var done []buffer.Item
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			break
		}
		if err := r.deliver(ctx, item); err != nil {
			r.logger.Error("failed to deliver activity",
				zap.String("item_id", item.ID),
				zap.Int("retries", item.Retries),
				zap.Error(err))

			if item.Retries+1 >= r.cfg.MaxRetries {
				r.logger.Warn("dropping activity item (max retries reached)", zap.String("item_id", item.ID))
				done = append(done, item)
				continue
			}
			if err := r.store.Retry(item); err != nil {
				r.logger.Error("failed to update activity item", zap.Error(err))
			}
			continue
		}
		delivered++
		done = append(done, item)
	}

	if len(done) > 0 {
		if err := r.store.Ack(done...); err != nil {
			return delivered, err
		}
	}
	return delivered, nil
}

// Size returns the number of undelivered items.
func (r *ActivityRelay) Size() int {
	if r == nil || r.store == nil {
		return 0
	}
	size, err := r.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (r *ActivityRelay) online() bool {
	return r.monitor == nil || r.monitor.IsOnline()
}

func (r *ActivityRelay) deliver(ctx context.Context, item buffer.Item) error {
	if ctx == nil {
		ctx = context.Background()
	}

	switch item.Kind {
	case buffer.KindActivity:
		var activity domain.Activity
		if err := json.Unmarshal(item.Data, &activity); err != nil {
			return err
		}
		if activity.ID == "" {
			activity.ID = item.ID
		}
		return r.feed.Append(ctx, activity)
	default:
		return fmt.Errorf("unsupported outbox kind %s", item.Kind)
	}
}
