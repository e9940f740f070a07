package alerts

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/umerali06/primarily-backend-sub001/internal/metrics"
	"github.com/umerali06/primarily-backend-sub001/internal/store"
)

// Sweeper periodically deletes alerts older than the retention period,
// whatever their status, and purges expired revoked tokens.
type Sweeper struct {
	db        *sqlx.DB
	log       *zap.Logger
	metrics   *metrics.Metrics
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// NewSweeper creates a Sweeper. A non-positive retention keeps alerts
// forever.
func NewSweeper(db *sqlx.DB, log *zap.Logger, m *metrics.Metrics, retention, interval time.Duration) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		db:        db,
		log:       log.Named("sweeper"),
		metrics:   m,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// Run sweeps once immediately and then on every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep runs one pass and returns how many alerts and tokens it removed.
func (s *Sweeper) Sweep(ctx context.Context) (alerts, tokens int64, err error) {
	now := s.now().UTC()

	if s.retention > 0 {
		alerts, err = store.DeleteAlertsBefore(ctx, s.db, now.Add(-s.retention))
		if err != nil {
			return 0, 0, err
		}
		s.metrics.SweepRemoved("alerts", alerts)
	}

	tokens, err = store.PurgeExpiredTokens(ctx, s.db, now)
	if err != nil {
		return alerts, 0, err
	}
	s.metrics.SweepRemoved("revoked_tokens", tokens)

	if alerts > 0 || tokens > 0 {
		s.log.Info("sweep finished", zap.Int64("alerts", alerts), zap.Int64("tokens", tokens))
	}
	return alerts, tokens, nil
}
