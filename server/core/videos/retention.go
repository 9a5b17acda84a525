package videos

import (
	"context"
	"time"

	"github.com/yeti47/annotator/server/core/ccc/logging"
	"github.com/yeti47/annotator/server/core/metrics"
)

// RetentionSweeper deletes outputs older than a maximum age
type RetentionSweeper struct {
	logger    logging.Logger
	catalog   Catalog
	workspace *Workspace
	recorder  metrics.Recorder
	maxAge    time.Duration
	interval  time.Duration
	now       func() time.Time
}

// NewRetentionSweeper creates a sweeper. A maxAge of zero disables expiry.
func NewRetentionSweeper(logger logging.Logger, catalog Catalog, workspace *Workspace, recorder metrics.Recorder, maxAge, interval time.Duration) *RetentionSweeper {
	if logger == nil {
		logger = logging.NopLogger
	}
	if recorder == nil {
		recorder = metrics.NopRecorder
	}
	return &RetentionSweeper{
		logger:    logger,
		catalog:   catalog,
		workspace: workspace,
		recorder:  recorder,
		maxAge:    maxAge,
		interval:  interval,
		now:       time.Now,
	}
}

// Sweep removes every expired output (video, thumbnail and catalog record)
// and returns how many were removed. A file that cannot be deleted keeps its
// record so the next sweep retries it.
func (s *RetentionSweeper) Sweep(ctx context.Context) (int, error) {
	if s.maxAge <= 0 {
		return 0, nil
	}

	cutoff := s.now().Add(-s.maxAge)
	expired, err := s.catalog.ListCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, video := range expired {
		if err := s.workspace.Remove(video.Path); err != nil {
			s.logger.Warn("failed to remove expired output", "error", err, "stored_name", video.StoredName)
			continue
		}
		if video.ThumbnailName != "" {
			if err := s.workspace.Remove(s.workspace.OutputPath(video.ThumbnailName)); err != nil {
				s.logger.Warn("failed to remove expired thumbnail", "error", err, "thumbnail", video.ThumbnailName)
			}
		}
		if err := s.catalog.Delete(ctx, video.ID); err != nil {
			s.logger.Error("failed to delete catalog record", "error", err, "id", video.ID)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.recorder.OutputsExpired(removed)
		s.logger.Info("expired outputs removed", "count", removed, "cutoff", cutoff)
	}
	return removed, nil
}

// Run sweeps once immediately and then on every interval until ctx is done
func (s *RetentionSweeper) Run(ctx context.Context) {
	if s.maxAge <= 0 || s.interval <= 0 {
		s.logger.Info("output retention disabled")
		return
	}

	s.logger.Info("output retention enabled", "max_age", s.maxAge.String(), "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("retention sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
