package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/funnelboard/funnelboard-backend/internal/analytics"
	"github.com/funnelboard/funnelboard-backend/internal/engine"
	"github.com/funnelboard/funnelboard-backend/pkg/config"
	"github.com/funnelboard/funnelboard-backend/pkg/logger"
)

type publisher interface {
	PublishInsight(ctx context.Context, data []byte, attributes map[string]string) (string, error)
}

// Worker periodically compares the configured OLD and NEW landing-page
// cohorts and publishes the rendered report. One run happens immediately on
// Run; the ticker takes over after that.
type Worker struct {
	svc       analytics.Service
	publisher publisher
	logg      *logger.Logger
	cfg       config.InsightConfig
	now       func() time.Time
}

func NewWorker(svc analytics.Service, pub publisher, logg *logger.Logger, cfg config.InsightConfig) (*Worker, error) {
	if svc == nil {
		return nil, fmt.Errorf("analytics service required")
	}
	if pub == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if len(cfg.OldURLs) == 0 || len(cfg.NewURLs) == 0 {
		return nil, fmt.Errorf("both old and new landing url cohorts must be configured")
	}
	return &Worker{svc: svc, publisher: pub, logg: logg, cfg: cfg, now: time.Now}, nil
}

// Run blocks until ctx is cancelled. A failed cycle is logged and the loop
// keeps going; the next tick retries from scratch.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.RunOnce(ctx); err != nil {
		w.logg.Error(ctx, "insight cycle failed", err)
	}

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logg.Error(ctx, "insight cycle failed", err)
			}
		}
	}
}

// RunOnce executes a single compare-render-publish cycle.
func (w *Worker) RunOnce(ctx context.Context) error {
	window := w.window()
	result, err := w.svc.Comparison(ctx, analytics.ComparisonRequest{
		OldFilter: engine.FilterSpec{DateRange: window, LandingURLs: w.cfg.OldURLs},
		NewFilter: engine.FilterSpec{DateRange: window, LandingURLs: w.cfg.NewURLs},
	})
	if err != nil {
		return fmt.Errorf("comparing cohorts: %w", err)
	}

	payload := NewPayload(result, window, w.now())
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling insight payload: %w", err)
	}

	msgID, err := w.publisher.PublishInsight(ctx, data, map[string]string{
		"event_id":      payload.EventID,
		"table_version": payload.TableVersion,
	})
	if err != nil {
		return fmt.Errorf("publishing insight payload: %w", err)
	}

	logCtx := w.logg.WithFields(ctx, map[string]any{
		"message_id": msgID,
		"event_id":   payload.EventID,
		"window":     payload.WindowStart + ".." + payload.WindowEnd,
	})
	w.logg.Info(logCtx, "insight payload published")
	return nil
}

func (w *Worker) window() engine.DateRange {
	end := w.now().UTC().Truncate(24 * time.Hour)
	return engine.DateRange{
		Start: end.AddDate(0, 0, -w.cfg.WindowDays),
		End:   end,
	}
}
