package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/pricewatch_api/internal/metrics"
	"github.com/GTDGit/pricewatch_api/internal/models"
	"github.com/GTDGit/pricewatch_api/internal/service"
)

// AlertRunner sends one round of price drop emails.
type AlertRunner interface {
	Run(ctx context.Context, since string) (*service.AlertRun, error)
}

// PriceAlertWorker periodically emails users about price drops recorded
// since its previous pass.
type PriceAlertWorker struct {
	alerts   AlertRunner
	interval time.Duration
	now      func() time.Time
	since    string
}

// NewPriceAlertWorker constructs a PriceAlertWorker. Drops recorded before
// the worker starts are not reported.
func NewPriceAlertWorker(alerts AlertRunner, interval time.Duration) *PriceAlertWorker {
	w := &PriceAlertWorker{
		alerts:   alerts,
		interval: interval,
		now:      time.Now,
	}
	w.since = models.FormatHistoryTimestamp(w.now().UTC())
	return w
}

// Start begins the periodic alert loop and listens for context cancellation.
func (w *PriceAlertWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting price alert worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Price alert worker stopped")
			return
		}
	}
}

func (w *PriceAlertWorker) run(ctx context.Context) {
	start := w.now().UTC()
	result, err := w.alerts.Run(ctx, w.since)
	if err != nil {
		log.Error().Err(err).Str("since", w.since).Msg("Price alert run failed")
		return
	}
	metrics.RecordPriceAlerts(result.Sent, result.Failed)

	w.since = models.FormatHistoryTimestamp(start)

	log.Info().
		Int("users", result.Users).
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Dur("duration", time.Since(start)).
		Msg("Price alert run completed")
}
