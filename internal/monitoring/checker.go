package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/config"
)

// Checker runs periodic health checks in the background.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker creates a background checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

// Run checks once immediately, so sessions orphaned by a previous process
// are reaped at startup, then on every interval until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting health checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if ctx.Err() == nil {
			c.Check(ctx, log)
		}
		select {
		case <-ctx.Done():
			log.Info("health checker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Check collects one snapshot, reaps stale sessions and sends alerts.
func (c *Checker) Check(ctx context.Context, log *zap.Logger) *Snapshot {
	lookback := c.cfg.LookbackWindowHours
	if lookback <= 0 {
		lookback = 24
	}
	snap, err := c.collector.Collect(ctx, lookback)
	if err != nil {
		log.Error("monitoring: failed to collect metrics", zap.Error(err))
		return nil
	}

	if len(snap.Stale) > 0 {
		n, err := c.collector.Reap(ctx, snap.Stale)
		if err != nil {
			log.Error("monitoring: failed to reap sessions", zap.Error(err))
		}
		log.Info("monitoring: reaped stale sessions", zap.Int("reaped", n))
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		log.Debug("monitoring: no alerts triggered")
		return snap
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
	return snap
}
