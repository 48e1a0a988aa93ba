package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"seatwise/internal/models"

	"github.com/go-co-op/gocron/v2"
)

// Auditor is satisfied by *service.Auditor
type Auditor interface {
	Run(ctx context.Context) ([]models.CapacityDrift, error)
}

// LedgerAuditJob periodically compares every event's available spots with
// its confirmed reservations. It reports and never repairs.
type LedgerAuditJob struct {
	auditor   Auditor
	interval  time.Duration
	scheduler gocron.Scheduler
}

func NewLedgerAuditJob(auditor Auditor, interval time.Duration) *LedgerAuditJob {
	return &LedgerAuditJob{auditor: auditor, interval: interval}
}

// Start runs the audit immediately and then every interval. Runs never overlap.
func (j *LedgerAuditJob) Start(ctx context.Context) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(j.interval),
		gocron.NewTask(j.run, ctx),
		gocron.WithName("ledger-audit"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("failed to schedule ledger audit: %w", err)
	}

	j.scheduler = s
	s.Start()
	slog.Info("Ledger audit job started", "interval", j.interval)
	return nil
}

func (j *LedgerAuditJob) Stop() error {
	if j.scheduler == nil {
		return nil
	}
	slog.Info("Ledger audit job stopped")
	return j.scheduler.Shutdown()
}

func (j *LedgerAuditJob) run(ctx context.Context) {
	drift, err := j.auditor.Run(ctx)
	if err != nil {
		slog.Error("Ledger audit failed", "error", err)
		return
	}
	if len(drift) > 0 {
		slog.Warn("Ledger audit found drift", "events", len(drift))
	}
}
