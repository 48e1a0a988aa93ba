package service

import (
	"context"
	"fmt"

	"seatwise/internal/logger"
	"seatwise/internal/metrics"
	"seatwise/internal/models"
	"seatwise/internal/repository"
)

// Auditor compares each ledger with its confirmed reservations.
// It reports drift and never repairs it.
type Auditor struct {
	store   repository.Store
	metrics *metrics.Metrics
}

func NewAuditor(store repository.Store, m *metrics.Metrics) *Auditor {
	return &Auditor{store: store, metrics: m}
}

func (a *Auditor) Run(ctx context.Context) ([]models.CapacityDrift, error) {
	drift, err := a.store.CapacityDrift(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to audit ledger: %w", err)
	}

	a.metrics.SetLedgerDrift(len(drift))

	log := logger.WithContext(ctx)
	for _, d := range drift {
		log.Error("Ledger drift detected",
			"event_id", d.EventID,
			"max_capacity", d.MaxCapacity,
			"available_spots", d.AvailableSpots,
			"confirmed", d.Confirmed,
			"expected_spots", d.Expected(),
			"overbooked", d.Overbooked())
	}
	if len(drift) == 0 {
		log.Debug("Ledger audit clean")
	}
	return drift, nil
}
