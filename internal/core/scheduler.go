package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultSweepBatch = 100

// SweepFailure is a scheduled transfer that could not be applied.
type SweepFailure struct {
	TransferID string `json:"transfer_id"`
	ProductID  string `json:"product_id"`
	Reason     string `json:"reason"`
}

// SweepResult reports one pass over due scheduled transfers.
type SweepResult struct {
	Executed int            `json:"executed"`
	Failed   []SweepFailure `json:"failed"`
}

// Scheduler applies pending transfers once their scheduled date has passed.
type Scheduler struct {
	ledger    Ledger
	transfers TransferService
	interval  time.Duration
	batch     int
	cfg       serviceConfig
}

// NewScheduler returns a scheduler that sweeps every interval, applying at most
// batch transfers per pass.
func NewScheduler(ledger Ledger, transfers TransferService, interval time.Duration, batch int, opts ...Option) *Scheduler {
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &Scheduler{
		ledger:    ledger,
		transfers: transfers,
		interval:  interval,
		batch:     batch,
		cfg:       newServiceConfig(opts),
	}
}

// Run sweeps until ctx is cancelled. Sweep errors are logged and the loop continues.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", s.interval)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.cfg.logger.Info("transfer scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.cfg.logger.Info("transfer scheduler stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.cfg.logger.Error("scheduled transfer sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep executes every due pending transfer in priority order. Transfers that
// no longer fit the source's availability are marked failed and reported.
func (s *Scheduler) Sweep(ctx context.Context) (*SweepResult, error) {
	due, err := s.ledger.DueTransfers(ctx, s.cfg.now(), s.batch)
	if err != nil {
		return nil, fmt.Errorf("failed to load due transfers: %w", err)
	}

	result := &SweepResult{Failed: []SweepFailure{}}
	for _, t := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		_, err := s.transfers.ExecutePending(ctx, t.ID)
		switch {
		case err == nil:
			result.Executed++
		case errors.Is(err, ErrTransferNotPending):
			// picked up by a concurrent sweep
		default:
			result.Failed = append(result.Failed, SweepFailure{TransferID: t.ID, ProductID: t.ProductID, Reason: err.Error()})
		}
	}

	if len(due) > 0 {
		s.cfg.logger.Info("scheduled transfers swept",
			zap.Int("due", len(due)),
			zap.Int("executed", result.Executed),
			zap.Int("failed", len(result.Failed)),
		)
	}
	return result, nil
}
