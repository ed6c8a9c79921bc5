/**
 * @description
 * Scheduled sweep jobs over settled sales: releasing matured security reserves
 * back to available balance, and moving matured producer shares from pending to
 * available once their release date passes.
 *
 * Key features:
 * - Each sale is processed independently; one sale's failure never aborts the
 *   batch.
 * - The credit-then-mark order is compensated: when the marker write fails
 *   after the money moved, the move is reversed before the error is surfaced,
 *   so a retried sweep cannot double-credit.
 */

package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vendaflow/settlement-service/internal/domain"
	"github.com/vendaflow/settlement-service/internal/fees"
	"github.com/vendaflow/settlement-service/internal/store"
	"github.com/vendaflow/settlement-service/pkg/rabbitmq"
)

// Sweeper runs the periodic release batches.
type Sweeper struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
	logger        *slog.Logger
	now           func() time.Time
}

// NewSweeper creates a new sweeper.
func NewSweeper(repo store.Repository, producer rabbitmq.Publisher, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		repo:          repo,
		eventProducer: producer,
		logger:        logger,
		now:           time.Now,
	}
}

// RunReserveSweep releases the security reserve of every settled sale whose
// holding period has elapsed. The reserve was already counted inside the
// producer share at settlement time; releasing it credits available and zeroes
// the per-sale hold marker, making the marker informational bookkeeping rather
// than a separate ledger bucket.
func (s *Sweeper) RunReserveSweep(ctx context.Context) (*domain.SweepResult, error) {
	result := &domain.SweepResult{}

	sales, err := s.repo.FindSalesWithHeldReserves(ctx)
	if err != nil {
		s.logger.Error("failed to list sales with held reserves", "error", err)
		return nil, err
	}
	if len(sales) == 0 {
		s.logger.Info("no held reserves to sweep")
		return result, nil
	}

	today := fees.TruncateToDate(s.now())
	settingsCache := make(map[uuid.UUID]domain.FeeSettings)

	for _, sale := range sales {
		settings, ok := settingsCache[sale.ProducerID]
		if !ok {
			settings, err = ResolveProducerSettings(ctx, s.repo, sale.ProducerID)
			if err != nil {
				s.logger.Error("failed to resolve settings for reserve sweep", "sale_id", sale.ID, "producer_id", sale.ProducerID, "error", err)
				result.Failures++
				continue
			}
			settingsCache[sale.ProducerID] = settings
		}

		releaseDate := fees.ReserveReleaseDate(*sale.PaidAt, settings)
		if today.Before(releaseDate) {
			continue
		}

		result.Processed++
		amount := sale.SecurityReserve

		if err := s.repo.CreditAvailable(ctx, sale.ProducerID, amount); err != nil {
			s.logger.Error("failed to credit released reserve", "sale_id", sale.ID, "producer_id", sale.ProducerID, "amount", amount, "error", err)
			result.Failures++
			continue
		}

		if err := s.repo.ZeroSecurityReserve(ctx, sale.ID); err != nil {
			// The credit landed but the marker did not clear. Take the money
			// back before surfacing, otherwise a retry double-credits.
			if debitErr := s.repo.DebitAvailable(ctx, sale.ProducerID, amount); debitErr != nil {
				s.logger.Error("CRITICAL: failed to compensate reserve credit; manual reconciliation required",
					"sale_id", sale.ID, "producer_id", sale.ProducerID, "amount", amount, "error", debitErr)
			}
			s.logger.Error("failed to zero reserve marker", "sale_id", sale.ID, "error", err)
			result.Failures++
			continue
		}

		result.ReserveReleases = append(result.ReserveReleases, domain.ReserveRelease{
			SaleID:     sale.ID,
			ProducerID: sale.ProducerID,
			Amount:     amount,
		})
		s.logger.Info("released security reserve", "sale_id", sale.ID, "producer_id", sale.ProducerID, "amount", amount)

		if s.eventProducer != nil {
			s.eventProducer.Publish(ctx, rabbitmq.SettlementExchange, "reserve.released", domain.ReserveReleasedEvent{
				SaleID:     sale.ID,
				ProducerID: sale.ProducerID,
				Amount:     amount,
				Timestamp:  s.now().UTC(),
			})
		}
	}

	s.logger.Info("reserve sweep finished", "processed", result.Processed, "released", len(result.ReserveReleases), "failures", result.Failures)
	return result, nil
}

// RunShareReleaseSweep moves matured producer shares from pending to available.
// A share whose release date was already in the past at settlement time landed
// directly in available; everything else waits here.
func (s *Sweeper) RunShareReleaseSweep(ctx context.Context) (*domain.SweepResult, error) {
	result := &domain.SweepResult{}

	today := fees.TruncateToDate(s.now())
	sales, err := s.repo.FindSalesWithMaturedShares(ctx, today)
	if err != nil {
		s.logger.Error("failed to list sales with matured shares", "error", err)
		return nil, err
	}
	if len(sales) == 0 {
		s.logger.Info("no matured shares to release")
		return result, nil
	}

	for _, sale := range sales {
		result.Processed++
		amount := sale.ProducerShare

		if err := s.repo.MovePendingToAvailable(ctx, sale.ProducerID, amount); err != nil {
			s.logger.Error("failed to move matured share", "sale_id", sale.ID, "producer_id", sale.ProducerID, "amount", amount, "error", err)
			result.Failures++
			continue
		}

		if err := s.repo.MarkSharePayoutReleased(ctx, sale.ID); err != nil {
			if moveErr := s.repo.MoveAvailableToPending(ctx, sale.ProducerID, amount); moveErr != nil {
				s.logger.Error("CRITICAL: failed to compensate share release; manual reconciliation required",
					"sale_id", sale.ID, "producer_id", sale.ProducerID, "amount", amount, "error", moveErr)
			}
			s.logger.Error("failed to mark share released", "sale_id", sale.ID, "error", err)
			result.Failures++
			continue
		}

		result.ShareReleases = append(result.ShareReleases, domain.ShareRelease{
			SaleID:     sale.ID,
			ProducerID: sale.ProducerID,
			Amount:     amount,
		})
		s.logger.Info("released matured share", "sale_id", sale.ID, "producer_id", sale.ProducerID, "amount", amount)
	}

	s.logger.Info("share release sweep finished", "processed", result.Processed, "released", len(result.ShareReleases), "failures", result.Failures)
	return result, nil
}
