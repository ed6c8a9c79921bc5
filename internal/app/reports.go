/**
 * @description
 * Read-only rollups over the sale and ledger records: the producer dashboard
 * and the platform-wide admin overview. No side effects; everything here is a
 * projection of what the settlement, withdrawal and sweep paths wrote.
 */

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vendaflow/settlement-service/internal/domain"
	"github.com/vendaflow/settlement-service/internal/store"
)

const recentSalesLimit = 10

// Reports computes dashboard and admin aggregates.
type Reports struct {
	repo store.Repository
	now  func() time.Time
}

// NewReports creates a new report aggregator.
func NewReports(repo store.Repository) *Reports {
	return &Reports{repo: repo, now: time.Now}
}

// ProducerDashboard assembles the producer-facing financial rollup for the
// given period.
func (r *Reports) ProducerDashboard(ctx context.Context, producerID uuid.UUID, from, to time.Time) (*domain.ProducerDashboard, error) {
	balance, err := r.repo.GetBalance(ctx, producerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}

	totals, err := r.repo.GetSalesTotals(ctx, &producerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales totals: %w", err)
	}

	byStatus, err := r.repo.GetSalesCountByStatus(ctx, &producerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count sales by status: %w", err)
	}

	revenue, err := r.repo.GetRevenueSeries(ctx, &producerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to build revenue series: %w", err)
	}

	recent, err := r.repo.FindRecentSales(ctx, producerID, recentSalesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent sales: %w", err)
	}

	reserved, err := r.repo.GetHeldReserveTotal(ctx, &producerID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum held reserves: %w", err)
	}

	pendingRequests, err := r.repo.CountWithdrawalRequestsByStatus(ctx, &producerID, domain.WithdrawalStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending withdrawals: %w", err)
	}

	return &domain.ProducerDashboard{
		ProducerID:      producerID,
		Available:       balance.Available,
		Pending:         balance.Pending,
		ReservedTotal:   reserved,
		GrossTotal:      totals.Gross,
		NetTotal:        totals.Net,
		FeeTotal:        totals.Fees,
		RefundedTotal:   totals.Refunded,
		SalesByStatus:   byStatus,
		Revenue:         revenue,
		RecentSales:     recent,
		PendingRequests: pendingRequests,
	}, nil
}

// AdminOverview assembles the platform-wide KPI rollup for the given period.
func (r *Reports) AdminOverview(ctx context.Context, from, to time.Time) (*domain.AdminOverview, error) {
	totals, err := r.repo.GetSalesTotals(ctx, nil, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales totals: %w", err)
	}

	feeTotal, err := r.repo.GetPlatformFeeTotal(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum platform fees: %w", err)
	}

	byStatus, err := r.repo.GetSalesCountByStatus(ctx, nil, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count sales by status: %w", err)
	}

	revenue, err := r.repo.GetRevenueSeries(ctx, nil, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to build revenue series: %w", err)
	}

	pendingWithdrawals, err := r.repo.CountWithdrawalRequestsByStatus(ctx, nil, domain.WithdrawalStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending withdrawals: %w", err)
	}

	heldReserves, err := r.repo.GetHeldReserveTotal(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to sum held reserves: %w", err)
	}

	return &domain.AdminOverview{
		GrossTotal:         totals.Gross,
		PlatformFeeTotal:   feeTotal,
		RefundedTotal:      totals.Refunded,
		SalesByStatus:      byStatus,
		Revenue:            revenue,
		PendingWithdrawals: pendingWithdrawals,
		HeldReserveTotal:   heldReserves,
	}, nil
}

// BalanceSnapshot returns a producer's current ledger buckets.
func (r *Reports) BalanceSnapshot(ctx context.Context, producerID uuid.UUID) (*domain.ProducerBalance, error) {
	return r.repo.GetBalance(ctx, producerID)
}
