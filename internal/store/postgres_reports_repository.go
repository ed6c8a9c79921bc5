/**
 * @description
 * Read-only aggregate queries backing the producer dashboard and the admin
 * overview. These are pure projections over the sales, balance and withdrawal
 * tables; nothing here mutates state.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vendaflow/settlement-service/internal/domain"
)

// GetSalesTotals aggregates gross/net/fee/refunded amounts over a period.
// A nil producerID aggregates platform-wide.
func (r *PostgresRepository) GetSalesTotals(ctx context.Context, producerID *uuid.UUID, from, to time.Time) (domain.SalesTotals, error) {
	var totals domain.SalesTotals
	query := `
		SELECT
			COALESCE(SUM(gross) FILTER (WHERE status IN ('paid', 'active')), 0),
			COALESCE(SUM(producer_share) FILTER (WHERE status IN ('paid', 'active')), 0),
			COALESCE(SUM(platform_fee) FILTER (WHERE status IN ('paid', 'active')), 0),
			COALESCE(SUM(gross) FILTER (WHERE status = 'refunded'), 0)
		FROM sales
		WHERE ($1::uuid IS NULL OR producer_id = $1)
		  AND paid_at >= $2 AND paid_at < $3
	`
	err := r.db.QueryRow(ctx, query, producerID, from, to).Scan(
		&totals.Gross, &totals.Net, &totals.Fees, &totals.Refunded)
	return totals, err
}

// GetSalesCountByStatus counts sales per lifecycle status over a period.
func (r *PostgresRepository) GetSalesCountByStatus(ctx context.Context, producerID *uuid.UUID, from, to time.Time) (map[string]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM sales
		WHERE ($1::uuid IS NULL OR producer_id = $1)
		  AND created_at >= $2 AND created_at < $3
		GROUP BY status
	`
	rows, err := r.db.Query(ctx, query, producerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// GetRevenueSeries returns daily revenue buckets for chart rendering.
func (r *PostgresRepository) GetRevenueSeries(ctx context.Context, producerID *uuid.UUID, from, to time.Time) ([]domain.RevenueBucket, error) {
	query := `
		SELECT date_trunc('day', paid_at) AS day,
		       COALESCE(SUM(gross), 0),
		       COALESCE(SUM(producer_share), 0),
		       COUNT(*)
		FROM sales
		WHERE ($1::uuid IS NULL OR producer_id = $1)
		  AND status IN ('paid', 'active')
		  AND paid_at >= $2 AND paid_at < $3
		GROUP BY day
		ORDER BY day ASC
	`
	rows, err := r.db.Query(ctx, query, producerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []domain.RevenueBucket
	for rows.Next() {
		var bucket domain.RevenueBucket
		if err := rows.Scan(&bucket.Date, &bucket.Gross, &bucket.Net, &bucket.Count); err != nil {
			return nil, err
		}
		series = append(series, bucket)
	}
	return series, rows.Err()
}

// FindRecentSales retrieves a producer's most recent sales for the dashboard
// transaction list.
func (r *PostgresRepository) FindRecentSales(ctx context.Context, producerID uuid.UUID, limit int) ([]domain.Sale, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	query := `SELECT ` + saleColumns + ` FROM sales WHERE producer_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.Query(ctx, query, producerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSales(rows)
}

// CountWithdrawalRequestsByStatus counts withdrawal requests in a given status.
func (r *PostgresRepository) CountWithdrawalRequestsByStatus(ctx context.Context, producerID *uuid.UUID, status string) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM withdrawal_requests
		WHERE ($1::uuid IS NULL OR producer_id = $1) AND status = $2
	`
	err := r.db.QueryRow(ctx, query, producerID, status).Scan(&count)
	return count, err
}

// GetHeldReserveTotal sums the security reserves still held on settled sales.
func (r *PostgresRepository) GetHeldReserveTotal(ctx context.Context, producerID *uuid.UUID) (int64, error) {
	var total int64
	query := `
		SELECT COALESCE(SUM(security_reserve), 0)
		FROM sales
		WHERE ($1::uuid IS NULL OR producer_id = $1) AND status IN ('paid', 'active')
	`
	err := r.db.QueryRow(ctx, query, producerID).Scan(&total)
	return total, err
}

// GetPlatformFeeTotal sums the platform's fee take over a period.
func (r *PostgresRepository) GetPlatformFeeTotal(ctx context.Context, from, to time.Time) (int64, error) {
	var total int64
	query := `
		SELECT COALESCE(SUM(platform_fee), 0)
		FROM sales
		WHERE status IN ('paid', 'active') AND paid_at >= $1 AND paid_at < $2
	`
	err := r.db.QueryRow(ctx, query, from, to).Scan(&total)
	return total, err
}
