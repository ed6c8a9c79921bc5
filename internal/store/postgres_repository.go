/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface
 * for sales, producer balances and withdrawal requests. It contains all the SQL
 * needed by the settlement engine, the withdrawal manager and the reserve
 * sweeper.
 *
 * Key features:
 * - Balance mutations lock the producer's row with SELECT ... FOR UPDATE so
 *   concurrent settlements, withdrawals and sweeps serialize per producer.
 * - The settlement update and the withdrawal decision are guarded UPDATEs on
 *   the current status, which is what makes retries and racing admins safe.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vendaflow/settlement-service/internal/domain"
)

var (
	ErrSaleNotFound               = errors.New("sale not found")
	ErrDuplicateReference         = errors.New("gateway reference already registered")
	ErrSaleAlreadySettled         = errors.New("sale already settled")
	ErrReserveAlreadyReleased     = errors.New("security reserve already released")
	ErrPayoutAlreadyReleased      = errors.New("producer share already released")
	ErrBalanceNotFound            = errors.New("producer balance not found")
	ErrInsufficientFunds          = errors.New("insufficient available balance")
	ErrInsufficientPending        = errors.New("insufficient pending balance")
	ErrWithdrawalNotFound         = errors.New("withdrawal request not found")
	ErrWithdrawalAlreadyProcessed = errors.New("withdrawal request already processed")
	ErrSettingsNotFound           = errors.New("fee settings not found")
	ErrUnknownBucket              = errors.New("unknown balance bucket")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const saleColumns = `id, producer_id, gateway_reference, payment_method, installments, is_subscription,
	status, gross, platform_fee, producer_share, security_reserve, payout_status,
	paid_at, release_date, created_at, updated_at`

func scanSale(row pgx.Row) (*domain.Sale, error) {
	var sale domain.Sale
	err := row.Scan(
		&sale.ID, &sale.ProducerID, &sale.GatewayReference, &sale.PaymentMethod,
		&sale.Installments, &sale.IsSubscription, &sale.Status, &sale.Gross,
		&sale.PlatformFee, &sale.ProducerShare, &sale.SecurityReserve,
		&sale.PayoutStatus, &sale.PaidAt, &sale.ReleaseDate,
		&sale.CreatedAt, &sale.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	return &sale, nil
}

// CreateSale inserts a new sale in the pending state (checkout time).
func (r *PostgresRepository) CreateSale(ctx context.Context, sale *domain.Sale) error {
	query := `
		INSERT INTO sales (
			id, producer_id, gateway_reference, payment_method, installments,
			is_subscription, status, gross, payout_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		sale.ID, sale.ProducerID, sale.GatewayReference, sale.PaymentMethod,
		sale.Installments, sale.IsSubscription, sale.Status, sale.Gross, sale.PayoutStatus,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

// FindSaleByID retrieves a sale by its internal id.
func (r *PostgresRepository) FindSaleByID(ctx context.Context, saleID uuid.UUID) (*domain.Sale, error) {
	return scanSale(r.db.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, saleID))
}

// FindSaleByGatewayReference retrieves a sale by the gateway-assigned reference.
func (r *PostgresRepository) FindSaleByGatewayReference(ctx context.Context, reference string) (*domain.Sale, error) {
	return scanSale(r.db.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE gateway_reference = $1`, reference))
}

// ApplySettlement writes all financial fields of a confirmed sale in one guarded
// update. The WHERE clause on the unsettled statuses is what makes a second
// confirmation event for the same sale a no-op at the database level. A failed
// sale is admitted because a confirmation can arrive after an overdue event.
func (r *PostgresRepository) ApplySettlement(ctx context.Context, update domain.SettlementUpdate) error {
	query := `
		UPDATE sales
		SET status = $2, paid_at = $3, platform_fee = $4, producer_share = $5,
		    security_reserve = $6, release_date = $7, payout_status = $8,
		    updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'failed')
	`
	result, err := r.db.Exec(ctx, query,
		update.SaleID, update.Status, update.PaidAt, update.PlatformFee,
		update.ProducerShare, update.SecurityReserve, update.ReleaseDate,
		update.PayoutStatus,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrSaleAlreadySettled
	}
	return nil
}

// UpdateSaleStatus applies an out-of-band status transition (refunded, failed).
func (r *PostgresRepository) UpdateSaleStatus(ctx context.Context, saleID uuid.UUID, status string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE sales SET status = $2, updated_at = NOW() WHERE id = $1`, saleID, status)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrSaleNotFound
	}
	return nil
}

// FindSalesWithHeldReserves retrieves all settled sales still holding a
// security reserve. Maturity is decided by the caller because the holding
// period is resolved per producer.
func (r *PostgresRepository) FindSalesWithHeldReserves(ctx context.Context) ([]domain.Sale, error) {
	query := `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE status IN ('paid', 'active') AND security_reserve > 0 AND paid_at IS NOT NULL
		ORDER BY paid_at ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSales(rows)
}

// FindSalesWithMaturedShares retrieves settled sales whose producer share is
// still pending and whose release date has passed.
func (r *PostgresRepository) FindSalesWithMaturedShares(ctx context.Context, asOf time.Time) ([]domain.Sale, error) {
	query := `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE status IN ('paid', 'active') AND payout_status = 'pending' AND release_date <= $1
		ORDER BY release_date ASC
	`
	rows, err := r.db.Query(ctx, query, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSales(rows)
}

func collectSales(rows pgx.Rows) ([]domain.Sale, error) {
	var sales []domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	return sales, rows.Err()
}

// ZeroSecurityReserve clears a sale's reserve marker. The guard on a positive
// reserve makes sweeping the same sale twice a no-op.
func (r *PostgresRepository) ZeroSecurityReserve(ctx context.Context, saleID uuid.UUID) error {
	result, err := r.db.Exec(ctx,
		`UPDATE sales SET security_reserve = 0, updated_at = NOW() WHERE id = $1 AND security_reserve > 0`, saleID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrReserveAlreadyReleased
	}
	return nil
}

// MarkSharePayoutReleased flips a sale's payout status from pending to released.
func (r *PostgresRepository) MarkSharePayoutReleased(ctx context.Context, saleID uuid.UUID) error {
	result, err := r.db.Exec(ctx,
		`UPDATE sales SET payout_status = 'released', updated_at = NOW() WHERE id = $1 AND payout_status = 'pending'`, saleID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrPayoutAlreadyReleased
	}
	return nil
}

// GetBalance retrieves a producer's balance row, creating a zeroed one when the
// producer has never settled a sale.
func (r *PostgresRepository) GetBalance(ctx context.Context, producerID uuid.UUID) (*domain.ProducerBalance, error) {
	_, err := r.db.Exec(ctx,
		`INSERT INTO producer_balances (producer_id, available, pending) VALUES ($1, 0, 0) ON CONFLICT (producer_id) DO NOTHING`,
		producerID)
	if err != nil {
		return nil, err
	}

	var balance domain.ProducerBalance
	err = r.db.QueryRow(ctx,
		`SELECT producer_id, available, pending, updated_at FROM producer_balances WHERE producer_id = $1`,
		producerID).Scan(&balance.ProducerID, &balance.Available, &balance.Pending, &balance.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBalanceNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// IncrementBalance adds amount to the given bucket of a producer's balance.
// The row is created on first use so a producer's very first settlement works.
func (r *PostgresRepository) IncrementBalance(ctx context.Context, producerID uuid.UUID, bucket string, amount int64) error {
	var query string
	switch bucket {
	case domain.BucketAvailable:
		query = `
			INSERT INTO producer_balances (producer_id, available, pending)
			VALUES ($1, $2, 0)
			ON CONFLICT (producer_id) DO UPDATE
			SET available = producer_balances.available + $2, updated_at = NOW()
		`
	case domain.BucketPending:
		query = `
			INSERT INTO producer_balances (producer_id, available, pending)
			VALUES ($1, 0, $2)
			ON CONFLICT (producer_id) DO UPDATE
			SET pending = producer_balances.pending + $2, updated_at = NOW()
		`
	default:
		return ErrUnknownBucket
	}
	_, err := r.db.Exec(ctx, query, producerID, amount)
	return err
}

// DebitAvailable performs a checked, atomic debit on a producer's available
// balance. Fails closed with ErrInsufficientFunds rather than going negative.
func (r *PostgresRepository) DebitAvailable(ctx context.Context, producerID uuid.UUID, amount int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var available int64
	// Use FOR UPDATE to lock the row, preventing race conditions.
	err = tx.QueryRow(ctx,
		`SELECT available FROM producer_balances WHERE producer_id = $1 FOR UPDATE`, producerID).Scan(&available)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrBalanceNotFound
		}
		return err
	}

	if available < amount {
		return ErrInsufficientFunds
	}

	_, err = tx.Exec(ctx,
		`UPDATE producer_balances SET available = available - $1, updated_at = NOW() WHERE producer_id = $2`,
		amount, producerID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CreditAvailable performs an unconditional atomic credit on a producer's
// available balance (rejection refunds, reserve releases).
func (r *PostgresRepository) CreditAvailable(ctx context.Context, producerID uuid.UUID, amount int64) error {
	return r.IncrementBalance(ctx, producerID, domain.BucketAvailable, amount)
}

// MovePendingToAvailable moves a matured producer share between buckets in one
// transaction. Fails closed when pending does not cover the amount.
func (r *PostgresRepository) MovePendingToAvailable(ctx context.Context, producerID uuid.UUID, amount int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var pending int64
	err = tx.QueryRow(ctx,
		`SELECT pending FROM producer_balances WHERE producer_id = $1 FOR UPDATE`, producerID).Scan(&pending)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrBalanceNotFound
		}
		return err
	}

	if pending < amount {
		return ErrInsufficientPending
	}

	_, err = tx.Exec(ctx,
		`UPDATE producer_balances SET pending = pending - $1, available = available + $1, updated_at = NOW() WHERE producer_id = $2`,
		amount, producerID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// MoveAvailableToPending is the compensating move for a failed share release.
func (r *PostgresRepository) MoveAvailableToPending(ctx context.Context, producerID uuid.UUID, amount int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var available int64
	err = tx.QueryRow(ctx,
		`SELECT available FROM producer_balances WHERE producer_id = $1 FOR UPDATE`, producerID).Scan(&available)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrBalanceNotFound
		}
		return err
	}

	if available < amount {
		return ErrInsufficientFunds
	}

	_, err = tx.Exec(ctx,
		`UPDATE producer_balances SET available = available - $1, pending = pending + $1, updated_at = NOW() WHERE producer_id = $2`,
		amount, producerID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CreateWithdrawalRequestWithDebit debits amount+fee from the producer's
// available balance and inserts the request row inside one transaction, so a
// failed insert never leaves a dangling debit.
func (r *PostgresRepository) CreateWithdrawalRequestWithDebit(ctx context.Context, request *domain.WithdrawalRequest) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	total := request.Amount + request.Fee

	var available int64
	err = tx.QueryRow(ctx,
		`SELECT available FROM producer_balances WHERE producer_id = $1 FOR UPDATE`, request.ProducerID).Scan(&available)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrInsufficientFunds
		}
		return err
	}

	if available < total {
		return ErrInsufficientFunds
	}

	_, err = tx.Exec(ctx,
		`UPDATE producer_balances SET available = available - $1, updated_at = NOW() WHERE producer_id = $2`,
		total, request.ProducerID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO withdrawal_requests (id, producer_id, amount, fee, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, request.ID, request.ProducerID, request.Amount, request.Fee, request.Status, request.RequestedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const withdrawalColumns = `id, producer_id, amount, fee, status, COALESCE(admin_notes, '') AS admin_notes, requested_at, processed_at`

func scanWithdrawal(row pgx.Row) (*domain.WithdrawalRequest, error) {
	var request domain.WithdrawalRequest
	err := row.Scan(
		&request.ID, &request.ProducerID, &request.Amount, &request.Fee,
		&request.Status, &request.AdminNotes, &request.RequestedAt, &request.ProcessedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWithdrawalNotFound
		}
		return nil, err
	}
	return &request, nil
}

// FindWithdrawalRequestByID retrieves a single withdrawal request.
func (r *PostgresRepository) FindWithdrawalRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.WithdrawalRequest, error) {
	return scanWithdrawal(r.db.QueryRow(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, requestID))
}

// FindWithdrawalRequestsByProducer retrieves a producer's withdrawal history,
// newest first.
func (r *PostgresRepository) FindWithdrawalRequestsByProducer(ctx context.Context, producerID uuid.UUID) ([]domain.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE producer_id = $1 ORDER BY requested_at DESC`
	rows, err := r.db.Query(ctx, query, producerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWithdrawals(rows)
}

// FindWithdrawalRequestsByStatus retrieves the admin processing queue.
func (r *PostgresRepository) FindWithdrawalRequestsByStatus(ctx context.Context, status string, limit, offset int) ([]domain.WithdrawalRequest, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawal_requests
		WHERE status = $1
		ORDER BY requested_at ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWithdrawals(rows)
}

func collectWithdrawals(rows pgx.Rows) ([]domain.WithdrawalRequest, error) {
	var requests []domain.WithdrawalRequest
	for rows.Next() {
		request, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *request)
	}
	return requests, rows.Err()
}

// DecideWithdrawalRequest moves a pending request to a terminal status. When
// refund is true the amount+fee credit lands in the same transaction as the
// status flip, so a racing second decision can never double-credit: the guarded
// UPDATE matches zero rows and the whole transaction is abandoned.
func (r *PostgresRepository) DecideWithdrawalRequest(ctx context.Context, requestID uuid.UUID, status, adminNotes string, refund bool) (*domain.WithdrawalRequest, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE withdrawal_requests
		SET status = $2, admin_notes = $3, processed_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + withdrawalColumns + `
	`
	request, err := scanWithdrawal(tx.QueryRow(ctx, query, requestID, status, adminNotes))
	if err != nil {
		if errors.Is(err, ErrWithdrawalNotFound) {
			// Distinguish a missing request from one already processed.
			var exists bool
			checkErr := r.db.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM withdrawal_requests WHERE id = $1)`, requestID).Scan(&exists)
			if checkErr != nil {
				return nil, checkErr
			}
			if exists {
				return nil, ErrWithdrawalAlreadyProcessed
			}
			return nil, ErrWithdrawalNotFound
		}
		return nil, err
	}

	if refund {
		_, err = tx.Exec(ctx,
			`UPDATE producer_balances SET available = available + $1, updated_at = NOW() WHERE producer_id = $2`,
			request.Amount+request.Fee, request.ProducerID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return request, nil
}
