/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for
 * all data access operations required by the settlement-service. By defining an
 * interface, we decouple the business logic from the PostgreSQL implementation,
 * making the settlement, withdrawal and sweeper paths testable with in-memory
 * fakes.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For entity identifiers.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vendaflow/settlement-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Sale methods
	CreateSale(ctx context.Context, sale *domain.Sale) error
	FindSaleByID(ctx context.Context, saleID uuid.UUID) (*domain.Sale, error)
	FindSaleByGatewayReference(ctx context.Context, reference string) (*domain.Sale, error)
	// ApplySettlement writes all financial fields of a confirmed sale in one
	// guarded update. Pending and failed sales settle; for any other status
	// it returns ErrSaleAlreadySettled.
	ApplySettlement(ctx context.Context, update domain.SettlementUpdate) error
	UpdateSaleStatus(ctx context.Context, saleID uuid.UUID, status string) error
	FindSalesWithHeldReserves(ctx context.Context) ([]domain.Sale, error)
	FindSalesWithMaturedShares(ctx context.Context, asOf time.Time) ([]domain.Sale, error)
	// ZeroSecurityReserve clears a sale's reserve marker. Returns
	// ErrReserveAlreadyReleased when the marker is already zero, which makes a
	// repeated sweep of the same sale a no-op.
	ZeroSecurityReserve(ctx context.Context, saleID uuid.UUID) error
	// MarkSharePayoutReleased flips payout_status from pending to released.
	// Returns ErrPayoutAlreadyReleased when another sweep got there first.
	MarkSharePayoutReleased(ctx context.Context, saleID uuid.UUID) error

	// Balance ledger primitives. Each is atomic with respect to concurrent
	// callers on the same producer row.
	GetBalance(ctx context.Context, producerID uuid.UUID) (*domain.ProducerBalance, error)
	IncrementBalance(ctx context.Context, producerID uuid.UUID, bucket string, amount int64) error
	DebitAvailable(ctx context.Context, producerID uuid.UUID, amount int64) error
	CreditAvailable(ctx context.Context, producerID uuid.UUID, amount int64) error
	MovePendingToAvailable(ctx context.Context, producerID uuid.UUID, amount int64) error
	MoveAvailableToPending(ctx context.Context, producerID uuid.UUID, amount int64) error

	// Withdrawal methods
	// CreateWithdrawalRequestWithDebit debits amount+fee from the producer's
	// available balance and inserts the request row inside one transaction.
	CreateWithdrawalRequestWithDebit(ctx context.Context, request *domain.WithdrawalRequest) error
	FindWithdrawalRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.WithdrawalRequest, error)
	FindWithdrawalRequestsByProducer(ctx context.Context, producerID uuid.UUID) ([]domain.WithdrawalRequest, error)
	FindWithdrawalRequestsByStatus(ctx context.Context, status string, limit, offset int) ([]domain.WithdrawalRequest, error)
	// DecideWithdrawalRequest moves a pending request to a terminal status and,
	// when refund is true, credits amount+fee back to the producer inside the
	// same transaction. Returns ErrWithdrawalAlreadyProcessed when the request
	// is no longer pending.
	DecideWithdrawalRequest(ctx context.Context, requestID uuid.UUID, status, adminNotes string, refund bool) (*domain.WithdrawalRequest, error)

	// Fee settings methods
	GetPlatformFeeSettings(ctx context.Context) (domain.FeeSettings, error)
	UpdatePlatformFeeSettings(ctx context.Context, settings domain.FeeSettings) error
	GetProducerFeeOverride(ctx context.Context, producerID uuid.UUID) (*domain.FeeSettingsOverride, error)
	UpsertProducerFeeOverride(ctx context.Context, producerID uuid.UUID, override domain.FeeSettingsOverride) error

	// Report methods (read-only projections)
	GetSalesTotals(ctx context.Context, producerID *uuid.UUID, from, to time.Time) (domain.SalesTotals, error)
	GetSalesCountByStatus(ctx context.Context, producerID *uuid.UUID, from, to time.Time) (map[string]int, error)
	GetRevenueSeries(ctx context.Context, producerID *uuid.UUID, from, to time.Time) ([]domain.RevenueBucket, error)
	FindRecentSales(ctx context.Context, producerID uuid.UUID, limit int) ([]domain.Sale, error)
	CountWithdrawalRequestsByStatus(ctx context.Context, producerID *uuid.UUID, status string) (int, error)
	GetHeldReserveTotal(ctx context.Context, producerID *uuid.UUID) (int64, error)
	GetPlatformFeeTotal(ctx context.Context, from, to time.Time) (int64, error)
}
