/**
 * @description
 * This file contains the settlement engine: the business logic that turns a
 * confirmed gateway payment event into a settled sale and a producer balance
 * increment. It is the only writer of a sale's financial fields.
 *
 * Key features:
 * - Idempotent under at-least-once webhook delivery: a confirmation for an
 *   already-settled sale is a no-op. A failed sale can still be confirmed,
 *   covering the overdue-then-paid sequence bank slips produce.
 * - The sale row update is a single guarded write; the ledger is only touched
 *   after it commits. A ledger failure after that point is surfaced as a
 *   reconciliation error and never unwinds the paid sale, because the charge
 *   already happened at the gateway.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - internal/domain, internal/fees, internal/store: Domain models, fee math and data access.
 * - pkg/gateway, pkg/rabbitmq: External gateway verification and event publication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/vendaflow/settlement-service/internal/domain"
	"github.com/vendaflow/settlement-service/internal/fees"
	"github.com/vendaflow/settlement-service/internal/store"
	"github.com/vendaflow/settlement-service/pkg/gateway"
	"github.com/vendaflow/settlement-service/pkg/rabbitmq"
)

var (
	// ErrAmountMismatch is returned when the event amount does not match the
	// stored sale's gross amount. Nothing is mutated in that case.
	ErrAmountMismatch = errors.New("event amount does not match sale gross")

	// ErrLedgerReconciliation is returned when the balance update failed after
	// the sale row already committed as paid. The sale stays paid; the ledger
	// needs manual reconciliation.
	ErrLedgerReconciliation = errors.New("ledger update failed after sale settled; manual reconciliation required")

	// ErrUnsupportedEventStatus is returned for gateway statuses the settlement
	// core does not react to.
	ErrUnsupportedEventStatus = errors.New("unsupported gateway event status")

	// ErrInvalidSale is returned when a sale registration fails validation.
	ErrInvalidSale = errors.New("invalid sale")
)

// SettlementEngine consumes confirmed-payment events and produces the ledger
// deltas for one sale.
type SettlementEngine struct {
	repo          store.Repository
	gatewayClient gateway.Client
	eventProducer rabbitmq.Publisher
	now           func() time.Time
}

// NewSettlementEngine creates a new settlement engine. gatewayClient may be nil
// when cross-checking events against the gateway is disabled.
func NewSettlementEngine(repo store.Repository, gatewayClient gateway.Client, producer rabbitmq.Publisher) *SettlementEngine {
	return &SettlementEngine{
		repo:          repo,
		gatewayClient: gatewayClient,
		eventProducer: producer,
		now:           time.Now,
	}
}

// RegisterSale records a pending sale ahead of its gateway charge. The commerce
// platform calls this at checkout time; the financial fields stay zero until a
// confirmation event settles the sale.
func (e *SettlementEngine) RegisterSale(ctx context.Context, sale *domain.Sale) error {
	if sale.ProducerID == uuid.Nil {
		return fmt.Errorf("%w: producer id is required", ErrInvalidSale)
	}
	if sale.GatewayReference == "" {
		return fmt.Errorf("%w: gateway reference is required", ErrInvalidSale)
	}
	if sale.Gross <= 0 {
		return fmt.Errorf("%w: gross must be positive", ErrInvalidSale)
	}
	switch sale.PaymentMethod {
	case domain.PaymentMethodCard, domain.PaymentMethodPix, domain.PaymentMethodBankSlip:
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidSale, sale.PaymentMethod)
	}
	if sale.Installments < 1 {
		sale.Installments = 1
	}
	if sale.PaymentMethod != domain.PaymentMethodCard && sale.Installments != 1 {
		return fmt.Errorf("%w: installments only apply to card payments", ErrInvalidSale)
	}

	sale.ID = uuid.New()
	sale.Status = domain.SaleStatusPending
	sale.PayoutStatus = domain.PayoutStatusPending

	if err := e.repo.CreateSale(ctx, sale); err != nil {
		return err
	}
	log.Printf("level=info component=settlement msg=\"sale registered\" sale_id=%s producer_id=%s reference=%s gross=%d",
		sale.ID, sale.ProducerID, sale.GatewayReference, sale.Gross)
	return nil
}

// SaleByID retrieves one sale.
func (e *SettlementEngine) SaleByID(ctx context.Context, saleID uuid.UUID) (*domain.Sale, error) {
	return e.repo.FindSaleByID(ctx, saleID)
}

// HandleGatewayEvent dispatches one webhook event to the matching transition.
// Only confirmed/received events settle; refunded and failed are out-of-band
// sale status transitions with no ledger math here.
func (e *SettlementEngine) HandleGatewayEvent(ctx context.Context, event domain.GatewayEvent) (*domain.SettlementResult, error) {
	switch event.Status {
	case domain.GatewayStatusConfirmed, domain.GatewayStatusReceived:
		return e.ConfirmPayment(ctx, event)
	case domain.GatewayStatusRefunded:
		return nil, e.markRefunded(ctx, event)
	case domain.GatewayStatusFailed:
		return nil, e.markFailed(ctx, event)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEventStatus, event.Status)
	}
}

// ConfirmPayment settles one sale from a payment confirmation event.
func (e *SettlementEngine) ConfirmPayment(ctx context.Context, event domain.GatewayEvent) (*domain.SettlementResult, error) {
	sale, err := e.repo.FindSaleByGatewayReference(ctx, event.Reference)
	if err != nil {
		return nil, fmt.Errorf("failed to find sale for reference %s: %w", event.Reference, err)
	}

	// Idempotency under at-least-once delivery: a second confirmation for an
	// already-settled sale is a successful no-op. A failed sale is still
	// settleable: bank slips regularly go overdue before the payment clears,
	// and the gateway delivers those events in either order.
	switch sale.Status {
	case domain.SaleStatusPending, domain.SaleStatusFailed:
	default:
		log.Printf("level=info component=settlement msg=\"sale already settled; skipping\" sale_id=%s status=%s", sale.ID, sale.Status)
		return &domain.SettlementResult{SaleID: sale.ID, AlreadySettled: true}, nil
	}

	if event.Amount != 0 && event.Amount != sale.Gross {
		return nil, fmt.Errorf("%w: sale_id=%s gross=%d event_amount=%d", ErrAmountMismatch, sale.ID, sale.Gross, event.Amount)
	}

	if err := e.verifyWithGateway(ctx, sale, event); err != nil {
		return nil, err
	}

	paidAt, err := parsePaymentDate(event.PaymentDate, e.now())
	if err != nil {
		return nil, fmt.Errorf("invalid payment date %q: %w", event.PaymentDate, err)
	}

	settings, err := ResolveProducerSettings(ctx, e.repo, sale.ProducerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve fee settings for producer %s: %w", sale.ProducerID, err)
	}

	platformFee := fees.PlatformFee(sale.PaymentMethod, sale.Installments, sale.Gross, settings)
	producerShare := sale.Gross - platformFee
	// The reserve is a hold marker inside the share, not a deduction from it.
	reserve := fees.SecurityReserve(sale.Gross, settings)
	if reserve > producerShare {
		reserve = producerShare
	}
	releaseDate := fees.ReleaseDate(sale.PaymentMethod, paidAt, settings)

	status := domain.SaleStatusPaid
	if sale.IsSubscription {
		status = domain.SaleStatusActive
	}

	// A share whose release date already passed lands straight in available,
	// so its payout is released in the same sale update. Otherwise the share
	// sweep would release the same share a second time later.
	bucket := domain.BucketPending
	payoutStatus := domain.PayoutStatusPending
	if !releaseDate.After(fees.TruncateToDate(e.now())) {
		bucket = domain.BucketAvailable
		payoutStatus = domain.PayoutStatusReleased
	}

	update := domain.SettlementUpdate{
		SaleID:          sale.ID,
		PaidAt:          paidAt,
		PlatformFee:     platformFee,
		ProducerShare:   producerShare,
		SecurityReserve: reserve,
		ReleaseDate:     releaseDate,
		Status:          status,
		PayoutStatus:    payoutStatus,
	}
	if err := e.repo.ApplySettlement(ctx, update); err != nil {
		if errors.Is(err, store.ErrSaleAlreadySettled) {
			// A concurrent delivery won the race; same idempotent outcome.
			return &domain.SettlementResult{SaleID: sale.ID, AlreadySettled: true}, nil
		}
		// Sale row untouched: no partial effect, the caller may retry.
		return nil, fmt.Errorf("failed to apply settlement for sale %s: %w", sale.ID, err)
	}

	if err := e.repo.IncrementBalance(ctx, sale.ProducerID, bucket, producerShare); err != nil {
		// The payment happened at the gateway and the sale is committed as
		// paid; do not unwind. Surface for manual reconciliation.
		log.Printf("level=error component=settlement msg=\"balance increment failed after sale settled\" sale_id=%s producer_id=%s bucket=%s amount=%d err=%v",
			sale.ID, sale.ProducerID, bucket, producerShare, err)
		return nil, fmt.Errorf("%w: sale_id=%s: %v", ErrLedgerReconciliation, sale.ID, err)
	}

	result := &domain.SettlementResult{
		SaleID:          sale.ID,
		PlatformFee:     platformFee,
		ProducerShare:   producerShare,
		SecurityReserve: reserve,
		ReleaseDate:     releaseDate,
		Bucket:          bucket,
	}

	log.Printf("level=info component=settlement msg=\"sale settled\" sale_id=%s producer_id=%s gross=%d fee=%d share=%d reserve=%d bucket=%s release_date=%s",
		sale.ID, sale.ProducerID, sale.Gross, platformFee, producerShare, reserve, bucket, releaseDate.Format("2006-01-02"))

	if e.eventProducer != nil {
		e.eventProducer.Publish(ctx, rabbitmq.SettlementExchange, "sale.settled", domain.SaleSettledEvent{
			SaleID:          sale.ID,
			ProducerID:      sale.ProducerID,
			Gross:           sale.Gross,
			PlatformFee:     platformFee,
			ProducerShare:   producerShare,
			SecurityReserve: reserve,
			ReleaseDate:     releaseDate,
			Timestamp:       e.now().UTC(),
		})
	}

	return result, nil
}

// verifyWithGateway cross-checks the event against the gateway's own record
// when a gateway client is configured. A transient gateway failure propagates
// so the webhook delivery is retried.
func (e *SettlementEngine) verifyWithGateway(ctx context.Context, sale *domain.Sale, event domain.GatewayEvent) error {
	if e.gatewayClient == nil {
		return nil
	}

	payment, err := e.gatewayClient.GetPayment(ctx, event.Reference)
	if err != nil {
		return fmt.Errorf("gateway verification failed for reference %s: %w", event.Reference, err)
	}
	if payment.Status != domain.GatewayStatusConfirmed && payment.Status != domain.GatewayStatusReceived {
		return fmt.Errorf("gateway reports status %q for reference %s; refusing to settle", payment.Status, event.Reference)
	}
	if payment.Amount != 0 && payment.Amount != sale.Gross {
		return fmt.Errorf("%w: sale_id=%s gross=%d gateway_amount=%d", ErrAmountMismatch, sale.ID, sale.Gross, payment.Amount)
	}
	return nil
}

// markRefunded transitions a sale to refunded. The producer's balance impact of
// a refund is handled by support tooling, not the settlement path.
func (e *SettlementEngine) markRefunded(ctx context.Context, event domain.GatewayEvent) error {
	sale, err := e.repo.FindSaleByGatewayReference(ctx, event.Reference)
	if err != nil {
		return fmt.Errorf("failed to find sale for reference %s: %w", event.Reference, err)
	}
	if sale.Status == domain.SaleStatusRefunded {
		return nil
	}
	if err := e.repo.UpdateSaleStatus(ctx, sale.ID, domain.SaleStatusRefunded); err != nil {
		return fmt.Errorf("failed to mark sale %s refunded: %w", sale.ID, err)
	}
	log.Printf("level=info component=settlement msg=\"sale refunded\" sale_id=%s", sale.ID)
	return nil
}

// markFailed transitions a pending sale to failed. A settled sale is never
// clobbered by a late failure event.
func (e *SettlementEngine) markFailed(ctx context.Context, event domain.GatewayEvent) error {
	sale, err := e.repo.FindSaleByGatewayReference(ctx, event.Reference)
	if err != nil {
		return fmt.Errorf("failed to find sale for reference %s: %w", event.Reference, err)
	}
	if sale.Status != domain.SaleStatusPending {
		log.Printf("level=warn component=settlement msg=\"failure event for non-pending sale; ignoring\" sale_id=%s status=%s", sale.ID, sale.Status)
		return nil
	}
	if err := e.repo.UpdateSaleStatus(ctx, sale.ID, domain.SaleStatusFailed); err != nil {
		return fmt.Errorf("failed to mark sale %s failed: %w", sale.ID, err)
	}
	return nil
}

// parsePaymentDate parses the gateway's calendar date, falling back to today
// when the gateway omits it.
func parsePaymentDate(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fees.TruncateToDate(fallback), nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed, nil
}
