/**
 * @description
 * This file contains the withdrawal manager: validation and recording of
 * producer withdrawal requests, and processing of admin decisions over them.
 *
 * Key features:
 * - The request path resolves the withdrawal fee (producer override or platform
 *   default), then debits amount+fee and inserts the request row inside one
 *   repository transaction, so the available balance can never go negative and
 *   a failed insert never strands a debit.
 * - The decision path is terminal: only pending requests can be decided, and a
 *   rejection refunds amount+fee exactly once.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For request identifiers.
 * - internal/domain, internal/store: Domain models and data access.
 * - pkg/rabbitmq: Event publication on request lifecycle transitions.
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
	"github.com/vendaflow/settlement-service/internal/store"
	"github.com/vendaflow/settlement-service/pkg/rabbitmq"
)

var (
	// ErrInvalidWithdrawalAmount is returned for zero or negative amounts.
	ErrInvalidWithdrawalAmount = errors.New("withdrawal amount must be positive")

	// ErrInvalidDecision is returned for decisions outside approved/rejected/paid.
	ErrInvalidDecision = errors.New("invalid withdrawal decision")
)

// InsufficientFundsError reports the exact shortfall so the caller can explain
// it to the producer.
type InsufficientFundsError struct {
	Available int64 `json:"available"`
	Requested int64 `json:"requested"`
	Fee       int64 `json:"fee"`
	Required  int64 `json:"required"`
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available=%d requested=%d fee=%d required=%d",
		e.Available, e.Requested, e.Fee, e.Required)
}

func (e *InsufficientFundsError) Unwrap() error {
	return store.ErrInsufficientFunds
}

// WithdrawalManager validates and records withdrawal requests against the
// available balance and processes admin decisions over them.
type WithdrawalManager struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
	now           func() time.Time
}

// NewWithdrawalManager creates a new withdrawal manager.
func NewWithdrawalManager(repo store.Repository, producer rabbitmq.Publisher) *WithdrawalManager {
	return &WithdrawalManager{
		repo:          repo,
		eventProducer: producer,
		now:           time.Now,
	}
}

// RequestWithdrawal records a producer's cash-out request, debiting amount+fee
// from the available balance atomically.
func (m *WithdrawalManager) RequestWithdrawal(ctx context.Context, producerID uuid.UUID, amount int64) (*domain.WithdrawalRequest, error) {
	if amount <= 0 {
		return nil, ErrInvalidWithdrawalAmount
	}

	settings, err := ResolveProducerSettings(ctx, m.repo, producerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve fee settings for producer %s: %w", producerID, err)
	}
	fee := settings.WithdrawalFee
	total := amount + fee

	request := &domain.WithdrawalRequest{
		ID:          uuid.New(),
		ProducerID:  producerID,
		Amount:      amount,
		Fee:         fee,
		Status:      domain.WithdrawalStatusPending,
		RequestedAt: m.now().UTC(),
	}

	if err := m.repo.CreateWithdrawalRequestWithDebit(ctx, request); err != nil {
		if errors.Is(err, store.ErrInsufficientFunds) {
			balance, balErr := m.repo.GetBalance(ctx, producerID)
			available := int64(0)
			if balErr == nil {
				available = balance.Available
			}
			return nil, &InsufficientFundsError{
				Available: available,
				Requested: amount,
				Fee:       fee,
				Required:  total,
			}
		}
		return nil, fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	log.Printf("level=info component=withdrawal msg=\"withdrawal requested\" request_id=%s producer_id=%s amount=%d fee=%d",
		request.ID, producerID, amount, fee)

	if m.eventProducer != nil {
		m.eventProducer.Publish(ctx, rabbitmq.SettlementExchange, "withdrawal.requested", domain.WithdrawalEvent{
			RequestID:  request.ID,
			ProducerID: producerID,
			Amount:     amount,
			Fee:        fee,
			Status:     request.Status,
			Timestamp:  m.now().UTC(),
		})
	}

	return request, nil
}

// ProcessWithdrawal applies an admin decision to a pending request. Rejection
// credits amount+fee back to the producer's available balance; the fee is
// refunded too since the withdrawal never happened. Approved and paid carry no
// further balance effect: the funds already left available at request time.
func (m *WithdrawalManager) ProcessWithdrawal(ctx context.Context, requestID uuid.UUID, decision domain.WithdrawalDecision) (*domain.WithdrawalRequest, error) {
	if !domain.ValidDecision(decision.Decision) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision.Decision)
	}

	refund := decision.Decision == domain.WithdrawalStatusRejected
	request, err := m.repo.DecideWithdrawalRequest(ctx, requestID, decision.Decision, decision.AdminNotes, refund)
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=withdrawal msg=\"withdrawal decided\" request_id=%s producer_id=%s decision=%s refund=%t",
		request.ID, request.ProducerID, decision.Decision, refund)

	if m.eventProducer != nil {
		m.eventProducer.Publish(ctx, rabbitmq.SettlementExchange, "withdrawal."+decision.Decision, domain.WithdrawalEvent{
			RequestID:  request.ID,
			ProducerID: request.ProducerID,
			Amount:     request.Amount,
			Fee:        request.Fee,
			Status:     request.Status,
			Timestamp:  m.now().UTC(),
		})
	}

	return request, nil
}

// WithdrawalHistory lists a producer's withdrawal requests, newest first.
func (m *WithdrawalManager) WithdrawalHistory(ctx context.Context, producerID uuid.UUID) ([]domain.WithdrawalRequest, error) {
	return m.repo.FindWithdrawalRequestsByProducer(ctx, producerID)
}

// PendingWithdrawals lists the admin processing queue.
func (m *WithdrawalManager) PendingWithdrawals(ctx context.Context, limit, offset int) ([]domain.WithdrawalRequest, error) {
	return m.repo.FindWithdrawalRequestsByStatus(ctx, domain.WithdrawalStatusPending, limit, offset)
}
