package domain

import (
	"time"

	"github.com/google/uuid"
)

// Withdrawal request statuses. A request is terminal once it leaves pending.
const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
	WithdrawalStatusRejected = "rejected"
	WithdrawalStatusPaid     = "paid"
)

// WithdrawalRequest is one producer's ask to cash out available balance.
// Maps to the `withdrawal_requests` table. Rows are never deleted (audit trail).
type WithdrawalRequest struct {
	ID          uuid.UUID  `json:"id"`
	ProducerID  uuid.UUID  `json:"producer_id"`
	Amount      int64      `json:"amount"` // in cents
	Fee         int64      `json:"fee"`    // in cents, fixed at request time
	Status      string     `json:"status"`
	AdminNotes  string     `json:"admin_notes,omitempty"`
	RequestedAt time.Time  `json:"requested_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// WithdrawalDecision is the admin input for processing a pending request.
type WithdrawalDecision struct {
	Decision   string `json:"decision"` // approved, rejected or paid
	AdminNotes string `json:"admin_notes"`
}

// ValidDecision reports whether s is an accepted admin decision value.
func ValidDecision(s string) bool {
	switch s {
	case WithdrawalStatusApproved, WithdrawalStatusRejected, WithdrawalStatusPaid:
		return true
	}
	return false
}
