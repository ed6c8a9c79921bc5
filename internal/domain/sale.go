/**
 * @description
 * This file defines the core domain models for the settlement-service.
 * These structs represent the main entities used throughout the service's
 * business logic, database interactions, and API layers.
 *
 * @notes
 * - Amounts are stored as `int64` to represent the value in the smallest currency
 *   unit (cents), which avoids floating-point inaccuracies with financial data.
 * - The security reserve is a hold marker inside the producer share, not a
 *   deduction from it: `Gross == PlatformFee + ProducerShare` always holds, and
 *   `SecurityReserve <= ProducerShare`.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Payment methods accepted by the platform.
const (
	PaymentMethodCard     = "card"
	PaymentMethodPix      = "pix"
	PaymentMethodBankSlip = "bank_slip"
)

// Sale lifecycle statuses.
const (
	SaleStatusPending  = "pending"
	SaleStatusPaid     = "paid"
	SaleStatusActive   = "active" // subscription sale after first successful charge
	SaleStatusRefunded = "refunded"
	SaleStatusFailed   = "failed"
)

// Payout statuses for a paid sale's producer share.
const (
	PayoutStatusPending  = "pending"
	PayoutStatusReleased = "released"
)

// Sale represents one purchase/charge attempt. Maps to the `sales` table.
type Sale struct {
	ID               uuid.UUID  `json:"id"`
	ProducerID       uuid.UUID  `json:"producer_id"`
	GatewayReference string     `json:"gateway_reference"`
	PaymentMethod    string     `json:"payment_method"`
	Installments     int        `json:"installments"` // >= 1, only meaningful for card
	IsSubscription   bool       `json:"is_subscription"`
	Status           string     `json:"status"`
	Gross            int64      `json:"gross"`          // in cents
	PlatformFee      int64      `json:"platform_fee"`   // in cents, set at settlement
	ProducerShare    int64      `json:"producer_share"` // gross - platform_fee
	SecurityReserve  int64      `json:"security_reserve"`
	PayoutStatus     string     `json:"payout_status"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	ReleaseDate      *time.Time `json:"release_date,omitempty"` // calendar date, no time-of-day
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// SettlementUpdate carries the financial fields written to a sale row in a
// single atomic update when a payment is confirmed.
type SettlementUpdate struct {
	SaleID          uuid.UUID
	PaidAt          time.Time
	PlatformFee     int64
	ProducerShare   int64
	SecurityReserve int64
	ReleaseDate     time.Time
	Status          string // paid, or active for subscription sales
	PayoutStatus    string // released when the share lands directly in available
}

// SettlementResult summarizes the outcome of processing one confirmation event.
type SettlementResult struct {
	SaleID          uuid.UUID `json:"sale_id"`
	AlreadySettled  bool      `json:"already_settled"`
	PlatformFee     int64     `json:"platform_fee"`
	ProducerShare   int64     `json:"producer_share"`
	SecurityReserve int64     `json:"security_reserve"`
	ReleaseDate     time.Time `json:"release_date"`
	Bucket          string    `json:"bucket"` // which balance bucket the share landed in
}
