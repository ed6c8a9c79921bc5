package domain

import (
	"time"

	"github.com/google/uuid"
)

// Gateway event payment statuses the settlement core reacts to. Only confirmed
// and received trigger settlement; refunded and failed are out-of-band sale
// transitions.
const (
	GatewayStatusConfirmed = "confirmed"
	GatewayStatusReceived  = "received"
	GatewayStatusRefunded  = "refunded"
	GatewayStatusFailed    = "failed"
)

// GatewayEvent is the webhook payload the gateway delivers on payment state
// changes. Delivery is at-least-once and may be out of order; the settlement
// path is idempotent on the sale's paid status.
type GatewayEvent struct {
	Reference   string `json:"reference"` // gateway-assigned transaction/subscription id
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`       // in cents, validated against the stored sale
	PaymentDate string `json:"payment_date"` // calendar date, YYYY-MM-DD
}

// SaleSettledEvent is published to the message broker after a sale settles.
type SaleSettledEvent struct {
	SaleID          uuid.UUID `json:"sale_id"`
	ProducerID      uuid.UUID `json:"producer_id"`
	Gross           int64     `json:"gross"`
	PlatformFee     int64     `json:"platform_fee"`
	ProducerShare   int64     `json:"producer_share"`
	SecurityReserve int64     `json:"security_reserve"`
	ReleaseDate     time.Time `json:"release_date"`
	Timestamp       time.Time `json:"timestamp"`
}

// WithdrawalEvent is published when a withdrawal request is created or decided.
type WithdrawalEvent struct {
	RequestID  uuid.UUID `json:"request_id"`
	ProducerID uuid.UUID `json:"producer_id"`
	Amount     int64     `json:"amount"`
	Fee        int64     `json:"fee"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// ReserveReleasedEvent is published when the sweeper returns a security reserve
// to a producer's available balance.
type ReserveReleasedEvent struct {
	SaleID     uuid.UUID `json:"sale_id"`
	ProducerID uuid.UUID `json:"producer_id"`
	Amount     int64     `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}
