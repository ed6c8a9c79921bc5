package domain

import (
	"time"

	"github.com/google/uuid"
)

// Balance buckets for producer funds.
const (
	BucketAvailable = "available"
	BucketPending   = "pending"
)

// ProducerBalance is the per-producer rolling balance row. Maps to the
// `producer_balances` table. Both quantities are non-negative at all times;
// the store's debit primitive fails closed rather than letting available go
// negative.
type ProducerBalance struct {
	ProducerID uuid.UUID `json:"producer_id"`
	Available  int64     `json:"available"` // in cents, withdrawable now
	Pending    int64     `json:"pending"`   // in cents, waiting on release dates
	UpdatedAt  time.Time `json:"updated_at"`
}

// ReserveRelease records one security reserve moved back to available balance
// by the sweeper.
type ReserveRelease struct {
	SaleID     uuid.UUID `json:"sale_id"`
	ProducerID uuid.UUID `json:"producer_id"`
	Amount     int64     `json:"amount"`
}

// ShareRelease records one matured producer share moved from pending to
// available balance by the sweeper.
type ShareRelease struct {
	SaleID     uuid.UUID `json:"sale_id"`
	ProducerID uuid.UUID `json:"producer_id"`
	Amount     int64     `json:"amount"`
}

// SweepResult summarizes one sweeper run.
type SweepResult struct {
	Processed       int              `json:"processed"`
	ReserveReleases []ReserveRelease `json:"reserve_releases"`
	ShareReleases   []ShareRelease   `json:"share_releases"`
	Failures        int              `json:"failures"`
}
