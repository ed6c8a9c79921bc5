package domain

import (
	"time"

	"github.com/google/uuid"
)

// RevenueBucket is one date-bucketed point in a revenue chart.
type RevenueBucket struct {
	Date  time.Time `json:"date"`
	Gross int64     `json:"gross"`
	Net   int64     `json:"net"` // producer share
	Count int       `json:"count"`
}

// ProducerDashboard is the read-only rollup shown on a producer's dashboard.
type ProducerDashboard struct {
	ProducerID      uuid.UUID       `json:"producer_id"`
	Available       int64           `json:"available"`
	Pending         int64           `json:"pending"`
	ReservedTotal   int64           `json:"reserved_total"` // sum of held security reserves
	GrossTotal      int64           `json:"gross_total"`
	NetTotal        int64           `json:"net_total"`
	FeeTotal        int64           `json:"fee_total"`
	RefundedTotal   int64           `json:"refunded_total"`
	SalesByStatus   map[string]int  `json:"sales_by_status"`
	Revenue         []RevenueBucket `json:"revenue"`
	RecentSales     []Sale          `json:"recent_sales"`
	PendingRequests int             `json:"pending_withdrawal_requests"`
}

// AdminOverview is the platform-wide KPI rollup for the admin panel.
type AdminOverview struct {
	GrossTotal         int64           `json:"gross_total"`
	PlatformFeeTotal   int64           `json:"platform_fee_total"`
	RefundedTotal      int64           `json:"refunded_total"`
	SalesByStatus      map[string]int  `json:"sales_by_status"`
	Revenue            []RevenueBucket `json:"revenue"`
	PendingWithdrawals int             `json:"pending_withdrawals"`
	HeldReserveTotal   int64           `json:"held_reserve_total"`
}

// SalesTotals aggregates a producer's sale amounts over a period.
type SalesTotals struct {
	Gross    int64 `json:"gross"`
	Net      int64 `json:"net"`
	Fees     int64 `json:"fees"`
	Refunded int64 `json:"refunded"`
}
