/**
 * @description
 * This package contains the pure fee and release-date math for the settlement
 * core. Nothing here touches the database or the network, which keeps the money
 * rules trivially testable and shared by every caller (webhook settlement,
 * withdrawal requests, the reserve sweeper) instead of being duplicated per
 * handler.
 *
 * @notes
 * - Rounding is half-up on the percentage part, applied once. The fixed fee is
 *   added after rounding.
 * - Release dates are calendar dates: paid-at is truncated to midnight UTC
 *   before the configured day count is added. Stated policy, not inferred
 *   precision.
 */

package fees

import (
	"math"
	"time"

	"github.com/vendaflow/settlement-service/internal/domain"
)

// roundHalfUp rounds cents*percent/100 to the nearest integer cent, halves up.
func roundHalfUp(cents int64, percent float64) int64 {
	return int64(math.Floor(float64(cents)*percent/100.0 + 0.5))
}

// PlatformFee computes the platform's cut for one sale in cents.
// For pix and bank slip the configured flat percent applies. For card the
// percent is looked up by installment count, falling back to the
// 1-installment rate when the specific count is absent from the table.
// The result is never negative.
func PlatformFee(method string, installments int, gross int64, settings domain.FeeSettings) int64 {
	var percent float64
	switch method {
	case domain.PaymentMethodPix:
		percent = settings.PixFeePercent
	case domain.PaymentMethodBankSlip:
		percent = settings.BankSlipFeePercent
	default: // card
		if installments < 1 {
			installments = 1
		}
		var ok bool
		percent, ok = settings.CardFeePercentByInstallment[installments]
		if !ok {
			percent = settings.CardFeePercentByInstallment[1]
		}
	}

	fee := roundHalfUp(gross, percent) + settings.FixedFee
	if fee < 0 {
		return 0
	}
	return fee
}

// ReleaseDate computes the calendar date after which the producer share of a
// sale paid at paidAt becomes eligible for the available balance.
func ReleaseDate(method string, paidAt time.Time, settings domain.FeeSettings) time.Time {
	var days int
	switch method {
	case domain.PaymentMethodPix:
		days = settings.PixReleaseDays
	case domain.PaymentMethodBankSlip:
		days = settings.BankSlipReleaseDays
	default:
		days = settings.CardReleaseDays
	}
	return TruncateToDate(paidAt).AddDate(0, 0, days)
}

// SecurityReserve computes the reserve withheld from a sale's producer share,
// in cents. The reserve is a hold marker within the share, not a deduction.
func SecurityReserve(gross int64, settings domain.FeeSettings) int64 {
	reserve := roundHalfUp(gross, settings.SecurityReservePercent)
	if reserve < 0 {
		return 0
	}
	return reserve
}

// ReserveReleaseDate computes the date a sale's security reserve matures.
func ReserveReleaseDate(paidAt time.Time, settings domain.FeeSettings) time.Time {
	return TruncateToDate(paidAt).AddDate(0, 0, settings.SecurityReserveDays)
}

// TruncateToDate drops the time-of-day component, normalizing to midnight UTC.
func TruncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
