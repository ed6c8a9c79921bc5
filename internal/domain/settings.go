/**
 * @description
 * This file defines the fee configuration model and its override resolution.
 * The platform carries one set of defaults; each producer may carry a partial
 * override row where any non-nil field wins over the platform value. Resolution
 * happens in exactly one place (ResolveFeeSettings) so handlers and jobs never
 * do ad-hoc null-coalescing on individual fields.
 */

package domain

// FeeSettings is the fully resolved fee configuration used by the settlement
// core for one producer. All monetary values are in cents, percents are plain
// percentages (5 means 5%).
type FeeSettings struct {
	CardFeePercentByInstallment map[int]float64 `json:"card_fee_percent_by_installment"`
	PixFeePercent               float64         `json:"pix_fee_percent"`
	BankSlipFeePercent          float64         `json:"bank_slip_fee_percent"`
	FixedFee                    int64           `json:"fixed_fee"`
	CardReleaseDays             int             `json:"card_release_days"`
	PixReleaseDays              int             `json:"pix_release_days"`
	BankSlipReleaseDays         int             `json:"bank_slip_release_days"`
	SecurityReservePercent      float64         `json:"security_reserve_percent"`
	SecurityReserveDays         int             `json:"security_reserve_days"`
	WithdrawalFee               int64           `json:"withdrawal_fee"`
}

// FeeSettingsOverride is a producer-specific partial override. Nil fields fall
// through to the platform defaults. Maps to the `producer_fee_settings` table.
type FeeSettingsOverride struct {
	CardFeePercentByInstallment map[int]float64 `json:"card_fee_percent_by_installment,omitempty"`
	PixFeePercent               *float64        `json:"pix_fee_percent,omitempty"`
	BankSlipFeePercent          *float64        `json:"bank_slip_fee_percent,omitempty"`
	FixedFee                    *int64          `json:"fixed_fee,omitempty"`
	CardReleaseDays             *int            `json:"card_release_days,omitempty"`
	PixReleaseDays              *int            `json:"pix_release_days,omitempty"`
	BankSlipReleaseDays         *int            `json:"bank_slip_release_days,omitempty"`
	SecurityReservePercent      *float64        `json:"security_reserve_percent,omitempty"`
	SecurityReserveDays         *int            `json:"security_reserve_days,omitempty"`
	WithdrawalFee               *int64          `json:"withdrawal_fee,omitempty"`
}

// ResolveFeeSettings merges a producer override into the platform defaults.
// A nil override returns the defaults unchanged.
func ResolveFeeSettings(defaults FeeSettings, override *FeeSettingsOverride) FeeSettings {
	resolved := defaults
	if override == nil {
		return resolved
	}
	if len(override.CardFeePercentByInstallment) > 0 {
		resolved.CardFeePercentByInstallment = override.CardFeePercentByInstallment
	}
	if override.PixFeePercent != nil {
		resolved.PixFeePercent = *override.PixFeePercent
	}
	if override.BankSlipFeePercent != nil {
		resolved.BankSlipFeePercent = *override.BankSlipFeePercent
	}
	if override.FixedFee != nil {
		resolved.FixedFee = *override.FixedFee
	}
	if override.CardReleaseDays != nil {
		resolved.CardReleaseDays = *override.CardReleaseDays
	}
	if override.PixReleaseDays != nil {
		resolved.PixReleaseDays = *override.PixReleaseDays
	}
	if override.BankSlipReleaseDays != nil {
		resolved.BankSlipReleaseDays = *override.BankSlipReleaseDays
	}
	if override.SecurityReservePercent != nil {
		resolved.SecurityReservePercent = *override.SecurityReservePercent
	}
	if override.SecurityReserveDays != nil {
		resolved.SecurityReserveDays = *override.SecurityReserveDays
	}
	if override.WithdrawalFee != nil {
		resolved.WithdrawalFee = *override.WithdrawalFee
	}
	return resolved
}
