/**
 * @description
 * PostgreSQL persistence for fee settings: the single platform defaults row and
 * the per-producer override rows. The card installment fee table is stored as
 * JSONB; every other field is a plain column so overrides can be NULL per field.
 */

package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vendaflow/settlement-service/internal/domain"
)

// GetPlatformFeeSettings loads the platform-wide fee defaults. The settings
// table holds exactly one row; its absence is a configuration error.
func (r *PostgresRepository) GetPlatformFeeSettings(ctx context.Context) (domain.FeeSettings, error) {
	var settings domain.FeeSettings
	var cardTable []byte

	query := `
		SELECT card_fee_percent_by_installment, pix_fee_percent, bank_slip_fee_percent,
		       fixed_fee, card_release_days, pix_release_days, bank_slip_release_days,
		       security_reserve_percent, security_reserve_days, withdrawal_fee
		FROM platform_fee_settings
		WHERE id = 1
	`
	err := r.db.QueryRow(ctx, query).Scan(
		&cardTable, &settings.PixFeePercent, &settings.BankSlipFeePercent,
		&settings.FixedFee, &settings.CardReleaseDays, &settings.PixReleaseDays,
		&settings.BankSlipReleaseDays, &settings.SecurityReservePercent,
		&settings.SecurityReserveDays, &settings.WithdrawalFee,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.FeeSettings{}, ErrSettingsNotFound
		}
		return domain.FeeSettings{}, err
	}

	if len(cardTable) > 0 {
		if err := json.Unmarshal(cardTable, &settings.CardFeePercentByInstallment); err != nil {
			return domain.FeeSettings{}, err
		}
	}
	return settings, nil
}

// UpdatePlatformFeeSettings replaces the platform-wide fee defaults.
func (r *PostgresRepository) UpdatePlatformFeeSettings(ctx context.Context, settings domain.FeeSettings) error {
	cardTable, err := json.Marshal(settings.CardFeePercentByInstallment)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO platform_fee_settings (
			id, card_fee_percent_by_installment, pix_fee_percent, bank_slip_fee_percent,
			fixed_fee, card_release_days, pix_release_days, bank_slip_release_days,
			security_reserve_percent, security_reserve_days, withdrawal_fee, updated_at
		)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (id) DO UPDATE
		SET card_fee_percent_by_installment = EXCLUDED.card_fee_percent_by_installment,
		    pix_fee_percent = EXCLUDED.pix_fee_percent,
		    bank_slip_fee_percent = EXCLUDED.bank_slip_fee_percent,
		    fixed_fee = EXCLUDED.fixed_fee,
		    card_release_days = EXCLUDED.card_release_days,
		    pix_release_days = EXCLUDED.pix_release_days,
		    bank_slip_release_days = EXCLUDED.bank_slip_release_days,
		    security_reserve_percent = EXCLUDED.security_reserve_percent,
		    security_reserve_days = EXCLUDED.security_reserve_days,
		    withdrawal_fee = EXCLUDED.withdrawal_fee,
		    updated_at = NOW()
	`
	_, err = r.db.Exec(ctx, query,
		cardTable, settings.PixFeePercent, settings.BankSlipFeePercent,
		settings.FixedFee, settings.CardReleaseDays, settings.PixReleaseDays,
		settings.BankSlipReleaseDays, settings.SecurityReservePercent,
		settings.SecurityReserveDays, settings.WithdrawalFee,
	)
	return err
}

// GetProducerFeeOverride loads a producer's partial override row. Returns
// (nil, nil) when the producer has no overrides, which resolves to the platform
// defaults.
func (r *PostgresRepository) GetProducerFeeOverride(ctx context.Context, producerID uuid.UUID) (*domain.FeeSettingsOverride, error) {
	var override domain.FeeSettingsOverride
	var cardTable []byte

	query := `
		SELECT card_fee_percent_by_installment, pix_fee_percent, bank_slip_fee_percent,
		       fixed_fee, card_release_days, pix_release_days, bank_slip_release_days,
		       security_reserve_percent, security_reserve_days, withdrawal_fee
		FROM producer_fee_settings
		WHERE producer_id = $1
	`
	err := r.db.QueryRow(ctx, query, producerID).Scan(
		&cardTable, &override.PixFeePercent, &override.BankSlipFeePercent,
		&override.FixedFee, &override.CardReleaseDays, &override.PixReleaseDays,
		&override.BankSlipReleaseDays, &override.SecurityReservePercent,
		&override.SecurityReserveDays, &override.WithdrawalFee,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if len(cardTable) > 0 {
		if err := json.Unmarshal(cardTable, &override.CardFeePercentByInstallment); err != nil {
			return nil, err
		}
	}
	return &override, nil
}

// UpsertProducerFeeOverride writes a producer's partial override row.
func (r *PostgresRepository) UpsertProducerFeeOverride(ctx context.Context, producerID uuid.UUID, override domain.FeeSettingsOverride) error {
	var cardTable []byte
	if len(override.CardFeePercentByInstallment) > 0 {
		var err error
		cardTable, err = json.Marshal(override.CardFeePercentByInstallment)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO producer_fee_settings (
			producer_id, card_fee_percent_by_installment, pix_fee_percent,
			bank_slip_fee_percent, fixed_fee, card_release_days, pix_release_days,
			bank_slip_release_days, security_reserve_percent, security_reserve_days,
			withdrawal_fee, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (producer_id) DO UPDATE
		SET card_fee_percent_by_installment = EXCLUDED.card_fee_percent_by_installment,
		    pix_fee_percent = EXCLUDED.pix_fee_percent,
		    bank_slip_fee_percent = EXCLUDED.bank_slip_fee_percent,
		    fixed_fee = EXCLUDED.fixed_fee,
		    card_release_days = EXCLUDED.card_release_days,
		    pix_release_days = EXCLUDED.pix_release_days,
		    bank_slip_release_days = EXCLUDED.bank_slip_release_days,
		    security_reserve_percent = EXCLUDED.security_reserve_percent,
		    security_reserve_days = EXCLUDED.security_reserve_days,
		    withdrawal_fee = EXCLUDED.withdrawal_fee,
		    updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query,
		producerID, cardTable, override.PixFeePercent, override.BankSlipFeePercent,
		override.FixedFee, override.CardReleaseDays, override.PixReleaseDays,
		override.BankSlipReleaseDays, override.SecurityReservePercent,
		override.SecurityReserveDays, override.WithdrawalFee,
	)
	return err
}
