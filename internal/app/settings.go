package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vendaflow/settlement-service/internal/domain"
	"github.com/vendaflow/settlement-service/internal/store"
)

// SettingsService owns admin maintenance of fee configuration.
type SettingsService struct {
	repo store.Repository
}

// NewSettingsService creates a new settings service.
func NewSettingsService(repo store.Repository) *SettingsService {
	return &SettingsService{repo: repo}
}

// PlatformDefaults returns the platform-wide fee defaults.
func (s *SettingsService) PlatformDefaults(ctx context.Context) (domain.FeeSettings, error) {
	return s.repo.GetPlatformFeeSettings(ctx)
}

// UpdatePlatformDefaults validates and replaces the platform-wide fee defaults.
func (s *SettingsService) UpdatePlatformDefaults(ctx context.Context, settings domain.FeeSettings) error {
	if err := ValidateFeeSettings(settings); err != nil {
		return err
	}
	return s.repo.UpdatePlatformFeeSettings(ctx, settings)
}

// UpsertProducerOverride writes a producer's partial fee override.
func (s *SettingsService) UpsertProducerOverride(ctx context.Context, producerID uuid.UUID, override domain.FeeSettingsOverride) error {
	defaults, err := s.repo.GetPlatformFeeSettings(ctx)
	if err != nil {
		return err
	}
	// Validate the override as it will actually resolve.
	if err := ValidateFeeSettings(domain.ResolveFeeSettings(defaults, &override)); err != nil {
		return err
	}
	return s.repo.UpsertProducerFeeOverride(ctx, producerID, override)
}

// ResolvedForProducer returns a producer's fully resolved fee settings.
func (s *SettingsService) ResolvedForProducer(ctx context.Context, producerID uuid.UUID) (domain.FeeSettings, error) {
	return ResolveProducerSettings(ctx, s.repo, producerID)
}

// ValidateFeeSettings rejects configurations that could produce fees exceeding
// gross or negative money. Checked at write time so the settlement path can
// trust what it reads.
func ValidateFeeSettings(settings domain.FeeSettings) error {
	check := func(name string, percent float64) error {
		if percent < 0 || percent > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %v", name, percent)
		}
		return nil
	}
	if err := check("pix fee percent", settings.PixFeePercent); err != nil {
		return err
	}
	if err := check("bank slip fee percent", settings.BankSlipFeePercent); err != nil {
		return err
	}
	for installments, percent := range settings.CardFeePercentByInstallment {
		if installments < 1 {
			return fmt.Errorf("card installment count must be >= 1, got %d", installments)
		}
		if err := check("card fee percent", percent); err != nil {
			return err
		}
	}
	if err := check("security reserve percent", settings.SecurityReservePercent); err != nil {
		return err
	}
	if settings.FixedFee < 0 {
		return fmt.Errorf("fixed fee must not be negative, got %d", settings.FixedFee)
	}
	if settings.WithdrawalFee < 0 {
		return fmt.Errorf("withdrawal fee must not be negative, got %d", settings.WithdrawalFee)
	}
	if settings.CardReleaseDays < 0 || settings.PixReleaseDays < 0 || settings.BankSlipReleaseDays < 0 || settings.SecurityReserveDays < 0 {
		return errors.New("release and holding day counts must not be negative")
	}
	return nil
}

// ResolveProducerSettings loads the platform fee defaults, applies the
// producer's override row when one exists, and returns the fully resolved
// settings. Every caller that needs fee configuration goes through here so
// override-or-default resolution lives in exactly one place.
func ResolveProducerSettings(ctx context.Context, repo store.Repository, producerID uuid.UUID) (domain.FeeSettings, error) {
	defaults, err := repo.GetPlatformFeeSettings(ctx)
	if err != nil {
		return domain.FeeSettings{}, err
	}

	override, err := repo.GetProducerFeeOverride(ctx, producerID)
	if err != nil {
		return domain.FeeSettings{}, err
	}

	return domain.ResolveFeeSettings(defaults, override), nil
}
