package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/vendaflow/settlement-service/internal/domain"
)

func TestValidateFeeSettings(t *testing.T) {
	valid := domain.FeeSettings{
		CardFeePercentByInstallment: map[int]float64{1: 5},
		PixFeePercent:               3,
		BankSlipFeePercent:          4,
		FixedFee:                    100,
		CardReleaseDays:             30,
		SecurityReservePercent:      4,
		SecurityReserveDays:         90,
		WithdrawalFee:               367,
	}

	tests := []struct {
		name    string
		mutate  func(*domain.FeeSettings)
		wantErr bool
	}{
		{
			name:   "accepts sane settings",
			mutate: func(s *domain.FeeSettings) {},
		},
		{
			name:    "rejects percent above 100",
			mutate:  func(s *domain.FeeSettings) { s.PixFeePercent = 150 },
			wantErr: true,
		},
		{
			name:    "rejects negative percent",
			mutate:  func(s *domain.FeeSettings) { s.BankSlipFeePercent = -1 },
			wantErr: true,
		},
		{
			name:    "rejects zero installment key",
			mutate:  func(s *domain.FeeSettings) { s.CardFeePercentByInstallment = map[int]float64{0: 5} },
			wantErr: true,
		},
		{
			name:    "rejects negative fixed fee",
			mutate:  func(s *domain.FeeSettings) { s.FixedFee = -1 },
			wantErr: true,
		},
		{
			name:    "rejects negative withdrawal fee",
			mutate:  func(s *domain.FeeSettings) { s.WithdrawalFee = -500 },
			wantErr: true,
		},
		{
			name:    "rejects negative holding days",
			mutate:  func(s *domain.FeeSettings) { s.SecurityReserveDays = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := valid
			tt.mutate(&settings)
			err := ValidateFeeSettings(settings)
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestResolveProducerSettings(t *testing.T) {
	repo := newFakeRepo()
	producerID := uuid.New()

	settings, err := ResolveProducerSettings(context.Background(), repo, producerID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.PixFeePercent != repo.platformSettings.PixFeePercent {
		t.Fatalf("expected platform default without override, got %v", settings.PixFeePercent)
	}

	eight := 8.0
	repo.overrides[producerID] = &domain.FeeSettingsOverride{PixFeePercent: &eight}

	settings, err = ResolveProducerSettings(context.Background(), repo, producerID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.PixFeePercent != 8 {
		t.Fatalf("expected override to win, got %v", settings.PixFeePercent)
	}
	if settings.WithdrawalFee != repo.platformSettings.WithdrawalFee {
		t.Fatalf("expected untouched fields to keep defaults, got %d", settings.WithdrawalFee)
	}
}

func TestSettingsService_RejectsInvalidOverrideResolution(t *testing.T) {
	repo := newFakeRepo()
	service := NewSettingsService(repo)
	producerID := uuid.New()

	over := 150.0
	err := service.UpsertProducerOverride(context.Background(), producerID, domain.FeeSettingsOverride{
		PixFeePercent: &over,
	})
	if err == nil {
		t.Fatal("expected an invalid override to be rejected")
	}
	if stored, _ := repo.GetProducerFeeOverride(context.Background(), producerID); stored != nil {
		t.Fatal("rejected override must not be persisted")
	}
}

func TestSettingsService_UpdatePlatformDefaults(t *testing.T) {
	repo := newFakeRepo()
	service := NewSettingsService(repo)

	next := repo.platformSettings
	next.PixFeePercent = 2.5
	if err := service.UpdatePlatformDefaults(context.Background(), next); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := service.PlatformDefaults(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.PixFeePercent != 2.5 {
		t.Fatalf("expected updated pix percent, got %v", stored.PixFeePercent)
	}

	bad := next
	bad.PixFeePercent = -3
	if err := service.UpdatePlatformDefaults(context.Background(), bad); err == nil {
		t.Fatal("expected invalid defaults to be rejected")
	}
}
