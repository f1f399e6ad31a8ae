package validation_test

import (
	"testing"

	"github.com/ignatzorin/engineer-market-backend/internal/validation"
)

func TestValidateAmount(t *testing.T) {
	if err := validation.ValidateAmount(500000); err != nil {
		t.Errorf("unexpected error for valid amount: %v", err)
	}
	if err := validation.ValidateAmount(0); err == nil {
		t.Error("expected error for zero amount")
	}
	if err := validation.ValidateAmount(-10); err == nil {
		t.Error("expected error for negative amount")
	}
	if err := validation.ValidateAmount(validation.MaxAmount + 1); err == nil {
		t.Error("expected error for amount above limit")
	}
}

func TestValidateCurrency(t *testing.T) {
	valid := []string{"YER", "USD", "RUB"}
	for _, c := range valid {
		if err := validation.ValidateCurrency(c); err != nil {
			t.Errorf("unexpected error for %s: %v", c, err)
		}
	}

	invalid := []string{"", "yer", "YEME", "Y1R"}
	for _, c := range invalid {
		if err := validation.ValidateCurrency(c); err == nil {
			t.Errorf("expected error for %q", c)
		}
	}
}

func TestValidateScore(t *testing.T) {
	for score := 1; score <= 5; score++ {
		if err := validation.ValidateScore(score); err != nil {
			t.Errorf("unexpected error for score %d: %v", score, err)
		}
	}
	if err := validation.ValidateScore(0); err == nil {
		t.Error("expected error for score 0")
	}
	if err := validation.ValidateScore(6); err == nil {
		t.Error("expected error for score 6")
	}
}

func TestValidateCoordinates(t *testing.T) {
	if err := validation.ValidateCoordinates(15.3694, 44.1910); err != nil {
		t.Errorf("unexpected error for valid coordinates: %v", err)
	}
	if err := validation.ValidateCoordinates(91, 0); err == nil {
		t.Error("expected error for latitude above 90")
	}
	if err := validation.ValidateCoordinates(0, -181); err == nil {
		t.Error("expected error for longitude below -180")
	}
}

func TestValidateRadius(t *testing.T) {
	if err := validation.ValidateRadius(10); err != nil {
		t.Errorf("unexpected error for valid radius: %v", err)
	}
	if err := validation.ValidateRadius(0); err == nil {
		t.Error("expected error for zero radius")
	}
	if err := validation.ValidateRadius(validation.MaxRadiusKm + 1); err == nil {
		t.Error("expected error for radius above limit")
	}
}

func TestSanitizeString(t *testing.T) {
	got := validation.SanitizeString("  ремонт кондиционера\x00  ")
	if got != "ремонт кондиционера" {
		t.Errorf("unexpected sanitized value: %q", got)
	}
}
