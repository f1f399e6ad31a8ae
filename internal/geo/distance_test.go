package geo_test

import (
	"math"
	"testing"

	"github.com/ignatzorin/engineer-market-backend/internal/geo"
)

func TestDistanceKm_SamePoint(t *testing.T) {
	d := geo.DistanceKm(15.3694, 44.1910, 15.3694, 44.1910)
	if d != 0 {
		t.Errorf("expected 0 for identical points, got %f", d)
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	ab := geo.DistanceKm(15.3694, 44.1910, 15.3700, 44.1900)
	ba := geo.DistanceKm(15.3700, 44.1900, 15.3694, 44.1910)
	if ab != ba {
		t.Errorf("expected symmetric distance, got %f and %f", ab, ba)
	}
}

func TestDistanceKm_NearbyPoints(t *testing.T) {
	// Две точки в Сане на расстоянии порядка сотни метров.
	d := geo.DistanceKm(15.3694, 44.1910, 15.3700, 44.1900)
	if d < 0.05 || d > 0.2 {
		t.Errorf("expected distance around 0.1 km, got %f", d)
	}
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	// Москва — Санкт-Петербург, около 634 км.
	d := geo.DistanceKm(55.7558, 37.6173, 59.9343, 30.3351)
	if math.Abs(d-634) > 5 {
		t.Errorf("expected about 634 km, got %f", d)
	}
}

func TestDistanceKm_Rounded(t *testing.T) {
	d := geo.DistanceKm(55.7558, 37.6173, 59.9343, 30.3351)
	if d != math.Round(d*100)/100 {
		t.Errorf("expected two decimal places, got %f", d)
	}
}
