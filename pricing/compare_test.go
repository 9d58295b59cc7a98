package pricing

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

// Worked example: 1000 reference at 3% discount.
func TestCompareDerivationChain(t *testing.T) {
	c := Compare(1000, 3)

	if !almostEqual(c.AdjustedBaseline, 910) {
		t.Errorf("adjusted baseline = %v, want 910", c.AdjustedBaseline)
	}
	if !almostEqual(c.HostPrice, 882.7) {
		t.Errorf("host price = %v, want 882.7", c.HostPrice)
	}
	if c.GuestPrice != 910 {
		t.Errorf("guest price = %v, want 910", c.GuestPrice)
	}
	if !almostEqual(c.CompetitorBase, 877.19) {
		t.Errorf("competitor base = %v, want ~877.19", c.CompetitorBase)
	}
	if !almostEqual(c.CompetitorHostFeeAmount, 26.32) {
		t.Errorf("competitor host fee = %v, want ~26.32", c.CompetitorHostFeeAmount)
	}
	if !almostEqual(c.CompetitorGSTAmount, 4.74) {
		t.Errorf("competitor gst = %v, want ~4.74", c.CompetitorGSTAmount)
	}
	if !almostEqual(c.CompetitorTakeHome, 846.14) {
		t.Errorf("competitor take-home = %v, want ~846.14", c.CompetitorTakeHome)
	}
	if !almostEqual(c.TakeHomeAfterPayout, 882.7*0.97) {
		t.Errorf("take-home after payout = %v, want %v", c.TakeHomeAfterPayout, 882.7*0.97)
	}
}

func TestCompareGuestPriceRoundedToTen(t *testing.T) {
	for _, ref := range []float64{347, 1000, 1234.56, 9999} {
		for d := MinDiscountPercent; d <= MaxDiscountPercent; d++ {
			c := Compare(ref, d)
			if math.Mod(c.GuestPrice, 10) != 0 {
				t.Fatalf("Compare(%v, %d): guest price %v not a multiple of 10", ref, d, c.GuestPrice)
			}
		}
	}
}

// Raising the discount must only ever lower the host and guest prices.
func TestCompareMonotonicInDiscount(t *testing.T) {
	prev := Compare(1000, 0)
	for d := 1; d <= MaxDiscountPercent; d++ {
		c := Compare(1000, d)
		if c.HostPrice >= prev.HostPrice {
			t.Errorf("host price did not decrease at discount %d: %v -> %v", d, prev.HostPrice, c.HostPrice)
		}
		if c.GuestPrice > prev.GuestPrice {
			t.Errorf("guest price increased at discount %d: %v -> %v", d, prev.GuestPrice, c.GuestPrice)
		}
		prev = c
	}
}

func TestCompareProjectionScaling(t *testing.T) {
	c := Compare(1500, 10)
	if c.ProjectedTakeHome != c.TakeHome*ProjectionDays {
		t.Errorf("projected take-home %v != %v * %d", c.ProjectedTakeHome, c.TakeHome, ProjectionDays)
	}
	if c.ProjectedTakeHomeAfterPayout != c.TakeHomeAfterPayout*ProjectionDays {
		t.Errorf("projected take-home after payout %v != %v * %d", c.ProjectedTakeHomeAfterPayout, c.TakeHomeAfterPayout, ProjectionDays)
	}
	if c.ProjectedCompetitorTakeHome != c.CompetitorTakeHome*ProjectionDays {
		t.Errorf("projected competitor take-home %v != %v * %d", c.ProjectedCompetitorTakeHome, c.CompetitorTakeHome, ProjectionDays)
	}
}

func TestClampDiscount(t *testing.T) {
	if got := ClampDiscount(-5); got != 0 {
		t.Errorf("ClampDiscount(-5) = %d, want 0", got)
	}
	if got := ClampDiscount(35); got != 20 {
		t.Errorf("ClampDiscount(35) = %d, want 20", got)
	}
	if got := ClampDiscount(12); got != 12 {
		t.Errorf("ClampDiscount(12) = %d, want 12", got)
	}
	out := Compare(1000, 99)
	if out.DiscountPercent != MaxDiscountPercent {
		t.Errorf("Compare clamped discount = %d, want %d", out.DiscountPercent, MaxDiscountPercent)
	}
}
