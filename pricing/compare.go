// Package pricing derives the price comparison shown during listing import:
// given the nightly price scraped from a competing platform and the host's
// chosen discount, it computes what the guest would pay here, what the host
// would keep on either platform, and earnings projected over a fixed window.
package pricing

import "math"

// Fee model constants. These mirror the published fee schedules of both
// platforms and are not host-configurable.
const (
	// CompetitorGuestFee is the guest-side service fee fraction the
	// competing platform adds on top of the host price.
	CompetitorGuestFee = 0.14
	// CompetitorHostFee is the host-side fee fraction the competing
	// platform deducts from the base price.
	CompetitorHostFee = 0.03
	// GSTRate is the tax applied to the competitor's host fee amount.
	GSTRate = 0.18
	// PlatformGuestFee is our guest-facing service fee fraction.
	PlatformGuestFee = 0.03
	// PayoutFee is deducted from host payouts once the host passes
	// FreeBookingThreshold completed bookings.
	PayoutFee = 0.03
	// FreeBookingThreshold is the number of bookings that pay out with no
	// payout fee.
	FreeBookingThreshold = 5
	// ReferenceReduction strips the competitor's built-in guest markup from
	// the scraped price before any comparison.
	ReferenceReduction = 0.09
	// ProjectionDays is the fixed window earnings are extrapolated over.
	ProjectionDays = 20
)

const (
	MinDiscountPercent = 0
	MaxDiscountPercent = 20
)

// Comparison is one atomic snapshot of every figure the import screen
// displays. All fields derive from the two inputs plus the constants above;
// a snapshot is never mixed with values from a different input pair.
type Comparison struct {
	ReferencePrice  float64 `json:"referencePrice"`
	DiscountPercent int     `json:"discountPercent"`

	// AdjustedBaseline is the scraped price with the competitor's markup
	// removed.
	AdjustedBaseline float64 `json:"adjustedBaseline"`
	// HostPrice is our host-facing nightly price after the discount.
	HostPrice float64 `json:"hostPrice"`
	// GuestPrice is our guest-facing nightly price, rounded to the nearest
	// multiple of 10.
	GuestPrice float64 `json:"guestPrice"`

	// CompetitorBase is the competitor's theoretical pre-guest-fee price.
	CompetitorBase float64 `json:"competitorBase"`
	// CompetitorHostFeeAmount and CompetitorGSTAmount are the per-night
	// deductions the competitor applies to its hosts.
	CompetitorHostFeeAmount float64 `json:"competitorHostFeeAmount"`
	CompetitorGSTAmount     float64 `json:"competitorGSTAmount"`
	// CompetitorTakeHome is what the host keeps per night over there.
	CompetitorTakeHome float64 `json:"competitorTakeHome"`

	// TakeHome is what the host keeps per night here, before the payout fee
	// kicks in (first FreeBookingThreshold bookings) and after.
	TakeHome            float64 `json:"takeHome"`
	TakeHomeAfterPayout float64 `json:"takeHomeAfterPayout"`

	// Projected totals over ProjectionDays nights.
	ProjectedCompetitorTakeHome  float64 `json:"projectedCompetitorTakeHome"`
	ProjectedTakeHome            float64 `json:"projectedTakeHome"`
	ProjectedTakeHomeAfterPayout float64 `json:"projectedTakeHomeAfterPayout"`

	// GuestSavings is the per-night difference between the scraped price
	// and our guest price. HostGain variants compare take-homes.
	GuestSavings        float64 `json:"guestSavings"`
	HostGain            float64 `json:"hostGain"`
	HostGainAfterPayout float64 `json:"hostGainAfterPayout"`
}

// ClampDiscount bounds a slider value to the supported range.
func ClampDiscount(percent int) int {
	if percent < MinDiscountPercent {
		return MinDiscountPercent
	}
	if percent > MaxDiscountPercent {
		return MaxDiscountPercent
	}
	return percent
}

// Compare evaluates the full derivation chain for one (referencePrice,
// discountPercent) pair. The order matters: every later figure feeds off an
// earlier one, and rounding happens only where specified (guest price to the
// nearest 10) so rounding error never compounds into the take-home math.
func Compare(referencePrice float64, discountPercent int) Comparison {
	discountPercent = ClampDiscount(discountPercent)

	adjusted := referencePrice * (1 - ReferenceReduction)
	hostPrice := adjusted * (1 - float64(discountPercent)/100)
	guestPrice := roundToTen(hostPrice * (1 + PlatformGuestFee))

	competitorBase := referencePrice / (1 + CompetitorGuestFee)
	competitorHostFee := competitorBase * CompetitorHostFee
	competitorGST := competitorHostFee * GSTRate
	competitorTakeHome := competitorBase - competitorHostFee - competitorGST

	takeHome := hostPrice
	takeHomeAfterPayout := hostPrice * (1 - PayoutFee)

	return Comparison{
		ReferencePrice:  referencePrice,
		DiscountPercent: discountPercent,

		AdjustedBaseline: adjusted,
		HostPrice:        hostPrice,
		GuestPrice:       guestPrice,

		CompetitorBase:          competitorBase,
		CompetitorHostFeeAmount: competitorHostFee,
		CompetitorGSTAmount:     competitorGST,
		CompetitorTakeHome:      competitorTakeHome,

		TakeHome:            takeHome,
		TakeHomeAfterPayout: takeHomeAfterPayout,

		ProjectedCompetitorTakeHome:  competitorTakeHome * ProjectionDays,
		ProjectedTakeHome:            takeHome * ProjectionDays,
		ProjectedTakeHomeAfterPayout: takeHomeAfterPayout * ProjectionDays,

		GuestSavings:        referencePrice - guestPrice,
		HostGain:            takeHome - competitorTakeHome,
		HostGainAfterPayout: takeHomeAfterPayout - competitorTakeHome,
	}
}

func roundToTen(v float64) float64 {
	return math.Round(v/10) * 10
}
