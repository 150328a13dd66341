// Package distribution computes how a bestowal amount splits across the
// tithing, sower, and grower recipients. It is pure: wallet resolution and
// persistence belong to the caller.
package distribution

import "math"

type Split struct {
	TithingCents int64
	SowerCents   int64
	GrowerCents  int64

	TithingPercent float64
	SowerPercent   float64
	GrowerPercent  float64
}

// ComputeSplit divides totalCents between tithing, grower, and sower.
//
// Percentages are clamped to [0,1] and the sower keeps the remainder, so the
// percentages always describe the whole amount. Tithing and grower cents are
// rounded half-up; the sower amount is derived by subtraction, which keeps
// tithing + grower + sower == total exact regardless of rounding.
func ComputeSplit(totalCents int64, tithingPercent, growerPercent float64, hasGrower bool) Split {
	tithingPercent = clamp(tithingPercent)
	if !hasGrower {
		growerPercent = 0
	}
	growerPercent = clamp(growerPercent)
	// The grower can never eat into more than what tithing left over;
	// otherwise the sower share computed by subtraction would go negative.
	if tithingPercent+growerPercent > 1 {
		growerPercent = 1 - tithingPercent
	}
	sowerPercent := clamp(1 - tithingPercent - growerPercent)

	tithingCents := roundCents(float64(totalCents) * tithingPercent)
	growerCents := roundCents(float64(totalCents) * growerPercent)
	sowerCents := totalCents - tithingCents - growerCents

	return Split{
		TithingCents:   tithingCents,
		SowerCents:     sowerCents,
		GrowerCents:    growerCents,
		TithingPercent: tithingPercent,
		SowerPercent:   sowerPercent,
		GrowerPercent:  growerPercent,
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// roundCents rounds half-up; inputs are never negative here.
func roundCents(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}
