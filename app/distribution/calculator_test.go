package distribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeSplitNoGrower(t *testing.T) {
	split := ComputeSplit(10000, 0.15, 0.10, false)

	assert.Equal(t, int64(1500), split.TithingCents)
	assert.Equal(t, int64(8500), split.SowerCents)
	assert.Equal(t, int64(0), split.GrowerCents)
	assert.Equal(t, 0.85, split.SowerPercent)
}

func TestComputeSplitWithGrower(t *testing.T) {
	split := ComputeSplit(10000, 0.15, 0.10, true)

	assert.Equal(t, int64(1500), split.TithingCents)
	assert.Equal(t, int64(1000), split.GrowerCents)
	assert.Equal(t, int64(7500), split.SowerCents)
	assert.InDelta(t, 0.75, split.SowerPercent, 1e-9)
}

func TestComputeSplitClampsPercents(t *testing.T) {
	tests := []struct {
		name           string
		tithingPercent float64
		growerPercent  float64
		hasGrower      bool
		wantTithing    int64
		wantGrower     int64
		wantSower      int64
	}{
		{"negative tithing", -0.5, 0, false, 0, 0, 10000},
		{"tithing above one", 1.5, 0, false, 10000, 0, 0},
		{"percents exceed whole", 0.8, 0.5, true, 8000, 2000, 0},
		{"grower ignored without id", 0.15, 0.10, false, 1500, 0, 8500},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			split := ComputeSplit(10000, tc.tithingPercent, tc.growerPercent, tc.hasGrower)
			assert.Equal(t, tc.wantTithing, split.TithingCents)
			assert.Equal(t, tc.wantGrower, split.GrowerCents)
			assert.Equal(t, tc.wantSower, split.SowerCents)
		})
	}
}

func TestComputeSplitRoundingHalfUp(t *testing.T) {
	// 333 * 0.15 = 49.95 -> 50; 333 * 0.10 = 33.3 -> 33
	split := ComputeSplit(333, 0.15, 0.10, true)

	assert.Equal(t, int64(50), split.TithingCents)
	assert.Equal(t, int64(33), split.GrowerCents)
	assert.Equal(t, int64(250), split.SowerCents)
}

func TestComputeSplitSumInvariant(t *testing.T) {
	percents := []float64{0, 0.01, 0.1, 0.15, 1.0 / 3.0, 0.5, 0.99, 1}
	for total := int64(1); total <= 2000; total++ {
		for _, tp := range percents {
			for _, gp := range percents {
				split := ComputeSplit(total, tp, gp, true)
				sum := split.TithingCents + split.GrowerCents + split.SowerCents
				if sum != total {
					t.Fatalf("sum invariant broken: total=%d tithing=%.2f grower=%.2f sum=%d",
						total, tp, gp, sum)
				}
			}
		}
	}
}
