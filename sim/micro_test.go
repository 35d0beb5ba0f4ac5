package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDaysInfectious_NoSurveillance(t *testing.T) {
	inf := math.Inf(1)
	tests := []struct {
		T, D, f, R float64
		want       float64
	}{
		{inf, 2, 0.5, 5, 5},
		{inf, 2, 0.7, 5, 5},
		{inf, 2, 0.5, 3, 3},
		{3, inf, 0.6, 5, 5},
		{5, inf, 0.9, 1, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DaysInfectious(tt.T, tt.D, tt.f, tt.R))
		assert.Equal(t, tt.want, DaysInfectiousPerfectSensitivity(tt.T, tt.D, tt.R))
	}
}

func TestDaysInfectious_PerfectSensitivityMatchesClosedForm(t *testing.T) {
	tests := []struct {
		T, D, R float64
	}{
		{5, 2, 10},
		{3, 2, 10},
		{5, 3, 7},
		{5, 3, 10},
	}
	for _, tt := range tests {
		x1 := DaysInfectious(tt.T, tt.D, 1, tt.R)
		x2 := DaysInfectiousPerfectSensitivity(tt.T, tt.D, tt.R)
		assert.InDelta(t, x2, x1, 1e-12, "T=%v D=%v R=%v", tt.T, tt.D, tt.R)
	}
}

func TestDaysInfectious_MoreDelayMeansMoreInfectiousDays(t *testing.T) {
	tests := []struct {
		T, D, f, R float64
	}{
		{5, 2, 0.5, 10},
		{5, 3, 0.8, 10},
		{3, 1, 0.6, 8},
	}
	for _, tt := range tests {
		assert.Less(t, DaysInfectious(tt.T, tt.D, tt.f, tt.R), DaysInfectious(tt.T, tt.D+1, tt.f, tt.R))
	}
}

func TestDaysInfectious_MoreSensitivityMeansFewerInfectiousDays(t *testing.T) {
	tests := []struct {
		T, D, f, R float64
	}{
		{5, 2, 0.5, 10},
		{5, 3, 0.8, 10},
		{3, 1, 0.4, 8},
	}
	for _, tt := range tests {
		assert.Less(t, DaysInfectious(tt.T, tt.D, tt.f+0.2, tt.R), DaysInfectious(tt.T, tt.D, tt.f, tt.R))
	}
}

func TestDaysInfectious_HigherCapMeansMoreInfectiousDays(t *testing.T) {
	tests := []struct {
		T, D, f, R float64
	}{
		{5, 2, 0.5, 10},
		{5, 2, 0.5, 12},
		{5, 3, 0.8, 8},
		{5, 3, 0.8, 6},
	}
	for _, tt := range tests {
		assert.Less(t, DaysInfectious(tt.T, tt.D, tt.f, tt.R), DaysInfectious(tt.T, tt.D, tt.f, tt.R+3))
	}
}

func TestDaysInfectious_ZeroSensitivityEquivalentToNoTesting(t *testing.T) {
	tests := []struct {
		T, D, R float64
	}{
		{5, 2, 10},
		{5, 2, 12},
		{5, 3, 8},
		{5, 3, 6},
	}
	for _, tt := range tests {
		got := DaysInfectious(tt.T, tt.D, 0, tt.R)
		want := DaysInfectious(math.Inf(1), tt.D, 0, tt.R)
		assert.InDelta(t, want, got, 1e-12)
	}
}

func TestDaysInfectious_NonNegativeAndCapped(t *testing.T) {
	for _, f := range []float64{0, 0.25, 0.5, 0.75, 1} {
		got := DaysInfectious(3, 1, f, 9)
		if got < 0 || got > 9 {
			t.Errorf("DaysInfectious(3, 1, %v, 9) = %v, want within [0, 9]", f, got)
		}
	}
}
