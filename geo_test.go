package main

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
		tolerance              float64
	}{
		{"Same point", 60.1699, 24.9384, 60.1699, 24.9384, 0, 0.001},
		{"Helsinki to Tampere", 60.1699, 24.9384, 61.4991, 23.7871, 160, 10},
		{"Helsinki to Stockholm", 60.1699, 24.9384, 59.3293, 18.0686, 396, 15},
		{"Across the equator", -1, 0, 1, 0, 222, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("haversine = %.1f km, want %.1f ± %.1f", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestWithinDistance(t *testing.T) {
	hki := locatedProfile(1, "A", 30, GenderFemale, 60.1699, 24.9384)
	tpe := locatedProfile(2, "B", 30, GenderMale, 61.4991, 23.7871)
	noLoc := Profile{UserID: 3}

	t.Run("Inside the radius", func(t *testing.T) {
		if !withinDistance(&hki, &tpe, 200) {
			t.Error("~160km should be within 200km")
		}
	})

	t.Run("Outside the radius", func(t *testing.T) {
		if withinDistance(&hki, &tpe, 50) {
			t.Error("~160km should not be within 50km")
		}
	})

	t.Run("Non-positive radius disables the cutoff", func(t *testing.T) {
		if !withinDistance(&hki, &tpe, 0) {
			t.Error("zero radius should disable the check")
		}
	})

	t.Run("Missing location fails the check", func(t *testing.T) {
		if withinDistance(&hki, &noLoc, 100) {
			t.Error("unlocated profile cannot be within any radius")
		}
	})
}
