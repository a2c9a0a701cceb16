package dosemetrics

import (
	"math"
	"strings"
	"testing"

	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

func TestDmax(t *testing.T) {
	got, err := Dmax([]float64{0, 10, 20, 30})
	if err != nil {
		t.Fatalf("Dmax failed: %v", err)
	}
	if got != 30 {
		t.Errorf("Dmax = %g, want 30", got)
	}
}

func TestDmaxEmptyCurve(t *testing.T) {
	_, err := Dmax(nil)
	if err == nil || !errors.IsValidation(err) {
		t.Errorf("empty curve: err = %v, want validation error", err)
	}
}

func TestVxBoundariesAndBinHit(t *testing.T) {
	doses := []float64{0, 5, 10, 15, 20, 25, 30}
	cumulative := []float64{1.0, 0.8, 0.6, 0.4, 0.2, 0.1, 0.0}

	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{"exact bin hit", 5, 80.0},
		{"zero threshold returns full volume", 0, 100.0},
		{"threshold at top returns last volume", 30, 0.0},
		{"interpolated midpoint", 7.5, 70.0},
		{"beyond top clamps", 45, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Vx(doses, cumulative, tt.threshold)
			if err != nil {
				t.Fatalf("Vx failed: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Vx(%g) = %g, want %g", tt.threshold, got, tt.want)
			}
		})
	}
}

func TestVxValidation(t *testing.T) {
	if _, err := Vx([]float64{0, 10}, []float64{1.0}, 5); err == nil || !errors.IsValidation(err) {
		t.Errorf("length mismatch: err = %v", err)
	}
	if _, err := Vx([]float64{0, 10}, []float64{1.0, 0.5}, -1); err == nil || !errors.IsValidation(err) {
		t.Errorf("negative threshold: err = %v", err)
	}
	if _, err := Vx(nil, nil, 5); err == nil || !errors.IsValidation(err) {
		t.Errorf("empty curve: err = %v", err)
	}
}

func TestDxAbsolute(t *testing.T) {
	doses := []float64{0, 10, 20, 30, 40}
	volumesCC := []float64{40, 30, 20, 10, 0}

	tests := []struct {
		name     string
		volumeCC float64
		want     float64
	}{
		{"exact bin", 20, 20},
		{"interpolated", 15, 25},
		{"above max volume returns lowest dose", 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DxAbsolute(doses, volumesCC, tt.volumeCC)
			if err != nil {
				t.Fatalf("DxAbsolute failed: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("DxAbsolute(%g) = %g, want %g", tt.volumeCC, got, tt.want)
			}
		})
	}
}

func TestDxAbsoluteBelowMinVolume(t *testing.T) {
	doses := []float64{0, 10, 20, 30, 40}
	volumesCC := []float64{40, 30, 20, 10, 5}
	got, err := DxAbsolute(doses, volumesCC, 1)
	if err != nil {
		t.Fatalf("DxAbsolute failed: %v", err)
	}
	if got != 40 {
		t.Errorf("volume below curve minimum: dose = %g, want 40 (highest dose)", got)
	}
}

func TestDxAbsoluteValidation(t *testing.T) {
	if _, err := DxAbsolute(nil, nil, 1); err == nil || !errors.IsValidation(err) {
		t.Errorf("empty curve: err = %v", err)
	}
	if _, err := DxAbsolute([]float64{0, 10}, []float64{5}, 1); err == nil || !errors.IsValidation(err) {
		t.Errorf("length mismatch: err = %v", err)
	}
	if _, err := DxAbsolute([]float64{0, 10}, []float64{5, 0}, -1); err == nil || !errors.IsValidation(err) {
		t.Errorf("negative volume: err = %v", err)
	}
}

func TestMeanDose(t *testing.T) {
	// doses [0,10,20,30], differential [0.2,0.3,0.5,0.0] → 13.0 Gy.
	got, err := MeanDose([]float64{0, 10, 20, 30}, []float64{0.2, 0.3, 0.5, 0.0})
	if err != nil {
		t.Fatalf("MeanDose failed: %v", err)
	}
	if math.Abs(got-13.0) > 1e-12 {
		t.Errorf("MeanDose = %g, want 13.0", got)
	}
}

func TestMeanDoseRejectsCumulativeInput(t *testing.T) {
	// A cumulative curve sums well above 1.0; the error must hint at the
	// likely cause.
	_, err := MeanDose([]float64{0, 10, 20, 30}, []float64{1.0, 0.8, 0.5, 0.0})
	if err == nil || !errors.IsValidation(err) {
		t.Fatalf("cumulative input: err = %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "cumulative") {
		t.Errorf("error should hint at cumulative-curve mistake: %v", err)
	}
}

func TestMeanDoseToleratesSmallSumDrift(t *testing.T) {
	got, err := MeanDose([]float64{10, 20}, []float64{0.502, 0.502})
	if err != nil {
		t.Fatalf("sum within tolerance rejected: %v", err)
	}
	if got <= 0 {
		t.Errorf("MeanDose = %g", got)
	}
}

func TestLungMetricsBundle(t *testing.T) {
	doses := []float64{0, 5, 10, 15, 20, 25, 30}
	cumulative := []float64{1.0, 0.8, 0.6, 0.4, 0.2, 0.1, 0.0}
	differential := []float64{0.2, 0.2, 0.2, 0.2, 0.1, 0.1, 0.0}

	m, err := ComputeLungMetrics(doses, differential, cumulative)
	if err != nil {
		t.Fatalf("ComputeLungMetrics failed: %v", err)
	}
	if math.Abs(m.V5Percent-80.0) > 1e-9 {
		t.Errorf("V5 = %g, want 80", m.V5Percent)
	}
	if math.Abs(m.V20Percent-20.0) > 1e-9 {
		t.Errorf("V20 = %g, want 20", m.V20Percent)
	}
	wantMLD := 0.0*0.2 + 5*0.2 + 10*0.2 + 15*0.2 + 20*0.1 + 25*0.1
	if math.Abs(m.MeanDoseGy-wantMLD) > 1e-9 {
		t.Errorf("MLD = %g, want %g", m.MeanDoseGy, wantMLD)
	}
}

func TestCordMetricsWithoutVolume(t *testing.T) {
	m, err := ComputeCordMetrics([]float64{0, 10, 42.5}, []float64{1.0, 0.5, 0.0}, 0)
	if err != nil {
		t.Fatalf("ComputeCordMetrics failed: %v", err)
	}
	if m.DmaxGy != 42.5 {
		t.Errorf("Dmax = %g, want 42.5", m.DmaxGy)
	}
	if m.D01ccGy != nil || m.D1ccGy != nil {
		t.Error("small-volume points must be omitted when volume is unknown")
	}
}

func TestCordMetricsWithVolume(t *testing.T) {
	doses := []float64{0, 10, 20, 30, 40}
	cumulative := []float64{1.0, 0.75, 0.5, 0.25, 0.0}

	m, err := ComputeCordMetrics(doses, cumulative, 40.0)
	if err != nil {
		t.Fatalf("ComputeCordMetrics failed: %v", err)
	}
	if m.D01ccGy == nil || m.D1ccGy == nil {
		t.Fatal("small-volume points missing despite known volume")
	}
	// Absolute volumes are [40,30,20,10,0] cc; 1 cc sits between 10 cc
	// (30 Gy) and 0 cc (40 Gy) → 39 Gy.
	if math.Abs(*m.D1ccGy-39.0) > 1e-9 {
		t.Errorf("D1cc = %g, want 39", *m.D1ccGy)
	}
	if *m.D01ccGy <= *m.D1ccGy {
		t.Errorf("D0.1cc (%g) must exceed D1cc (%g)", *m.D01ccGy, *m.D1ccGy)
	}
}
