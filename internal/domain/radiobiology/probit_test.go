package radiobiology

import (
	"math"
	"testing"

	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

func TestComplicationProbabilitySymmetry(t *testing.T) {
	// Deff = TD50 must give exactly 0.5 regardless of slope.
	for _, m := range []float64{0.05, 0.18, 0.5, 1.0} {
		p, err := ComplicationProbability(24.5, 24.5, m)
		if err != nil {
			t.Fatalf("m=%g: %v", m, err)
		}
		if math.Abs(p-0.5) > 1e-9 {
			t.Errorf("m=%g: NTCP = %.12f, want 0.5", m, p)
		}
	}
}

func TestComplicationProbabilityMonotonic(t *testing.T) {
	var prev float64 = -1
	for _, deff := range []float64{0, 10, 20, 24.5, 30, 50, 100} {
		p, err := ComplicationProbability(deff, 24.5, 0.18)
		if err != nil {
			t.Fatalf("deff=%g: %v", deff, err)
		}
		if p <= prev {
			t.Errorf("NTCP not strictly increasing at deff=%g: %g <= %g", deff, p, prev)
		}
		prev = p
	}
}

func TestComplicationProbabilityRange(t *testing.T) {
	for _, deff := range []float64{0, 24.5, 2450} {
		p, err := ComplicationProbability(deff, 24.5, 0.18)
		if err != nil {
			t.Fatalf("deff=%g: %v", deff, err)
		}
		if p < 0 || p > 1 {
			t.Errorf("NTCP = %g out of [0,1] at deff=%g", p, deff)
		}
	}
}

func TestComplicationProbabilityToleratesZeroDose(t *testing.T) {
	p, err := ComplicationProbability(0, 24.5, 0.18)
	if err != nil {
		t.Fatalf("Deff=0 must be tolerated: %v", err)
	}
	if p <= 0 || p >= 0.5 {
		t.Errorf("NTCP(0) = %g, want a small positive probability", p)
	}
}

func TestComplicationProbabilityDomain(t *testing.T) {
	tests := []struct {
		name           string
		deff, td50, m  float64
	}{
		{"negative deff", -1, 24.5, 0.18},
		{"zero td50", 24.5, 0, 0.18},
		{"negative td50", 24.5, -5, 0.18},
		{"zero m", 24.5, 24.5, 0},
		{"negative m", 24.5, 24.5, -0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComplicationProbability(tt.deff, tt.td50, tt.m)
			if err == nil || !errors.IsValidation(err) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}
}

func TestComputeNTCP(t *testing.T) {
	doses := []float64{10, 20, 30}
	volumes := []float64{0.3, 0.5, 0.2}
	params := ProbitParams{N: 0.87, M: 0.18, TD50Gy: 24.5, Endpoint: "pneumonitis grade >=2"}

	res, err := ComputeNTCP(doses, volumes, params)
	if err != nil {
		t.Fatalf("ComputeNTCP failed: %v", err)
	}
	wantDeff, _ := EffectiveDose(doses, volumes, params.N)
	if math.Abs(res.DeffGy-wantDeff) > 1e-12 {
		t.Errorf("DeffGy = %g, want %g", res.DeffGy, wantDeff)
	}
	wantNTCP, _ := ComplicationProbability(wantDeff, params.TD50Gy, params.M)
	if math.Abs(res.NTCP-wantNTCP) > 1e-12 {
		t.Errorf("NTCP = %g, want %g", res.NTCP, wantNTCP)
	}
	if res.Parameters != params {
		t.Errorf("parameter echo = %+v, want %+v", res.Parameters, params)
	}
	if res.Endpoint != "pneumonitis grade >=2" {
		t.Errorf("endpoint = %q", res.Endpoint)
	}
}

func TestComputeNTCPAllZeroCurve(t *testing.T) {
	// An unirradiated organ reduces to Deff=0, which the probit stage
	// tolerates.
	res, err := ComputeNTCP([]float64{0, 0}, []float64{0.5, 0.5},
		ProbitParams{N: 0.87, M: 0.18, TD50Gy: 24.5})
	if err != nil {
		t.Fatalf("ComputeNTCP failed: %v", err)
	}
	if res.DeffGy != 0 {
		t.Errorf("DeffGy = %g, want 0", res.DeffGy)
	}
	if res.NTCP <= 0 || res.NTCP >= 0.5 {
		t.Errorf("NTCP = %g, want small positive", res.NTCP)
	}
}

func TestComputeNTCPInvalidParamsFailFast(t *testing.T) {
	_, err := ComputeNTCP([]float64{10}, []float64{1.0}, ProbitParams{N: 0, M: 0.18, TD50Gy: 24.5})
	if err == nil || !errors.IsValidation(err) {
		t.Errorf("err = %v, want validation error before stage 1", err)
	}
}
