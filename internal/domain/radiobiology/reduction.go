package radiobiology

import (
	"math"

	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

// volumeSumTolerance is the absolute tolerance for the differential-volume
// sum precondition of the power-mean reduction.
const volumeSumTolerance = 0.01

// powerMeanDose reduces a differential dose-volume curve to a single dose:
//
//	E = ( sum v_i * D_i^p )^(1/p)
//
// Zero-dose bins are excluded from the sum: a zero base raised to a
// negative or fractional exponent is undefined.  When every dose is zero the
// reduction is 0.  For a uniform curve (all doses equal D) the result is D
// independent of p, and p = 1 reduces to the arithmetic mean dose.
func powerMeanDose(dosesGy, differentialVolumes []float64, p float64) (float64, error) {
	if len(dosesGy) != len(differentialVolumes) {
		return 0, errors.New(errors.ErrCodeCurveInvalid,
			"dose and volume arrays must have same length").
			WithDetailf("doses=%d volumes=%d", len(dosesGy), len(differentialVolumes))
	}
	if len(dosesGy) == 0 {
		return 0, errors.New(errors.ErrCodeCurveEmpty, "cannot reduce an empty curve")
	}
	var volumeSum float64
	for _, v := range differentialVolumes {
		volumeSum += v
	}
	if math.Abs(volumeSum-1.0) > volumeSumTolerance {
		return 0, errors.New(errors.ErrCodeVolumeSumViolation,
			"differential volumes must sum to ~1.0; did you pass a cumulative curve instead of a differential one?").
			WithDetailf("sum=%.4f", volumeSum)
	}
	if p == 0 {
		return 0, errors.New(errors.ErrCodeModelParameterInvalid,
			"reduction exponent must be nonzero")
	}

	var weightedSum float64
	any := false
	for i, d := range dosesGy {
		if d <= 0 {
			continue
		}
		weightedSum += differentialVolumes[i] * math.Pow(d, p)
		any = true
	}
	if !any {
		return 0, nil
	}
	return math.Pow(weightedSum, 1.0/p), nil
}

// EffectiveDose reduces a differential curve with the Lyman-Kutcher-Burman
// effective-dose formula, Deff = (sum v_i * D_i^(1/n))^n, where n is the
// organ volume parameter (typically 0.05-1.0; n must be positive).
func EffectiveDose(dosesGy, differentialVolumes []float64, n float64) (float64, error) {
	if n <= 0 {
		return 0, errors.New(errors.ErrCodeModelParameterInvalid,
			"volume parameter n must be positive").WithDetailf("n=%g", n)
	}
	return powerMeanDose(dosesGy, differentialVolumes, 1.0/n)
}

// EquivalentUniformDose reduces a differential curve with Niemierko's
// formula, EUD = (sum v_i * D_i^a)^(1/a), a nonzero and typically negative
// for tumors.
func EquivalentUniformDose(dosesGy, differentialVolumes []float64, a float64) (float64, error) {
	if a == 0 {
		return 0, errors.New(errors.ErrCodeModelParameterInvalid,
			"reduction exponent a must be nonzero")
	}
	return powerMeanDose(dosesGy, differentialVolumes, a)
}
