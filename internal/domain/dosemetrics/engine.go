// Package dosemetrics implements the dose/volume metric engine: Dmax, Dx,
// Vx and mean dose over 1-D dose-volume curves, plus the organ-specific
// metric bundles reported by the plan analyzer.
//
// All functions are pure and operate on the raw dose/volume arrays of a
// cleaned curve (sorted ascending by dose, no duplicate bins); the curve
// constructor in the dvh package guarantees those invariants.
package dosemetrics

import (
	"math"

	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

// volumeSumTolerance is the absolute tolerance for the differential-volume
// sum precondition of MeanDose.
const volumeSumTolerance = 0.01

// interpolate returns the piecewise-linear interpolation of y at x over the
// monotone ascending grid xs.  Outside the grid the nearest end value is
// returned.  Same contract as numpy's interp for ascending xs.
func interpolate(x float64, xs, ys []float64) float64 {
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[len(xs)-1] {
		return ys[len(ys)-1]
	}
	// Find the bracketing bin by linear scan; curves are small (hundreds
	// of bins) and the scan keeps the function allocation-free.
	for i := 1; i < len(xs); i++ {
		if x <= xs[i] {
			if xs[i] == xs[i-1] {
				return ys[i]
			}
			frac := (x - xs[i-1]) / (xs[i] - xs[i-1])
			return ys[i-1] + frac*(ys[i]-ys[i-1])
		}
	}
	return ys[len(ys)-1]
}

// Dmax returns the maximum dose of the curve.
func Dmax(dosesGy []float64) (float64, error) {
	if len(dosesGy) == 0 {
		return 0, errors.New(errors.ErrCodeCurveEmpty, "cannot compute Dmax of an empty curve")
	}
	max := dosesGy[0]
	for _, d := range dosesGy[1:] {
		if d > max {
			max = d
		}
	}
	return max, nil
}

// DxAbsolute returns the dose in Gy received by volumeCC of the structure,
// from a cumulative curve expressed in absolute volume units (cc, not
// fraction).
//
// Cumulative volume decreases as dose increases, so the inverse lookup
// interpolates dose as a function of volume over the arrays reversed
// end-to-start, where volume is ascending.  Boundary policy: a threshold
// above the curve's maximum volume returns the lowest dose; below the
// minimum volume, the highest dose.
func DxAbsolute(dosesGy, cumulativeVolumesCC []float64, volumeCC float64) (float64, error) {
	if len(dosesGy) == 0 {
		return 0, errors.New(errors.ErrCodeCurveEmpty, "cannot compute Dx of an empty curve")
	}
	if len(dosesGy) != len(cumulativeVolumesCC) {
		return 0, errors.New(errors.ErrCodeCurveInvalid,
			"dose and volume arrays must have same length").
			WithDetailf("doses=%d volumes=%d", len(dosesGy), len(cumulativeVolumesCC))
	}
	if volumeCC < 0 {
		return 0, errors.New(errors.ErrCodeValidation, "volume threshold must be non-negative").
			WithDetailf("volume_cc=%g", volumeCC)
	}

	maxVolume := cumulativeVolumesCC[0]
	minVolume := cumulativeVolumesCC[len(cumulativeVolumesCC)-1]
	switch {
	case volumeCC > maxVolume:
		return dosesGy[0], nil
	case volumeCC < minVolume:
		return dosesGy[len(dosesGy)-1], nil
	}

	n := len(dosesGy)
	revVolumes := make([]float64, n)
	revDoses := make([]float64, n)
	for i := 0; i < n; i++ {
		revVolumes[i] = cumulativeVolumesCC[n-1-i]
		revDoses[i] = dosesGy[n-1-i]
	}
	return interpolate(volumeCC, revVolumes, revDoses), nil
}

// Vx returns the percentage (0-100) of the structure volume receiving at
// least thresholdGy, from a cumulative fractional curve.  A threshold at or
// below the lowest dose bin returns the first (maximum) volume; at or above
// the highest bin, the last (minimum) volume.
func Vx(dosesGy, cumulativeVolumesFrac []float64, thresholdGy float64) (float64, error) {
	if len(dosesGy) == 0 {
		return 0, errors.New(errors.ErrCodeCurveEmpty, "cannot compute Vx of an empty curve")
	}
	if len(dosesGy) != len(cumulativeVolumesFrac) {
		return 0, errors.New(errors.ErrCodeCurveInvalid,
			"dose and volume arrays must have same length").
			WithDetailf("doses=%d volumes=%d", len(dosesGy), len(cumulativeVolumesFrac))
	}
	if thresholdGy < 0 {
		return 0, errors.New(errors.ErrCodeValidation, "dose threshold must be non-negative").
			WithDetailf("threshold_gy=%g", thresholdGy)
	}
	return interpolate(thresholdGy, dosesGy, cumulativeVolumesFrac) * 100.0, nil
}

// MeanDose returns the mean dose of a differential curve: sum of v_i * D_i.
//
// Precondition: the differential volumes sum to ~1.0.  A violation almost
// always means a cumulative curve was passed by mistake, and the error says
// so.
func MeanDose(dosesGy, differentialVolumes []float64) (float64, error) {
	if len(dosesGy) == 0 {
		return 0, errors.New(errors.ErrCodeCurveEmpty, "cannot compute mean dose of an empty curve")
	}
	if len(dosesGy) != len(differentialVolumes) {
		return 0, errors.New(errors.ErrCodeCurveInvalid,
			"dose and volume arrays must have same length").
			WithDetailf("doses=%d volumes=%d", len(dosesGy), len(differentialVolumes))
	}
	var sum float64
	for _, v := range differentialVolumes {
		sum += v
	}
	if math.Abs(sum-1.0) > volumeSumTolerance {
		return 0, errors.New(errors.ErrCodeVolumeSumViolation,
			"differential volumes must sum to ~1.0; did you pass a cumulative curve instead of a differential one?").
			WithDetailf("sum=%.4f", sum)
	}
	var mean float64
	for i, d := range dosesGy {
		mean += d * differentialVolumes[i]
	}
	return mean, nil
}
