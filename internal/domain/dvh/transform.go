package dvh

import (
	"math"

	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

// sumTolerance is the absolute tolerance applied when checking that a
// differential curve accounts for the full cumulative starting volume.
const sumTolerance = 0.01

// CumulativeToDifferential converts a cumulative curve into its differential
// volume array, aligned bin-for-bin with the curve's dose bins.
//
// For i in [0, n-2] the differential volume is cum[i] - cum[i+1]; the last
// bin carries cum[n-1] so that the total is preserved.  The conversion
// fails when the differential volumes do not sum to the cumulative starting
// volume within ±0.01: that signals a malformed (non-monotone) cumulative
// input rather than a numeric accident.
func CumulativeToDifferential(c *Curve) ([]float64, error) {
	n := c.Len()
	diff := make([]float64, n)
	for i := 0; i < n-1; i++ {
		diff[i] = c.volumes[i] - c.volumes[i+1]
	}
	diff[n-1] = c.volumes[n-1]

	expected := c.volumes[0]
	var actual float64
	for _, v := range diff {
		actual += v
	}
	if math.Abs(actual-expected) > sumTolerance {
		return nil, errors.New(errors.ErrCodeTransformMismatch,
			"differential volumes do not account for cumulative starting volume; cumulative curve is likely non-monotone").
			WithDetailf("structure=%s sum=%.4f expected=%.4f", c.structure, actual, expected)
	}
	return diff, nil
}

// DifferentialToCumulative converts a differential volume array back into
// cumulative volumes over the same dose bins: cumulative[i] is the suffix
// sum of the differential volumes from i to the end.
//
// Beyond the equal-length requirement no validation is performed; the
// suffix sum is total for any input.
func DifferentialToCumulative(dosesGy, differential []float64) ([]float64, error) {
	if len(dosesGy) != len(differential) {
		return nil, errors.New(errors.ErrCodeCurveInvalid,
			"dose and differential volume arrays must have same length").
			WithDetailf("doses=%d volumes=%d", len(dosesGy), len(differential))
	}
	cumulative := make([]float64, len(differential))
	var sum float64
	for i := len(differential) - 1; i >= 0; i-- {
		sum += differential[i]
		cumulative[i] = sum
	}
	return cumulative, nil
}
