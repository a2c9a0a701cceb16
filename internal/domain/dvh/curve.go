// Package dvh defines the dose-volume-curve data model of rt-bioeval: the
// immutable per-structure curve, the per-plan structure catalog, the
// cumulative/differential transforms, and the role-to-structure resolver.
//
// Everything in this package is a pure value computation over immutable
// data; curves are safe for unrestricted concurrent use once constructed.
package dvh

import (
	"fmt"
	"sort"

	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

// Curve is the cleaned dose-volume curve of a single anatomical structure.
//
// A Curve is immutable after construction.  Its dose bins are strictly
// increasing with no duplicates, and its volumes are clamped to [0,1] when
// they represent a cumulative fraction.  A Curve holds either a cumulative
// representation (volume non-increasing in dose, conventionally starting
// near 1.0) or a differential one (volumes summing to ~1.0); the two are
// never mixed in one call and callers must know which they hold.
type Curve struct {
	structure     string
	dosesGy       []float64
	volumes       []float64
	totalVolumeCC float64 // 0 when unknown
}

// CurveOption customises curve construction.
type CurveOption func(*Curve)

// WithTotalVolumeCC records the structure's absolute volume in cc, enabling
// absolute-volume dose points (D0.1cc, D1cc) downstream.  Non-positive
// values are ignored and the volume stays unknown.
func WithTotalVolumeCC(cc float64) CurveOption {
	return func(c *Curve) {
		if cc > 0 {
			c.totalVolumeCC = cc
		}
	}
}

// NewCurve constructs a cleaned Curve from raw parser output.
//
// Cleaning is a constructor-time invariant, not a call-site utility:
//   - dose/volume arrays must be non-empty and of equal length;
//   - bins are sorted by dose (stable, so input order breaks dose ties);
//   - duplicate dose bins are discarded keep-first;
//   - volumes are clamped into [0,1].
//
// Downstream interpolation correctness depends on this cleaning, which is
// why malformed input fails here rather than at the first metric call.
func NewCurve(structure string, dosesGy, volumesFrac []float64, opts ...CurveOption) (*Curve, error) {
	if len(dosesGy) == 0 {
		return nil, errors.New(errors.ErrCodeCurveEmpty,
			"dose-volume curve must contain at least one bin").
			WithDetail("structure=" + structure)
	}
	if len(dosesGy) != len(volumesFrac) {
		return nil, errors.New(errors.ErrCodeCurveInvalid,
			"dose and volume arrays must have same length").
			WithDetailf("structure=%s doses=%d volumes=%d", structure, len(dosesGy), len(volumesFrac))
	}
	for i, d := range dosesGy {
		if d < 0 {
			return nil, errors.New(errors.ErrCodeCurveInvalid,
				"dose values must be non-negative").
				WithDetailf("structure=%s bin=%d dose=%g", structure, i, d)
		}
	}

	c := &Curve{
		structure: structure,
		dosesGy:   append([]float64(nil), dosesGy...),
		volumes:   append([]float64(nil), volumesFrac...),
	}
	c.sortAndClean()

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// sortAndClean sorts bins by dose, discards duplicate doses keep-first, and
// clamps volumes into [0,1].
func (c *Curve) sortAndClean() {
	idx := make([]int, len(c.dosesGy))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return c.dosesGy[idx[a]] < c.dosesGy[idx[b]]
	})

	doses := make([]float64, 0, len(idx))
	volumes := make([]float64, 0, len(idx))
	for _, i := range idx {
		d := c.dosesGy[i]
		if n := len(doses); n > 0 && doses[n-1] == d {
			continue // keep first occurrence, discard later duplicates
		}
		v := c.volumes[i]
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		doses = append(doses, d)
		volumes = append(volumes, v)
	}
	c.dosesGy = doses
	c.volumes = volumes
}

// Structure returns the structure name as found in the source plan.
func (c *Curve) Structure() string { return c.structure }

// Len returns the number of dose bins.
func (c *Curve) Len() int { return len(c.dosesGy) }

// At returns the (dose in Gy, volume) pair of bin i.
func (c *Curve) At(i int) (doseGy, volume float64) {
	return c.dosesGy[i], c.volumes[i]
}

// DosesGy returns a copy of the dose bins, sorted ascending.
func (c *Curve) DosesGy() []float64 {
	return append([]float64(nil), c.dosesGy...)
}

// Volumes returns a copy of the volume values, ordered by dose.
func (c *Curve) Volumes() []float64 {
	return append([]float64(nil), c.volumes...)
}

// MinDoseGy returns the lowest dose bin.
func (c *Curve) MinDoseGy() float64 { return c.dosesGy[0] }

// MaxDoseGy returns the highest dose bin.
func (c *Curve) MaxDoseGy() float64 { return c.dosesGy[len(c.dosesGy)-1] }

// TotalVolumeCC returns the structure's absolute volume in cc and whether
// it is known for this curve.
func (c *Curve) TotalVolumeCC() (float64, bool) {
	return c.totalVolumeCC, c.totalVolumeCC > 0
}

// String implements fmt.Stringer for log and error output.
func (c *Curve) String() string {
	return fmt.Sprintf("Curve(%q, %d bins, dose range %.2f-%.2f Gy)",
		c.structure, len(c.dosesGy), c.MinDoseGy(), c.MaxDoseGy())
}
