// Package radiobiology implements the two-stage radiobiological model
// engine: a generalized power-mean dose reduction over a differential
// dose-volume curve, followed by a sigmoidal dose-response probability.
//
// Two independent model families are provided and are not interchangeable:
//
//   - effective dose + probit (Lyman-Kutcher-Burman), used for normal
//     tissue complication probability (NTCP);
//   - equivalent uniform dose + logistic (Niemierko), used for tumor
//     control probability (TCP).
//
// All functions are pure; parameters are value records validated before
// either stage runs.
package radiobiology

import (
	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

// Recognized parameter keys of the named parameter sets consumed from
// configuration.
const (
	ParamN       = "n"
	ParamM       = "m"
	ParamTD50Gy  = "td50_gy"
	ParamA       = "a"
	ParamTCD50Gy = "tcd50_gy"
	ParamGamma50 = "gamma50"
)

// ParamSet is a named parameter set as loaded from configuration, before
// conversion into a typed record.  Conversion validates required keys up
// front so that the model stages are never invoked with a partial set.
type ParamSet map[string]float64

// ProbitParams parameterizes the effective-dose + probit (LKB) model.
type ProbitParams struct {
	// N is the organ volume parameter; the reduction exponent is 1/N.
	N float64 `json:"n"`
	// M is the slope of the dose-response curve.
	M float64 `json:"m"`
	// TD50Gy is the dose producing a 50% complication probability.
	TD50Gy float64 `json:"td50_gy"`
	// Endpoint describes the clinical endpoint the parameters were fit
	// for, e.g. "pneumonitis grade >=2".  Informational only.
	Endpoint string `json:"endpoint,omitempty"`
}

// Validate enforces the numeric domain of the probit model parameters.
func (p ProbitParams) Validate() error {
	if p.N <= 0 {
		return errors.New(errors.ErrCodeModelParameterInvalid,
			"volume parameter n must be positive").WithDetailf("n=%g", p.N)
	}
	if p.M <= 0 {
		return errors.New(errors.ErrCodeModelParameterInvalid,
			"slope parameter m must be positive").WithDetailf("m=%g", p.M)
	}
	if p.TD50Gy <= 0 {
		return errors.New(errors.ErrCodeModelParameterInvalid,
			"TD50 must be positive").WithDetailf("td50_gy=%g", p.TD50Gy)
	}
	return nil
}

// ProbitParamsFromSet converts a named parameter set into a ProbitParams
// record.  Any missing required key fails with a configuration error naming
// that key; numeric domains are checked separately by Validate.
func ProbitParamsFromSet(set ParamSet) (ProbitParams, error) {
	var p ProbitParams
	var err error
	if p.N, err = requireParam(set, ParamN); err != nil {
		return ProbitParams{}, err
	}
	if p.M, err = requireParam(set, ParamM); err != nil {
		return ProbitParams{}, err
	}
	if p.TD50Gy, err = requireParam(set, ParamTD50Gy); err != nil {
		return ProbitParams{}, err
	}
	return p, nil
}

// LogisticParams parameterizes the equivalent-uniform-dose + logistic
// (Niemierko) model.
type LogisticParams struct {
	// A is the tissue-specific reduction exponent, negative for tumors.
	A float64 `json:"a"`
	// TCD50Gy is the dose producing a 50% control probability.
	TCD50Gy float64 `json:"tcd50_gy"`
	// Gamma50 is the normalized slope of the dose-response curve.
	Gamma50 float64 `json:"gamma50"`
}

// Validate enforces the numeric domain of the logistic model parameters.
func (p LogisticParams) Validate() error {
	if p.A == 0 {
		return errors.New(errors.ErrCodeModelParameterInvalid,
			"reduction exponent a must be nonzero")
	}
	if p.TCD50Gy <= 0 {
		return errors.New(errors.ErrCodeModelParameterInvalid,
			"TCD50 must be positive").WithDetailf("tcd50_gy=%g", p.TCD50Gy)
	}
	if p.Gamma50 <= 0 {
		return errors.New(errors.ErrCodeModelParameterInvalid,
			"gamma50 must be positive").WithDetailf("gamma50=%g", p.Gamma50)
	}
	return nil
}

// LogisticParamsFromSet converts a named parameter set into a
// LogisticParams record, failing with a configuration error on the first
// missing required key.
func LogisticParamsFromSet(set ParamSet) (LogisticParams, error) {
	var p LogisticParams
	var err error
	if p.A, err = requireParam(set, ParamA); err != nil {
		return LogisticParams{}, err
	}
	if p.TCD50Gy, err = requireParam(set, ParamTCD50Gy); err != nil {
		return LogisticParams{}, err
	}
	if p.Gamma50, err = requireParam(set, ParamGamma50); err != nil {
		return LogisticParams{}, err
	}
	return p, nil
}

func requireParam(set ParamSet, key string) (float64, error) {
	v, ok := set[key]
	if !ok {
		return 0, errors.New(errors.ErrCodeModelParameterMissing,
			"required model parameter missing").WithDetail("key=" + key)
	}
	return v, nil
}
