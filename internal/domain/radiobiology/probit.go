package radiobiology

import (
	"math"

	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

// normalCDF is the standard normal cumulative distribution function,
// evaluated through math.Erf.  At t = 0 it returns exactly 0.5, which the
// symmetry guarantee of the probit model depends on.
func normalCDF(t float64) float64 {
	return 0.5 * (1.0 + math.Erf(t/math.Sqrt2))
}

// ComplicationProbability computes NTCP from an effective dose with the
// Lyman-Kutcher-Burman probit model:
//
//	t = (Deff - TD50) / (m * TD50)
//	NTCP = Phi(t)
//
// Deff = 0 is tolerated (an unirradiated organ has a well-defined, tiny
// complication probability).  The result is in [0,1] and equals 0.5 exactly
// when Deff = TD50, independent of m.
func ComplicationProbability(deffGy, td50Gy, m float64) (float64, error) {
	if deffGy < 0 {
		return 0, errors.New(errors.ErrCodeModelDomain,
			"effective dose must be non-negative").WithDetailf("deff_gy=%g", deffGy)
	}
	if td50Gy <= 0 {
		return 0, errors.New(errors.ErrCodeModelParameterInvalid,
			"TD50 must be positive").WithDetailf("td50_gy=%g", td50Gy)
	}
	if m <= 0 {
		return 0, errors.New(errors.ErrCodeModelParameterInvalid,
			"slope parameter m must be positive").WithDetailf("m=%g", m)
	}
	t := (deffGy - td50Gy) / (m * td50Gy)
	return normalCDF(t), nil
}

// NTCPResult is the outcome of the full effective-dose + probit chain,
// including an echo of the parameters used for audit and export.
type NTCPResult struct {
	DeffGy     float64      `json:"deff_gy"`
	NTCP       float64      `json:"ntcp"`
	Endpoint   string       `json:"endpoint,omitempty"`
	Parameters ProbitParams `json:"parameters"`
}

// ComputeNTCP runs both model stages on a differential curve: parameter
// validation, effective-dose reduction, then the probit response.  The two
// stages are never invoked with an invalid or partial parameter record.
func ComputeNTCP(dosesGy, differentialVolumes []float64, params ProbitParams) (*NTCPResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	deff, err := EffectiveDose(dosesGy, differentialVolumes, params.N)
	if err != nil {
		return nil, err
	}
	ntcp, err := ComplicationProbability(deff, params.TD50Gy, params.M)
	if err != nil {
		return nil, err
	}
	return &NTCPResult{
		DeffGy:     deff,
		NTCP:       ntcp,
		Endpoint:   params.Endpoint,
		Parameters: params,
	}, nil
}
