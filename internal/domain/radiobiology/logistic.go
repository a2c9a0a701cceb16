package radiobiology

import (
	"math"

	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

// ControlProbability computes TCP from an equivalent uniform dose with
// Niemierko's logistic model:
//
//	TCP = 1 / (1 + (TCD50 / EUD)^(4*gamma50))
//
// Unlike the probit variant, EUD = 0 is a domain error here: the ratio
// TCD50/EUD is undefined at zero.  The result is in [0,1] and equals 0.5
// exactly when EUD = TCD50, independent of gamma50.
func ControlProbability(eudGy, tcd50Gy, gamma50 float64) (float64, error) {
	if eudGy <= 0 {
		return 0, errors.New(errors.ErrCodeModelDomain,
			"equivalent uniform dose must be positive").WithDetailf("eud_gy=%g", eudGy)
	}
	if tcd50Gy <= 0 {
		return 0, errors.New(errors.ErrCodeModelParameterInvalid,
			"TCD50 must be positive").WithDetailf("tcd50_gy=%g", tcd50Gy)
	}
	if gamma50 <= 0 {
		return 0, errors.New(errors.ErrCodeModelParameterInvalid,
			"gamma50 must be positive").WithDetailf("gamma50=%g", gamma50)
	}
	ratio := tcd50Gy / eudGy
	return 1.0 / (1.0 + math.Pow(ratio, 4.0*gamma50)), nil
}

// TCPResult is the outcome of the full equivalent-uniform-dose + logistic
// chain, including an echo of the parameters used for audit and export.
type TCPResult struct {
	EUDGy      float64        `json:"eud_gy"`
	TCP        float64        `json:"tcp"`
	Parameters LogisticParams `json:"parameters"`
}

// ComputeTCP runs both model stages on a differential curve: parameter
// validation, equivalent-uniform-dose reduction, then the logistic
// response.
func ComputeTCP(dosesGy, differentialVolumes []float64, params LogisticParams) (*TCPResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	eud, err := EquivalentUniformDose(dosesGy, differentialVolumes, params.A)
	if err != nil {
		return nil, err
	}
	tcp, err := ControlProbability(eud, params.TCD50Gy, params.Gamma50)
	if err != nil {
		return nil, err
	}
	return &TCPResult{
		EUDGy:      eud,
		TCP:        tcp,
		Parameters: params,
	}, nil
}
