package dosemetrics

// Dose thresholds and small-volume points of the standard organ metric
// bundles for lung cancer RT plans.
const (
	lungV5ThresholdGy  = 5.0
	lungV20ThresholdGy = 20.0

	cordSmallVolumeCC = 0.1
	cordPointVolumeCC = 1.0
)

// LungMetrics is the standard lung bundle: mean lung dose and the V5/V20
// volume fractions.
type LungMetrics struct {
	MeanDoseGy float64 `json:"mean_dose_gy"`
	V5Percent  float64 `json:"v5_percent"`
	V20Percent float64 `json:"v20_percent"`
}

// ComputeLungMetrics evaluates the lung bundle.  The mean dose needs the
// differential volumes while V5/V20 need the cumulative ones, so both
// representations of the same curve are taken.
func ComputeLungMetrics(dosesGy, differentialVolumes, cumulativeVolumesFrac []float64) (LungMetrics, error) {
	mld, err := MeanDose(dosesGy, differentialVolumes)
	if err != nil {
		return LungMetrics{}, err
	}
	v5, err := Vx(dosesGy, cumulativeVolumesFrac, lungV5ThresholdGy)
	if err != nil {
		return LungMetrics{}, err
	}
	v20, err := Vx(dosesGy, cumulativeVolumesFrac, lungV20ThresholdGy)
	if err != nil {
		return LungMetrics{}, err
	}
	return LungMetrics{MeanDoseGy: mld, V5Percent: v5, V20Percent: v20}, nil
}

// CordMetrics is the spinal cord bundle: maximum dose always, plus the
// D0.1cc and D1cc dose points when the structure's absolute volume is
// known.  Unknown points stay nil and are omitted from serialized output.
type CordMetrics struct {
	DmaxGy  float64  `json:"dmax_gy"`
	D01ccGy *float64 `json:"d0_1cc_gy,omitempty"`
	D1ccGy  *float64 `json:"d1cc_gy,omitempty"`
}

// ComputeCordMetrics evaluates the spinal cord bundle.  totalVolumeCC <= 0
// means the absolute volume is unknown and the small-volume dose points are
// skipped, matching source exports that do not carry structure volumes.
func ComputeCordMetrics(dosesGy, cumulativeVolumesFrac []float64, totalVolumeCC float64) (CordMetrics, error) {
	dmax, err := Dmax(dosesGy)
	if err != nil {
		return CordMetrics{}, err
	}
	metrics := CordMetrics{DmaxGy: dmax}

	if totalVolumeCC <= 0 {
		return metrics, nil
	}

	volumesCC := make([]float64, len(cumulativeVolumesFrac))
	for i, v := range cumulativeVolumesFrac {
		volumesCC[i] = v * totalVolumeCC
	}
	d01, err := DxAbsolute(dosesGy, volumesCC, cordSmallVolumeCC)
	if err != nil {
		return CordMetrics{}, err
	}
	d1, err := DxAbsolute(dosesGy, volumesCC, cordPointVolumeCC)
	if err != nil {
		return CordMetrics{}, err
	}
	metrics.D01ccGy = &d01
	metrics.D1ccGy = &d1
	return metrics, nil
}
