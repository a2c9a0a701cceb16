package analysis

import (
	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

// PlanComparison holds signed probability deltas between two analyzed plans
// of the same patient, computed as plan A minus plan B.  A positive TCP
// delta favors plan A; a positive NTCP delta means plan A carries the
// higher complication risk for that organ.
type PlanComparison struct {
	PatientID string `json:"patient_id"`
	PlanA     string `json:"plan_a"`
	PlanB     string `json:"plan_b"`

	TCPDelta  map[string]float64 `json:"tcp_delta"`
	NTCPDelta map[string]float64 `json:"ntcp_delta"`
}

// ComparePlans computes A minus B deltas for every probability key present
// in both results.  Keys present in only one plan are omitted rather than
// treated as zero, since a missing organ says nothing about its dose.
func ComparePlans(a, b *PlanResult) (*PlanComparison, error) {
	if a == nil || b == nil {
		return nil, errors.Validation("both plan results are required")
	}
	if a.PatientID != b.PatientID {
		return nil, errors.Validation("plans belong to different patients").
			WithDetailf("%s vs %s", a.PatientID, b.PatientID)
	}

	cmp := &PlanComparison{
		PatientID: a.PatientID,
		PlanA:     a.PlanName,
		PlanB:     b.PlanName,
		TCPDelta:  make(map[string]float64),
		NTCPDelta: make(map[string]float64),
	}

	for role, ra := range a.TCP {
		if rb, ok := b.TCP[role]; ok {
			cmp.TCPDelta[role] = ra.TCP - rb.TCP
		}
	}
	for role, ra := range a.NTCP {
		if rb, ok := b.NTCP[role]; ok {
			cmp.NTCPDelta[role] = ra.NTCP - rb.NTCP
		}
	}
	return cmp, nil
}
