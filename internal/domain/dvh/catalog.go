package dvh

import (
	"fmt"
	"sort"

	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

// StructureCatalog maps structure names to their curves for one
// (patient, plan) pair.  It is built once per plan and read-only
// thereafter, so it is safe for unrestricted concurrent use.
type StructureCatalog struct {
	patientID  string
	planName   string
	structures map[string]*Curve
}

// NewStructureCatalog constructs the read-only catalog of one plan.
// A duplicate structure name is a data defect in the source plan and fails
// construction; the parser accumulates bins per name before building curves,
// so duplicates only arise from caller bugs.
func NewStructureCatalog(patientID, planName string, curves []*Curve) (*StructureCatalog, error) {
	if len(curves) == 0 {
		return nil, errors.New(errors.ErrCodeCurveEmpty, "plan contains no structures").
			WithDetailf("patient=%s plan=%s", patientID, planName)
	}
	structures := make(map[string]*Curve, len(curves))
	for _, c := range curves {
		if _, exists := structures[c.Structure()]; exists {
			return nil, errors.New(errors.ErrCodeCurveInvalid, "duplicate structure in plan").
				WithDetailf("patient=%s plan=%s structure=%s", patientID, planName, c.Structure())
		}
		structures[c.Structure()] = c
	}
	return &StructureCatalog{
		patientID:  patientID,
		planName:   planName,
		structures: structures,
	}, nil
}

// PatientID returns the patient identifier of the source plan.
func (s *StructureCatalog) PatientID() string { return s.patientID }

// PlanName returns the plan name of the source plan.
func (s *StructureCatalog) PlanName() string { return s.planName }

// Len returns the number of structures in the catalog.
func (s *StructureCatalog) Len() int { return len(s.structures) }

// Structure returns the curve for an exact structure name.
func (s *StructureCatalog) Structure(name string) (*Curve, bool) {
	c, ok := s.structures[name]
	return c, ok
}

// StructureNames returns all structure names, sorted, for diagnostics and
// operator-facing error messages.
func (s *StructureCatalog) StructureNames() []string {
	names := make([]string, 0, len(s.structures))
	for name := range s.structures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String implements fmt.Stringer for log output.
func (s *StructureCatalog) String() string {
	return fmt.Sprintf("StructureCatalog(patient=%s, plan=%s, %d structures)",
		s.patientID, s.planName, len(s.structures))
}
