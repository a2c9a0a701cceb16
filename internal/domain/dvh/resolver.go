package dvh

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

// Logical structure roles referenced by the plan analyzer.  A role names
// the clinical function of a structure; the RoleMapping translates it into
// the physical names used by a given treatment planning system.
const (
	RoleTarget     = "ptv"
	RoleLung       = "lung"
	RoleHeart      = "heart"
	RoleEsophagus  = "esophagus"
	RoleSpinalCord = "spinal_cord"
)

// RoleMapping maps a logical role to the ordered list of physical structure
// names that may fulfil it, first match wins.  It is configuration, fixed
// for the lifetime of an analysis run.
type RoleMapping map[string][]string

// DefaultRoleMapping returns the role mapping for lung cancer RT plans.
func DefaultRoleMapping() RoleMapping {
	return RoleMapping{
		RoleTarget:     {"PTV_6600", "PTV_6000", "PTV"},
		RoleLung:       {"LUNG_TOTAL", "LUNGS"},
		RoleHeart:      {"HEART"},
		RoleEsophagus:  {"ESOPHAGUS", "OESOPHAGUS"},
		RoleSpinalCord: {"SPINAL_CORD", "CORD"},
	}
}

// Roles returns the mapped role names, sorted, for diagnostics.
func (m RoleMapping) Roles() []string {
	roles := make([]string, 0, len(m))
	for role := range m {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// Resolver maps logical roles to curves of a concrete plan via a
// RoleMapping.  A Resolver is stateless and safe for concurrent use.
type Resolver struct {
	mapping RoleMapping
}

// NewResolver constructs a Resolver over the given mapping.
func NewResolver(mapping RoleMapping) *Resolver {
	return &Resolver{mapping: mapping}
}

// candidates returns the ordered candidate names for role, or a
// configuration error when the role is unknown to the mapping. An unknown
// role is a setup defect, never a per-patient data condition.
func (r *Resolver) candidates(role string) ([]string, error) {
	names, ok := r.mapping[role]
	if !ok {
		return nil, errors.New(errors.ErrCodeRoleUnknown, "unknown structure role").
			WithDetailf("role=%s known_roles=[%s]", role, strings.Join(r.mapping.Roles(), " "))
	}
	return names, nil
}

// Resolve returns the curve for the first candidate name of role present in
// the catalog, in priority order.  When no candidate matches it fails with
// a not-found error enumerating both the candidates tried and the structure
// names actually present, so an operator can fix the mapping or the export
// without re-running.
func (r *Resolver) Resolve(catalog *StructureCatalog, role string) (*Curve, error) {
	names, err := r.candidates(role)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if curve, ok := catalog.Structure(name); ok {
			return curve, nil
		}
	}
	return nil, errors.New(errors.ErrCodeStructureNotFound,
		fmt.Sprintf("no structure found for role %q in %s/%s", role, catalog.PatientID(), catalog.PlanName())).
		WithDetailf("tried=[%s] available=[%s]",
			strings.Join(names, " "), strings.Join(catalog.StructureNames(), " "))
}

// Lookup is the non-throwing variant of Resolve for optional organs: absence
// is reported through the boolean, not an error.  An unknown role is still
// a configuration error.
func (r *Resolver) Lookup(catalog *StructureCatalog, role string) (*Curve, bool, error) {
	if _, err := r.candidates(role); err != nil {
		return nil, false, err
	}
	curve, err := r.Resolve(catalog, role)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return curve, true, nil
}

// ResolveRequired resolves a set of required roles, collecting every
// unresolved role into a single aggregated not-found error so that an
// operator sees all missing structures in one pass.  Configuration errors
// abort immediately at first occurrence and are never aggregated.
func (r *Resolver) ResolveRequired(catalog *StructureCatalog, roles []string) (map[string]*Curve, error) {
	resolved := make(map[string]*Curve, len(roles))
	var missing []string
	for _, role := range roles {
		curve, err := r.Resolve(catalog, role)
		if err != nil {
			if errors.IsNotFound(err) {
				missing = append(missing, role)
				continue
			}
			return nil, err
		}
		resolved[role] = curve
	}
	if len(missing) > 0 {
		return nil, errors.New(errors.ErrCodeStructureNotFound,
			fmt.Sprintf("missing required structures in %s/%s", catalog.PatientID(), catalog.PlanName())).
			WithDetailf("missing_roles=[%s] available=[%s]",
				strings.Join(missing, " "), strings.Join(catalog.StructureNames(), " "))
	}
	return resolved, nil
}
