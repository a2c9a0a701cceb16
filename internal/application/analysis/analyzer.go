// Package analysis orchestrates the plan-level evaluation: it resolves
// logical structure roles against a plan's structure catalog, runs the
// radiobiological models and the organ dose-metric bundles, and assembles
// the per-plan result.  Plan comparison lives here too.
package analysis

import (
	"sort"

	"github.com/ivszhuravlev/rt-bioeval/internal/domain/dosemetrics"
	"github.com/ivszhuravlev/rt-bioeval/internal/domain/dvh"
	"github.com/ivszhuravlev/rt-bioeval/internal/domain/radiobiology"
	"github.com/ivszhuravlev/rt-bioeval/internal/infrastructure/monitoring/logging"
	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

// ModelConfig carries the validated model parameters an Analyzer applies to
// every plan: one logistic TCP model for the target and one probit NTCP
// model per organ-at-risk role.
type ModelConfig struct {
	Target radiobiology.LogisticParams
	Organs map[string]radiobiology.ProbitParams
}

// Analyzer evaluates single plans against a fixed role mapping and model
// configuration.  It is immutable after construction and safe for
// concurrent use.
type Analyzer struct {
	resolver *dvh.Resolver
	models   ModelConfig
	logger   logging.Logger
}

// NewAnalyzer validates every model parameter record up front so that a
// misconfigured analyzer never reaches plan data.  A nil logger falls back
// to a no-op logger.
func NewAnalyzer(resolver *dvh.Resolver, models ModelConfig, logger logging.Logger) (*Analyzer, error) {
	if resolver == nil {
		return nil, errors.Configuration("analyzer requires a structure resolver")
	}
	if err := models.Target.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "target model parameters invalid")
	}
	for role, params := range models.Organs {
		if err := params.Validate(); err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown,
				"organ model parameters invalid").WithDetail("role=" + role)
		}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Analyzer{resolver: resolver, models: models, logger: logger.Named("analysis")}, nil
}

// PlanResult is the full evaluation of one plan.  TCP and NTCP are keyed by
// logical role; only roles whose structures are present in the plan appear.
type PlanResult struct {
	PatientID string `json:"patient_id"`
	PlanName  string `json:"plan_name"`

	TCP  map[string]*radiobiology.TCPResult  `json:"tcp"`
	NTCP map[string]*radiobiology.NTCPResult `json:"ntcp"`

	Lung *dosemetrics.LungMetrics `json:"lung_metrics,omitempty"`
	Cord *dosemetrics.CordMetrics `json:"cord_metrics,omitempty"`
}

// AnalyzePlan evaluates one plan.  The target role is required and its
// absence fails the whole plan; organ-at-risk roles are optional and are
// skipped silently when the plan has no matching structure.  Any model or
// metric failure on a present structure aborts the analysis.
func (a *Analyzer) AnalyzePlan(catalog *dvh.StructureCatalog) (*PlanResult, error) {
	if catalog == nil {
		return nil, errors.Validation("structure catalog is nil")
	}
	log := a.logger.With(
		logging.String("patient_id", catalog.PatientID()),
		logging.String("plan_name", catalog.PlanName()),
	)

	result := &PlanResult{
		PatientID: catalog.PatientID(),
		PlanName:  catalog.PlanName(),
		TCP:       make(map[string]*radiobiology.TCPResult),
		NTCP:      make(map[string]*radiobiology.NTCPResult),
	}

	required, err := a.resolver.ResolveRequired(catalog, []string{dvh.RoleTarget})
	if err != nil {
		return nil, err
	}
	target := required[dvh.RoleTarget]

	targetDiff, err := dvh.CumulativeToDifferential(target)
	if err != nil {
		return nil, err
	}
	tcp, err := radiobiology.ComputeTCP(target.DosesGy(), targetDiff, a.models.Target)
	if err != nil {
		return nil, err
	}
	result.TCP[dvh.RoleTarget] = tcp
	log.Debug("target evaluated",
		logging.String("structure", target.Structure()),
		logging.Float64("tcp", tcp.TCP),
		logging.Float64("eud_gy", tcp.EUDGy),
	)

	for _, role := range sortedRoles(a.models.Organs) {
		curve, ok, err := a.resolver.Lookup(catalog, role)
		if err != nil {
			return nil, err
		}
		if !ok {
			log.Debug("organ absent from plan, skipped", logging.String("role", role))
			continue
		}

		diff, err := dvh.CumulativeToDifferential(curve)
		if err != nil {
			return nil, err
		}
		ntcp, err := radiobiology.ComputeNTCP(curve.DosesGy(), diff, a.models.Organs[role])
		if err != nil {
			return nil, err
		}
		result.NTCP[role] = ntcp

		switch role {
		case dvh.RoleLung:
			lung, err := dosemetrics.ComputeLungMetrics(curve.DosesGy(), diff, curve.Volumes())
			if err != nil {
				return nil, err
			}
			result.Lung = &lung
		case dvh.RoleSpinalCord:
			totalCC, _ := curve.TotalVolumeCC()
			cord, err := dosemetrics.ComputeCordMetrics(curve.DosesGy(), curve.Volumes(), totalCC)
			if err != nil {
				return nil, err
			}
			result.Cord = &cord
		}
	}

	log.Info("plan analyzed",
		logging.Int("organs_evaluated", len(result.NTCP)),
		logging.Float64("tcp", tcp.TCP),
	)
	return result, nil
}

func sortedRoles(organs map[string]radiobiology.ProbitParams) []string {
	roles := make([]string, 0, len(organs))
	for role := range organs {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}
