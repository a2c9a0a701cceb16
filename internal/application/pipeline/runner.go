// Package pipeline runs the batch analysis: it discovers patients in the
// input directory, loads and analyzes every plan of each patient
// concurrently, compares the VMAT and IMRT plans where both exist, and
// exports the aggregated run report.
package pipeline

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ivszhuravlev/rt-bioeval/internal/application/analysis"
	"github.com/ivszhuravlev/rt-bioeval/internal/config"
	"github.com/ivszhuravlev/rt-bioeval/internal/infrastructure/dvhfile"
	"github.com/ivszhuravlev/rt-bioeval/internal/infrastructure/monitoring/logging"
	"github.com/ivszhuravlev/rt-bioeval/internal/infrastructure/monitoring/prometheus"
	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

// PatientResult aggregates every analyzed plan of one patient.  Comparison
// is present only when the patient has both a VMAT-family and an IMRT plan.
type PatientResult struct {
	PatientID    string                   `json:"patient_id"`
	Plans        []*analysis.PlanResult   `json:"plans"`
	Comparison   *analysis.PlanComparison `json:"comparison,omitempty"`
	SkippedFiles []string                 `json:"skipped_files,omitempty"`
}

// RunReport is the full outcome of one pipeline run.  Failed patients are
// recorded with their error instead of failing the run.
type RunReport struct {
	RunID        string            `json:"run_id"`
	AnalysisDate string            `json:"analysis_date"`
	PatientCount int               `json:"n_patients"`
	Patients     []*PatientResult  `json:"patients"`
	Failures     map[string]string `json:"failures,omitempty"`
}

// Runner executes the batch pipeline.  It is safe for concurrent use; each
// Run is independent.
type Runner struct {
	cfg      config.PipelineConfig
	parser   *dvhfile.Parser
	analyzer *analysis.Analyzer
	metrics  *prometheus.Metrics
	logger   logging.Logger
}

// NewRunner wires the pipeline.  Metrics may be nil when no collector is
// running; a nil logger falls back to a no-op one.
func NewRunner(cfg config.PipelineConfig, parser *dvhfile.Parser, analyzer *analysis.Analyzer,
	metrics *prometheus.Metrics, logger logging.Logger) (*Runner, error) {
	if parser == nil || analyzer == nil {
		return nil, errors.Configuration("pipeline requires a parser and an analyzer")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Runner{
		cfg:      cfg,
		parser:   parser,
		analyzer: analyzer,
		metrics:  metrics,
		logger:   logger.Named("pipeline"),
	}, nil
}

// Run executes the full pipeline.  Patients are processed in parallel up to
// the configured concurrency; one patient failing does not stop the others.
// Run fails only when no patient can be discovered or the context is
// canceled.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	runID := uuid.NewString()
	log := r.logger.With(logging.String("run_id", runID))

	patients, err := r.patients()
	if err != nil {
		if r.metrics != nil {
			r.metrics.PipelineRuns.WithLabelValues("failed").Inc()
		}
		return nil, err
	}
	log.Info("pipeline started",
		logging.Int("patients", len(patients)),
		logging.Int("concurrency", r.cfg.Concurrency),
	)

	var mu sync.Mutex
	results := make([]*PatientResult, 0, len(patients))
	failures := make(map[string]string)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for _, patientID := range patients {
		patientID := patientID
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := r.processPatient(patientID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Error("patient failed",
					logging.String("patient_id", patientID),
					logging.Err(err),
				)
				failures[patientID] = err.Error()
				if r.metrics != nil {
					r.metrics.PatientsSkipped.WithLabelValues("analysis_failed").Inc()
				}
				return nil
			}
			results = append(results, result)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if r.metrics != nil {
			r.metrics.PipelineRuns.WithLabelValues("canceled").Inc()
		}
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].PatientID < results[j].PatientID
	})

	report := &RunReport{
		RunID:        runID,
		AnalysisDate: time.Now().Format("2006-01-02"),
		PatientCount: len(results),
		Patients:     results,
	}
	if len(failures) > 0 {
		report.Failures = failures
	}

	if r.metrics != nil {
		r.metrics.PipelineRuns.WithLabelValues("ok").Inc()
	}
	log.Info("pipeline finished",
		logging.Int("analyzed", len(results)),
		logging.Int("failed", len(failures)),
	)
	return report, nil
}

// patients returns the configured patient list, or discovers patients from
// the input directory when none is configured.  The patient ID is the file
// name segment before the first underscore.
func (r *Runner) patients() ([]string, error) {
	if len(r.cfg.Patients) > 0 {
		return append([]string(nil), r.cfg.Patients...), nil
	}

	files, err := filepath.Glob(filepath.Join(r.cfg.InputDir, r.cfg.DiscoveryGlob))
	if err != nil {
		return nil, errors.Configuration("bad discovery glob").
			WithDetail(r.cfg.DiscoveryGlob).WithCause(err)
	}
	seen := make(map[string]struct{})
	var patients []string
	for _, file := range files {
		name := filepath.Base(file)
		id, _, ok := strings.Cut(name, "_")
		if !ok || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		patients = append(patients, id)
	}
	if len(patients) == 0 {
		return nil, errors.New(errors.ErrCodeFileNotFound,
			"no DVH files found in input directory").WithDetail(r.cfg.InputDir)
	}
	sort.Strings(patients)
	return patients, nil
}

func (r *Runner) processPatient(patientID string) (*PatientResult, error) {
	set, err := r.parser.LoadPatientPlans(r.cfg.InputDir, patientID)
	if err != nil {
		return nil, err
	}

	result := &PatientResult{
		PatientID:    patientID,
		SkippedFiles: set.SkippedFiles,
	}
	for _, planName := range set.PlanNames() {
		start := time.Now()
		planResult, err := r.analyzer.AnalyzePlan(set.Plans[planName])
		if r.metrics != nil {
			r.metrics.RecordPlanAnalysis(time.Since(start), err)
		}
		if err != nil {
			return nil, err
		}
		result.Plans = append(result.Plans, planResult)
	}

	if cmp, err := compareModalities(result.Plans); err == nil && cmp != nil {
		result.Comparison = cmp
	}
	return result, nil
}

// compareModalities compares the patient's VMAT-family plan against the
// IMRT plan when both modalities are present.  VIMA counts as the VMAT
// family, matching the plan naming of the source exports.
func compareModalities(plans []*analysis.PlanResult) (*analysis.PlanComparison, error) {
	var vmat, imrt *analysis.PlanResult
	for _, plan := range plans {
		name := strings.ToUpper(plan.PlanName)
		switch {
		case vmat == nil && (strings.Contains(name, "VMAT") || strings.Contains(name, "VIMA")):
			vmat = plan
		case imrt == nil && strings.Contains(name, "IMRT"):
			imrt = plan
		}
	}
	if vmat == nil || imrt == nil {
		return nil, nil
	}
	return analysis.ComparePlans(vmat, imrt)
}
