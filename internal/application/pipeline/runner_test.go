package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/ivszhuravlev/rt-bioeval/internal/application/analysis"
	"github.com/ivszhuravlev/rt-bioeval/internal/config"
	"github.com/ivszhuravlev/rt-bioeval/internal/domain/dvh"
	"github.com/ivszhuravlev/rt-bioeval/internal/domain/radiobiology"
	"github.com/ivszhuravlev/rt-bioeval/internal/infrastructure/dvhfile"
	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

func dvhContent(patientID, planName, doseUnits string) string {
	return "Patient ID: " + patientID + " | Plan Name: " + planName +
		" | Dose Units: " + doseUnits + " | Volume Units: %\n" +
		"English (United States) Format In-use\n" +
		"Structure Name               Dose        Volume\n" +
		"PTV_6000                     0.0         100.0\n" +
		"PTV_6000                     3000.0      100.0\n" +
		"PTV_6000                     6000.0      100.0\n" +
		"LUNG_TOTAL                   0.0         100.0\n" +
		"LUNG_TOTAL                   500.0       80.0\n" +
		"LUNG_TOTAL                   2000.0      20.0\n" +
		"LUNG_TOTAL                   3000.0      0.0\n"
}

func writeDVH(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testAnalyzer(t *testing.T) *analysis.Analyzer {
	t.Helper()
	models := analysis.ModelConfig{
		Target: radiobiology.LogisticParams{A: -10, TCD50Gy: 60, Gamma50: 2},
		Organs: map[string]radiobiology.ProbitParams{
			dvh.RoleLung: {N: 0.87, M: 0.18, TD50Gy: 24.5, Endpoint: "pneumonitis grade >=2"},
		},
	}
	a, err := analysis.NewAnalyzer(dvh.NewResolver(dvh.DefaultRoleMapping()), models, nil)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}
	return a
}

func testRunner(t *testing.T, cfg config.PipelineConfig) *Runner {
	t.Helper()
	if cfg.DiscoveryGlob == "" {
		cfg.DiscoveryGlob = "*_DVH_*.txt"
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 2
	}
	r, err := NewRunner(cfg, dvhfile.NewParser(nil), testAnalyzer(t), nil, nil)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	return r
}

func TestRunSinglePatient(t *testing.T) {
	dir := t.TempDir()
	writeDVH(t, dir, "LCMD1_20240101_DVH_1.txt", dvhContent("LCMD1", "VMAT1", "cGy"))
	writeDVH(t, dir, "LCMD1_20240102_DVH_2.txt", dvhContent("LCMD1", "IMRT1", "cGy"))

	report, err := testRunner(t, config.PipelineConfig{InputDir: dir}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, err := uuid.Parse(report.RunID); err != nil {
		t.Errorf("run ID %q is not a UUID", report.RunID)
	}
	if report.PatientCount != 1 || len(report.Patients) != 1 {
		t.Fatalf("patient count = %d", report.PatientCount)
	}
	if len(report.Failures) != 0 {
		t.Errorf("unexpected failures: %v", report.Failures)
	}

	patient := report.Patients[0]
	if patient.PatientID != "LCMD1" {
		t.Errorf("patient ID = %s", patient.PatientID)
	}
	if len(patient.Plans) != 2 {
		t.Fatalf("plans = %d, want 2", len(patient.Plans))
	}
	if patient.Comparison == nil {
		t.Fatal("VMAT vs IMRT comparison missing")
	}
	if patient.Comparison.PlanA != "VMAT1" || patient.Comparison.PlanB != "IMRT1" {
		t.Errorf("comparison plans = %s vs %s", patient.Comparison.PlanA, patient.Comparison.PlanB)
	}
	// Identical curves on both plans, the deltas must vanish.
	if d := patient.Comparison.TCPDelta[dvh.RoleTarget]; d != 0 {
		t.Errorf("TCP delta = %g, want 0", d)
	}
}

func TestRunDiscoversPatients(t *testing.T) {
	dir := t.TempDir()
	writeDVH(t, dir, "LCMD2_20240101_DVH_1.txt", dvhContent("LCMD2", "VMAT1", "cGy"))
	writeDVH(t, dir, "LCMD1_20240101_DVH_1.txt", dvhContent("LCMD1", "VMAT1", "cGy"))
	writeDVH(t, dir, "notes.md", "unrelated")

	report, err := testRunner(t, config.PipelineConfig{InputDir: dir}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Patients) != 2 {
		t.Fatalf("patients = %d, want 2", len(report.Patients))
	}
	// Results are ordered by patient ID regardless of completion order.
	if report.Patients[0].PatientID != "LCMD1" || report.Patients[1].PatientID != "LCMD2" {
		t.Errorf("order = %s, %s", report.Patients[0].PatientID, report.Patients[1].PatientID)
	}
}

func TestRunIsolatesPatientFailures(t *testing.T) {
	dir := t.TempDir()
	writeDVH(t, dir, "LCMD1_20240101_DVH_1.txt", dvhContent("LCMD1", "VMAT1", "cGy"))
	// Unsupported dose units fail this patient's load.
	writeDVH(t, dir, "LCMD2_20240101_DVH_1.txt", dvhContent("LCMD2", "VMAT1", "Gy"))

	report, err := testRunner(t, config.PipelineConfig{InputDir: dir}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Patients) != 1 || report.Patients[0].PatientID != "LCMD1" {
		t.Fatalf("healthy patient missing from report")
	}
	if _, ok := report.Failures["LCMD2"]; !ok {
		t.Errorf("LCMD2 failure not recorded: %v", report.Failures)
	}
}

func TestRunNoFiles(t *testing.T) {
	_, err := testRunner(t, config.PipelineConfig{InputDir: t.TempDir()}).Run(context.Background())
	if err == nil {
		t.Fatal("empty input directory accepted")
	}
	if !errors.IsNotFound(err) {
		t.Errorf("error kind = %v, want not-found", err)
	}
}

func TestRunCanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeDVH(t, dir, "LCMD1_20240101_DVH_1.txt", dvhContent("LCMD1", "VMAT1", "cGy"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := testRunner(t, config.PipelineConfig{InputDir: dir}).Run(ctx); err == nil {
		t.Fatal("canceled context accepted")
	}
}

func TestRunExplicitPatientList(t *testing.T) {
	dir := t.TempDir()
	writeDVH(t, dir, "LCMD1_20240101_DVH_1.txt", dvhContent("LCMD1", "VMAT1", "cGy"))
	writeDVH(t, dir, "LCMD2_20240101_DVH_1.txt", dvhContent("LCMD2", "VMAT1", "cGy"))

	cfg := config.PipelineConfig{InputDir: dir, Patients: []string{"LCMD2"}}
	report, err := testRunner(t, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Patients) != 1 || report.Patients[0].PatientID != "LCMD2" {
		t.Errorf("patient list not honored: %+v", report.Patients)
	}
}

func TestCompareModalitiesVIMACountsAsVMAT(t *testing.T) {
	plans := []*analysis.PlanResult{
		{PatientID: "P1", PlanName: "VIMA", TCP: map[string]*radiobiology.TCPResult{
			dvh.RoleTarget: {TCP: 0.6},
		}},
		{PatientID: "P1", PlanName: "IMRT", TCP: map[string]*radiobiology.TCPResult{
			dvh.RoleTarget: {TCP: 0.5},
		}},
	}
	cmp, err := compareModalities(plans)
	if err != nil {
		t.Fatalf("compareModalities failed: %v", err)
	}
	if cmp == nil {
		t.Fatal("VIMA vs IMRT pair not compared")
	}
	if cmp.PlanA != "VIMA" {
		t.Errorf("plan A = %s, want VIMA", cmp.PlanA)
	}
}

func TestCompareModalitiesSingleModality(t *testing.T) {
	plans := []*analysis.PlanResult{
		{PatientID: "P1", PlanName: "VMAT1"},
		{PatientID: "P1", PlanName: "VMAT2"},
	}
	cmp, err := compareModalities(plans)
	if err != nil {
		t.Fatalf("compareModalities failed: %v", err)
	}
	if cmp != nil {
		t.Error("comparison produced without an IMRT plan")
	}
}
