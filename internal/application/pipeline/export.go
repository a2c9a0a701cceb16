package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ivszhuravlev/rt-bioeval/internal/application/analysis"
	"github.com/ivszhuravlev/rt-bioeval/internal/domain/dvh"
	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

const (
	jsonFileName = "results.json"
	csvFileName  = "results.csv"
)

// csvOrganOrder fixes the organ column order of the CSV export.
var csvOrganOrder = []string{dvh.RoleLung, dvh.RoleHeart, dvh.RoleEsophagus, dvh.RoleSpinalCord}

// Export writes the run report as results.json and results.csv into dir,
// creating the directory when needed.
func Export(report *RunReport, dir string) error {
	if report == nil {
		return errors.Validation("run report is nil")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Internal("cannot create output directory").
			WithDetail(dir).WithCause(err)
	}
	if err := ExportJSON(report, filepath.Join(dir, jsonFileName)); err != nil {
		return err
	}
	return ExportCSV(report, filepath.Join(dir, csvFileName))
}

// ExportJSON writes the full report, indented for human inspection.
func ExportJSON(report *RunReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.New(errors.ErrCodeSerialization, "cannot encode run report").
			WithCause(err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Internal("cannot write JSON export").
			WithDetail(path).WithCause(err)
	}
	return nil
}

// ExportCSV writes one row per analyzed plan.  Values a plan does not have,
// like the NTCP of an absent organ, stay empty rather than zero.
func ExportCSV(report *RunReport, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Internal("cannot write CSV export").
			WithDetail(path).WithCause(err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(csvHeader()); err != nil {
		return errors.New(errors.ErrCodeSerialization, "cannot write CSV header").
			WithCause(err)
	}
	for _, patient := range report.Patients {
		for _, plan := range patient.Plans {
			if err := w.Write(csvRow(plan)); err != nil {
				return errors.New(errors.ErrCodeSerialization, "cannot write CSV row").
					WithCause(err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.New(errors.ErrCodeSerialization, "CSV export failed").
			WithCause(err)
	}
	return nil
}

func csvHeader() []string {
	header := []string{"patient_id", "plan_name", "tcp_ptv", "eud_gy"}
	for _, organ := range csvOrganOrder {
		header = append(header, "ntcp_"+organ, "deff_"+organ+"_gy")
	}
	return append(header, "mld_gy", "v5_percent", "v20_percent", "cord_dmax_gy")
}

func csvRow(plan *analysis.PlanResult) []string {
	row := []string{plan.PatientID, plan.PlanName}

	if tcp, ok := plan.TCP[dvh.RoleTarget]; ok {
		row = append(row, formatFloat(tcp.TCP), formatFloat(tcp.EUDGy))
	} else {
		row = append(row, "", "")
	}

	for _, organ := range csvOrganOrder {
		if ntcp, ok := plan.NTCP[organ]; ok {
			row = append(row, formatFloat(ntcp.NTCP), formatFloat(ntcp.DeffGy))
		} else {
			row = append(row, "", "")
		}
	}

	if plan.Lung != nil {
		row = append(row,
			formatFloat(plan.Lung.MeanDoseGy),
			formatFloat(plan.Lung.V5Percent),
			formatFloat(plan.Lung.V20Percent),
		)
	} else {
		row = append(row, "", "", "")
	}

	if plan.Cord != nil {
		row = append(row, formatFloat(plan.Cord.DmaxGy))
	} else {
		row = append(row, "")
	}
	return row
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
