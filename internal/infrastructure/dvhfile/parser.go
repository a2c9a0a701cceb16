// Package dvhfile reads cumulative dose-volume histograms from the plain
// text export format of the treatment planning system.  A file carries one
// plan of one patient; the first line holds pipe-separated metadata, line
// two the locale banner, then a header line, then whitespace-separated
// rows of structure name, dose and volume.
//
// Doses are exported in cGy and volumes in percent; parsing converts them
// to the Gy and fractional units the rest of the analyzer works in.
package dvhfile

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ivszhuravlev/rt-bioeval/internal/domain/dvh"
	"github.com/ivszhuravlev/rt-bioeval/internal/infrastructure/monitoring/logging"
	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

const headerLines = 3

var (
	patientIDPattern   = regexp.MustCompile(`Patient ID:\s*(\S+)`)
	planNamePattern    = regexp.MustCompile(`Plan Name:\s*(\S+)`)
	doseUnitsPattern   = regexp.MustCompile(`Dose Units:\s*(\S+)`)
	volumeUnitsPattern = regexp.MustCompile(`Volume Units:\s*(\S+)`)
)

// Parser reads DVH export files into structure catalogs.
type Parser struct {
	logger logging.Logger
}

// NewParser constructs a Parser.  A nil logger falls back to a no-op one.
func NewParser(logger logging.Logger) *Parser {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Parser{logger: logger.Named("dvhfile")}
}

// ParseFile reads one DVH export file and returns the plan's structure
// catalog.  File-format violations and unsupported units fail with
// validation errors naming the file.
func (p *Parser) ParseFile(path string) (*dvh.StructureCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound, "DVH file not found").
				WithDetail(path).WithCause(err)
		}
		return nil, errors.New(errors.ErrCodeFileParseFailed, "DVH file not readable").
			WithDetail(path).WithCause(err)
	}
	return p.Parse(path, string(raw))
}

// Parse parses already-read file content.  The path parameter is only used
// in error messages.
func (p *Parser) Parse(path, content string) (*dvh.StructureCatalog, error) {
	lines := strings.Split(content, "\n")
	if len(lines) < headerLines+1 {
		return nil, errors.New(errors.ErrCodeFileParseFailed, "DVH file too short").
			WithDetail(path)
	}

	meta := strings.TrimSpace(lines[0])
	patientID := extractField(patientIDPattern, meta)
	planName := extractField(planNamePattern, meta)
	doseUnits := extractField(doseUnitsPattern, meta)
	volumeUnits := extractField(volumeUnitsPattern, meta)
	if patientID == "" || planName == "" || doseUnits == "" || volumeUnits == "" {
		return nil, errors.New(errors.ErrCodeFileParseFailed,
			"required metadata missing from first line").WithDetail(path)
	}

	if !strings.EqualFold(doseUnits, "cGy") {
		return nil, errors.New(errors.ErrCodeUnitsUnsupported,
			"dose units must be cGy").WithDetailf("%s: got %q", path, doseUnits)
	}
	if volumeUnits != "%" {
		return nil, errors.New(errors.ErrCodeUnitsUnsupported,
			"volume units must be %").WithDetailf("%s: got %q", path, volumeUnits)
	}

	names, rows := accumulateRows(lines[headerLines:])
	if len(names) == 0 {
		return nil, errors.New(errors.ErrCodeFileParseFailed,
			"no structure data rows found").WithDetail(path)
	}

	curves := make([]*dvh.Curve, 0, len(names))
	for _, name := range names {
		r := rows[name]
		doses := make([]float64, len(r.dosesCGy))
		volumes := make([]float64, len(r.volumesPct))
		for i := range r.dosesCGy {
			doses[i] = r.dosesCGy[i] / 100.0
			volumes[i] = r.volumesPct[i] / 100.0
		}
		curve, err := dvh.NewCurve(name, doses, volumes)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown,
				"invalid curve data").WithDetailf("%s: structure %s", path, name)
		}
		curves = append(curves, curve)
	}

	catalog, err := dvh.NewStructureCatalog(patientID, planName, curves)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "invalid DVH file").
			WithDetail(path)
	}

	p.logger.Debug("DVH file parsed",
		logging.String("path", path),
		logging.String("patient_id", patientID),
		logging.String("plan_name", planName),
		logging.Int("structures", catalog.Len()),
	)
	return catalog, nil
}

type structureRows struct {
	dosesCGy   []float64
	volumesPct []float64
}

// accumulateRows collects data rows per structure, preserving the order in
// which structures first appear.  Header repetitions and malformed rows
// are skipped the way the planning system intersperses them.
func accumulateRows(lines []string) ([]string, map[string]*structureRows) {
	var names []string
	rows := make(map[string]*structureRows)

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "Structure Name") ||
			strings.Contains(line, "Dose") ||
			strings.Contains(line, "Volume") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 3 {
			continue
		}
		dose, err := strconv.ParseFloat(parts[len(parts)-2], 64)
		if err != nil {
			continue
		}
		volume, err := strconv.ParseFloat(parts[len(parts)-1], 64)
		if err != nil {
			continue
		}

		name := parts[0]
		r, ok := rows[name]
		if !ok {
			r = &structureRows{}
			rows[name] = r
			names = append(names, name)
		}
		r.dosesCGy = append(r.dosesCGy, dose)
		r.volumesPct = append(r.volumesPct, volume)
	}
	return names, rows
}

func extractField(pattern *regexp.Regexp, line string) string {
	m := pattern.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

// PlanSet is the result of loading every DVH file of one patient.  Plans
// is keyed by plan name; when several files claim the same plan name the
// first file wins and the rest are listed in SkippedFiles instead of
// being merged.
type PlanSet struct {
	PatientID    string
	Plans        map[string]*dvh.StructureCatalog
	SkippedFiles []string
}

// PlanNames returns the loaded plan names sorted.
func (s *PlanSet) PlanNames() []string {
	names := make([]string, 0, len(s.Plans))
	for name := range s.Plans {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadPatientPlans loads all DVH files of one patient from dir, matching
// the export naming scheme <patient>_*_DVH_*.txt.  Finding no files is a
// not-found error; a file that fails to parse fails the whole load.
func (p *Parser) LoadPatientPlans(dir, patientID string) (*PlanSet, error) {
	pattern := filepath.Join(dir, patientID+"_*_DVH_*.txt")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.New(errors.ErrCodeFileParseFailed, "bad glob pattern").
			WithDetail(pattern).WithCause(err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, errors.New(errors.ErrCodeFileNotFound,
			"no DVH files found for patient").
			WithDetailf("patient %s in %s", patientID, dir)
	}

	set := &PlanSet{
		PatientID: patientID,
		Plans:     make(map[string]*dvh.StructureCatalog),
	}
	for _, file := range files {
		catalog, err := p.ParseFile(file)
		if err != nil {
			return nil, err
		}
		if _, ok := set.Plans[catalog.PlanName()]; ok {
			// Merging two exports of the same plan would corrupt the
			// curves, keep the first file only.
			p.logger.Warn("duplicate plan name, file skipped",
				logging.String("path", file),
				logging.String("plan_name", catalog.PlanName()),
			)
			set.SkippedFiles = append(set.SkippedFiles, file)
			continue
		}
		set.Plans[catalog.PlanName()] = catalog
	}
	return set, nil
}
