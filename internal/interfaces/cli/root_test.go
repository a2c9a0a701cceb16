package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootListsSubcommands(t *testing.T) {
	out, err := runCommand(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"analyze", "serve", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "rtbioeval")
	assert.Contains(t, out, Version)
}

const sampleDVH = `Patient ID: LCMD1 | Plan Name: VMAT1 | Dose Units: cGy | Volume Units: %
English (United States) Format In-use
Structure Name               Dose        Volume
PTV_6000                     0.0         100.0
PTV_6000                     6000.0      100.0
LUNG_TOTAL                   0.0         100.0
LUNG_TOTAL                   2000.0      0.0
`

func TestAnalyzeCommand(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(
		filepath.Join(inputDir, "LCMD1_20240101_DVH_1.txt"), []byte(sampleDVH), 0o644))

	out, err := runCommand(t,
		"analyze",
		"--input", inputDir,
		"--output", outputDir,
		"--log-level", "error",
	)
	require.NoError(t, err, out)
	assert.Contains(t, out, "analyzed 1 patient(s)")

	for _, name := range []string{"results.json", "results.csv"} {
		_, err := os.Stat(filepath.Join(outputDir, name))
		assert.NoError(t, err, name)
	}
}

func TestAnalyzeCommandBadInput(t *testing.T) {
	_, err := runCommand(t,
		"analyze",
		"--input", t.TempDir(),
		"--output", t.TempDir(),
		"--log-level", "error",
	)
	assert.Error(t, err)
}

func TestAnalyzeCommandMissingConfigFile(t *testing.T) {
	_, err := runCommand(t, "analyze", "--config", "/nonexistent/config.yaml")
	assert.Error(t, err)
}
