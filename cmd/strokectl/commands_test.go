package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stroke-code-server/internal/archive"
	"github.com/stroke-code-server/internal/domain"
	"github.com/stroke-code-server/internal/export"
	"github.com/stroke-code-server/internal/service"
)

const configTemplate = `
server:
  port: 8080
logging:
  level: warn
  format: text
archive:
  driver: sqlite
  path: %s
notification:
  mode: log
  recipients:
    neurologo: neuro@hospital.es
    emergencias: urgencias@hospital.es
    hemodinamia: hemo@hospital.es
    administracion: admin@hospital.es
`

// seedArchive records one finalized case in a fresh SQLite archive and
// returns a config file pointing at it
func seedArchive(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cases.db")

	store, err := archive.NewSQLiteStore(dbPath)
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	recorder := service.NewCaseRecorder(service.NewEligibilityEngine(logger), logger,
		service.WithCaseStore(store),
		service.WithIDGenerator(func() string { return "case-001" }),
	)

	age, weight := 58, 82.0
	nihss, err := domain.NewNihssAssessment(map[domain.NihssItem]int{
		domain.NihssArmRight: 3,
		domain.NihssLanguage: 2,
		domain.NihssFacial:   1,
	})
	require.NoError(t, err)

	_, err = recorder.Finalize(context.Background(), service.FinalizeInput{
		Patient: domain.PatientData{Age: &age, Weight: &weight},
		Nihss:   nihss,
		Checklist: domain.Checklist{
			Inclusion: domain.InclusionCriteria{TimeWindow: true, NihssOver5: true},
		},
		ElapsedSeconds: 2710,
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(configTemplate, dbPath)), 0o600))
	return configPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDoseCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{
			name: "Standard weight",
			args: []string{"dose", "--weight", "70"},
			want: []string{"Total:    63.0 mg", "Bolus:    6.3 mg", "Infusion: 56.7 mg"},
		},
		{
			name: "Capped dose",
			args: []string{"dose", "--weight", "120"},
			want: []string{"Total:    90.0 mg", "Bolus:    9.0 mg"},
		},
		{
			name:    "Zero weight",
			args:    []string{"dose", "--weight", "0"},
			wantErr: true,
		},
		{
			name:    "Missing weight flag",
			args:    []string{"dose"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestCasesCommands(t *testing.T) {
	configPath := seedArchive(t)

	t.Run("List", func(t *testing.T) {
		out, err := run(t, "--config", configPath, "cases", "list")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "THROMBECTOMY")
		assert.Contains(t, lines[1], "case-001")
		assert.Contains(t, lines[1], "45:10")
	})

	t.Run("Export one case as CSV", func(t *testing.T) {
		outPath := filepath.Join(t.TempDir(), "case.csv")
		_, err := run(t, "--config", configPath, "cases", "export", "--id", "case-001", "--out", outPath)
		require.NoError(t, err)

		f, err := os.Open(outPath)
		require.NoError(t, err)
		defer f.Close()

		rows, err := export.ParseCSV(f)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "case-001", rows[0].ID)
		assert.Equal(t, 58, *rows[0].Age)
		assert.Equal(t, 6, rows[0].NihssTotal)
		assert.Equal(t, 10, rows[0].AspectsTotal)
		assert.False(t, rows[0].ThrombectomyEligible)
	})

	t.Run("Export unknown case", func(t *testing.T) {
		_, err := run(t, "--config", configPath, "cases", "export", "--id", "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Dump and import round trip", func(t *testing.T) {
		dump, err := run(t, "--config", configPath, "cases", "dump")
		require.NoError(t, err)
		assert.Contains(t, dump, `"case-001"`)

		dumpPath := filepath.Join(t.TempDir(), "export.json")
		require.NoError(t, os.WriteFile(dumpPath, []byte(dump), 0o600))

		out, err := run(t, "--config", configPath, "cases", "import", dumpPath)
		require.NoError(t, err)
		assert.Equal(t, "Imported 0 cases, skipped 1\n", out)
	})
}

func TestConfigValidateCommand(t *testing.T) {
	configPath := seedArchive(t)

	out, err := run(t, "--config", configPath, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration OK")
	assert.Contains(t, out, configPath)

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "config", "validate")
	assert.Error(t, err)
}
