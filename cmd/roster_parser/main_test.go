package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster_parser/internal/analysis"
	"roster_parser/internal/classifier"
	"roster_parser/internal/config"
	"roster_parser/internal/coverage"
	"roster_parser/internal/extractor"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	parser, err := newParser(&cli)
	require.NoError(t, err)

	ctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	app := &App{Config: config.Config{Thresholds: classifier.DefaultThresholds()}, Out: &out}
	err = ctx.Run(app)
	return out.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	out, err := run(t, "analyze", "testdata/january.txt", "--month", "1", "--year", "2026", "--base", "ATL")
	require.NoError(t, err)

	var report analysis.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "january.txt", report.FileName)
	assert.Equal(t, "ATL", report.Aggregate.BaseFilter)
	assert.Equal(t, 1, report.Aggregate.Summary.Total.Trips)
	assert.Len(t, report.Trips, 3)
}

func TestAnalyzeCommandMultipleFiles(t *testing.T) {
	out, err := run(t, "analyze", "testdata/january.txt", "testdata/january.txt", "--month", "1", "--year", "2026")
	require.NoError(t, err)

	dec := json.NewDecoder(strings.NewReader(out))
	n := 0
	for dec.More() {
		var report analysis.Report
		require.NoError(t, dec.Decode(&report))
		n++
	}
	assert.Equal(t, 2, n)
}

func TestAnalyzeCommandErrors(t *testing.T) {
	_, err := run(t, "analyze", "testdata/january.txt", "--month", "1", "--year", "2026", "--front", "09:45")
	assert.ErrorIs(t, err, config.ErrInvalidThreshold)

	_, err = run(t, "analyze", "testdata/missing.txt", "--month", "1", "--year", "2026")
	assert.Error(t, err)

	_, err = run(t, "analyze", "testdata/january.txt", "--year", "2026")
	assert.Error(t, err, "month is required")
}

func TestAnalyzeArchiveAndRuns(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "runs.db")

	_, err := run(t, "analyze", "testdata/january.txt", "--month", "1", "--year", "2026", "--archive", dsn)
	require.NoError(t, err)

	out, err := run(t, "runs", "--archive", dsn)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "FILE")
	assert.Contains(t, lines[1], "january.txt")
	assert.Contains(t, lines[1], "2026-01")

	_, err = run(t, "runs")
	assert.Error(t, err, "no archive configured")
}

func TestCalendarCommand(t *testing.T) {
	out, err := run(t, "calendar", "testdata/january.txt", "--month", "1", "--year", "2026", "--base", "ATL")
	require.NoError(t, err)

	assert.Contains(t, out, "2026-01-21")
	assert.Contains(t, out, "1234/A")
	assert.Contains(t, out, "1234/B")
	assert.NotContains(t, out, "3005")
}

func TestTraceCommand(t *testing.T) {
	out, err := run(t, "trace", "testdata/january.txt", "--json")
	require.NoError(t, err)

	var traces []extractor.LineTrace
	require.NoError(t, json.Unmarshal([]byte(out), &traces))
	kinds := map[string]int{}
	for _, lt := range traces {
		kinds[lt.Kind]++
	}
	assert.Equal(t, 3, kinds["header"])
	assert.Equal(t, 3, kinds["credit"])

	out, err = run(t, "trace", "testdata/january.txt", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "MATCH")
}

func TestCoverageCommand(t *testing.T) {
	out, err := run(t, "coverage", "testdata/january.txt", "--top", "50", "--json")
	require.NoError(t, err)

	var report coverage.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Files)
	assert.Equal(t, report.Lines, report.Recognised+report.Filler)
	assert.Positive(t, report.Recognised)

	templates := map[string]bool{}
	for _, tmpl := range report.Templates {
		templates[tmpl.Template] = true
	}
	assert.True(t, templates["PILOT TRIP ROSTER - JANUARY"], "templates = %v", templates)

	out, err = run(t, "coverage", "testdata/january.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "TEMPLATE")
}
