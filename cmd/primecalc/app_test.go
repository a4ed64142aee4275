package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp(&stdout, &stderr)
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"primecalc"}, args...))
	return stdout.String(), stderr.String(), err
}

func requireExit(t *testing.T, err error, msg string) {
	t.Helper()
	var exit cli.ExitCoder
	require.True(t, errors.As(err, &exit), "want cli.ExitCoder, got %v", err)
	assert.Equal(t, 1, exit.ExitCode())
	assert.Contains(t, err.Error(), msg)
}

func TestApp_TextReport(t *testing.T) {
	stdout, _, err := runApp(t, "--log-level", "error", "--rows", "5", "30", "2")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Calculating primes up to 30 using 2 threads...")
	assert.Contains(t, stdout, "Numbers checked: 30")
	assert.Contains(t, stdout, "Primes found: 10")
	assert.Contains(t, stdout, "First 5 primes: 2, 3, 5, 7, 11")
	assert.Contains(t, stdout, "Last 5 primes: 13, 17, 19, 23, 29")
	assert.Contains(t, stdout, "=== Detailed Timing (first 5 numbers) ===")
	assert.Contains(t, stdout, "Calculation complete!")
}

func TestApp_JSONReport(t *testing.T) {
	stdout, _, err := runApp(t, "--log-level", "error", "--format", "json", "--batch-size", "3", "1000", "4")
	require.NoError(t, err)

	var decoded struct {
		Limit       uint64 `json:"limit"`
		Workers     int    `json:"workers"`
		PrimesFound int    `json:"primes_found"`
		Rows        []any  `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded), "stdout holds only the JSON document")
	assert.Equal(t, uint64(1000), decoded.Limit)
	assert.Equal(t, 4, decoded.Workers)
	assert.Equal(t, 168, decoded.PrimesFound)
	assert.Len(t, decoded.Rows, 100)
}

func TestApp_ConfigFileAndFlagPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "primes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threads: 3\nreport:\n  format: json\n  rows: 2\nlog:\n  level: error\n"), 0o600))

	stdout, _, err := runApp(t, "--config", path, "--rows", "4", "50")
	require.NoError(t, err)

	var decoded struct {
		Workers int   `json:"workers"`
		Rows    []any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	assert.Equal(t, 3, decoded.Workers, "threads from the file")
	assert.Len(t, decoded.Rows, 4, "flag beats the file")
}

func TestApp_MetricsEndpoint(t *testing.T) {
	_, _, err := runApp(t, "--log-level", "error", "--metrics-addr", "127.0.0.1:0", "--format", "json", "500", "2")
	require.NoError(t, err)
}

func TestApp_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"missing max_number", nil, "max_number is required"},
		{"non numeric", []string{"ten"}, "invalid max_number"},
		{"below two", []string{"1"}, "at least 2"},
		{"zero threads", []string{"100", "0"}, "thread_count must be at least 1"},
		{"negative threads", []string{"100", "-2"}, "thread_count must be at least 1"},
		{"bad format", []string{"--format", "xml", "100"}, "report.format"},
		{"bad batch size", []string{"--batch-size", "0", "100"}, "batch_size"},
		{"missing config", []string{"--config", "/nonexistent/primes.yaml", "100"}, "failed to read YAML file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runApp(t, tt.args...)
			requireExit(t, err, tt.msg)
		})
	}
}
