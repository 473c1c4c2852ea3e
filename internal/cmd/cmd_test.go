package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/OCAP2/handoff/internal/soak"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
)

// executeCommand runs a fresh command tree with args and returns captured stdout and stderr.
func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Cleanup(viper.Reset)

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	assert.Equal(t, "handoff", root.Use)

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["soak"])
	assert.True(t, names["version"])
}

func TestVersionCommand(t *testing.T) {
	out, _, err := executeCommand(t, "version", "--config-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "handoff "+Version)
	assert.Contains(t, out, BuildDate)
}

func TestSoakCommand(t *testing.T) {
	out, stderr, err := executeCommand(t, "soak",
		"--config-dir", t.TempDir(),
		"--producers", "3",
		"--items", "1000",
		"--consumers", "2",
		"--capacity", "16",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "sent      3,000")
	assert.Contains(t, out, "received  3,000")
	assert.Contains(t, out, "result    ok")
	// console logging goes to stderr
	assert.Contains(t, stderr, "soak passed")
}

func TestSoakCommand_ViaDispatcher(t *testing.T) {
	out, _, err := executeCommand(t, "soak",
		"--config-dir", t.TempDir(),
		"--producers", "2",
		"--items", "50",
		"--dispatcher",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "received  100")
	assert.Contains(t, out, "result    ok")
}

func TestSoakCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := `{"soak": {"producers": 4, "itemsPerProducer": 25}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "handoff.cfg.json"), []byte(cfg), 0644))

	out, _, err := executeCommand(t, "soak", "--config-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "sent      100")

	// flags win over the file
	out, _, err = executeCommand(t, "soak", "--config-dir", dir, "--items", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "sent      20")
}

func TestSoakCommand_LogsDir(t *testing.T) {
	logsDir := filepath.Join(t.TempDir(), "logs")

	_, stderr, err := executeCommand(t, "soak",
		"--config-dir", t.TempDir(),
		"--logs-dir", logsDir,
		"--producers", "2",
		"--items", "10",
	)
	require.NoError(t, err)
	assert.NotContains(t, stderr, "soak passed", "logs should go to the file only")

	files, err := filepath.Glob(filepath.Join(logsDir, "handoff.*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "soak passed")
	assert.Contains(t, string(data), "run_id=")
}

func TestSoakCommand_TextFormat(t *testing.T) {
	_, stderr, err := executeCommand(t, "soak",
		"--config-dir", t.TempDir(),
		"--log-format", "text",
		"--producers", "1",
		"--items", "1",
	)
	require.NoError(t, err)
	assert.Contains(t, stderr, "msg=\"soak passed\"")
	assert.Contains(t, stderr, "run_id=")
}

func TestSoakCommand_InvalidConfig(t *testing.T) {
	_, _, err := executeCommand(t, "soak", "--config-dir", t.TempDir(), "--producers", "0")
	assert.ErrorIs(t, err, soak.ErrInvalidConfig)
}

func TestSoakCommand_MalformedConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "handoff.cfg.json"), []byte(`{`), 0644))

	_, _, err := executeCommand(t, "soak", "--config-dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, soak.Result{
		RunID:       "r1",
		Sent:        12000,
		Received:    11998,
		PerConsumer: []int{6000, 5998},
		Missing:     2,
	})

	out := buf.String()
	assert.Contains(t, out, "run       r1")
	assert.Contains(t, out, "sent      12,000")
	assert.Contains(t, out, "received  11,998 [6,000 5,998]")
	assert.Contains(t, out, "FAILED (2 missing, 0 duplicated, 0 out of order)")
}

func TestSoakCommand_TelemetryToLogFile(t *testing.T) {
	t.Cleanup(func() { otel.SetMeterProvider(noop.NewMeterProvider()) })

	dir := t.TempDir()
	logsDir := filepath.Join(dir, "logs")
	cfg := `{"otel": {"enabled": true, "serviceName": "handoff-cmd-test", "metricInterval": "1h"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "handoff.cfg.json"), []byte(cfg), 0644))

	out, _, err := executeCommand(t, "soak",
		"--config-dir", dir,
		"--logs-dir", logsDir,
		"--producers", "2",
		"--items", "10",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "result    ok")

	files, err := filepath.Glob(filepath.Join(logsDir, "handoff.*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "handoff-cmd-test")
	assert.Contains(t, string(data), "soak.items.sent")
	assert.Contains(t, string(data), "soak.items.received")
}
