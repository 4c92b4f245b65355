package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/trialgate/internal/engine"
	"github.com/danieljhkim/trialgate/internal/fingerprint"
	"github.com/danieljhkim/trialgate/internal/license"
	"github.com/danieljhkim/trialgate/internal/state"
)

const allowedPage = "https://app.example.test/dashboard"

// setupTestEnv points the CLI at a fresh data directory.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("TRIALGATE_ROOT", root)
	t.Setenv("TRIALGATE_STORE_DRIVER", "file")
	t.Setenv("TRIALGATE_LOG_LEVEL", "error")
	t.Setenv("TRIALGATE_ALLOWED_PAGE", allowedPage)
	t.Setenv("TRIALGATE_PAYLOAD_URL", "http://127.0.0.1:1/payload")
	return root
}

// executeCommand runs the root command with args and returns what it
// wrote to stdout. Flag variables are reset first since cobra keeps them
// between executions.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	jsonOutput = false
	envFile = ""
	rootDir = ""
	runPage = ""
	activateFingerprint = ""
	statusFingerprint = ""
	stateFingerprint = ""
	fingerprintVerbose = false

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	out := make(chan string, 1)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		out <- buf.String()
	}()

	rootCmd.SetArgs(args)
	runErr := rootCmd.Execute()

	_ = w.Close()
	os.Stdout = old
	return <-out, runErr
}

func decodeJSON(t *testing.T, data string, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(data), v), "output: %s", data)
}

func TestStateCommands_LockUnlock(t *testing.T) {
	setupTestEnv(t)

	out, err := executeCommand(t, "state", "lock", "--fingerprint", "dev-1", "--json")
	require.NoError(t, err)
	var lock engine.LockResult
	decodeJSON(t, out, &lock)
	assert.True(t, lock.Locked)
	assert.Equal(t, "dev-1", lock.Fingerprint)

	out, err = executeCommand(t, "state", "show", "--fingerprint", "dev-1", "--json")
	require.NoError(t, err)
	var slots state.Snapshot
	decodeJSON(t, out, &slots)
	assert.True(t, slots.Locked)

	out, err = executeCommand(t, "status", "--fingerprint", "dev-1", "--json")
	require.NoError(t, err)
	var status engine.StatusResult
	decodeJSON(t, out, &status)
	assert.Equal(t, engine.StateLocked, status.Decision.State)

	_, err = executeCommand(t, "state", "unlock", "--fingerprint", "dev-1")
	require.NoError(t, err)

	out, err = executeCommand(t, "state", "show", "--fingerprint", "dev-1", "--json")
	require.NoError(t, err)
	slots = state.Snapshot{}
	decodeJSON(t, out, &slots)
	assert.False(t, slots.Locked)
}

func TestActivateCommand(t *testing.T) {
	setupTestEnv(t)

	out, err := executeCommand(t, "activate", "LIC-123", "--fingerprint", "dev-2", "--json")
	require.NoError(t, err)
	var res engine.ActivateResult
	decodeJSON(t, out, &res)
	assert.Equal(t, "dev-2", res.Fingerprint)
	assert.Equal(t, engine.StateLicensed, res.Decision.State)

	_, err = executeCommand(t, "activate", "", "--fingerprint", "dev-3")
	assert.ErrorIs(t, err, license.ErrEmptyToken)

	out, err = executeCommand(t, "state", "show", "--fingerprint", "dev-3", "--json")
	require.NoError(t, err)
	var slots state.Snapshot
	decodeJSON(t, out, &slots)
	assert.False(t, slots.Licensed, "empty token must not be stored")
}

func TestStatusCommand_DoesNotStartTrial(t *testing.T) {
	setupTestEnv(t)

	out, err := executeCommand(t, "status", "--fingerprint", "dev-4", "--json")
	require.NoError(t, err)
	var status engine.StatusResult
	decodeJSON(t, out, &status)
	assert.Equal(t, engine.StateTrialRunning, status.Decision.State)
	assert.True(t, status.Decision.NewTrial)

	out, err = executeCommand(t, "state", "show", "--fingerprint", "dev-4", "--json")
	require.NoError(t, err)
	var slots state.Snapshot
	decodeJSON(t, out, &slots)
	assert.Nil(t, slots.Trial)
}

func TestRunCommand_PageMismatch(t *testing.T) {
	setupTestEnv(t)

	out, err := executeCommand(t, "run", "--page", "https://elsewhere.example.test/", "--json")
	require.NoError(t, err)
	var res engine.RunResult
	decodeJSON(t, out, &res)
	assert.True(t, res.Skipped)
	assert.Empty(t, res.Fingerprint)
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	setupTestEnv(t)
	t.Setenv("TRIALGATE_ALLOWED_PAGE", "")

	_, err := executeCommand(t, "run", "--page", allowedPage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRIALGATE_ALLOWED_PAGE")
}

func TestRunCommand_LicensedLoadsPayload(t *testing.T) {
	root := setupTestEnv(t)
	marker := root + "/ran"

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Contains(t, r.Header.Get("Cache-Control"), "no-cache")
		_, _ = io.WriteString(w, "echo ok > "+marker+"\n")
	}))
	defer srv.Close()
	t.Setenv("TRIALGATE_PAYLOAD_URL", srv.URL+"/payload.sh")
	t.Setenv("TRIALGATE_INTERPRETER", "/bin/sh")

	_, err := executeCommand(t, "activate", "LIC-run")
	require.NoError(t, err)

	out, err := executeCommand(t, "run", "--page", allowedPage, "--json")
	require.NoError(t, err)
	var res engine.RunResult
	decodeJSON(t, out, &res)
	assert.Equal(t, engine.StateLicensed, res.State)
	assert.Equal(t, 1, res.Loads)
	assert.Equal(t, int32(1), requests.Load())

	require.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond, "payload did not run")
}

func TestRunCommand_LockedWithoutInput(t *testing.T) {
	setupTestEnv(t)

	_, err := executeCommand(t, "state", "lock")
	require.NoError(t, err)

	oldStdin := os.Stdin
	devNull, err := os.Open(os.DevNull)
	require.NoError(t, err)
	defer devNull.Close()
	os.Stdin = devNull
	defer func() { os.Stdin = oldStdin }()

	out, err := executeCommand(t, "run", "--page", allowedPage, "--json")
	require.NoError(t, err)

	// The terminal panel shares stdout; the JSON result is the last part.
	var res engine.RunResult
	decodeJSON(t, out[strings.Index(out, "{\n"):], &res)
	assert.Equal(t, engine.StateLocked, res.State)
	assert.True(t, res.Dismissed)
	assert.Equal(t, 0, res.Loads)
}

func TestFingerprintCommand(t *testing.T) {
	out, err := executeCommand(t, "fingerprint", "--json")
	require.NoError(t, err)

	var res struct {
		Fingerprint string                  `json:"fingerprint"`
		Environment fingerprint.Environment `json:"environment"`
	}
	decodeJSON(t, out, &res)
	assert.Len(t, res.Fingerprint, 64)
	assert.Equal(t, fingerprint.Digest(res.Environment), res.Fingerprint)
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{30 * time.Minute, "30:00"},
		{90 * time.Second, "01:30"},
		{1499 * time.Millisecond, "00:01"},
		{-time.Second, "00:00"},
		{2*time.Hour + 5*time.Second, "2:00:05"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatRemaining(tt.in))
		})
	}
}

func TestTerminalDisplay(t *testing.T) {
	var buf bytes.Buffer
	d := newTerminalDisplay(&buf)

	d.Clear()
	assert.Empty(t, buf.String(), "clearing a hidden display writes nothing")

	d.Show(95 * time.Second)
	assert.Contains(t, buf.String(), "01:35 remaining")

	buf.Reset()
	d.Clear()
	assert.Equal(t, "\r\033[K", buf.String())
}
