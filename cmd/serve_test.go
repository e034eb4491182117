package cmd

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/issuetracker/internal/daemon"
	"github.com/joescharf/issuetracker/internal/store"
)

func TestPidFile_Path(t *testing.T) {
	dir := testEnv(t)

	pf := pidFile()
	expected := filepath.Join(dir, "issuetracker-serve.pid")
	assert.Equal(t, expected, pf.Path)
}

func TestServeLogPath(t *testing.T) {
	dir := testEnv(t)

	logPath := serveLogPath()
	expected := filepath.Join(dir, "issuetracker-serve.log")
	assert.Equal(t, expected, logPath)
}

func TestServeStatusRun_NotRunning(t *testing.T) {
	testEnv(t)

	// No PID file exists, so status should show "not running" without error.
	err := serveStatusRun()
	assert.NoError(t, err)
}

func TestServeStatusRun_RemovesStaleFile(t *testing.T) {
	dir := testEnv(t)

	pf := daemon.NewPIDFile(filepath.Join(dir, "issuetracker-serve.pid"))
	require.NoError(t, pf.WritePID(999999))

	require.NoError(t, serveStatusRun())

	_, err := os.Stat(pf.Path)
	assert.True(t, os.IsNotExist(err), "stale PID file should be removed")
}

func TestServeStopRun_NotRunning(t *testing.T) {
	testEnv(t)

	// No PID file exists, so stop should return an error.
	err := serveStopRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestServeStartRun_AlreadyRunning(t *testing.T) {
	dir := testEnv(t)

	// Write a PID file for the current process (which is alive).
	pf := daemon.NewPIDFile(filepath.Join(dir, "issuetracker-serve.pid"))
	require.NoError(t, pf.Write())
	t.Cleanup(func() { _ = os.Remove(pf.Path) })

	err := serveStartRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestServeStartRun_DryRun(t *testing.T) {
	dir := testEnv(t)
	dryRun = true
	ui.DryRun = true
	defer func() { dryRun = false }()

	require.NoError(t, serveStartRun())

	_, err := os.Stat(filepath.Join(dir, "issuetracker-serve.pid"))
	assert.True(t, os.IsNotExist(err), "dry run should not start a server")
}

func TestNewHTTPServer_RoutesAPI(t *testing.T) {
	testEnv(t)

	srv := newHTTPServer(":0", store.NewMemoryStore())
	assert.Equal(t, ":0", srv.Addr)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/issues/apitest", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
}

func TestServeStore_Memory(t *testing.T) {
	testEnv(t)
	serveMemory = true
	defer func() { serveMemory = false }()

	s, err := serveStore()
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)
	assert.Equal(t, store.BackendMemory, backendName())
}

func TestServeRun_RefusesSecondServer(t *testing.T) {
	if os.Getppid() <= 1 {
		t.Skip("no live parent process to act as owner")
	}
	dir := testEnv(t)
	serveMemory = true
	defer func() { serveMemory = false }()

	pf := daemon.NewPIDFile(filepath.Join(dir, "issuetracker-serve.pid"))
	require.NoError(t, pf.WritePID(os.Getppid()))

	err := serveRun(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}
