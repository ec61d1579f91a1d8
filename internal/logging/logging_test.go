package logging

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

func TestDefaultLogDir_EndsInCadiLogs(t *testing.T) {
	dir := DefaultLogDir()
	assert.True(t, contains(dir, ".cadi"))
	assert.True(t, contains(dir, "logs"))
}

func TestDefaultLogPath_IsInsideDefaultLogDir(t *testing.T) {
	path := DefaultLogPath()
	assert.Equal(t, DefaultLogDir(), filepath.Dir(path))
	assert.Equal(t, "cadi.log", filepath.Base(path))
}

func TestDefaultConfig_HasSaneDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, DefaultLogPath(), cfg.FilePath)
	assert.Positive(t, cfg.MaxSizeMB)
	assert.Positive(t, cfg.MaxFiles)
	assert.True(t, cfg.WriteToStderr)
}

func TestDebugConfig_OverridesLevelOnly(t *testing.T) {
	cfg := DebugConfig()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, DefaultConfig().FilePath, cfg.FilePath)
}

func TestSetup_WritesJSONLinesToFile(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Level:         "debug",
		FilePath:      filepath.Join(dir, "test.log"),
		MaxSizeMB:     1,
		MaxFiles:      2,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	defer cleanup()

	logger.Info("hello", slog.String("component", "atomizer"))
	cleanup()

	data, err := os.ReadFile(cfg.FilePath)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "atomizer", entry["component"])
}

func TestLevelFromString_MapsKnownLevels(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LevelFromString("debug"))
	assert.Equal(t, slog.LevelInfo, LevelFromString("info"))
	assert.Equal(t, slog.LevelWarn, LevelFromString("warn"))
	assert.Equal(t, slog.LevelWarn, LevelFromString("warning"))
	assert.Equal(t, slog.LevelError, LevelFromString("error"))
}

func TestLevelFromString_UnknownDefaultsToInfo(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, LevelFromString("chatty"))
}

func TestFindLogFile_NotFound(t *testing.T) {
	_, err := FindLogFile("/nonexistent/path/to/cadi.log")
	assert.Error(t, err)
}

func TestFindLogFile_ExplicitPathExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cadi.log")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	found, err := FindLogFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestEnsureLogDir_CreatesDirectory(t *testing.T) {
	require.NoError(t, EnsureLogDir())
	info, err := os.Stat(DefaultLogDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRotatingWriter_WritesAndReopens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotate.log")

	w, err := NewRotatingWriter(path, 10, 3)
	require.NoError(t, err)
	defer w.Close()

	n, err := w.Write([]byte("line one\n"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	require.NoError(t, w.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line one\n", string(data))
}

func TestRotatingWriter_RotatesWhenSizeExceeded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotate.log")

	// maxSizeMB of 0 forces rotation on first meaningfully sized write.
	w, err := NewRotatingWriter(path, 0, 2)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)

	rotated := path + ".1"
	_, statErr := os.Stat(rotated)
	assert.NoError(t, statErr)
}

func TestRotatingWriter_ImmediateSyncDefaultsOn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sync.log")

	w, err := NewRotatingWriter(path, 10, 3)
	require.NoError(t, err)
	defer w.Close()
	assert.True(t, w.immediateSync, "a new writer syncs after every write")

	w.SetImmediateSync(false)
	_, err = w.Write([]byte("buffered\n"))
	require.NoError(t, err)

	w.SetImmediateSync(true)
	_, err = w.Write([]byte("synced\n"))
	require.NoError(t, err)
}

func TestRotatingWriter_SyncThenCloseSucceeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "close.log")

	w, err := NewRotatingWriter(path, 10, 3)
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())
}

func TestSetupDefault_InstallsSlogDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	cleanup, err := SetupDefault()
	require.NoError(t, err)
	defer cleanup()

	assert.NotEqual(t, prev, slog.Default())
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func TestSetup_MultipleWritesAppendSequentially(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Level: "info", FilePath: filepath.Join(dir, "seq.log"), MaxSizeMB: 10, MaxFiles: 3}

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)

	logger.Info("one")
	logger.Info("two")
	cleanup()

	lines := readLines(t, cfg.FilePath)
	require.Len(t, lines, 2)
}
