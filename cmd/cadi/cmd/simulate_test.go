package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ConflictingTheories/cadi/internal/chunkid"
)

func TestSimulateCmd_ReportsAtomCountAndTokensForKnownSeed(t *testing.T) {
	dataDir := t.TempDir()
	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "sample.go")
	require.NoError(t, os.WriteFile(srcPath, []byte(sampleGoSource), 0o644))

	chunkID := atomizeSampleAndExtractChunkID(t, dataDir, srcPath)

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"simulate", "--data-dir", dataDir, chunkID})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, out.String(), "atom(s)")
	assert.Contains(t, out.String(), "tokens")
	assert.Contains(t, out.String(), chunkID)
}

func TestSimulateCmd_SuggestPrintsRecommendation(t *testing.T) {
	dataDir := t.TempDir()
	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "sample.go")
	require.NoError(t, os.WriteFile(srcPath, []byte(sampleGoSource), 0o644))

	chunkID := atomizeSampleAndExtractChunkID(t, dataDir, srcPath)

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"simulate", "--data-dir", dataDir, "--suggest", chunkID})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, out.String(), "suggested:")
	assert.Contains(t, out.String(), "max_depth=")
}

func TestSimulateCmd_UnknownSeedReturnsError(t *testing.T) {
	dataDir := t.TempDir()

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"simulate", "--data-dir", dataDir, "chunk:sha256:" + chunkid.Sha256Str("nonexistent")})

	err := cmd.Execute()
	assert.Error(t, err)
}

func TestSimulateCmd_RejectsUnknownPolicyName(t *testing.T) {
	dataDir := t.TempDir()
	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "sample.go")
	require.NoError(t, os.WriteFile(srcPath, []byte(sampleGoSource), 0o644))
	chunkID := atomizeSampleAndExtractChunkID(t, dataDir, srcPath)

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"simulate", "--data-dir", dataDir, "--policy", "yolo", chunkID})

	err := cmd.Execute()
	assert.Error(t, err)
}
