package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGoSource = `package sample

func Greet(name string) string {
	return "hello " + name
}
`

func TestAtomizeThenView_RoundTripsThroughSQLiteStore(t *testing.T) {
	dataDir := t.TempDir()
	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "sample.go")
	require.NoError(t, os.WriteFile(srcPath, []byte(sampleGoSource), 0o644))

	atomizeCmd := NewRootCmd()
	atomizeOut := new(bytes.Buffer)
	atomizeCmd.SetOut(atomizeOut)
	atomizeCmd.SetErr(atomizeOut)
	atomizeCmd.SetArgs([]string{"atomize", "--data-dir", dataDir, srcPath})
	require.NoError(t, atomizeCmd.Execute())
	assert.Contains(t, atomizeOut.String(), "atomized 1 file(s)")

	chunkLine := atomizeOut.String()
	require.Contains(t, chunkLine, "chunk:sha256:")
}

func TestAtomizeCmd_UnrecognizedExtensionIsSkippedNotFatal(t *testing.T) {
	dataDir := t.TempDir()
	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "notes.xyz")
	require.NoError(t, os.WriteFile(srcPath, []byte("whatever"), 0o644))

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"atomize", "--data-dir", dataDir, srcPath})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, out.String(), "atomized 1 file(s) into 0 chunk(s)")
}

func TestAtomizeCmd_DuplicateSourceAcrossFilesIsReportedAsSemanticDuplicate(t *testing.T) {
	dataDir := t.TempDir()
	srcDir := t.TempDir()
	firstPath := filepath.Join(srcDir, "first.go")
	secondPath := filepath.Join(srcDir, "second.go")
	require.NoError(t, os.WriteFile(firstPath, []byte(sampleGoSource), 0o644))
	require.NoError(t, os.WriteFile(secondPath, []byte(sampleGoSource), 0o644))

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"atomize", "--data-dir", dataDir, firstPath, secondPath})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, out.String(), "1 semantic duplicate(s)")
}

func TestAtomizeCmd_MissingFileReturnsError(t *testing.T) {
	dataDir := t.TempDir()
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"atomize", "--data-dir", dataDir, "/nonexistent/file.go"})

	err := cmd.Execute()
	assert.Error(t, err)
}
