package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAtomicWrite(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		path     string
		data     []byte
		existing []byte
	}{
		{
			name: "write to new file",
			path: filepath.Join(tmpDir, "new.csv"),
			data: []byte("Q1,Q1 [Codes]\nhello,Greeting\n"),
		},
		{
			name:     "overwrite existing file",
			path:     filepath.Join(tmpDir, "existing.csv"),
			data:     []byte("updated content"),
			existing: []byte("original"),
		},
		{
			name: "write empty file",
			path: filepath.Join(tmpDir, "empty.csv"),
			data: []byte{},
		},
		{
			name: "write to nested directory",
			path: filepath.Join(tmpDir, "nested", "deep", "out.csv"),
			data: []byte("nested content"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.existing != nil {
				require.NoError(t, os.WriteFile(tt.path, tt.existing, 0600))
			}

			artifact, err := AtomicWrite(tt.path, tt.data)
			require.NoError(t, err)

			content, err := os.ReadFile(tt.path)
			require.NoError(t, err)
			require.Equal(t, string(tt.data), string(content))

			info, err := os.Stat(tt.path)
			require.NoError(t, err)
			require.Equal(t, os.FileMode(0600), info.Mode().Perm())

			require.Equal(t, tt.path, artifact.Path)
			require.Equal(t, int64(len(tt.data)), artifact.Size)
			require.Equal(t, SHA256Bytes(tt.data), artifact.SHA256)
		})
	}
}

func TestAtomicWriteJSON(t *testing.T) {
	tmpDir := t.TempDir()

	path := filepath.Join(tmpDir, "cache.json")
	_, err := AtomicWriteJSON(path, map[string][]string{
		"Q1": {"Password Management", "Scam Awareness"},
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(content), "\n"), "JSON file should end with newline")
	require.Contains(t, string(content), "  \"Q1\": [")

	_, err = AtomicWriteJSON(filepath.Join(tmpDir, "nil.json"), nil)
	require.Error(t, err)
}

func TestAtomicWriteNoTempFilesLeft(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "out.csv")

	for i := 0; i < 5; i++ {
		_, err := AtomicWrite(testFile, []byte("content"))
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	for _, entry := range entries {
		require.Equal(t, "out.csv", entry.Name(), "unexpected file left behind")
	}
}

func TestAtomicWriteFailedRenameCleansUp(t *testing.T) {
	tmpDir := t.TempDir()
	sibling := filepath.Join(tmpDir, "out.csv")
	require.NoError(t, os.WriteFile(sibling, []byte("good version"), 0600))

	// A non-empty directory at the target path makes the final rename fail.
	blocked := filepath.Join(tmpDir, "blocked")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "child"), 0700))

	_, err := AtomicWrite(blocked, []byte("new version"))
	require.Error(t, err)

	content, err := os.ReadFile(sibling)
	require.NoError(t, err)
	require.Equal(t, "good version", string(content))

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	for _, entry := range entries {
		require.NotContains(t, entry.Name(), ".tmp.", "temp file left behind")
	}
}

func TestAtomicWriteConcurrency(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "concurrent.csv")

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := AtomicWrite(testFile, []byte("concurrent write"))
			done <- err
		}()
	}

	for i := 0; i < 10; i++ {
		require.NoError(t, <-done)
	}

	content, err := os.ReadFile(testFile)
	require.NoError(t, err)
	require.Equal(t, "concurrent write", string(content))
}

func TestSHA256Bytes(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "empty",
			input:    []byte{},
			expected: "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:     "hello world",
			input:    []byte("hello world"),
			expected: "sha256:b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, SHA256Bytes(tt.input))
		})
	}
}

func TestVerifyArtifact(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "out.csv")

	artifact, err := AtomicWrite(path, []byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, VerifyArtifact(artifact))

	require.NoError(t, os.WriteFile(path, []byte("edited by hand"), 0600))
	require.ErrorContains(t, VerifyArtifact(artifact), "checksum mismatch")

	bad := artifact
	bad.SHA256 = "md5:abc"
	require.ErrorContains(t, VerifyArtifact(bad), "invalid checksum format")

	missing := Artifact{Path: filepath.Join(tmpDir, "missing.csv"), SHA256: artifact.SHA256}
	require.Error(t, VerifyArtifact(missing))
}
