package fsutil

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact describes a file written by AtomicWrite.
type Artifact struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// AtomicWrite writes data to path so that readers only ever observe the old
// complete file or the new complete file:
//  1. write to .<basename>.tmp.<pid>.<rand> in the same directory
//  2. fsync(tmp)
//  3. rename(tmp, final)
//  4. fsync(dir)
//
// Files are created with 0600 permissions.
func AtomicWrite(path string, data []byte) (Artifact, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return Artifact{}, fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath, err := generateTempPath(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to generate temp path: %w", err)
	}

	tmpFile, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to create temp file: %w", err)
	}

	success := false
	defer func() {
		tmpFile.Close()
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return Artifact{}, fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return Artifact{}, fmt.Errorf("failed to sync file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return Artifact{}, fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return Artifact{}, fmt.Errorf("failed to rename temp file: %w", err)
	}

	// Make the rename durable
	if err := syncDir(dir); err != nil {
		return Artifact{}, fmt.Errorf("failed to sync directory: %w", err)
	}

	success = true
	return Artifact{
		Path:   path,
		SHA256: SHA256Bytes(data),
		Size:   int64(len(data)),
	}, nil
}

// AtomicWriteJSON writes a pretty-printed JSON value atomically, with a
// trailing newline.
func AtomicWriteJSON(path string, v any) (Artifact, error) {
	if v == nil {
		return Artifact{}, fmt.Errorf("cannot write nil value")
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	data = append(data, '\n')

	return AtomicWrite(path, data)
}

// generateTempPath creates a temporary filename next to the target.
// Format: .<basename>.tmp.<pid>.<rand>
func generateTempPath(path string) (string, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	randBytes := make([]byte, 4)
	if _, err := rand.Read(randBytes); err != nil {
		return "", fmt.Errorf("failed to generate random suffix: %w", err)
	}

	tmpName := fmt.Sprintf(".%s.tmp.%d.%s", base, os.Getpid(), hex.EncodeToString(randBytes))
	return filepath.Join(dir, tmpName), nil
}

func syncDir(path string) error {
	dir, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open directory: %w", err)
	}
	defer dir.Close()

	if err := dir.Sync(); err != nil {
		return fmt.Errorf("failed to sync directory: %w", err)
	}

	return nil
}

// SHA256Bytes returns the checksum of data as "sha256:<hex>".
func SHA256Bytes(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}
