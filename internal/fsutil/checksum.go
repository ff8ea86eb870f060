package fsutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// SHA256File computes the checksum of a file as "sha256:<hex>", streaming
// its contents.
func SHA256File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return "sha256:" + hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifyArtifact checks that the file at a.Path still has the recorded
// checksum. Used by `coder status` to tell whether an output was modified
// after the last checkpoint.
func VerifyArtifact(a Artifact) error {
	if !strings.HasPrefix(a.SHA256, "sha256:") {
		return fmt.Errorf("invalid checksum format: must start with 'sha256:'")
	}

	actual, err := SHA256File(a.Path)
	if err != nil {
		return fmt.Errorf("failed to compute checksum: %w", err)
	}

	if actual != a.SHA256 {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", a.SHA256, actual)
	}

	return nil
}
