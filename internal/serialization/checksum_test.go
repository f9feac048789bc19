package serialization

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func TestComputeChecksum(t *testing.T) {
	data := []byte("spot checkpoint data")

	if ComputeChecksum(data) != ComputeChecksum(data) {
		t.Error("Checksums should match for identical data")
	}
	if ComputeChecksum(data) == ComputeChecksum([]byte("different data")) {
		t.Error("Checksums should differ for different data")
	}
}

// TestComputeChecksumReader streams the checksum and compares it against the
// in-memory computation.
func TestComputeChecksumReader(t *testing.T) {
	data := []byte("spot checkpoint data for streaming")

	checksum, err := ComputeChecksumReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ComputeChecksumReader failed: %v", err)
	}
	if checksum != ComputeChecksum(data) {
		t.Error("Streamed checksum should match direct checksum")
	}
}

func TestValidateChecksum(t *testing.T) {
	checksum := ComputeChecksum([]byte("some data"))

	if err := ValidateChecksum(checksum, checksum); err != nil {
		t.Errorf("Expected no error for matching checksums, got: %v", err)
	}

	wrong := [32]byte{1, 2, 3, 4}
	if err := ValidateChecksum(checksum, wrong); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Expected ErrChecksumMismatch, got: %v", err)
	}
}

// TestSHA256KnownVectors pins the hash function to published SHA-256 vectors.
func TestSHA256KnownVectors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:     "hello world",
			input:    "hello world",
			expected: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checksum := ComputeChecksum([]byte(tt.input))
			if got := hex.EncodeToString(checksum[:]); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}
