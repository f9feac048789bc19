// Copyright 2025 Spot ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package serialization provides the native .spot checkpoint format.
//
// A .spot file holds a JSON header (format version, model type, tensor
// layout, optional architecture metadata) followed by an aligned data
// section with a SHA-256 checksum. Most users go through nn.SaveCheckpoint
// and nn.LoadCheckpoint; this package is for tools that inspect or produce
// checkpoint files directly.
//
// Example:
//
//	reader, err := serialization.NewReader("model.spot")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reader.Close()
//
//	fmt.Printf("Model type: %s\n", reader.Header().ModelType)
//	for _, name := range reader.TensorNames() {
//	    fmt.Println(name)
//	}
package serialization

import (
	"github.com/spot-ml/spot/internal/serialization"
)

// FormatVersion is the current .spot format version.
const FormatVersion = serialization.FormatVersion

// Header describes a .spot file: format and library versions, model type,
// tensor layout, and optional metadata.
type Header = serialization.Header

// ModelMeta carries the architecture hyperparameters of a saved model, so a
// loader can rebuild the model before reading its weights.
type ModelMeta = serialization.ModelMeta

// TensorMeta describes one tensor in the data section.
type TensorMeta = serialization.TensorMeta

// Writer writes .spot files.
type Writer = serialization.Writer

// NewWriter creates a writer for the given path. The file is created on the
// first write call.
func NewWriter(path string) (*Writer, error) {
	return serialization.NewWriter(path)
}

// Reader reads .spot files.
type Reader = serialization.Reader

// ReaderOptions controls checksum and header validation on open.
type ReaderOptions = serialization.ReaderOptions

// NewReader opens a .spot file with full validation.
func NewReader(path string) (*Reader, error) {
	return serialization.NewReader(path)
}

// NewReaderWithOptions opens a .spot file with explicit validation options.
func NewReaderWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	return serialization.NewReaderWithOptions(path, opts)
}

// Common errors surfaced when opening or validating a checkpoint file.
var (
	ErrChecksumMismatch   = serialization.ErrChecksumMismatch
	ErrInvalidMagic       = serialization.ErrInvalidMagic
	ErrUnsupportedVersion = serialization.ErrUnsupportedVersion
)
