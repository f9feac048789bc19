// Package detection assembles the transformer-based object detection model:
// batching of variable-size images, the backbone boundary, the prediction
// core (positional encoding, encoder/decoder, heads), and post-processing of
// raw predictions into scored boxes.
package detection

import (
	"errors"
	"fmt"
)

// Common errors. Wrapped errors unwrap to these, so callers can test with
// errors.Is.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid config")
)

// InvalidInputError reports a rejected per-call input. The model instance
// stays usable after the failed call.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// ConfigError reports an invalid model configuration. Construction fails and
// no model is created.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
