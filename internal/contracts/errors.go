package contracts

import (
	"fmt"
	"strings"
)

// =============================================================================
// Error taxonomy
// =============================================================================
// 모든 에러는 fast-fail. 재시도 없음.

// SchemaError is returned when a required column or attribute is missing
type SchemaError struct {
	Op      string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required columns: [%s]", e.Op, strings.Join(e.Missing, ", "))
}

// UnsupportedModelError is returned when a model handle exposes neither
// a probability nor a class-probability interface
type UnsupportedModelError struct {
	Type string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("unsupported model type %q: no probability interface", e.Type)
}

// ModelNotFoundError is returned at startup when the model file is absent
type ModelNotFoundError struct {
	Path string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model not found at %s: train and place the model there before starting the service", e.Path)
}

// ConfigurationError is returned when the service lacks a required artifact
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// InferenceError wraps a failure raised while evaluating the model
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("model prediction failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
