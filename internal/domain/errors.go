package domain

import (
	"errors"
	"fmt"
)

// Base error types (sentinel errors).
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnsupported  = errors.New("unsupported operation")
	ErrInternal     = errors.New("internal error")
	ErrUnavailable  = errors.New("service unavailable")
)

// Specific errors.
var (
	ErrResultNotFound      = fmt.Errorf("result: %w", ErrNotFound)
	ErrLayerNotFound       = fmt.Errorf("layer: %w", ErrNotFound)
	ErrInvalidCoordinate   = fmt.Errorf("coordinate: %w", ErrInvalidInput)
	ErrUnknownLayerType    = fmt.Errorf("layer type: %w", ErrUnsupported)
	ErrUnsupportedGeometry = fmt.Errorf("geometry type: %w", ErrUnsupported)
	ErrStaleHandle         = fmt.Errorf("stale handle: %w", ErrInternal)
	ErrEngineDestroyed     = fmt.Errorf("engine destroyed: %w", ErrUnavailable)
	ErrNotReady            = fmt.Errorf("engine not ready: %w", ErrUnavailable)
	ErrStorageUnavailable  = fmt.Errorf("storage: %w", ErrUnavailable)
	ErrObjectNotFound      = fmt.Errorf("object: %w", ErrNotFound)
)

// ValidationError represents a detailed validation error.
type ValidationError struct {
	Field      string      // Field that failed validation
	Value      interface{} // The invalid value
	Constraint string      // The constraint that was violated
	Message    string      // Human-readable message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v, constraint: %s)",
		e.Field, e.Message, e.Value, e.Constraint)
}

// Unwrap returns the underlying error type.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// ConfigurationError reports a layer or engine configuration that cannot be honored,
// such as an imagery type the active engine does not know.
type ConfigurationError struct {
	Engine  EngineKind // Engine that rejected the configuration
	Field   string     // Configuration field
	Value   string     // Offending value
	Message string     // Error message
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Engine != "" {
		return fmt.Sprintf("configuration error for %s on %s engine: %s (value: %q)",
			e.Field, e.Engine, e.Message, e.Value)
	}
	return fmt.Sprintf("configuration error for %s: %s (value: %q)", e.Field, e.Message, e.Value)
}

// Unwrap returns the underlying error type.
func (e *ConfigurationError) Unwrap() error {
	if e.Field == "type" {
		return ErrUnknownLayerType
	}
	return ErrInvalidInput
}

// LayerInitError represents a failure of the engine to construct an imagery layer.
type LayerInitError struct {
	Type  string // Layer type
	Order int    // Layer order
	Err   error  // Underlying error
}

// Error implements the error interface.
func (e *LayerInitError) Error() string {
	return fmt.Sprintf("initializing %s layer at order %d: %v", e.Type, e.Order, e.Err)
}

// Unwrap returns the underlying error.
func (e *LayerInitError) Unwrap() error {
	return e.Err
}

// StaleHandleError is returned when an operation targets a primitive set or engine handle
// that was already released.
type StaleHandleError struct {
	Operation string // restyle, dispose, show, ...
	ResultID  string // Owning result, if known
}

// Error implements the error interface.
func (e *StaleHandleError) Error() string {
	if e.ResultID != "" {
		return fmt.Sprintf("%s on released primitives of result %s", e.Operation, e.ResultID)
	}
	return fmt.Sprintf("%s on released handle", e.Operation)
}

// Unwrap returns the underlying error type.
func (e *StaleHandleError) Unwrap() error {
	return ErrStaleHandle
}

// StorageError represents an error during storage operations.
type StorageError struct {
	Operation string // Operation that failed (list, read, etc.)
	Key       string // Object key
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage error during %s for %s: %v",
			e.Operation, e.Key, e.Err)
	}
	return fmt.Sprintf("storage error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// SourceError represents a result document or feature table that could not be decoded.
type SourceError struct {
	Source string // Document key or table name
	Err    error  // Underlying error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("decoding results from %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error {
	return e.Err
}
