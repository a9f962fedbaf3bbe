package service

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete errors below match these with errors.Is.
var (
	ErrConfiguration         = errors.New("configuration error")
	ErrValidation            = errors.New("validation error")
	ErrUnsupportedSourceType = errors.New("unsupported source type")
	ErrUnsupportedLayerType  = errors.New("unsupported layer type")
	ErrDuplicateID           = errors.New("duplicate id")
	ErrNotFound              = errors.New("not found")
	ErrLoad                  = errors.New("load failed")
	ErrDestroyed             = errors.New("destroyed during load")
)

// ConfigurationError reports a missing or invalid descriptor field.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func missingField(field string) error {
	return &ConfigurationError{Field: field, Reason: "is required"}
}

// ValidationError reports a value outside its allowed range.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UnsupportedTypeError reports an unrecognized source or layer tag.
type UnsupportedTypeError struct {
	Kind string // "source" or "layer"
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported %s type: %q", e.Kind, e.Type)
}

func (e *UnsupportedTypeError) Is(target error) bool {
	switch e.Kind {
	case "source":
		return target == ErrUnsupportedSourceType
	case "layer":
		return target == ErrUnsupportedLayerType
	}
	return false
}

// DuplicateIDError is returned when registering an id that already exists.
type DuplicateIDError struct {
	Kind string
	ID   string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("%s with ID %q already exists", e.Kind, e.ID)
}

func (e *DuplicateIDError) Is(target error) bool { return target == ErrDuplicateID }

// NotFoundError is returned for lookups of unregistered ids.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// LoadError wraps an I/O failure while loading a DataSource.
// Status is the transport status when one was received, otherwise 0.
type LoadError struct {
	Type   SourceType
	URL    string
	Status int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("load %s source %s: status %d: %v", e.Type, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("load %s source %s: %v", e.Type, e.URL, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }
