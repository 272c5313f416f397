package types

import "errors"

// Sentinel errors for the capture/persistence pipeline.
var (
	// ErrDeviceOpen is returned when the primary audio stream cannot be
	// opened. Fatal to session start.
	ErrDeviceOpen = errors.New("failed to open audio device")

	// ErrNotRecording is returned by operations that require an active
	// recording session.
	ErrNotRecording = errors.New("session is not recording")

	// ErrAlreadyRecording is returned when starting a session that is
	// already active.
	ErrAlreadyRecording = errors.New("session is already recording")

	// ErrEncoderUnavailable is returned when the external encoder binary
	// cannot be found. Recoverable: the staging WAV remains the output.
	ErrEncoderUnavailable = errors.New("external encoder not found")

	// ErrNoMonitor is returned when the requested monitor index does not exist.
	ErrNoMonitor = errors.New("monitor not found")

	// ErrNoAudio is returned when a session ends with nothing captured,
	// so no output file is produced.
	ErrNoAudio = errors.New("no audio captured")
)

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`   // JSON name of the field
	Message string `json:"message"` // Human-readable error message
	Value   any    `json:"value"`   // The invalid value that was provided
}

// ValidationError collects multiple field validation errors.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// NewValidationError creates a new empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{
		Errors: make([]FieldError, 0),
	}
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}
	return "validation failed: " + v.Errors[0].Field + ": " + v.Errors[0].Message
}

// Add adds a field error to the collection.
func (v *ValidationError) Add(field, message string, value any) {
	v.Errors = append(v.Errors, FieldError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}
