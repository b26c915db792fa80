package containerfs

import (
	"errors"
	"fmt"
)

// Error types represent different categories of errors

// FormatError represents a structurally invalid container: bad magic,
// footer length out of bounds, or unparsable footer JSON.
type FormatError struct {
	Path    string // Container path, if applicable
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *FormatError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("format error: %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("format error: %s", e.Message)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// ValidationError represents a configuration or parameter validation error
type ValidationError struct {
	Field   string // The field or parameter that failed validation
	Value   any    // The invalid value
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AuthenticationError represents an AEAD authentication failure: the
// ciphertext was tampered with, or the key material is wrong.
type AuthenticationError struct {
	Path    string // Container path, if applicable
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *AuthenticationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("authentication error: %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("authentication error: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// IOError represents a file system or stream I/O error
type IOError struct {
	Operation string // "read", "write", "seek", "open", "close", etc.
	Path      string // File path
	Message   string // Human-readable error message
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("io error: %s %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("io error: %s: %s", e.Operation, e.Message)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Common sentinel errors
var (
	// ErrAuthFailed indicates AEAD tag verification failed during decrypt.
	ErrAuthFailed = errors.New("authentication failed - data may be corrupted or tampered")

	// ErrUnsupportedVersion indicates the container's format major version
	// exceeds the maximum this engine supports.
	ErrUnsupportedVersion = errors.New("unsupported container format version")

	// ErrUnsupportedCipher indicates an unknown cipher suite.
	ErrUnsupportedCipher = errors.New("unsupported cipher suite")

	// ErrPasswordRequired indicates an encrypted container was opened
	// without a password.
	ErrPasswordRequired = errors.New("container is encrypted - password required")

	// ErrWrongPassword indicates the supplied password failed verification
	// against the stored hash.
	ErrWrongPassword = errors.New("wrong password")

	// ErrInvalidKey indicates key material of the wrong size.
	ErrInvalidKey = errors.New("invalid encryption key")

	// ErrSessionOpen indicates Create or Open was called on a session that
	// already has a container open.
	ErrSessionOpen = errors.New("session already has an open container")

	// ErrSessionClosed indicates Save was called with no open container.
	ErrSessionClosed = errors.New("session has no open container")
)

// Helper functions for creating structured errors

// NewFormatError creates a new format error
func NewFormatError(path, message string) error {
	return &FormatError{
		Path:    path,
		Message: message,
	}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(path string, err error) error {
	return &AuthenticationError{
		Path:    path,
		Message: err.Error(),
		Err:     err,
	}
}

// NewIOError creates a new I/O error
func NewIOError(operation, path string, err error) error {
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   err.Error(),
		Err:       err,
	}
}

// Error checking helpers

// IsFormatError checks if an error is a format error
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAuthenticationError checks if an error is an authentication error
func IsAuthenticationError(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}

// IsIOError checks if an error is an I/O error
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}
