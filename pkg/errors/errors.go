package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies an error category. Codes are stable and used by
// callers to decide between warning, failure and abort.
type ErrorCode string

const (
	// General errors
	ErrUnknown       ErrorCode = "UNKNOWN"
	ErrInternal      ErrorCode = "INTERNAL"
	ErrInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrPermission    ErrorCode = "PERMISSION"

	// Configuration errors. These are fatal and abort a run before any
	// installation step starts.
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Plugin and registry errors
	ErrPluginNotFound ErrorCode = "PLUGIN_NOT_FOUND"
	ErrPluginInvalid  ErrorCode = "PLUGIN_INVALID"
	ErrRegistryLock   ErrorCode = "REGISTRY_LOCK"
	ErrRegistryWrite  ErrorCode = "REGISTRY_WRITE"

	// Provisioning errors
	ErrMissingPrerequisite ErrorCode = "MISSING_PREREQUISITE"
	ErrProbe               ErrorCode = "PROBE_FAILED"
	ErrInstall             ErrorCode = "INSTALL_FAILED"
	ErrHook                ErrorCode = "HOOK_FAILED"
	ErrCommand             ErrorCode = "COMMAND_FAILED"

	// Mount and filesystem errors
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"
	ErrFileAccess     ErrorCode = "FILE_ACCESS"
	ErrFileWrite      ErrorCode = "FILE_WRITE"
	ErrSymlinkInvalid ErrorCode = "SYMLINK_INVALID"
	ErrSymlinkCreate  ErrorCode = "SYMLINK_CREATE"
	ErrDirCreate      ErrorCode = "DIR_CREATE"

	// Credential errors
	ErrCredential ErrorCode = "CREDENTIAL"
)

// DevplugError is a structured error with a code and free-form details.
type DevplugError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *DevplugError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *DevplugError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a DevplugError with the same code.
func (e *DevplugError) Is(target error) bool {
	var targetErr *DevplugError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new DevplugError with the given code and message
func New(code ErrorCode, message string) *DevplugError {
	return &DevplugError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new DevplugError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *DevplugError {
	return &DevplugError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error. It returns nil when err is nil.
func Wrap(err error, code ErrorCode, message string) *DevplugError {
	if err == nil {
		return nil
	}
	return &DevplugError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *DevplugError {
	if err == nil {
		return nil
	}
	return &DevplugError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *DevplugError) WithDetail(key string, value interface{}) *DevplugError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var devErr *DevplugError
	if errors.As(err, &devErr) {
		return devErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a DevplugError
func GetErrorCode(err error) ErrorCode {
	var devErr *DevplugError
	if errors.As(err, &devErr) {
		return devErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a DevplugError
func GetErrorDetails(err error) map[string]interface{} {
	var devErr *DevplugError
	if errors.As(err, &devErr) {
		return devErr.Details
	}
	return nil
}

// IsFatal reports whether err must abort a run before any step executes.
func IsFatal(err error) bool {
	switch GetErrorCode(err) {
	case ErrConfigLoad, ErrConfigParse, ErrConfigValid, ErrPluginInvalid:
		return true
	}
	return false
}

// Message returns the message of the outermost DevplugError, or err.Error()
// for other errors.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var devErr *DevplugError
	if errors.As(err, &devErr) {
		return devErr.Message
	}
	return err.Error()
}
