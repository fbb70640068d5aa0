package errors

import (
	"fmt"

	"bde/internal/buildsys"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ParseError indicates a malformed build file; parsers degrade to a
	// partial graph and only surface this when a whole parse is unusable
	ParseError ErrorCode = "PARSE_ERROR"
	// DetectionAmbiguity indicates multiple build systems were detected.
	// Informational: analysis proceeds with every candidate.
	DetectionAmbiguity ErrorCode = "DETECTION_AMBIGUITY"
	// ProcessExecutionError indicates the build command itself could not be
	// started or supervised; a failing build is expected input, this is not
	ProcessExecutionError ErrorCode = "PROCESS_EXECUTION_ERROR"
	// RegistryLoadError indicates a malformed issue registry document
	RegistryLoadError ErrorCode = "REGISTRY_LOAD_ERROR"
	// WorkaroundApplyError indicates an automatic remediation failed partway
	WorkaroundApplyError ErrorCode = "WORKAROUND_APPLY_ERROR"
	// StorageError indicates the snapshot store failed
	StorageError ErrorCode = "STORAGE_ERROR"
	// InternalError indicates an unexpected failure inside the engine
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// EngineError is the error type crossing every component boundary. Internal
// helper failures are translated into one of these before they surface, so
// callers always get a stable code plus file/line and build-system context
// where known.
type EngineError struct {
	Code        ErrorCode     `json:"code"`
	Message     string        `json:"message"`
	BuildSystem buildsys.Kind `json:"buildSystem,omitempty"`
	File        string        `json:"file,omitempty"`
	Line        int           `json:"line,omitempty"`
	cause       error
}

// New creates an EngineError with the given code and message.
func New(code ErrorCode, message string, cause error) *EngineError {
	return &EngineError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *EngineError) Error() string {
	msg := e.Message
	if e.File != "" {
		if e.Line > 0 {
			msg = fmt.Sprintf("%s:%d: %s", e.File, e.Line, msg)
		} else {
			msg = fmt.Sprintf("%s: %s", e.File, msg)
		}
	}
	if e.BuildSystem != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.BuildSystem)
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.cause
}

// WithLocation attaches file/line context.
func (e *EngineError) WithLocation(file string, line int) *EngineError {
	e.File = file
	e.Line = line
	return e
}

// WithBuildSystem attaches the build system kind.
func (e *EngineError) WithBuildSystem(kind buildsys.Kind) *EngineError {
	e.BuildSystem = kind
	return e
}

// IsCode reports whether err or any error it wraps is an EngineError
// carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		if ee, ok := err.(*EngineError); ok && ee.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
