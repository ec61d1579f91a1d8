package cerr

import "fmt"

// CadiError is the structured error type returned across the chunk
// engine's package boundaries.
type CadiError struct {
	Code      string
	Message   string
	Category  Category
	Severity  Severity
	Details   map[string]string
	Cause     error
	Retryable bool
}

// Error implements the error interface.
func (e *CadiError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chain support.
func (e *CadiError) Unwrap() error {
	return e.Cause
}

// Is matches another *CadiError by code, enabling errors.Is(err, cerr.New(cerr.CodeChunkNotFound, "", nil)).
func (e *CadiError) Is(target error) bool {
	t, ok := target.(*CadiError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail attaches a key-value detail and returns the error for chaining.
func (e *CadiError) WithDetail(key, value string) *CadiError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New builds a CadiError, deriving category/severity/retryable from code.
func New(code, message string, cause error) *CadiError {
	return &CadiError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: retryableCode(code),
	}
}

// InvalidChunkID reports a malformed chunk-id (bad prefix or hex length).
func InvalidChunkID(id string) *CadiError {
	return New(CodeInvalidChunkID, fmt.Sprintf("invalid chunk id: %q", id), nil)
}

// HashMismatch reports that a blob's content does not hash to its declared id.
func HashMismatch(expected, actual string) *CadiError {
	return New(CodeHashMismatch, "blob content hash mismatch", nil).
		WithDetail("expected", expected).
		WithDetail("actual", actual)
}

// ChunkNotFound reports a lookup miss by chunk-id.
func ChunkNotFound(id string) *CadiError {
	return New(CodeChunkNotFound, fmt.Sprintf("chunk not found: %s", id), nil)
}

// ParseFailed reports an unrecoverable syntax error for a language that
// requires a real parser.
func ParseFailed(language string, cause error) *CadiError {
	return New(CodeParseFailed, fmt.Sprintf("parse failed for language %q", language), cause).
		WithDetail("language", language)
}

// UnsupportedLanguage reports that no atomizer adapter exists for a tag.
func UnsupportedLanguage(language string) *CadiError {
	return New(CodeUnsupportedLanguage, fmt.Sprintf("unsupported language: %q", language), nil).
		WithDetail("language", language)
}

// DependencyResolution describes a batch-import symbol that resolves to
// no defining chunk. The importer does not return it: an unresolved
// symbol is skipped, and nothing about it is recorded on the node.
func DependencyResolution(symbol string) *CadiError {
	return New(CodeDependencyResolution, fmt.Sprintf("could not resolve required symbol %q", symbol), nil).
		WithDetail("symbol", symbol)
}

// IoError wraps an underlying storage failure.
func IoError(cause error) *CadiError {
	return New(CodeIoError, "storage I/O failure", cause)
}

// IsRetryable reports whether err (if a *CadiError) is marked retryable.
func IsRetryable(err error) bool {
	ce, ok := err.(*CadiError)
	return ok && ce.Retryable
}

// Code extracts the error code, or "" if err is not a *CadiError.
func Code(err error) string {
	ce, ok := err.(*CadiError)
	if !ok {
		return ""
	}
	return ce.Code
}
