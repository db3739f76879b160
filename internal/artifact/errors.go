package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/aws/smithy-go"
)

// Error types for artifact source operations

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (connection reset, unreachable host, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeAuth indicates an authentication failure against the install service or object store
	ErrTypeAuth
	// ErrTypeHTTP indicates an HTTP-level error (non-200 status code)
	ErrTypeHTTP
	// ErrTypeParse indicates a malformed response
	ErrTypeParse
	// ErrTypeNotFound indicates a missing directory, image or object
	ErrTypeNotFound
	// ErrTypePermission indicates the path exists but cannot be read (file mode or SELinux context)
	ErrTypePermission
	// ErrTypeCommand indicates the image listing command failed
	ErrTypeCommand
	// ErrTypeStorage indicates an object storage API error
	ErrTypeStorage
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the install service refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeNotFound:
		return "Not Found"
	case ErrTypePermission:
		return "Permission Denied"
	case ErrTypeCommand:
		return "Command Error"
	case ErrTypeStorage:
		return "Storage Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// SourceError represents a failed read against an artifact source
type SourceError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	Path       string    // Directory, image or object key involved
	StatusCode int       // HTTP status code (if applicable)
	Code       string    // Object storage API error code (if applicable)
	Err        error     // Underlying error (if any)
	Retryable  bool      // Whether the error is retryable
}

// Error implements the error interface
func (e *SourceError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap returns the underlying error for error chain inspection
func (e *SourceError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes an error and returns a more specific error type
func ClassifyNetworkError(err error) *SourceError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &SourceError{Type: ErrTypeTimeout, Message: "Request timed out", Err: err, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &SourceError{
			Type:    ErrTypeDNS,
			Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:     err,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return &SourceError{Type: ErrTypeConnectionRefused, Message: "Install service refused connection", Err: err, Retryable: true}
		}
		if errors.Is(opErr.Err, syscall.EHOSTUNREACH) {
			return &SourceError{Type: ErrTypeNetwork, Message: "Host unreachable", Err: err, Retryable: true}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return ClassifyNetworkError(urlErr.Err)
	}

	return &SourceError{Type: ErrTypeNetwork, Message: "Network error occurred", Err: err, Retryable: true}
}

// ClassifyFileError maps a filesystem error for path to a SourceError
func ClassifyFileError(path string, err error) *SourceError {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &SourceError{Type: ErrTypeNotFound, Message: "path does not exist", Path: path, Err: err}
	case errors.Is(err, fs.ErrPermission):
		return &SourceError{Type: ErrTypePermission, Message: "permission denied", Path: path, Err: err}
	default:
		return &SourceError{Type: ErrTypeUnknown, Message: "file access failed", Path: path, Err: err}
	}
}

// ClassifyStorageError maps an object storage error to a SourceError, using
// the API error code for S3-compatible services that return no typed error.
func ClassifyStorageError(key string, err error) *SourceError {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		se := &SourceError{Type: ErrTypeStorage, Message: apiErr.ErrorMessage(), Path: key, Code: code, Err: err}
		switch code {
		case "NoSuchKey", "NoSuchBucket", "NotFound", "404":
			se.Type = ErrTypeNotFound
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "403":
			se.Type = ErrTypeAuth
		case "SlowDown", "InternalError", "ServiceUnavailable", "RequestTimeout":
			se.Retryable = true
		}
		if se.Message == "" {
			se.Message = "object storage request failed"
		}
		return se
	}
	classified := ClassifyNetworkError(err)
	classified.Path = key
	return classified
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *SourceError {
	classified := ClassifyNetworkError(err)
	if classified != nil {
		classified.Message = message
		return classified
	}
	return &SourceError{Type: ErrTypeNetwork, Message: message, Err: err, Retryable: true}
}

// NewAuthError creates an authentication error
func NewAuthError(message string) *SourceError {
	return &SourceError{Type: ErrTypeAuth, Message: message, StatusCode: http.StatusUnauthorized}
}

// NewHTTPError creates an HTTP-level error
func NewHTTPError(statusCode int, message string) *SourceError {
	t := ErrTypeHTTP
	if statusCode == http.StatusNotFound {
		t = ErrTypeNotFound
	}
	return &SourceError{
		Type:       t,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500, // Server errors are retryable
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *SourceError {
	return &SourceError{Type: ErrTypeParse, Message: message, Err: err}
}

// NewCommandError creates an error for a failed listing command
func NewCommandError(path string, output []byte, err error) *SourceError {
	msg := "listing command failed"
	if out := strings.TrimSpace(string(output)); out != "" {
		msg = fmt.Sprintf("%s: %s", msg, out)
	}
	return &SourceError{Type: ErrTypeCommand, Message: msg, Path: path, Err: err}
}

func asSourceError(err error) (*SourceError, bool) {
	var se *SourceError
	ok := errors.As(err, &se)
	return se, ok
}

// IsNotFound checks if an error is a missing path or object
func IsNotFound(err error) bool {
	se, ok := asSourceError(err)
	return ok && se.Type == ErrTypeNotFound
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	se, ok := asSourceError(err)
	return ok && se.Type == ErrTypeAuth
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS, etc.)
func IsNetworkError(err error) bool {
	se, ok := asSourceError(err)
	if !ok {
		return false
	}
	return se.Type == ErrTypeNetwork ||
		se.Type == ErrTypeTimeout ||
		se.Type == ErrTypeConnectionRefused ||
		se.Type == ErrTypeDNS
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	se, ok := asSourceError(err)
	// Unknown errors are not retryable by default
	return ok && se.Retryable
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	se, ok := asSourceError(err)
	if !ok {
		return err.Error()
	}

	switch se.Type {
	case ErrTypeTimeout:
		return "Install service not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Install service refused connection - is it running?"
	case ErrTypeDNS:
		return "Cannot resolve install service hostname"
	case ErrTypeAuth:
		return "Authentication failed - check credentials"
	case ErrTypeNotFound:
		return fmt.Sprintf("Not found: %s", se.Path)
	case ErrTypePermission:
		return fmt.Sprintf("Permission denied: %s", se.Path)
	case ErrTypeCommand:
		return "Unable to list the ISO contents"
	case ErrTypeHTTP:
		return fmt.Sprintf("Install service error (HTTP %d)", se.StatusCode)
	case ErrTypeStorage:
		return fmt.Sprintf("Object storage error (%s)", se.Code)
	default:
		return se.Message
	}
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	se, ok := asSourceError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch se.Type {
	case ErrTypePermission, ErrTypeNotFound:
		return strings.Join([]string{
			"The ISO directory or image could not be read.",
			"Troubleshooting:",
			"  • Confirm the image is in the configured image directory",
			"  • Check the SELinux context: ls -Z <image>",
			"  • Relabel if needed: chcon -t container_file_t <image>",
		}, "\n")

	case ErrTypeCommand:
		return strings.Join([]string{
			"The ISO contents could not be listed.",
			"Troubleshooting:",
			"  • Install the isoinfo tool (genisoimage package)",
			"  • Or place a <image>.lst listing next to the image",
			"  • Verify the image is not truncated",
		}, "\n")

	case ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS, ErrTypeNetwork:
		return strings.Join([]string{
			"The install service could not be reached.",
			"Troubleshooting:",
			"  • Check the service URL, or run 'ceph-env discover'",
			"  • Verify the ansible-runner-service is running",
			"  • Check firewall rules on the install host",
		}, "\n")

	case ErrTypeAuth:
		return "Check the install service or object storage credentials in the configuration."

	case ErrTypeStorage:
		return fmt.Sprintf("Object storage returned %s. Check the bucket, prefix and endpoint.", se.Code)

	default:
		return "An error occurred. Please check the error message for details."
	}
}
