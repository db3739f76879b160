package environment

import (
	"errors"
	"fmt"
)

// ErrorKind categorises the configuration errors the step can raise.
type ErrorKind int

const (
	// KindNone means no error is set.
	KindNone ErrorKind = iota
	// KindCredentialsMissing is raised when Red Hat or ISO is selected without RHN credentials
	KindCredentialsMissing
	// KindNoImages is raised when ISO is selected but the image directory holds no .iso file
	KindNoImages
	// KindImageUnreadable is raised when the contents of the selected image cannot be read
	KindImageUnreadable
	// KindPackageMissing is raised when the image does not contain a ceph-common package
	KindPackageMissing
	// KindInvalidField is raised for unknown fields or values outside a field's option set
	KindInvalidField
)

// User-facing status messages.
const (
	MsgNoImages           = "No ISO images have been found. Confirm ISO image location and check SELINUX context OR select another source"
	MsgCredentialsMissing = "RHN username/password must be provided for Red Hat or ISO based deployments"
	MsgPackageMissing     = "ISO does not contain a ceph-common package. Is it Ceph ISO?"
	MsgImageUnreadable    = "Unable to read the ISO file"
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindCredentialsMissing:
		return "Credentials Missing"
	case KindNoImages:
		return "No ISO Images"
	case KindImageUnreadable:
		return "ISO Unreadable"
	case KindPackageMissing:
		return "Package Missing"
	case KindInvalidField:
		return "Invalid Field"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// StepError is a user-correctable configuration error.
type StepError struct {
	Kind    ErrorKind
	Field   Field
	Message string
	Err     error
}

// Error implements the error interface
func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying collaborator failure, if any
func (e *StepError) Unwrap() error {
	return e.Err
}

// newInvalidField builds the error returned for rejected field updates.
func newInvalidField(f Field, format string, args ...interface{}) *StepError {
	return &StepError{
		Kind:    KindInvalidField,
		Field:   f,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the kind of a StepError anywhere in err's chain, or KindNone.
func KindOf(err error) ErrorKind {
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindNone
}

// GetTroubleshootingHint returns a short hint for resolving an error kind.
func GetTroubleshootingHint(k ErrorKind) string {
	switch k {
	case KindCredentialsMissing:
		return "Enter the RHN user name and password used for the Red Hat container registry"
	case KindNoImages:
		return "Copy a Ceph ISO into " + DefaultImageDir + " and run: chcon -t container_file_t <iso>"
	case KindImageUnreadable:
		return "Check the image is a valid ISO and readable by the install service"
	case KindPackageMissing:
		return "Select an ISO built for a Ceph release"
	case KindInvalidField:
		return "Run 'ceph-env check --help' to list the accepted values"
	default:
		return ""
	}
}
