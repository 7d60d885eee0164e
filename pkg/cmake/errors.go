package cmake

import (
	"errors"
	"fmt"
)

// NotFoundError reports that the File API reply set is missing: either the
// reply directory does not exist or it contains no index document.
type NotFoundError struct {
	Path   string
	Reason string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cmake file api not found: %s: %s", e.Reason, e.Path)
}

// SchemaError reports a reply document that is present but structurally
// unusable. Err holds the underlying decode error, if any.
type SchemaError struct {
	Document string
	Reason   string
	Err      error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid cmake file api document %s: %s: %v", e.Document, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid cmake file api document %s: %s", e.Document, e.Reason)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is, or wraps, a *NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsSchema reports whether err is, or wraps, a *SchemaError
func IsSchema(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
