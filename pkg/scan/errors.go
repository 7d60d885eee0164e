package scan

import (
	"errors"
	"fmt"

	"github.com/ritzau/depscope/pkg/cmake"
)

// Exit statuses reported by the CLI
const (
	ExitOK       = 0
	ExitUsage    = 1
	ExitNotFound = 2
	ExitSchema   = 3
	ExitOutput   = 4
)

// ErrBuildDir is returned when the build directory does not exist or is not a directory
var ErrBuildDir = errors.New("build directory not found")

// OutputError reports a failure to write a scan output
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}

// ExitCode maps a scan error to the process exit status
func ExitCode(err error) int {
	var outErr *OutputError
	switch {
	case err == nil:
		return ExitOK
	case cmake.IsNotFound(err):
		return ExitNotFound
	case cmake.IsSchema(err):
		return ExitSchema
	case errors.As(err, &outErr):
		return ExitOutput
	}
	return ExitUsage
}
