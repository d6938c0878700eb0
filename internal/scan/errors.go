package scan

import (
	"errors"
	"fmt"
)

// PersistError marks a failure of the persistence layer. It is the only
// hard failure of a scan; fetch and parse problems are reported in the
// result instead.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persisting %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// IsPersistError reports whether err (or any error in its chain) is a
// PersistError.
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}
