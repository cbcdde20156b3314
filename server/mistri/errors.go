package mistri

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrWithStatusCode is an interface for errors that should set a specific
// HTTP status code.
type ErrWithStatusCode interface {
	error
	StatusCode() int
}

// ErrWithInternal is an interface for errors that include extra "internal"
// information that should be logged in server logs but not sent to clients.
type ErrWithInternal interface {
	error
	// Internal returns the error string that must only be logged internally,
	// not returned to the client.
	Internal() string
}

// NotFoundError is implemented by errors indicating a record does not exist.
type NotFoundError interface {
	error
	IsNotFound() bool
}

// IsNotFound reports whether err's chain indicates a missing record.
func IsNotFound(err error) bool {
	var nfe NotFoundError
	if errors.As(err, &nfe) {
		return nfe.IsNotFound()
	}
	return false
}

// InvalidArgumentError is the error returned when invalid data is presented
// to a service method. A wrong checkpoint code is reported this way: it is
// retryable and must leave the job record untouched.
type InvalidArgumentError struct {
	Errors []InvalidArgument
}

// InvalidArgument is the details about a single invalid argument.
type InvalidArgument struct {
	name   string
	reason string
}

// NewInvalidArgumentError returns an InvalidArgumentError with at least one
// error.
func NewInvalidArgumentError(name, reason string) *InvalidArgumentError {
	var invalid InvalidArgumentError
	invalid.Append(name, reason)
	return &invalid
}

func (e *InvalidArgumentError) Append(name, reason string) {
	e.Errors = append(e.Errors, InvalidArgument{name: name, reason: reason})
}

func (e *InvalidArgumentError) Appendf(name, reasonFmt string, args ...interface{}) {
	e.Append(name, fmt.Sprintf(reasonFmt, args...))
}

func (e *InvalidArgumentError) HasErrors() bool {
	return len(e.Errors) != 0
}

// Error implements the error interface.
func (e InvalidArgumentError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s %s", e.Errors[0].name, e.Errors[0].reason)
	default:
		return fmt.Sprintf("validation failed: %s %s and %d other errors",
			e.Errors[0].name, e.Errors[0].reason, len(e.Errors))
	}
}

// StatusCode implements the kithttp.StatusCoder interface.
func (e InvalidArgumentError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

// Invalid returns the list of invalid arguments in the format the transport
// layer encodes validation failures in.
func (e InvalidArgumentError) Invalid() []map[string]string {
	var invalid []map[string]string
	for _, i := range e.Errors {
		invalid = append(invalid, map[string]string{"name": i.name, "reason": i.reason})
	}
	return invalid
}

// StateConflictError is returned when a status transition is attempted
// against a job that is no longer in the expected prior status. It is the
// race-arbitration signal: for a broadcast job raced by two workers, the
// loser receives this error, not a generic failure.
type StateConflictError struct {
	JobID    string
	Expected []JobStatus
	Actual   JobStatus
}

// Error implements the error interface.
func (e *StateConflictError) Error() string {
	exp := make([]string, len(e.Expected))
	for i, s := range e.Expected {
		exp[i] = string(s)
	}
	return fmt.Sprintf("job %s is %s, expected %s", e.JobID, e.Actual, strings.Join(exp, " or "))
}

// StatusCode implements the kithttp.StatusCoder interface.
func (e *StateConflictError) StatusCode() int {
	return http.StatusConflict
}

// IsStateConflict reports whether err's chain contains a StateConflictError.
func IsStateConflict(err error) bool {
	var sce *StateConflictError
	return errors.As(err, &sce)
}

// PersistenceError wraps a store failure. The core does not retry these;
// for subscribed views the next poll tick is the recovery mechanism, so
// user-visible staleness during an outage is expected.
type PersistenceError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("datastore: %s: %s", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// StatusCode implements the kithttp.StatusCoder interface.
func (e *PersistenceError) StatusCode() int {
	return http.StatusServiceUnavailable
}

// Internal implements ErrWithInternal; store details stay out of responses.
func (e *PersistenceError) Internal() string {
	return e.Err.Error()
}
