// Package ctxerr provides functions to wrap errors with annotations close to
// where they are encountered.
//
// Typical use is to call New or Wrap[f] as close as possible to where the
// error happens, and to let it bubble back up the call stack, possibly
// gaining further annotations along the way.
package ctxerr

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// New creates a new error with the provided error message.
func New(ctx context.Context, errMsg string) error {
	return errors.New(errMsg)
}

// Errorf creates a new error with the provided formatted message.
func Errorf(ctx context.Context, format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

// Wrap annotates err with the provided messages, if any. It returns nil if
// err is nil.
func Wrap(ctx context.Context, err error, msgs ...interface{}) error {
	if err == nil {
		return nil
	}
	if len(msgs) == 0 {
		return errors.WithStack(err)
	}
	return errors.Wrap(err, fmt.Sprint(msgs...))
}

// Wrapf annotates err with the provided formatted message. It returns nil if
// err is nil.
func Wrapf(ctx context.Context, err error, fmsg string, args ...interface{}) error {
	return errors.Wrapf(err, fmsg, args...)
}

// Cause returns the root error in err's chain.
func Cause(err error) error {
	for {
		uerr := errors.Unwrap(err)
		if uerr == nil {
			return err
		}
		err = uerr
	}
}
