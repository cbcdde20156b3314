package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mistriapp/mistri/server/contexts/ctxerr"
	"github.com/mistriapp/mistri/server/mistri"
)

// errorer interface is implemented by response structs to encode business
// logic errors
type errorer interface {
	error() error
}

type jsonError struct {
	Message string              `json:"message"`
	Errors  []map[string]string `json:"errors,omitempty"`
}

// use baseError to encode a jsonError.Errors field with an error that has a
// generic "name" field. Clients expect errors in a []map[string]string
// format.
func baseError(err string) []map[string]string {
	return []map[string]string{
		{
			"name":   "base",
			"reason": err,
		},
	}
}

type validationErrorInterface interface {
	error
	Invalid() []map[string]string
}

type notFoundErrorInterface interface {
	error
	IsNotFound() bool
}

// encode error and status header to the client
func encodeError(ctx context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err = ctxerr.Cause(err)

	switch e := err.(type) {
	case validationErrorInterface:
		ve := jsonError{
			Message: "Validation Failed",
			Errors:  e.Invalid(),
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		enc.Encode(ve) //nolint:errcheck
	case *mistri.StateConflictError:
		ce := jsonError{
			Message: "Conflict",
			Errors:  baseError(e.Error()),
		}
		w.WriteHeader(http.StatusConflict)
		enc.Encode(ce) //nolint:errcheck
	case notFoundErrorInterface:
		je := jsonError{
			Message: "Resource Not Found",
			Errors:  baseError(e.Error()),
		}
		w.WriteHeader(http.StatusNotFound)
		enc.Encode(je) //nolint:errcheck
	default:
		// errors carrying their own status code (forbidden, auth required,
		// rate limited, store unavailable) encode it directly
		var sce mistri.ErrWithStatusCode
		if errors.As(err, &sce) {
			w.WriteHeader(sce.StatusCode())
			enc.Encode(jsonError{ //nolint:errcheck
				Message: err.Error(),
				Errors:  baseError(err.Error()),
			})
			return
		}

		w.WriteHeader(http.StatusInternalServerError)
		enc.Encode(jsonError{ //nolint:errcheck
			Message: "Internal Server Error",
			Errors:  baseError(err.Error()),
		})
	}
}
