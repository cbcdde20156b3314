package service

import "net/http"

// authRequiredError is returned when authentication is required but the
// caller presented no usable credential.
type authRequiredError struct {
	// internal is the reason that should only be logged internally
	internal string
}

func (e authRequiredError) Error() string {
	return "Authentication required"
}

func (e authRequiredError) Internal() string {
	return e.internal
}

func (e authRequiredError) StatusCode() int {
	return http.StatusUnauthorized
}
