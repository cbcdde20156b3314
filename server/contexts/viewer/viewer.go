// Package viewer enables setting and reading the authenticated caller from
// the request context.
package viewer

import (
	"context"

	"github.com/mistriapp/mistri/server/mistri"
)

type key int

const viewerKey key = 0

// NewContext creates a new context with the current caller information.
func NewContext(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, viewerKey, v)
}

// FromContext returns the current caller information if present.
func FromContext(ctx context.Context) (Viewer, bool) {
	v, ok := ctx.Value(viewerKey).(Viewer)
	return v, ok
}

// Viewer holds information about the authenticated caller.
type Viewer struct {
	User *mistri.User
}

// UserID is a helper that enables quick access to the id of the current
// caller.
func (v Viewer) UserID() string {
	if v.User != nil {
		return v.User.ID
	}
	return ""
}

// IsLoggedIn determines whether the current viewer is attached to an
// account.
func (v Viewer) IsLoggedIn() bool {
	return v.User != nil && v.User.ID != ""
}

// IsWorker reports whether the caller is a worker account.
func (v Viewer) IsWorker() bool {
	return v.User != nil && v.User.Role == mistri.RoleWorker
}

// IsCustomer reports whether the caller is a customer account.
func (v Viewer) IsCustomer() bool {
	return v.User != nil && v.User.Role == mistri.RoleCustomer
}

// IsAdmin indicates whether the current caller can perform administrative
// actions.
func (v Viewer) IsAdmin() bool {
	return v.User != nil && v.User.Role == mistri.RoleAdmin
}

// IsUserID returns true if the given user id is the same as the caller's.
func (v Viewer) IsUserID(id string) bool {
	return v.UserID() == id
}
