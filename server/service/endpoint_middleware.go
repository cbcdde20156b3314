package service

import (
	"context"
	"strings"

	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/mistriapp/mistri/server/contexts/viewer"
	"github.com/mistriapp/mistri/server/mistri"
)

// authenticated resolves the bearer credential into a viewer before running
// next. Identity verification happens at the gateway in front of this
// service; the bearer value is the already-verified account id, which this
// middleware resolves against the user store.
func authenticated(ds mistri.Datastore, next endpoint.Endpoint) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		if _, ok := viewer.FromContext(ctx); ok {
			return next(ctx, request)
		}

		bearer, ok := ctx.Value(kithttp.ContextKeyRequestAuthorization).(string)
		if !ok || bearer == "" {
			return nil, authRequiredError{internal: "no authorization header"}
		}
		userID := strings.TrimPrefix(bearer, "Bearer ")

		user, err := ds.User(ctx, userID)
		if err != nil {
			if mistri.IsNotFound(err) {
				return nil, authRequiredError{internal: "unknown account " + userID}
			}
			return nil, err
		}

		ctx = viewer.NewContext(ctx, viewer.Viewer{User: user})
		return next(ctx, request)
	}
}
