// Package ratelimit implements rate limiting of endpoints using the
// throttled library. Verification endpoints are limited per job so that
// checkpoint codes cannot be brute forced.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-kit/kit/endpoint"
	"github.com/mistriapp/mistri/server/contexts/ctxerr"
	"github.com/throttled/throttled/v2"
)

// KeyFn extracts the limit bucket key from an endpoint request.
type KeyFn func(req interface{}) string

// Middleware is a rate limiting middleware using the provided store. Each
// function wrapped by the rate limiter receives a separate quota.
type Middleware struct {
	store throttled.GCRAStore
}

// NewMiddleware initializes the middleware with the provided store.
func NewMiddleware(store throttled.GCRAStore) *Middleware {
	if store == nil {
		panic("nil store")
	}

	return &Middleware{store: store}
}

// Limit returns a new middleware function enforcing the provided quota per
// key. keyFn derives the bucket from the request; an empty key falls back to
// a single shared bucket under keyName.
func (m *Middleware) Limit(keyName string, quota throttled.RateQuota, keyFn KeyFn) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		limiter, err := throttled.NewGCRARateLimiter(m.store, quota)
		if err != nil {
			panic(err)
		}

		return func(ctx context.Context, req interface{}) (response interface{}, err error) {
			key := keyName
			if keyFn != nil {
				if k := keyFn(req); k != "" {
					key = keyName + "-" + k
				}
			}

			limited, result, err := limiter.RateLimit(key, 1)
			if err != nil {
				// this can happen if the limit store is unavailable
				return nil, ctxerr.Wrap(ctx, err, "check rate limit")
			}

			if limited {
				return nil, ctxerr.Wrap(ctx, &rateLimitError{result: result})
			}

			return next(ctx, req)
		}
	}
}

// Error is the interface for rate limiting errors.
type Error interface {
	error
	Result() throttled.RateLimitResult
}

type rateLimitError struct {
	result throttled.RateLimitResult
}

func (r rateLimitError) Error() string {
	ra := int(r.result.RetryAfter.Seconds())
	if ra > 0 {
		return fmt.Sprintf("limit exceeded, retry after: %ds", ra)
	}
	return "limit exceeded"
}

func (r rateLimitError) StatusCode() int {
	return http.StatusTooManyRequests
}

func (r rateLimitError) Result() throttled.RateLimitResult {
	return r.result
}
