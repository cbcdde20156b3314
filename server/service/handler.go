package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	"github.com/mistriapp/mistri/server/config"
	"github.com/mistriapp/mistri/server/contexts/viewer"
	"github.com/mistriapp/mistri/server/mistri"
	"github.com/mistriapp/mistri/server/pubsub"
	"github.com/mistriapp/mistri/server/service/middleware/ratelimit"
	"github.com/throttled/throttled/v2"
)

type errorHandler struct {
	logger kitlog.Logger
}

func (h *errorHandler) Handle(ctx context.Context, err error) {
	// get the request path
	path, _ := ctx.Value(kithttp.ContextKeyRequestPath).(string)
	logger := level.Info(kitlog.With(h.logger, "path", path))

	var ewi mistri.ErrWithInternal
	if errors.As(err, &ewi) {
		logger = kitlog.With(logger, "internal", ewi.Internal())
	}

	var ewlf interface{ LogFields() []interface{} }
	if errors.As(err, &ewlf) {
		logger = kitlog.With(logger, ewlf.LogFields()...)
	}

	var rle ratelimit.Error
	if errors.As(err, &rle) {
		res := rle.Result()
		logger.Log("err", "limit exceeded", "retry_after", res.RetryAfter)
	} else {
		logger.Log("err", err)
	}
}

// MakeHandler creates an HTTP handler for the mistri server endpoints.
func MakeHandler(
	svc mistri.Service,
	ds mistri.Datastore,
	mediaStore mistri.MediaStore,
	cfg config.MistriConfig,
	logger kitlog.Logger,
	limitStore throttled.GCRAStore,
	stream *pubsub.JobEventStream,
) http.Handler {
	opts := []kithttp.ServerOption{
		kithttp.ServerBefore(
			kithttp.PopulateRequestContext, // populate the request context with common fields
		),
		kithttp.ServerErrorHandler(&errorHandler{logger}),
		kithttp.ServerErrorEncoder(encodeError),
		kithttp.ServerAfter(
			kithttp.SetContentType("application/json; charset=utf-8"),
		),
	}

	newServer := func(e endpoint.Endpoint, decodeFn kithttp.DecodeRequestFunc) http.Handler {
		e = authenticated(ds, e)
		return kithttp.NewServer(e, decodeFn, encodeResponse, opts...)
	}

	// checkpoint codes are guessable without a per-job attempt limit
	limiter := ratelimit.NewMiddleware(limitStore)
	burst := cfg.App.OtpVerifyBurst
	if burst <= 0 {
		burst = 5
	}
	verifyQuota := throttled.RateQuota{MaxRate: throttled.PerMin(burst), MaxBurst: burst - 1}
	limitVerifyArrival := limiter.Limit("verify_arrival", verifyQuota, func(req interface{}) string {
		return req.(verifyArrivalRequest).ID
	})
	limitVerifyCompletion := limiter.Limit("verify_completion", verifyQuota, func(req interface{}) string {
		return req.(verifyCompletionRequest).ID
	})

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1/mistri").Subrouter()

	api.Handle("/jobs/direct", newServer(makeCreateDirectJobEndpoint(svc), decodeCreateDirectJobRequest)).
		Methods("POST").Name("create_direct_job")
	api.Handle("/jobs/broadcast", newServer(makeCreateBroadcastJobEndpoint(svc), decodeCreateBroadcastJobRequest)).
		Methods("POST").Name("create_broadcast_job")
	api.Handle("/jobs/feed", newServer(makeBroadcastFeedEndpoint(svc), decodeBroadcastFeedRequest)).
		Methods("GET").Name("broadcast_feed")
	api.Handle("/jobs/watch", watchJobsHandler(svc, ds, cfg.App.ActivePollInterval, cfg.App.AdminPollInterval)).
		Methods("GET").Name("watch_jobs")
	api.Handle("/jobs", newServer(makeListJobsEndpoint(svc), decodeListJobsRequest)).
		Methods("GET").Name("list_jobs")
	api.Handle("/jobs/{id}", newServer(makeGetJobEndpoint(svc), decodeGetJobRequest)).
		Methods("GET").Name("get_job")
	api.Handle("/jobs/{id}/watch", watchJobHandler(svc, ds, stream, cfg.App.ActivePollInterval)).
		Methods("GET").Name("watch_job")
	api.Handle("/jobs/{id}/accept", newServer(makeAcceptJobEndpoint(svc), decodeAcceptJobRequest)).
		Methods("POST").Name("accept_job")
	api.Handle("/jobs/{id}/verify_arrival",
		newServer(limitVerifyArrival(makeVerifyArrivalEndpoint(svc)), decodeVerifyArrivalRequest)).
		Methods("POST").Name("verify_arrival")
	api.Handle("/jobs/{id}/request_completion", newServer(makeRequestCompletionEndpoint(svc), decodeRequestCompletionRequest)).
		Methods("POST").Name("request_completion")
	api.Handle("/jobs/{id}/verify_completion",
		newServer(limitVerifyCompletion(makeVerifyCompletionEndpoint(svc)), decodeVerifyCompletionRequest)).
		Methods("POST").Name("verify_completion")
	api.Handle("/jobs/{id}/cancel", newServer(makeCancelJobEndpoint(svc), decodeCancelJobRequest)).
		Methods("POST").Name("cancel_job")
	api.Handle("/jobs/{id}/review", newServer(makeSaveReviewEndpoint(svc), decodeSaveReviewRequest)).
		Methods("POST").Name("save_review")
	api.Handle("/jobs/{id}/media", uploadMediaHandler(ds, mediaStore)).
		Methods("POST").Name("upload_media")

	api.Handle("/workers", newServer(makeListOnlineWorkersEndpoint(svc), decodeListOnlineWorkersRequest)).
		Methods("GET").Name("list_online_workers")
	api.Handle("/workers/{id}/ledger", newServer(makeWorkerLedgerEndpoint(svc), decodeWorkerLedgerRequest)).
		Methods("GET").Name("worker_ledger")

	api.Handle("/fee_config", newServer(makeGetFeeConfigEndpoint(svc), decodeGetFeeConfigRequest)).
		Methods("GET").Name("get_fee_config")
	api.Handle("/fee_config", newServer(makeModifyFeeConfigEndpoint(svc), decodeModifyFeeConfigRequest)).
		Methods("PATCH").Name("modify_fee_config")

	r.HandleFunc("/healthz", healthz(ds)).Methods("GET")

	return r
}

// authViewer resolves the gateway-verified bearer account and returns a
// context carrying the viewer. Shared by the handlers that cannot go through
// the endpoint middleware (streaming, uploads).
func authViewer(ctx context.Context, ds mistri.Datastore, r *http.Request) (context.Context, viewer.Viewer, error) {
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if bearer == "" {
		return ctx, viewer.Viewer{}, authRequiredError{internal: "no authorization header"}
	}
	user, err := ds.User(ctx, bearer)
	if err != nil {
		return ctx, viewer.Viewer{}, authRequiredError{internal: "unknown account"}
	}
	v := viewer.Viewer{User: user}
	return viewer.NewContext(ctx, v), v, nil
}

// uploadMediaHandler stores proof-of-work media and returns its stable URL.
// The bytes go to the media store; job records only ever hold the returned
// reference.
func uploadMediaHandler(ds mistri.Datastore, mediaStore mistri.MediaStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, _, err := authViewer(r.Context(), ds, r)
		if err != nil {
			encodeError(r.Context(), err, w)
			return
		}

		jobID, err := idFromRequest(r, "id")
		if err != nil {
			encodeError(ctx, err, w)
			return
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			encodeError(ctx, mistri.NewInvalidArgumentError("name", "missing required argument"), w)
			return
		}

		url, err := mediaStore.Put(ctx, jobID, name, r.Body)
		if err != nil {
			encodeError(ctx, err, w)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(map[string]string{"url": url}) //nolint:errcheck
	})
}

type healthChecker interface {
	HealthCheck() error
}

// healthz is an http handler which responds with either 200 OK or 500
// depending on the state of the datastore.
func healthz(ds mistri.Datastore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hc, ok := ds.(healthChecker); ok {
			if err := hc.HealthCheck(); err != nil {
				http.Error(w, "", http.StatusInternalServerError)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
