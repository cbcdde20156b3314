package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mistriapp/mistri/server/mistri"
)

var errBadRoute = errors.New("bad route")

func encodeResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if e, ok := response.(errorer); ok && e.error() != nil {
		encodeError(ctx, e.error(), w)
		return nil
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(response)
}

// idFromRequest extracts the path variable by name from the mux route.
func idFromRequest(r *http.Request, name string) (string, error) {
	vars := mux.Vars(r)
	id, ok := vars[name]
	if !ok {
		return "", errBadRoute
	}
	return id, nil
}

func decodeCreateDirectJobRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	var req createDirectJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req.payload); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeCreateBroadcastJobRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	var req createBroadcastJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req.payload); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeAcceptJobRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := idFromRequest(r, "id")
	if err != nil {
		return nil, err
	}
	return acceptJobRequest{ID: id}, nil
}

func decodeVerifyArrivalRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := idFromRequest(r, "id")
	if err != nil {
		return nil, err
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	return verifyArrivalRequest{ID: id, Code: body.Code}, nil
}

func decodeRequestCompletionRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := idFromRequest(r, "id")
	if err != nil {
		return nil, err
	}
	var body struct {
		MediaURLs []string `json:"media_urls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	return requestCompletionRequest{ID: id, MediaURLs: body.MediaURLs}, nil
}

func decodeVerifyCompletionRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := idFromRequest(r, "id")
	if err != nil {
		return nil, err
	}
	var body struct {
		Code          string               `json:"code"`
		PaymentMethod mistri.PaymentMethod `json:"payment_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	return verifyCompletionRequest{ID: id, Code: body.Code, PaymentMethod: body.PaymentMethod}, nil
}

func decodeCancelJobRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := idFromRequest(r, "id")
	if err != nil {
		return nil, err
	}
	return cancelJobRequest{ID: id}, nil
}

func decodeSaveReviewRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := idFromRequest(r, "id")
	if err != nil {
		return nil, err
	}
	var req saveReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req.Review); err != nil {
		return nil, err
	}
	req.ID = id
	return req, nil
}

func decodeGetJobRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := idFromRequest(r, "id")
	if err != nil {
		return nil, err
	}
	return getJobRequest{ID: id}, nil
}

// listJobsOptionsFromRequest parses the list filters from the query string.
func decodeListJobsRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	q := r.URL.Query()
	opt := mistri.JobListOptions{
		CustomerID: q.Get("customer_id"),
		WorkerID:   q.Get("worker_id"),
		Skill:      q.Get("skill"),
	}
	for _, s := range q["status"] {
		status := mistri.JobStatus(s)
		if !status.Valid() {
			return nil, mistri.NewInvalidArgumentError("status", "unknown job status")
		}
		opt.Statuses = append(opt.Statuses, status)
	}
	return listJobsRequest{ListOptions: opt}, nil
}

func decodeBroadcastFeedRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	return nil, nil
}

func decodeListOnlineWorkersRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	return listOnlineWorkersRequest{Skill: r.URL.Query().Get("skill")}, nil
}

func decodeWorkerLedgerRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := idFromRequest(r, "id")
	if err != nil {
		return nil, err
	}
	return workerLedgerRequest{WorkerID: id}, nil
}

func decodeGetFeeConfigRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	return nil, nil
}

func decodeModifyFeeConfigRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	var req modifyFeeConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req.payload); err != nil {
		return nil, err
	}
	return req, nil
}
