package service

import (
	"context"

	"github.com/go-kit/kit/endpoint"
	"github.com/mistriapp/mistri/server/mistri"
)

////////////////////////////////////////////////////////////////////////////////
// Create Direct Job
////////////////////////////////////////////////////////////////////////////////

type createDirectJobRequest struct {
	payload mistri.DirectJobPayload
}

type jobResponse struct {
	Job *mistri.JobRecord `json:"job,omitempty"`
	Err error             `json:"error,omitempty"`
}

func (r jobResponse) error() error { return r.Err }

func makeCreateDirectJobEndpoint(svc mistri.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(createDirectJobRequest)
		job, err := svc.CreateDirectJob(ctx, req.payload)
		if err != nil {
			return jobResponse{Err: err}, nil
		}
		return jobResponse{Job: job}, nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// Create Broadcast Job
////////////////////////////////////////////////////////////////////////////////

type createBroadcastJobRequest struct {
	payload mistri.BroadcastJobPayload
}

func makeCreateBroadcastJobEndpoint(svc mistri.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(createBroadcastJobRequest)
		job, err := svc.CreateBroadcastJob(ctx, req.payload)
		if err != nil {
			return jobResponse{Err: err}, nil
		}
		return jobResponse{Job: job}, nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// Accept Job
////////////////////////////////////////////////////////////////////////////////

type acceptJobRequest struct {
	ID string
}

func makeAcceptJobEndpoint(svc mistri.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(acceptJobRequest)
		job, err := svc.AcceptJob(ctx, req.ID)
		if err != nil {
			return jobResponse{Err: err}, nil
		}
		return jobResponse{Job: job}, nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// Verify Arrival
////////////////////////////////////////////////////////////////////////////////

type verifyArrivalRequest struct {
	ID   string
	Code string
}

func makeVerifyArrivalEndpoint(svc mistri.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(verifyArrivalRequest)
		job, err := svc.VerifyArrival(ctx, req.ID, req.Code)
		if err != nil {
			return jobResponse{Err: err}, nil
		}
		return jobResponse{Job: job}, nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// Request Completion
////////////////////////////////////////////////////////////////////////////////

type requestCompletionRequest struct {
	ID        string
	MediaURLs []string
}

func makeRequestCompletionEndpoint(svc mistri.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(requestCompletionRequest)
		job, err := svc.RequestCompletion(ctx, req.ID, req.MediaURLs)
		if err != nil {
			return jobResponse{Err: err}, nil
		}
		return jobResponse{Job: job}, nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// Verify Completion
////////////////////////////////////////////////////////////////////////////////

type verifyCompletionRequest struct {
	ID            string
	Code          string
	PaymentMethod mistri.PaymentMethod
}

func makeVerifyCompletionEndpoint(svc mistri.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(verifyCompletionRequest)
		job, err := svc.VerifyCompletion(ctx, req.ID, req.Code, req.PaymentMethod)
		if err != nil {
			return jobResponse{Err: err}, nil
		}
		return jobResponse{Job: job}, nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// Cancel Job
////////////////////////////////////////////////////////////////////////////////

type cancelJobRequest struct {
	ID string
}

func makeCancelJobEndpoint(svc mistri.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(cancelJobRequest)
		job, err := svc.CancelJob(ctx, req.ID)
		if err != nil {
			return jobResponse{Err: err}, nil
		}
		return jobResponse{Job: job}, nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// Save Review
////////////////////////////////////////////////////////////////////////////////

type saveReviewRequest struct {
	ID     string
	Review mistri.JobReview
}

func makeSaveReviewEndpoint(svc mistri.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(saveReviewRequest)
		job, err := svc.SaveReview(ctx, req.ID, req.Review)
		if err != nil {
			return jobResponse{Err: err}, nil
		}
		return jobResponse{Job: job}, nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// Get Job
////////////////////////////////////////////////////////////////////////////////

type getJobRequest struct {
	ID string
}

func makeGetJobEndpoint(svc mistri.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(getJobRequest)
		job, err := svc.Job(ctx, req.ID)
		if err != nil {
			return jobResponse{Err: err}, nil
		}
		return jobResponse{Job: job}, nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// List Jobs
////////////////////////////////////////////////////////////////////////////////

type listJobsRequest struct {
	ListOptions mistri.JobListOptions
}

type listJobsResponse struct {
	Jobs []*mistri.JobRecord `json:"jobs"`
	Err  error               `json:"error,omitempty"`
}

func (r listJobsResponse) error() error { return r.Err }

func makeListJobsEndpoint(svc mistri.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(listJobsRequest)
		jobs, err := svc.ListJobs(ctx, req.ListOptions)
		if err != nil {
			return listJobsResponse{Err: err}, nil
		}
		if jobs == nil {
			jobs = []*mistri.JobRecord{}
		}
		return listJobsResponse{Jobs: jobs}, nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// Broadcast Feed
////////////////////////////////////////////////////////////////////////////////

func makeBroadcastFeedEndpoint(svc mistri.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		jobs, err := svc.BroadcastFeed(ctx)
		if err != nil {
			return listJobsResponse{Err: err}, nil
		}
		if jobs == nil {
			jobs = []*mistri.JobRecord{}
		}
		return listJobsResponse{Jobs: jobs}, nil
	}
}
