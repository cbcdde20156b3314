package service

import (
	"context"

	"github.com/go-kit/kit/endpoint"
	"github.com/mistriapp/mistri/server/mistri"
)

////////////////////////////////////////////////////////////////////////////////
// List Online Workers
////////////////////////////////////////////////////////////////////////////////

type listOnlineWorkersRequest struct {
	Skill string
}

type listOnlineWorkersResponse struct {
	Workers []*mistri.Worker `json:"workers"`
	Err     error            `json:"error,omitempty"`
}

func (r listOnlineWorkersResponse) error() error { return r.Err }

func makeListOnlineWorkersEndpoint(svc mistri.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(listOnlineWorkersRequest)
		workers, err := svc.ListOnlineWorkers(ctx, req.Skill)
		if err != nil {
			return listOnlineWorkersResponse{Err: err}, nil
		}
		if workers == nil {
			workers = []*mistri.Worker{}
		}
		return listOnlineWorkersResponse{Workers: workers}, nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// Worker Ledger
////////////////////////////////////////////////////////////////////////////////

type workerLedgerRequest struct {
	WorkerID string
}

type workerLedgerResponse struct {
	Entries []*mistri.LedgerEntry `json:"entries"`
	Err     error                 `json:"error,omitempty"`
}

func (r workerLedgerResponse) error() error { return r.Err }

func makeWorkerLedgerEndpoint(svc mistri.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(workerLedgerRequest)
		entries, err := svc.WorkerLedger(ctx, req.WorkerID)
		if err != nil {
			return workerLedgerResponse{Err: err}, nil
		}
		if entries == nil {
			entries = []*mistri.LedgerEntry{}
		}
		return workerLedgerResponse{Entries: entries}, nil
	}
}
