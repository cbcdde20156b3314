package service

import (
	"context"

	"github.com/mistriapp/mistri/server/authz"
	"github.com/mistriapp/mistri/server/contexts/ctxerr"
	"github.com/mistriapp/mistri/server/contexts/viewer"
	"github.com/mistriapp/mistri/server/mistri"
)

func (svc *Service) ListOnlineWorkers(ctx context.Context, skill string) ([]*mistri.Worker, error) {
	vc, ok := viewer.FromContext(ctx)
	if !ok || !vc.IsLoggedIn() {
		return nil, authz.ForbiddenWithInternal("listing workers requires an account", vc.User, "workers", "list")
	}

	workers, err := svc.ds.ListOnlineWorkers(ctx, skill)
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "list online workers")
	}
	return workers, nil
}

func (svc *Service) WorkerLedger(ctx context.Context, workerID string) ([]*mistri.LedgerEntry, error) {
	vc, ok := viewer.FromContext(ctx)
	if !ok || !vc.IsLoggedIn() {
		return nil, authz.ForbiddenWithInternal("reading a ledger requires an account", vc.User, "ledger", "read")
	}
	// a ledger is private to its owner
	if !vc.IsAdmin() && !vc.IsUserID(workerID) {
		return nil, authz.ForbiddenWithInternal("caller does not own this ledger", vc.User, "ledger", "read")
	}

	entries, err := svc.ds.ListLedgerEntries(ctx, workerID)
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "list ledger entries")
	}
	return entries, nil
}
