package worker

import (
	"context"
	"encoding/json"
	"fmt"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/mistriapp/mistri/server/contexts/ctxerr"
	"github.com/mistriapp/mistri/server/mistri"
)

// Name of the ledger settlement outbox job as registered in the worker.
const ledgerJobName = "ledger"

type LedgerTask string

const (
	LedgerTaskCreditEarnings      LedgerTask = "credit_earnings"
	LedgerTaskCancellationPenalty LedgerTask = "cancellation_penalty"
)

// LedgerArgs are the arguments for the ledger outbox job.
type LedgerArgs struct {
	Task     LedgerTask `json:"task"`
	JobID    string     `json:"job_id"`
	WorkerID string     `json:"worker_id"`
	Amount   int        `json:"amount"`
}

// Ledger applies wallet movements for the ledger outbox job. Earnings
// credits are enqueued atomically with the COMPLETED transition (see
// Datastore.SettleJob); penalty debits are enqueued on worker cancellation.
type Ledger struct {
	Datastore mistri.Datastore
	Log       kitlog.Logger
}

func (l *Ledger) Name() string {
	return ledgerJobName
}

func (l *Ledger) Run(ctx context.Context, argsJSON json.RawMessage) error {
	var args LedgerArgs
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return ctxerr.Wrap(ctx, err, "unmarshal ledger args")
	}

	switch args.Task {
	case LedgerTaskCreditEarnings:
		return l.applyEntry(ctx, args, mistri.LedgerCredit, fmt.Sprintf("Earnings for job %s", args.JobID))
	case LedgerTaskCancellationPenalty:
		return l.applyEntry(ctx, args, mistri.LedgerDebit, fmt.Sprintf("Cancellation penalty for job %s", args.JobID))
	default:
		return ctxerr.Errorf(ctx, "unknown ledger task: %v", args.Task)
	}
}

func (l *Ledger) applyEntry(ctx context.Context, args LedgerArgs, typ mistri.LedgerEntryType, desc string) error {
	if args.WorkerID == "" || args.JobID == "" {
		return ctxerr.Errorf(ctx, "ledger args missing worker or job id")
	}
	if args.Amount < 0 {
		return ctxerr.Errorf(ctx, "ledger amount must not be negative: %d", args.Amount)
	}

	err := l.Datastore.ApplyLedgerEntry(ctx, &mistri.LedgerEntry{
		WorkerID:    args.WorkerID,
		JobID:       args.JobID,
		Type:        typ,
		Amount:      args.Amount,
		Description: desc,
	})
	if err != nil {
		return ctxerr.Wrap(ctx, err, "apply ledger entry")
	}

	level.Debug(l.Log).Log(
		"msg", "applied ledger entry",
		"task", args.Task,
		"job_id", args.JobID,
		"worker_id", args.WorkerID,
		"amount", args.Amount,
	)
	return nil
}

// NewLedgerOutboxJob builds the outbox record for a ledger movement without
// persisting it, for use with Datastore.SettleJob.
func NewLedgerOutboxJob(args LedgerArgs) (*mistri.OutboxJob, error) {
	return NewQueuedJob(ledgerJobName, args)
}
