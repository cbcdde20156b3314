package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/mistriapp/mistri/server/mistri"
	"github.com/mistriapp/mistri/server/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testProcessor struct {
	name string
	run  func(ctx context.Context, argsJSON json.RawMessage) error
}

func (t testProcessor) Name() string { return t.name }

func (t testProcessor) Run(ctx context.Context, argsJSON json.RawMessage) error {
	return t.run(ctx, argsJSON)
}

func TestWorker(t *testing.T) {
	ds := new(mock.Store)

	getQueuedCalled := 0
	ds.GetQueuedOutboxJobsFunc = func(ctx context.Context, maxNumJobs int, now time.Time) ([]*mistri.OutboxJob, error) {
		if getQueuedCalled > 0 {
			return nil, nil
		}
		getQueuedCalled++

		argsJSON := json.RawMessage(`{"arg1":"foo"}`)
		return []*mistri.OutboxJob{
			{
				ID:   1,
				Name: "test",
				Args: &argsJSON,
			},
		}, nil
	}
	ds.UpdateOutboxJobFunc = func(ctx context.Context, id uint, job *mistri.OutboxJob) (*mistri.OutboxJob, error) {
		assert.Equal(t, mistri.OutboxStateSuccess, job.State)
		return job, nil
	}

	w := NewWorker(ds, kitlog.NewNopLogger())

	procCalled := false
	w.Register(testProcessor{
		name: "test",
		run: func(ctx context.Context, argsJSON json.RawMessage) error {
			procCalled = true
			var args map[string]string
			require.NoError(t, json.Unmarshal(argsJSON, &args))
			assert.Equal(t, "foo", args["arg1"])
			return nil
		},
	})

	err := w.ProcessJobs(context.Background())
	require.NoError(t, err)

	require.True(t, procCalled)
	require.True(t, ds.GetQueuedOutboxJobsFuncInvoked)
	require.True(t, ds.UpdateOutboxJobFuncInvoked)
}

func TestWorkerRetries(t *testing.T) {
	ds := new(mock.Store)

	failing := &mistri.OutboxJob{
		ID:    1,
		Name:  "test",
		State: mistri.OutboxStateQueued,
	}
	ds.GetQueuedOutboxJobsFunc = func(ctx context.Context, maxNumJobs int, now time.Time) ([]*mistri.OutboxJob, error) {
		if failing.State != mistri.OutboxStateQueued {
			return nil, nil
		}
		return []*mistri.OutboxJob{failing}, nil
	}
	ds.UpdateOutboxJobFunc = func(ctx context.Context, id uint, job *mistri.OutboxJob) (*mistri.OutboxJob, error) {
		failing = job
		return job, nil
	}

	w := NewWorker(ds, kitlog.NewNopLogger())
	w.Register(testProcessor{
		name: "test",
		run: func(ctx context.Context, argsJSON json.RawMessage) error {
			return errors.New("boom")
		},
	})

	// each call processes the job once; a failed job is not retried within
	// the same run, and it fails permanently only once its retries are
	// exhausted
	for i := 1; i <= maxRetries+1; i++ {
		require.NoError(t, w.ProcessJobs(context.Background()))
		if i <= maxRetries {
			assert.Equal(t, mistri.OutboxStateQueued, failing.State, "run %d", i)
			assert.Equal(t, i, failing.Retries)
		}
	}

	assert.Equal(t, mistri.OutboxStateFailure, failing.State)
	assert.Equal(t, "boom", failing.Error)
}

func TestWorkerUnknownJob(t *testing.T) {
	ds := new(mock.Store)

	job := &mistri.OutboxJob{ID: 1, Name: "no-such-processor", State: mistri.OutboxStateQueued}
	ds.GetQueuedOutboxJobsFunc = func(ctx context.Context, maxNumJobs int, now time.Time) ([]*mistri.OutboxJob, error) {
		if job.State != mistri.OutboxStateQueued {
			return nil, nil
		}
		return []*mistri.OutboxJob{job}, nil
	}
	ds.UpdateOutboxJobFunc = func(ctx context.Context, id uint, j *mistri.OutboxJob) (*mistri.OutboxJob, error) {
		job = j
		return j, nil
	}

	w := NewWorker(ds, kitlog.NewNopLogger())
	require.NoError(t, w.ProcessJobs(context.Background()))

	assert.Equal(t, 1, job.Retries)
	assert.Contains(t, job.Error, "unknown outbox job")
}

func TestLedgerProcessor(t *testing.T) {
	ds := new(mock.Store)

	var applied []*mistri.LedgerEntry
	ds.ApplyLedgerEntryFunc = func(ctx context.Context, entry *mistri.LedgerEntry) error {
		applied = append(applied, entry)
		return nil
	}

	ledger := &Ledger{Datastore: ds, Log: kitlog.NewNopLogger()}

	args, err := json.Marshal(LedgerArgs{
		Task:     LedgerTaskCreditEarnings,
		JobID:    "job-1",
		WorkerID: "w1",
		Amount:   850,
	})
	require.NoError(t, err)
	require.NoError(t, ledger.Run(context.Background(), args))

	require.Len(t, applied, 1)
	assert.Equal(t, mistri.LedgerCredit, applied[0].Type)
	assert.Equal(t, 850, applied[0].Amount)
	assert.Equal(t, "w1", applied[0].WorkerID)
	assert.Equal(t, "job-1", applied[0].JobID)

	args, err = json.Marshal(LedgerArgs{
		Task:     LedgerTaskCancellationPenalty,
		JobID:    "job-2",
		WorkerID: "w1",
		Amount:   50,
	})
	require.NoError(t, err)
	require.NoError(t, ledger.Run(context.Background(), args))

	require.Len(t, applied, 2)
	assert.Equal(t, mistri.LedgerDebit, applied[1].Type)
	assert.Equal(t, 50, applied[1].Amount)
}

func TestLedgerProcessorBadArgs(t *testing.T) {
	ledger := &Ledger{Datastore: new(mock.Store), Log: kitlog.NewNopLogger()}

	err := ledger.Run(context.Background(), json.RawMessage(`{"task":"nope"}`))
	require.Error(t, err)

	err = ledger.Run(context.Background(), json.RawMessage(`{"task":"credit_earnings","job_id":"j","worker_id":"","amount":1}`))
	require.Error(t, err)
}
