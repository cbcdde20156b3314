package inmem

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/WatchBeam/clock"
	"github.com/mistriapp/mistri/server/mistri"
	"github.com/mistriapp/mistri/server/ptr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedJob(t *testing.T, ds *Datastore, status mistri.JobStatus) *mistri.JobRecord {
	t.Helper()
	job, err := ds.NewJob(context.Background(), &mistri.JobRecord{
		CustomerID:  "c1",
		Skill:       "plumber",
		Price:       500,
		Status:      status,
		IsBroadcast: status == mistri.JobStatusOpen,
	})
	require.NoError(t, err)
	return job
}

func TestTransitionJobGuard(t *testing.T) {
	ds := New(clock.NewMockClock())
	ctx := context.Background()
	job := seedJob(t, ds, mistri.JobStatusOpen)

	updated, err := ds.TransitionJob(ctx, job.ID,
		[]mistri.JobStatus{mistri.JobStatusOpen, mistri.JobStatusPending},
		mistri.JobChange{Status: mistri.JobStatusAccepted, WorkerID: ptr.String("w1")},
	)
	require.NoError(t, err)
	assert.Equal(t, mistri.JobStatusAccepted, updated.Status)
	assert.Equal(t, "w1", updated.WorkerID)
	require.NotNil(t, updated.UpdatedAt)

	// the record left the expected set, so a second identical write loses
	_, err = ds.TransitionJob(ctx, job.ID,
		[]mistri.JobStatus{mistri.JobStatusOpen, mistri.JobStatusPending},
		mistri.JobChange{Status: mistri.JobStatusAccepted, WorkerID: ptr.String("w2")},
	)
	require.Error(t, err)
	assert.True(t, mistri.IsStateConflict(err))

	got, err := ds.Job(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "w1", got.WorkerID)
}

func TestTransitionJobConcurrent(t *testing.T) {
	ds := New(clock.NewMockClock())
	ctx := context.Background()
	job := seedJob(t, ds, mistri.JobStatusOpen)

	const contenders = 16
	var wg sync.WaitGroup
	errs := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(worker string) {
			defer wg.Done()
			_, err := ds.TransitionJob(ctx, job.ID,
				[]mistri.JobStatus{mistri.JobStatusOpen},
				mistri.JobChange{Status: mistri.JobStatusAccepted, WorkerID: ptr.String(worker)},
			)
			errs <- err
		}("w" + string(rune('a'+i)))
	}
	wg.Wait()
	close(errs)

	var wins, conflicts int
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		require.True(t, mistri.IsStateConflict(err))
		conflicts++
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, contenders-1, conflicts)
}

func TestTransitionJobNotFound(t *testing.T) {
	ds := New(clock.NewMockClock())
	_, err := ds.TransitionJob(context.Background(), "nope",
		[]mistri.JobStatus{mistri.JobStatusOpen},
		mistri.JobChange{Status: mistri.JobStatusAccepted},
	)
	require.Error(t, err)
	var nfe interface{ IsNotFound() bool }
	require.ErrorAs(t, err, &nfe)
	assert.True(t, nfe.IsNotFound())
}

func TestSettleJobAtomic(t *testing.T) {
	ds := New(clock.NewMockClock())
	ctx := context.Background()
	job := seedJob(t, ds, mistri.JobStatusInProgress)

	args := json.RawMessage(`{"task":"credit_earnings"}`)
	outbox := &mistri.OutboxJob{Name: "ledger", Args: &args, State: mistri.OutboxStateQueued}

	settled, err := ds.SettleJob(ctx, job.ID,
		[]mistri.JobStatus{mistri.JobStatusInProgress},
		mistri.JobChange{
			Status:         mistri.JobStatusCompleted,
			IsPaid:         ptr.Bool(true),
			PlatformFee:    ptr.Int(50),
			WorkerEarnings: ptr.Int(450),
		},
		outbox,
	)
	require.NoError(t, err)
	assert.Equal(t, mistri.JobStatusCompleted, settled.Status)
	require.True(t, settled.Settled())
	assert.Equal(t, settled.Price, *settled.PlatformFee+*settled.WorkerEarnings)

	queued, err := ds.GetQueuedOutboxJobs(ctx, 10, time.Now())
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, "ledger", queued[0].Name)

	// a conflicting settle must not enqueue a second outbox row
	_, err = ds.SettleJob(ctx, job.ID,
		[]mistri.JobStatus{mistri.JobStatusInProgress},
		mistri.JobChange{Status: mistri.JobStatusCompleted},
		&mistri.OutboxJob{Name: "ledger", State: mistri.OutboxStateQueued},
	)
	require.True(t, mistri.IsStateConflict(err))

	queued, err = ds.GetQueuedOutboxJobs(ctx, 10, time.Now())
	require.NoError(t, err)
	assert.Len(t, queued, 1)
}

func TestApplyLedgerEntryIdempotent(t *testing.T) {
	ds := New(clock.NewMockClock())
	ctx := context.Background()
	require.NoError(t, ds.SaveWorker(ctx, &mistri.Worker{ID: "w1", Skill: "plumber"}))

	entry := &mistri.LedgerEntry{
		WorkerID:    "w1",
		JobID:       "job-1",
		Type:        mistri.LedgerCredit,
		Amount:      450,
		Description: "Earnings for job job-1",
	}
	require.NoError(t, ds.ApplyLedgerEntry(ctx, entry))
	// replayed delivery of the same settlement is a no-op
	require.NoError(t, ds.ApplyLedgerEntry(ctx, entry))

	w, err := ds.Worker(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 450, w.WalletBalance)

	entries, err := ds.ListLedgerEntries(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// a debit for the same job is a distinct entry type
	require.NoError(t, ds.ApplyLedgerEntry(ctx, &mistri.LedgerEntry{
		WorkerID: "w1",
		JobID:    "job-1",
		Type:     mistri.LedgerDebit,
		Amount:   50,
	}))
	w, err = ds.Worker(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 400, w.WalletBalance)
}

func TestListJobsFilters(t *testing.T) {
	ds := New(clock.NewMockClock())
	ctx := context.Background()

	_, err := ds.NewJob(ctx, &mistri.JobRecord{CustomerID: "c1", Skill: "plumber", Status: mistri.JobStatusOpen, IsBroadcast: true})
	require.NoError(t, err)
	_, err = ds.NewJob(ctx, &mistri.JobRecord{CustomerID: "c1", Skill: "electrician", Status: mistri.JobStatusOpen, IsBroadcast: true})
	require.NoError(t, err)
	_, err = ds.NewJob(ctx, &mistri.JobRecord{CustomerID: "c2", WorkerID: "w1", Skill: "plumber", Status: mistri.JobStatusPending})
	require.NoError(t, err)

	jobs, err := ds.ListJobs(ctx, mistri.JobListOptions{CustomerID: "c1"})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	jobs, err = ds.ListJobs(ctx, mistri.JobListOptions{WorkerID: "w1"})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	jobs, err = ds.ListJobs(ctx, mistri.JobListOptions{BroadcastFeed: true, Skill: "plumber"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "c1", jobs[0].CustomerID)

	// a pending direct booking never shows up in the feed
	jobs, err = ds.ListJobs(ctx, mistri.JobListOptions{BroadcastFeed: true, Skill: "plumber", WorkerID: "w1"})
	require.NoError(t, err)
	assert.Len(t, jobs, 0)
}

func TestOutboxScheduling(t *testing.T) {
	mockClock := clock.NewMockClock()
	ds := New(mockClock)
	ctx := context.Background()

	_, err := ds.NewOutboxJob(ctx, &mistri.OutboxJob{Name: "ledger", State: mistri.OutboxStateQueued})
	require.NoError(t, err)
	delayed, err := ds.NewOutboxJob(ctx, &mistri.OutboxJob{
		Name:      "ledger",
		State:     mistri.OutboxStateQueued,
		NotBefore: mockClock.Now().Add(5 * time.Minute),
	})
	require.NoError(t, err)

	queued, err := ds.GetQueuedOutboxJobs(ctx, 10, mockClock.Now())
	require.NoError(t, err)
	require.Len(t, queued, 1)

	mockClock.AddTime(5 * time.Minute)
	queued, err = ds.GetQueuedOutboxJobs(ctx, 10, mockClock.Now())
	require.NoError(t, err)
	require.Len(t, queued, 2)

	done := *delayed
	done.State = mistri.OutboxStateSuccess
	_, err = ds.UpdateOutboxJob(ctx, delayed.ID, &done)
	require.NoError(t, err)

	queued, err = ds.GetQueuedOutboxJobs(ctx, 10, mockClock.Now())
	require.NoError(t, err)
	require.Len(t, queued, 1)
}

func TestJobClonesAreIsolated(t *testing.T) {
	ds := New(clock.NewMockClock())
	ctx := context.Background()
	job := seedJob(t, ds, mistri.JobStatusOpen)

	job.Status = mistri.JobStatusCancelled
	job.CompletionMediaURLs = append(job.CompletionMediaURLs, "tampered")

	got, err := ds.Job(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, mistri.JobStatusOpen, got.Status)
	assert.Empty(t, got.CompletionMediaURLs)
}
