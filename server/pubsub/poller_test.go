package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/WatchBeam/clock"
	"github.com/mistriapp/mistri/server/datastore/inmem"
	"github.com/mistriapp/mistri/server/mistri"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveSnapshot(t *testing.T, ch <-chan []*mistri.JobRecord) []*mistri.JobRecord {
	t.Helper()
	select {
	case jobs := <-ch:
		return jobs
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for snapshot")
		return nil
	}
}

func TestPollerSubscribe(t *testing.T) {
	mockClock := clock.NewMockClock()
	ds := inmem.New(mockClock)
	ctx := context.Background()

	_, err := ds.NewJob(ctx, &mistri.JobRecord{
		CustomerID:  "cust-1",
		Skill:       "Plumber",
		Status:      mistri.JobStatusOpen,
		IsBroadcast: true,
		Price:       350,
	})
	require.NoError(t, err)

	p := NewPoller(ds, mockClock, nil)

	snapshots := make(chan []*mistri.JobRecord, 8)
	unsubscribe := p.Subscribe(ctx,
		mistri.JobListOptions{BroadcastFeed: true, Skill: "Plumber"},
		time.Second,
		func(jobs []*mistri.JobRecord) { snapshots <- jobs },
	)
	defer unsubscribe()

	// Fetch happens immediately, before the first tick.
	jobs := receiveSnapshot(t, snapshots)
	require.Len(t, jobs, 1)
	assert.Equal(t, mistri.JobStatusOpen, jobs[0].Status)

	// A job posted between ticks shows up in the next full snapshot.
	_, err = ds.NewJob(ctx, &mistri.JobRecord{
		CustomerID:  "cust-2",
		Skill:       "Plumber",
		Status:      mistri.JobStatusOpen,
		IsBroadcast: true,
		Price:       500,
	})
	require.NoError(t, err)

	mockClock.AddTime(time.Second)
	jobs = receiveSnapshot(t, snapshots)
	assert.Len(t, jobs, 2)
}

func TestPollerSnapshotIsFiltered(t *testing.T) {
	mockClock := clock.NewMockClock()
	ds := inmem.New(mockClock)
	ctx := context.Background()

	// One matching broadcast job, one with the wrong skill, one direct.
	for _, job := range []*mistri.JobRecord{
		{CustomerID: "c1", Skill: "Plumber", Status: mistri.JobStatusOpen, IsBroadcast: true},
		{CustomerID: "c1", Skill: "Electrician", Status: mistri.JobStatusOpen, IsBroadcast: true},
		{CustomerID: "c1", WorkerID: "w1", Skill: "Plumber", Status: mistri.JobStatusPending},
	} {
		_, err := ds.NewJob(ctx, job)
		require.NoError(t, err)
	}

	p := NewPoller(ds, mockClock, nil)

	snapshots := make(chan []*mistri.JobRecord, 1)
	unsubscribe := p.Subscribe(ctx,
		mistri.JobListOptions{BroadcastFeed: true, Skill: "Plumber"},
		time.Second,
		func(jobs []*mistri.JobRecord) { snapshots <- jobs },
	)
	defer unsubscribe()

	jobs := receiveSnapshot(t, snapshots)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Plumber", jobs[0].Skill)
	assert.True(t, jobs[0].IsBroadcast)
}

func TestPollerUnsubscribeStopsTimer(t *testing.T) {
	mockClock := clock.NewMockClock()
	ds := inmem.New(mockClock)
	ctx := context.Background()

	p := NewPoller(ds, mockClock, nil)

	snapshots := make(chan []*mistri.JobRecord, 8)
	unsubscribe := p.Subscribe(ctx, mistri.JobListOptions{}, time.Second,
		func(jobs []*mistri.JobRecord) { snapshots <- jobs },
	)

	receiveSnapshot(t, snapshots)

	unsubscribe()
	// Calling it again must be a no-op.
	unsubscribe()

	select {
	case <-snapshots:
		t.Fatal("received snapshot after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPollerContextCancellation(t *testing.T) {
	mockClock := clock.NewMockClock()
	ds := inmem.New(mockClock)
	ctx, cancel := context.WithCancel(context.Background())

	p := NewPoller(ds, mockClock, nil)

	snapshots := make(chan []*mistri.JobRecord, 8)
	unsubscribe := p.Subscribe(ctx, mistri.JobListOptions{}, time.Second,
		func(jobs []*mistri.JobRecord) { snapshots <- jobs },
	)
	defer unsubscribe()

	receiveSnapshot(t, snapshots)

	cancel()
	select {
	case <-snapshots:
		t.Fatal("received snapshot after context cancellation")
	case <-time.After(100 * time.Millisecond):
	}
}
