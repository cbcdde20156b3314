package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/mistriapp/mistri/server/mistri"
	"github.com/mistriapp/mistri/server/ptr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionSQL(t *testing.T) {
	query, args := transitionSQL("j1",
		[]mistri.JobStatus{mistri.JobStatusOpen, mistri.JobStatusPending},
		mistri.JobChange{
			Status:       mistri.JobStatusAccepted,
			WorkerID:     ptr.String("w1"),
			WorkerName:   ptr.String("Ravi"),
			WorkerPhone:  ptr.String("9876500000"),
			WorkerAvatar: ptr.String(""),
		},
	)

	assert.Equal(t,
		`UPDATE jobs SET status = ?, worker_id = ?, worker_name = ?, worker_phone = ?, worker_avatar = ? WHERE status IN (?, ?) AND id = ?`,
		query,
	)
	assert.Equal(t,
		[]interface{}{"ACCEPTED", "w1", "Ravi", "9876500000", "", "OPEN", "PENDING", "j1"},
		args,
	)
}

func TestTransitionSQLSettlement(t *testing.T) {
	method := mistri.PaymentMethodUPI
	query, args := transitionSQL("j1",
		[]mistri.JobStatus{mistri.JobStatusInProgress},
		mistri.JobChange{
			Status:         mistri.JobStatusCompleted,
			IsPaid:         ptr.Bool(true),
			PaymentMethod:  &method,
			PlatformFee:    ptr.Int(35),
			WorkerEarnings: ptr.Int(315),
		},
	)

	assert.Equal(t,
		`UPDATE jobs SET status = ?, is_paid = ?, payment_method = ?, platform_fee = ?, worker_earnings = ? WHERE status IN (?) AND id = ?`,
		query,
	)
	require.Len(t, args, 7)
	assert.Equal(t, "COMPLETED", args[0])
	assert.Equal(t, true, args[1])
	assert.Equal(t, "UPI", args[2])
	assert.Equal(t, 35, args[3])
	assert.Equal(t, 315, args[4])
	assert.Equal(t, "IN_PROGRESS", args[5])
	assert.Equal(t, "j1", args[6])
}

func TestTransitionSQLStatusOnly(t *testing.T) {
	cancelledBy := mistri.CancelledByWorker
	query, args := transitionSQL("j1",
		[]mistri.JobStatus{
			mistri.JobStatusOpen, mistri.JobStatusPending,
			mistri.JobStatusAccepted, mistri.JobStatusInProgress,
		},
		mistri.JobChange{
			Status:      mistri.JobStatusCancelled,
			CancelledBy: &cancelledBy,
		},
	)

	assert.Equal(t,
		`UPDATE jobs SET status = ?, cancelled_by = ? WHERE status IN (?, ?, ?, ?) AND id = ?`,
		query,
	)
	assert.Equal(t,
		[]interface{}{"CANCELLED", "worker", "OPEN", "PENDING", "ACCEPTED", "IN_PROGRESS", "j1"},
		args,
	)
}

func TestJobRowToJobRecord(t *testing.T) {
	row := jobRow{
		ID:                  "j1",
		CustomerID:          "c1",
		Skill:               "plumber",
		Status:              "IN_PROGRESS",
		Price:               350,
		PlatformFee:         sql.NullInt64{Int64: 35, Valid: true},
		WorkerEarnings:      sql.NullInt64{Int64: 315, Valid: true},
		ArrivalCode:         "1234",
		CompletionCode:      "5678",
		CompletionRequested: true,
		CompletionMedia:     json.RawMessage(`["/media/j1/a.jpg"]`),
		Review:              json.RawMessage(`{"rating":5,"text":"great"}`),
	}

	got, err := row.toJobRecord(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "j1", got.ID)
	assert.Equal(t, mistri.JobStatusInProgress, got.Status)
	require.True(t, got.Settled())
	assert.Equal(t, 35, *got.PlatformFee)
	assert.Equal(t, 315, *got.WorkerEarnings)
	assert.Equal(t, []string{"/media/j1/a.jpg"}, got.CompletionMediaURLs)
	require.NotNil(t, got.Review)
	assert.Equal(t, 5, got.Review.Rating)
	assert.Equal(t, "1234", got.ArrivalCode)
}

func TestJobRowBadJSON(t *testing.T) {
	row := jobRow{ID: "j1", Review: json.RawMessage(`{`)}
	_, err := row.toJobRecord(context.Background())
	require.Error(t, err)
}
