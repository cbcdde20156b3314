package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/WatchBeam/clock"
	kitlog "github.com/go-kit/log"
	"github.com/mistriapp/mistri/server/config"
	"github.com/mistriapp/mistri/server/datastore/inmem"
	"github.com/mistriapp/mistri/server/mistri"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/throttled/throttled/v2/store/memstore"
)

func newTestHandler(t *testing.T) (http.Handler, *inmem.Datastore) {
	t.Helper()
	ds := inmem.New(clock.NewMockClock())
	cfg := config.TestConfig()
	svc, err := NewService(ds, kitlog.NewNopLogger(), cfg, clock.NewMockClock())
	require.NoError(t, err)

	limitStore, err := memstore.New(0)
	require.NoError(t, err)

	h := MakeHandler(svc, ds, NewMemMediaStore(""), cfg, kitlog.NewNopLogger(), limitStore, nil)
	return h, ds
}

func doJSON(t *testing.T, h http.Handler, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlerAuthRequired(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := doJSON(t, h, "GET", "/api/v1/mistri/jobs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, h, "GET", "/api/v1/mistri/jobs", "no-such-user", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandlerCreateBroadcastJob(t *testing.T) {
	h, ds := newTestHandler(t)
	testCustomer(t, ds, "c1")

	rr := doJSON(t, h, "POST", "/api/v1/mistri/jobs/broadcast", "c1", map[string]interface{}{
		"skill": "Plumber",
		"price": 350,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Job *mistri.JobRecord `json:"job"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Job)
	assert.Equal(t, mistri.JobStatusOpen, resp.Job.Status)
	assert.True(t, resp.Job.IsBroadcast)

	// the booking customer reads both codes off their own response
	assert.Len(t, resp.Job.ArrivalCode, 4)
	assert.Len(t, resp.Job.CompletionCode, 4)
}

func TestHandlerCodesHiddenFromWorker(t *testing.T) {
	h, ds := newTestHandler(t)
	testCustomer(t, ds, "c1")
	testWorker(t, ds, "w1", "Plumber", true)

	rr := doJSON(t, h, "POST", "/api/v1/mistri/jobs/broadcast", "c1", map[string]interface{}{
		"skill": "Plumber",
		"price": 350,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var created struct {
		Job *mistri.JobRecord `json:"job"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = doJSON(t, h, "POST", "/api/v1/mistri/jobs/"+created.Job.ID+"/accept", "w1", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "arrival_code")
	assert.NotContains(t, rr.Body.String(), "completion_code")

	// the worker's own read of the job stays blank too
	rr = doJSON(t, h, "GET", "/api/v1/mistri/jobs/"+created.Job.ID, "w1", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "arrival_code")
	assert.NotContains(t, rr.Body.String(), "completion_code")

	// while the customer's read still carries the codes
	rr = doJSON(t, h, "GET", "/api/v1/mistri/jobs/"+created.Job.ID, "c1", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), created.Job.ArrivalCode)
	assert.Contains(t, rr.Body.String(), created.Job.CompletionCode)
}

func TestHandlerValidationError(t *testing.T) {
	h, ds := newTestHandler(t)
	testCustomer(t, ds, "c1")

	rr := doJSON(t, h, "POST", "/api/v1/mistri/jobs/broadcast", "c1", map[string]interface{}{
		"skill": "",
		"price": -5,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Validation Failed")
}

func TestHandlerVerifyArrivalThrottled(t *testing.T) {
	h, ds := newTestHandler(t)
	customer := testCustomer(t, ds, "c1")
	wu := testWorker(t, ds, "w1", "Plumber", true)

	svc, err := NewService(ds, kitlog.NewNopLogger(), config.TestConfig(), clock.NewMockClock())
	require.NoError(t, err)
	job, err := svc.CreateDirectJob(ctxFor(customer), mistri.DirectJobPayload{WorkerID: "w1", Price: 100})
	require.NoError(t, err)
	_, err = svc.AcceptJob(ctxFor(wu), job.ID)
	require.NoError(t, err)

	wrong := "0000"
	if job.ArrivalCode == wrong {
		wrong = "0001"
	}

	// the per-job quota admits the burst, then starts rejecting guesses
	path := "/api/v1/mistri/jobs/" + job.ID + "/verify_arrival"
	for i := 0; i < 5; i++ {
		rr := doJSON(t, h, "POST", path, "w1", map[string]string{"code": wrong})
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code, "attempt %d: %s", i, rr.Body.String())
	}
	rr := doJSON(t, h, "POST", path, "w1", map[string]string{"code": wrong})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	// the record was never touched
	got, err := ds.Job(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, mistri.JobStatusAccepted, got.Status)
}

func TestHandlerStateConflict(t *testing.T) {
	h, ds := newTestHandler(t)
	customer := testCustomer(t, ds, "c1")
	w1 := testWorker(t, ds, "w1", "Plumber", true)
	testWorker(t, ds, "w2", "Plumber", true)

	svc, err := NewService(ds, kitlog.NewNopLogger(), config.TestConfig(), clock.NewMockClock())
	require.NoError(t, err)
	job, err := svc.CreateBroadcastJob(ctxFor(customer), mistri.BroadcastJobPayload{Skill: "Plumber", Price: 100})
	require.NoError(t, err)
	_, err = svc.AcceptJob(ctxFor(w1), job.ID)
	require.NoError(t, err)

	rr := doJSON(t, h, "POST", "/api/v1/mistri/jobs/"+job.ID+"/accept", "w2", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "ACCEPTED")
}

func TestHandlerWatchJobs(t *testing.T) {
	h, ds := newTestHandler(t)
	customer := testCustomer(t, ds, "c1")

	svc, err := NewService(ds, kitlog.NewNopLogger(), config.TestConfig(), clock.NewMockClock())
	require.NoError(t, err)
	_, err = svc.CreateBroadcastJob(ctxFor(customer), mistri.BroadcastJobPayload{Skill: "Plumber", Price: 100})
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/v1/mistri/jobs/watch", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer c1")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// the subscription delivers the current snapshot immediately
	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	require.NotEmpty(t, data)

	var jobs []*mistri.JobRecord
	require.NoError(t, json.Unmarshal([]byte(data), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "c1", jobs[0].CustomerID)
}

func TestHandlerWatchJob(t *testing.T) {
	h, ds := newTestHandler(t)
	customer := testCustomer(t, ds, "c1")
	wu := testWorker(t, ds, "w1", "Plumber", true)
	testWorker(t, ds, "w2", "Electrician", true)

	svc, err := NewService(ds, kitlog.NewNopLogger(), config.TestConfig(), clock.NewMockClock())
	require.NoError(t, err)
	job, err := svc.CreateBroadcastJob(ctxFor(customer), mistri.BroadcastJobPayload{Skill: "Plumber", Price: 100})
	require.NoError(t, err)
	_, err = svc.AcceptJob(ctxFor(wu), job.ID)
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	defer srv.Close()

	watch := func(bearer string) (*http.Response, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		t.Cleanup(cancel)
		req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/v1/mistri/jobs/"+job.ID+"/watch", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+bearer)
		return srv.Client().Do(req)
	}

	// a worker who is not a party to the job cannot watch it
	resp, err := watch("w2")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// the assigned worker gets the snapshot immediately, codes blanked
	resp, err = watch("w1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	require.NotEmpty(t, data)

	var got mistri.JobRecord
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, mistri.JobStatusAccepted, got.Status)
	assert.Empty(t, got.ArrivalCode)
	assert.Empty(t, got.CompletionCode)
}

func TestHandlerMediaUpload(t *testing.T) {
	h, ds := newTestHandler(t)
	testWorker(t, ds, "w1", "Plumber", true)

	req := httptest.NewRequest("POST", "/api/v1/mistri/jobs/j1/media?name=proof.jpg", bytes.NewReader([]byte("jpegbytes")))
	req.Header.Set("Authorization", "Bearer w1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "/media/j1/proof.jpg", resp["url"])
}
