package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gabrzb/reviewradar/internal/progress"
	"github.com/gabrzb/reviewradar/internal/scrape"
	"github.com/gabrzb/reviewradar/internal/sentiment"
	"github.com/gabrzb/reviewradar/internal/supervisor"
)

func newTestServer(t *testing.T) (*Server, *progress.Store) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(100, 0)}
	store := progress.NewStore(clock)
	sup := supervisor.New(supervisor.Config{
		WorkerBin:     "true",
		WorkerTimeout: 5 * time.Second,
		OutputDir:     t.TempDir(),
	}, store, stubClassifier{}, &fakeIDGen{}, clock, nil)
	return NewServer(store, sup, nil), store
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}

func TestServer_SubmitJob_Accepted(t *testing.T) {
	t.Parallel()

	server, store := newTestServer(t)
	body := []byte(`{"url":"https://www.amazon.com.br/dp/B08N5WRWNW"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		JobID    string `json:"job_id"`
		Accepted bool   `json:"accepted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Accepted)
	require.NotEmpty(t, resp.JobID)

	_, err := store.Get(resp.JobID)
	require.NoError(t, err)
}

func TestServer_SubmitJob_InvalidURL(t *testing.T) {
	t.Parallel()

	server, store := newTestServer(t)
	body := []byte(`{"url":"https://www.amazon.com/dp/B08N5WRWNW"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "URL inválida")
	require.Equal(t, 0, store.Len())
}

func TestServer_SubmitJob_MissingURL(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	for _, body := range []string{`{}`, `{invalid`, ``} {
		req := httptest.NewRequest(http.MethodPost, "/v1/jobs", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		server.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "missing url")
	}
}

func TestServer_GetJob_ReturnsRecord(t *testing.T) {
	t.Parallel()

	server, store := newTestServer(t)
	store.SetURL("job-7", "https://www.amazon.com.br/dp/B08N5WRWNW")
	store.Put("job-7", scrape.JobStatusRunning, 50, "Extraindo dados do produto")

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/job-7", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Extraindo dados do produto")
	require.Contains(t, rec.Body.String(), `"progress":50`)
}

func TestServer_GetJob_NotFound(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/missing", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_IngestProgress_UpdatesJob(t *testing.T) {
	t.Parallel()

	server, store := newTestServer(t)
	store.Put("job-1", scrape.JobStatusRunning, 5, "Processo iniciado")

	body := []byte(`{"stage":"Carregando página","progress":30,"status":"running"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/job-1/progress", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"result":"ok"`)

	job, err := store.Get("job-1")
	require.NoError(t, err)
	require.Equal(t, 30, job.Progress)
	require.Equal(t, "Carregando página", job.Stage)
}

func TestServer_IngestProgress_DefaultsStatusToRunning(t *testing.T) {
	t.Parallel()

	server, store := newTestServer(t)
	store.Put("job-1", scrape.JobStatusQueued, 0, "Aguardando início")

	body := []byte(`{"stage":"Iniciando navegador","progress":10}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/job-1/progress", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	job, err := store.Get("job-1")
	require.NoError(t, err)
	require.Equal(t, scrape.JobStatusRunning, job.Status)
}

func TestServer_IngestProgress_OutOfOrderLastWriteWins(t *testing.T) {
	t.Parallel()

	server, store := newTestServer(t)
	store.Put("job-1", scrape.JobStatusRunning, 5, "Processo iniciado")

	for _, body := range []string{
		`{"stage":"Coletando comentários","progress":70,"status":"running"}`,
		`{"stage":"Carregando página","progress":30,"status":"running"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/v1/jobs/job-1/progress", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	job, err := store.Get("job-1")
	require.NoError(t, err)
	require.Equal(t, 30, job.Progress)
}

func TestServer_IngestProgress_DroppedAfterTerminalState(t *testing.T) {
	t.Parallel()

	server, store := newTestServer(t)
	store.Put("job-1", scrape.JobStatusFailed, 0, "worker timed out after 5m0s and was killed")

	body := []byte(`{"stage":"Salvando dados","progress":90,"status":"running"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/job-1/progress", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"result":"ignored"`)

	job, err := store.Get("job-1")
	require.NoError(t, err)
	require.Equal(t, scrape.JobStatusFailed, job.Status)
	require.Equal(t, 0, job.Progress)
}

func TestServer_IngestProgress_IgnoresGarbage(t *testing.T) {
	t.Parallel()

	server, store := newTestServer(t)
	store.Put("job-1", scrape.JobStatusRunning, 5, "Processo iniciado")

	for _, body := range []string{
		`{invalid`,
		`{"stage":"x","progress":500,"status":"running"}`,
		`{"stage":"x","progress":50,"status":"exploded"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/v1/jobs/job-1/progress", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"result":"ignored"`)
	}

	job, err := store.Get("job-1")
	require.NoError(t, err)
	require.Equal(t, 5, job.Progress)
}

func TestServer_IngestProgress_UnknownJobIgnored(t *testing.T) {
	t.Parallel()

	server, store := newTestServer(t)
	body := []byte(`{"stage":"Carregando página","progress":30,"status":"running"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/ghost/progress", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"result":"ignored"`)
	require.Equal(t, 0, store.Len())
}

func TestRequestIDMiddlewareSetsHeader(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

// --- helpers/fakes ---

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

type fakeIDGen struct {
	n int
}

func (g *fakeIDGen) NewID() (string, error) {
	g.n++
	return "job-test", nil
}

type stubClassifier struct{}

func (stubClassifier) Classify(context.Context, string) sentiment.Label {
	return sentiment.LabelNeutral
}
