package dashboard

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/mikey/mail-lens/internal/adapters/export"
	"github.com/mikey/mail-lens/internal/categories"
	"github.com/mikey/mail-lens/internal/core"
	"github.com/mikey/mail-lens/internal/metrics"
	"github.com/mikey/mail-lens/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRuns struct {
	active  bool
	started int
	err     error
}

func (s *stubRuns) Start(ctx context.Context, done func(*pipeline.Outcome, error)) error {
	if s.err != nil {
		return s.err
	}
	s.started++
	return nil
}

func (s *stubRuns) Active() bool { return s.active }

func newTestServer(t *testing.T, runs RunStarter) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	s := NewServer(runs, categories.NewLoader(zap.NewNop()), Options{
		OutputDir:      dir,
		ExportPrefix:   "results",
		MetricsPrefix:  "metrics",
		CategoriesFile: filepath.Join(dir, "cats.txt"),
	}, zap.NewNop())
	t.Cleanup(func() { _ = s.Stop() })
	return s, dir
}

func do(t *testing.T, s *Server, method, path string) (int, []byte) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(method, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func writeResults(t *testing.T, dir string) {
	t.Helper()
	batch := &core.BatchResult{
		Results: []core.ClassificationResult{
			{Filename: "a.eml", SubjectDecoded: "Счёт", Processed: true, Confidence: 0.9,
				Categories: []core.ScoredCategory{{Category: "Finance", Confidence: 0.9}}},
			{Filename: "b.eml", Categories: []core.ScoredCategory{{Category: core.DefaultErrorLabel}}},
		},
		Stats: core.RunStats{RunID: "run-7", Model: "m"},
	}
	_, err := export.NewDefaultManager(zap.NewNop()).ExportAll(context.Background(), batch, dir, "results", []string{"json"})
	require.NoError(t, err)
}

func TestEndpointsWithoutResults(t *testing.T) {
	s, _ := newTestServer(t, &stubRuns{})

	status, body := do(t, s, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "No results exported yet.")

	for _, path := range []string{"/api/results", "/api/stats", "/api/metrics", "/api/categories"} {
		status, _ := do(t, s, http.MethodGet, path)
		assert.Equal(t, http.StatusNotFound, status, path)
	}
}

func TestResultsAndStats(t *testing.T) {
	s, dir := newTestServer(t, &stubRuns{})
	writeResults(t, dir)

	status, body := do(t, s, http.MethodGet, "/api/results")
	require.Equal(t, http.StatusOK, status)
	var doc export.Document
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "run-7", doc.Metadata.RunID)
	assert.Len(t, doc.Results, 2)

	status, body = do(t, s, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, status)
	var stats struct {
		File    string `json:"file"`
		Summary struct {
			TotalEmails int `json:"total_emails"`
			Successful  int `json:"successful"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 2, stats.Summary.TotalEmails)
	assert.Equal(t, 1, stats.Summary.Successful)
	assert.Contains(t, stats.File, "results_")

	status, body = do(t, s, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "Счёт")
	assert.Contains(t, string(body), "Finance")
	assert.Contains(t, string(body), `class="failed"`)
}

func TestMetricsEndpoint(t *testing.T) {
	s, dir := newTestServer(t, &stubRuns{})
	_, err := metrics.Save(metrics.Compute([]string{"a", "b"}, []string{"a", "b"}), dir, "metrics")
	require.NoError(t, err)

	status, body := do(t, s, http.MethodGet, "/api/metrics")
	require.Equal(t, http.StatusOK, status)
	var rep metrics.Report
	require.NoError(t, json.Unmarshal(body, &rep))
	assert.Equal(t, 1.0, rep.Accuracy)
}

func TestCategoriesEndpoint(t *testing.T) {
	s, dir := newTestServer(t, &stubRuns{})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cats.txt"), []byte("Travel: tickets, hotels\nDigest\n"), 0644))

	status, body := do(t, s, http.MethodGet, "/api/categories")
	require.Equal(t, http.StatusOK, status)
	var got struct {
		Categories []categoryView `json:"categories"`
		Total      int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, categoryView{Name: "Travel", Description: "Travel. tickets, hotels", Keywords: []string{"tickets", "hotels"}}, got.Categories[0])
	assert.Equal(t, "Digest", got.Categories[1].Name)
}

func TestRunEndpoints(t *testing.T) {
	runs := &stubRuns{active: true}
	s, _ := newTestServer(t, runs)

	status, body := do(t, s, http.MethodGet, "/api/runs")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"running": true}`, string(body))

	status, _ = do(t, s, http.MethodPost, "/api/runs")
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, 1, runs.started)

	runs.err = pipeline.ErrRunInProgress
	status, _ = do(t, s, http.MethodPost, "/api/runs")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, 1, runs.started)
}
