package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/charts"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/cleaning"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/dataset"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/pipeline"
)

type fakeAnalyzer struct {
	table *dataset.Table
	err   error
	calls atomic.Int32
}

func (f *fakeAnalyzer) Analyze(ctx context.Context) (*pipeline.Result, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return pipeline.Run(ctx, f.table, pipeline.Options{ChartSize: charts.Size{Width: 320, Height: 200}}, nil)
}

func newTestServer(t *testing.T, a Analyzer) http.Handler {
	t.Helper()
	s, err := NewServer(a, nil)
	require.NoError(t, err)
	return NewRouter(s)
}

func syntheticTable(t *testing.T) *dataset.Table {
	t.Helper()
	df := dataset.Generate(dataset.GenerateOptions{Rows: 120, Seed: 42, MinutesPerKM: 4, LateThreshold: 45})
	tbl, _, err := cleaning.Clean(df, 45)
	require.NoError(t, err)
	return tbl
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestIndexShowsRunButton(t *testing.T) {
	h := newTestServer(t, &fakeAnalyzer{table: syntheticTable(t)})
	rec := do(h, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Swiggy Delivery Analysis Dashboard")
	assert.Contains(t, body, "Run Full Analysis")
	assert.NotContains(t, body, "<img")
}

func TestRunAnalysisRendersResults(t *testing.T) {
	a := &fakeAnalyzer{table: syntheticTable(t)}
	h := newTestServer(t, a)

	rec := do(h, http.MethodPost, "/analysis")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Swiggy Delivery Analysis (120 Orders)")
	assert.Contains(t, body, "<strong>")
	assert.Contains(t, body, "/charts/"+charts.DeliveryHistogram+".png")
	assert.Equal(t, int32(1), a.calls.Load())

	img := do(h, http.MethodGet, "/charts/"+charts.CuisineShare+".png")
	require.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "image/png", img.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(img.Body.String(), "\x89PNG"))

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/charts/unknown.png").Code)

	xlsx := do(h, http.MethodGet, "/report.xlsx")
	require.Equal(t, http.StatusOK, xlsx.Code)
	assert.True(t, strings.HasPrefix(xlsx.Body.String(), "PK"))
}

func TestChartsBeforeFirstRun(t *testing.T) {
	h := newTestServer(t, &fakeAnalyzer{})
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/charts/"+charts.DeliveryHistogram+".png").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/report.xlsx").Code)
}

func TestRunAnalysisFailure(t *testing.T) {
	h := newTestServer(t, &fakeAnalyzer{err: errors.New("disk on fire")})
	rec := do(h, http.MethodPost, "/analysis")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "disk on fire")
}

func TestRunAnalysisEmptyTable(t *testing.T) {
	h := newTestServer(t, &fakeAnalyzer{table: dataset.NewTable(nil, 45)})
	rec := do(h, http.MethodPost, "/analysis")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No data available for statistics.")
}

func TestHealth(t *testing.T) {
	rec := do(newTestServer(t, &fakeAnalyzer{}), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRenderMarkdown(t *testing.T) {
	got := string(renderMarkdown("### Title 5 < 6 & more\n- **a:** `1`\n- b\n\nplain\n\n" +
		"| City | Late |\n| --- | --- |\n| Pune | 40% |\n\n<script>alert(1)</script>\n"))
	assert.Contains(t, got, "<h3>Title 5 &lt; 6 &amp; more</h3>")
	assert.Contains(t, got, "<ul>\n<li><strong>a:</strong> <code>1</code></li>\n<li>b</li>\n</ul>")
	assert.Contains(t, got, "<p>plain</p>")
	assert.Contains(t, got, "<th>City</th>")
	assert.Contains(t, got, "<td>Pune</td>")
	assert.NotContains(t, got, "<script>")
}
