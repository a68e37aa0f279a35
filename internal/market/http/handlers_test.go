package markethttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanmetrics/fanmetrics/internal/market"
	"github.com/fanmetrics/fanmetrics/internal/market/export"
	"github.com/fanmetrics/fanmetrics/internal/market/svg"
	"github.com/fanmetrics/fanmetrics/internal/market/ui"
	"github.com/fanmetrics/fanmetrics/internal/shared"
	"github.com/fanmetrics/fanmetrics/internal/view"
	_ "github.com/fanmetrics/fanmetrics/testing"
)

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

type stubPDF struct {
	data []byte
	err  error
	last export.DashboardPayload
}

func (s *stubPDF) RenderDashboard(ctx context.Context, payload export.DashboardPayload) ([]byte, error) {
	s.last = payload
	if s.data == nil {
		content := bytes.Repeat([]byte("PDF"), 400)
		s.data = append([]byte("%PDF-1.4\n"), content...)
	}
	return s.data, s.err
}

func newTestHandler(t *testing.T, pdf PDFService) (*Handler, *market.Service) {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)
	service, err := market.NewService(market.ServiceConfig{
		Creators:    market.DefaultCreatorConfig(),
		HistorySeed: 42,
		SessionSeed: 7,
	})
	require.NoError(t, err)
	r := svg.Renderer{}
	handler := NewHandler(nil, service, templates, ui.Renderers{Line: r, Bar: r, Donut: r, Heatmap: r}, pdf)
	handler.WithNow(func() time.Time { return testNow })
	return handler, service
}

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func withSession(req *http.Request, id string) (*http.Request, *shared.Session) {
	sess := &shared.Session{ID: id}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestDashboardRenders(t *testing.T) {
	handler, _ := newTestHandler(t, &stubPDF{})
	req, _ := withSession(httptest.NewRequest(http.MethodGet, "/?platform=OnlyFans&category=Fitness", nil), "s-1")
	rr := httptest.NewRecorder()
	newTestRouter(handler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := rr.Body.String()
	assert.Contains(t, body, "Platform comparison")
	assert.Contains(t, body, "LoyalFans")
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, `value="OnlyFans" checked`)
	assert.Contains(t, body, "/export/creators.csv?")
}

func TestDashboardIncludesInsightsAndAbout(t *testing.T) {
	handler, _ := newTestHandler(t, &stubPDF{})
	req, _ := withSession(httptest.NewRequest(http.MethodGet, "/", nil), "s-7")
	rr := httptest.NewRecorder()
	newTestRouter(handler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `id="section-insights"`)
	assert.Contains(t, body, "Market opportunities")
	assert.Contains(t, body, "Recommendations")
	assert.Contains(t, body, `id="section-about"`)
	assert.Contains(t, body, "Methodology")
	assert.Contains(t, body, "OnlyFans, ")
	assert.Contains(t, body, "all data is simulated")
}

func TestDashboardRejectsInvalidFilters(t *testing.T) {
	handler, _ := newTestHandler(t, &stubPDF{})
	router := newTestRouter(handler)
	for _, query := range []string{
		"platform=Unknown",
		"category=Cooking",
		"min_earnings=abc",
		"min_earnings=-5",
		"min_earnings=500&max_earnings=100",
		"auto_refresh=maybe",
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/?"+query, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, query)
	}
}

func TestRefreshTicksSessionAndRedirects(t *testing.T) {
	handler, service := newTestHandler(t, &stubPDF{})
	req, webSess := withSession(httptest.NewRequest(http.MethodPost, "/refresh?platform=Fansly&auto_refresh=false", nil), "s-2")
	rr := httptest.NewRecorder()
	newTestRouter(handler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	location := rr.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "/?"))
	assert.Contains(t, location, "platform=Fansly")
	assert.Contains(t, location, "auto_refresh=false")
	assert.Equal(t, uint64(1), service.Session("s-2").Ticks())

	flash := webSess.PopFlash()
	require.NotNil(t, flash)
	assert.Contains(t, flash.Message, "#1")
}

func TestAPICreatorsFilters(t *testing.T) {
	handler, _ := newTestHandler(t, &stubPDF{})
	req, _ := withSession(httptest.NewRequest(http.MethodGet, "/api/creators?platform=Patreon&platform=MyM", nil), "s-3")
	rr := httptest.NewRecorder()
	newTestRouter(handler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var payload struct {
		Count    int                    `json:"count"`
		Creators []market.CreatorRecord `json:"creators"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.Equal(t, len(payload.Creators), payload.Count)
	for _, c := range payload.Creators {
		assert.Contains(t, []string{"Patreon", "MyM"}, c.Platform)
	}
}

func TestReadEndpointsKeepSessionFilters(t *testing.T) {
	handler, service := newTestHandler(t, &stubPDF{})
	router := newTestRouter(handler)

	req, _ := withSession(httptest.NewRequest(http.MethodGet, "/?platform=OnlyFans&auto_refresh=false", nil), "s-6")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	stored := service.Session("s-6").Filters()
	require.Equal(t, []string{"OnlyFans"}, stored.Platforms)
	require.False(t, stored.AutoRefresh)

	for _, target := range []string{
		"/api/creators?platform=Patreon&auto_refresh=true",
		"/api/overview?category=Fitness",
		"/api/projections",
		"/export/creators.csv?platform=MyM",
		"/export/history.csv?auto_refresh=true",
	} {
		req, _ := withSession(httptest.NewRequest(http.MethodGet, target, nil), "s-6")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code, target)
		assert.Equal(t, stored, service.Session("s-6").Filters(), target)
	}
}

func TestAPIProjectionsAlwaysProjects(t *testing.T) {
	handler, _ := newTestHandler(t, &stubPDF{})
	req, _ := withSession(httptest.NewRequest(http.MethodGet, "/api/projections?projections=false", nil), "s-4")
	rr := httptest.NewRecorder()
	newTestRouter(handler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var payload struct {
		Projections []market.ProjectionPoint `json:"projections"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.Len(t, payload.Projections, 6*market.DefaultProjectionMonths)
}

func TestAPIPlatformsAndOverview(t *testing.T) {
	handler, _ := newTestHandler(t, &stubPDF{})
	router := newTestRouter(handler)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/platforms", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "JustForFans")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/overview", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var payload struct {
		SessionID string          `json:"session_id"`
		Overview  market.Overview `json:"overview"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.Equal(t, anonymousSession, payload.SessionID)
	assert.Equal(t, 5_050_000.0, payload.Overview.TotalCreators)
}

func TestAPIValidationProblem(t *testing.T) {
	handler, _ := newTestHandler(t, &stubPDF{})
	rr := httptest.NewRecorder()
	newTestRouter(handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/history?platform=Nope", nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var problem map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, "Validation Failed", problem["title"])
	assert.Equal(t, "invalid parameter: platform", problem["detail"])
	assert.Equal(t, []any{"platform"}, problem["invalid_params"])
}

func TestCreatorsCSVExport(t *testing.T) {
	handler, _ := newTestHandler(t, &stubPDF{})
	req, _ := withSession(httptest.NewRequest(http.MethodGet, "/export/creators.csv", nil), "s-5")
	rr := httptest.NewRecorder()
	newTestRouter(handler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "fanmetrics-creators-20240615.csv")
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, market.DefaultPanelSize+1)
	assert.True(t, strings.HasPrefix(lines[0], "id,username,platform"))
}

func TestHistoryAndPlatformsCSVExport(t *testing.T) {
	handler, _ := newTestHandler(t, &stubPDF{})
	router := newTestRouter(handler)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/export/history.csv?platform=OnlyFans", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	// January 2020 through May 2024 for a single platform.
	assert.Len(t, lines, 53+1)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/export/platforms.csv", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	lines = strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	assert.Len(t, lines, 6+1)
}

func TestPDFExport(t *testing.T) {
	pdf := &stubPDF{}
	handler, _ := newTestHandler(t, pdf)
	rr := httptest.NewRecorder()
	newTestRouter(handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/export/dashboard.pdf", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")))
	assert.Len(t, pdf.last.KPIs, 4)
	assert.Len(t, pdf.last.Platforms, 6)
	assert.Equal(t, testNow, pdf.last.GeneratedAt)
}

func TestPDFExportFailures(t *testing.T) {
	handler, _ := newTestHandler(t, nil)
	rr := httptest.NewRecorder()
	handler.handlePDF(rr, httptest.NewRequest(http.MethodGet, "/export/dashboard.pdf", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	handler, _ = newTestHandler(t, &stubPDF{err: errors.New("gotenberg down")})
	rr = httptest.NewRecorder()
	handler.handlePDF(rr, httptest.NewRequest(http.MethodGet, "/export/dashboard.pdf", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestParseFlagUsesLastValue(t *testing.T) {
	v, err := parseFlag([]string{"false", "true"}, false)
	require.NoError(t, err)
	assert.True(t, v)
	v, err = parseFlag([]string{"false"}, true)
	require.NoError(t, err)
	assert.False(t, v)
	v, err = parseFlag(nil, true)
	require.NoError(t, err)
	assert.True(t, v)
	v, err = parseFlag([]string{"on"}, false)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestExportsAreRateLimited(t *testing.T) {
	handler, _ := newTestHandler(t, &stubPDF{})
	router := newTestRouter(handler)
	var last int
	for i := 0; i < 11; i++ {
		req, _ := withSession(httptest.NewRequest(http.MethodGet, "/export/platforms.csv", nil), "s-limit")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		last = rr.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
