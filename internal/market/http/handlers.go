package markethttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fanmetrics/fanmetrics/internal/market"
	"github.com/fanmetrics/fanmetrics/internal/market/export"
	"github.com/fanmetrics/fanmetrics/internal/market/ui"
	"github.com/fanmetrics/fanmetrics/internal/platform/httpx"
	"github.com/fanmetrics/fanmetrics/internal/shared"
	"github.com/fanmetrics/fanmetrics/internal/view"
)

const requestTimeout = 2 * time.Second

// anonymousSession backs requests that arrive without a session cookie.
const anonymousSession = "anonymous"

// MarketService defines the dashboard data contract used by the handler.
type MarketService interface {
	Catalog() *market.Catalog
	Categories() []string
	Dashboard(ctx context.Context, sessionID string, filters market.Filters, now time.Time) (market.Dashboard, error)
	View(ctx context.Context, sessionID string, filters market.Filters, now time.Time) (market.Dashboard, error)
	Refresh(sessionID string, now time.Time) *market.Session
}

// PDFService renders dashboard content to PDF bytes.
type PDFService interface {
	RenderDashboard(ctx context.Context, payload export.DashboardPayload) ([]byte, error)
}

// Handler coordinates HTTP requests for the market dashboard.
type Handler struct {
	logger    *slog.Logger
	service   MarketService
	templates *view.Engine
	renderers ui.Renderers
	pdf       PDFService
	live      http.Handler
	csvPool   sync.Pool
	now       func() time.Time
}

// NewHandler constructs the market HTTP handler.
func NewHandler(logger *slog.Logger, service MarketService, templates *view.Engine, renderers ui.Renderers, pdf PDFService) *Handler {
	h := &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		renderers: renderers,
		pdf:       pdf,
		now:       time.Now,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// WithLive attaches the websocket endpoint served at /live.
func (h *Handler) WithLive(live http.Handler) {
	h.live = live
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	dash, err := h.service.Dashboard(ctx, sessionID(r), filters, h.now().UTC())
	if err != nil {
		h.handleServerError(w, "load dashboard", err)
		return
	}

	vm, err := ui.BuildViewModel(dash, h.renderers)
	if err != nil {
		h.handleServerError(w, "render charts", err)
		return
	}

	var flash *shared.FlashMessage
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		flash = sess.PopFlash()
	}

	viewData := view.TemplateData{
		Title:       "Creator Platform Market",
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        vm,
	}
	if err := h.templates.Render(w, "pages/dashboard.html", viewData); err != nil {
		h.handleServerError(w, "render template", err)
	}
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	sess := h.service.Refresh(sessionID(r), h.now().UTC())
	if webSess := shared.SessionFromContext(r.Context()); webSess != nil {
		webSess.AddFlash(flashRefreshed(sess.Ticks()))
	}
	http.Redirect(w, r, "/?"+ui.EncodeFilters(filters), http.StatusSeeOther)
}

func (h *Handler) handleAPIPlatforms(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"platforms": h.service.Catalog().Platforms()})
}

func (h *Handler) handleAPIOverview(w http.ResponseWriter, r *http.Request) {
	dash, ok := h.loadAPI(w, r, nil)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"session_id":   dash.SessionID,
		"generated_at": dash.GeneratedAt,
		"refreshed_at": dash.RefreshedAt,
		"ticks":        dash.Ticks,
		"overview":     dash.Overview,
		"platforms":    dash.PlatformTable,
	})
}

func (h *Handler) handleAPICreators(w http.ResponseWriter, r *http.Request) {
	dash, ok := h.loadAPI(w, r, nil)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"filters":  dash.Filters,
		"count":    len(dash.Creators),
		"creators": dash.Creators,
	})
}

func (h *Handler) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	dash, ok := h.loadAPI(w, r, nil)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"history": dash.History})
}

func (h *Handler) handleAPIProjections(w http.ResponseWriter, r *http.Request) {
	dash, ok := h.loadAPI(w, r, func(f *market.Filters) { f.ShowProjections = true })
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"projections": dash.Projections})
}

// loadAPI parses filters and loads the dashboard, answering with problem
// details on failure.
func (h *Handler) loadAPI(w http.ResponseWriter, r *http.Request, adjust func(*market.Filters)) (market.Dashboard, bool) {
	filters, err := h.parseFilters(r)
	if err != nil {
		if !errors.Is(err, httpx.ErrValidation) {
			h.logError("parse filters", err)
		}
		httpx.RespondError(w, err)
		return market.Dashboard{}, false
	}
	if adjust != nil {
		adjust(&filters)
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	dash, err := h.service.View(ctx, sessionID(r), filters, h.now().UTC())
	if err != nil {
		h.logError("load dashboard", err)
		httpx.RespondError(w, err)
		return market.Dashboard{}, false
	}
	return dash, true
}

func (h *Handler) handleCreatorsCSV(w http.ResponseWriter, r *http.Request) {
	h.streamCSV(w, r, "creators", func(buf io.Writer, dash market.Dashboard) error {
		return export.WriteCreatorsCSV(buf, dash.Creators)
	})
}

func (h *Handler) handleHistoryCSV(w http.ResponseWriter, r *http.Request) {
	h.streamCSV(w, r, "history", func(buf io.Writer, dash market.Dashboard) error {
		return export.WriteHistoryCSV(buf, dash.History)
	})
}

func (h *Handler) handlePlatformsCSV(w http.ResponseWriter, r *http.Request) {
	h.streamCSV(w, r, "platforms", func(buf io.Writer, dash market.Dashboard) error {
		return export.WritePlatformsCSV(buf, dash.PlatformTable)
	})
}

func (h *Handler) streamCSV(w http.ResponseWriter, r *http.Request, name string, write func(io.Writer, market.Dashboard) error) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	now := h.now().UTC()
	dash, err := h.service.View(ctx, sessionID(r), filters, now)
	if err != nil {
		h.handleServerError(w, "load dashboard", err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := write(buf, dash); err != nil {
		h.handleServerError(w, "write "+name+" csv", err)
		return
	}

	filename := fmt.Sprintf("fanmetrics-%s-%s.csv", name, now.Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		h.handleServerError(w, "pdf exporter", errors.New("pdf exporter not configured"))
		return
	}

	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	now := h.now().UTC()
	dash, err := h.service.View(ctx, sessionID(r), filters, now)
	if err != nil {
		h.handleServerError(w, "load dashboard", err)
		return
	}
	vm, err := ui.BuildViewModel(dash, h.renderers)
	if err != nil {
		h.handleServerError(w, "render charts", err)
		return
	}

	payload := export.DashboardPayload{
		GeneratedAt: now,
		KPIs:        vm.KPIs,
		Platforms:   vm.Platforms,
		TopEarners:  vm.TopEarners,
		Sections:    vm.Sections,
	}
	pdfBytes, err := h.pdf.RenderDashboard(ctx, payload)
	if err != nil {
		h.handleServerError(w, "render pdf", err)
		return
	}

	filename := fmt.Sprintf("fanmetrics-dashboard-%s.pdf", now.Format("20060102"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(pdfBytes); err != nil {
		h.logError("stream pdf", err)
	}
}

// parseFilters reads the sidebar state from the query string and, for
// POST requests, the form body. Repeated flags resolve to the last value so
// a hidden "false" input can precede its checkbox.
func (h *Handler) parseFilters(r *http.Request) (market.Filters, error) {
	if err := r.ParseForm(); err != nil {
		return market.Filters{}, httpx.InvalidParam("form")
	}
	form := r.Form
	filters := market.DefaultFilters()

	catalog := h.service.Catalog()
	for _, raw := range form["platform"] {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if !catalog.Has(name) {
			return market.Filters{}, httpx.InvalidParam("platform")
		}
		filters.Platforms = appendUnique(filters.Platforms, name)
	}

	known := make(map[string]bool)
	for _, c := range h.service.Categories() {
		known[c] = true
	}
	for _, raw := range form["category"] {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if !known[name] {
			return market.Filters{}, httpx.InvalidParam("category")
		}
		filters.Categories = appendUnique(filters.Categories, name)
	}

	var err error
	if filters.MinEarnings, err = parseAmount(form.Get("min_earnings")); err != nil {
		return market.Filters{}, httpx.InvalidParam("min_earnings")
	}
	if filters.MaxEarnings, err = parseAmount(form.Get("max_earnings")); err != nil {
		return market.Filters{}, httpx.InvalidParam("max_earnings")
	}
	if filters.MaxEarnings > 0 && filters.MinEarnings > filters.MaxEarnings {
		return market.Filters{}, httpx.InvalidParam("max_earnings")
	}
	if filters.AutoRefresh, err = parseFlag(form["auto_refresh"], true); err != nil {
		return market.Filters{}, httpx.InvalidParam("auto_refresh")
	}
	if filters.ShowProjections, err = parseFlag(form["projections"], true); err != nil {
		return market.Filters{}, httpx.InvalidParam("projections")
	}
	return filters, nil
}

func parseAmount(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("amount out of range: %s", raw)
	}
	return v, nil
}

func parseFlag(values []string, def bool) (bool, error) {
	if len(values) == 0 {
		return def, nil
	}
	raw := strings.TrimSpace(values[len(values)-1])
	switch strings.ToLower(raw) {
	case "":
		return def, nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}

func flashRefreshed(ticks uint64) shared.FlashMessage {
	return shared.FlashMessage{
		Kind:    "success",
		Message: fmt.Sprintf("Creator panel refreshed (update #%d)", ticks),
	}
}

func sessionID(r *http.Request) string {
	if id := shared.SessionID(r.Context()); id != "" {
		return id
	}
	return anonymousSession
}

func (h *Handler) handleFilterError(w http.ResponseWriter, err error) {
	var param *httpx.ParamError
	if errors.As(err, &param) {
		http.Error(w, "Invalid parameter: "+param.Param, http.StatusBadRequest)
		return
	}
	h.handleServerError(w, "parse filters", err)
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}
