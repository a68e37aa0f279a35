package markethttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/fanmetrics/fanmetrics/internal/shared"
)

// MountRoutes registers dashboard, API and export endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/", h.handleDashboard)
	r.Post("/refresh", h.handleRefresh)
	r.Route("/api", func(api chi.Router) {
		api.Get("/platforms", h.handleAPIPlatforms)
		api.Get("/overview", h.handleAPIOverview)
		api.Get("/creators", h.handleAPICreators)
		api.Get("/history", h.handleAPIHistory)
		api.Get("/projections", h.handleAPIProjections)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/export/creators.csv", h.handleCreatorsCSV)
		gr.Get("/export/history.csv", h.handleHistoryCSV)
		gr.Get("/export/platforms.csv", h.handlePlatformsCSV)
		gr.Get("/export/dashboard.pdf", h.handlePDF)
	})
}

// MountLive registers the websocket endpoint. It is kept apart from
// MountRoutes so the router can skip request timeouts for long-lived sockets.
func (h *Handler) MountLive(r chi.Router) {
	if h == nil || h.live == nil {
		return
	}
	r.Handle("/live", h.live)
}

func rateLimitKey(r *http.Request) (string, error) {
	if id := shared.SessionID(r.Context()); id != "" {
		return "session:" + id, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
