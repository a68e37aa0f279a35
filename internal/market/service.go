package market

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Salts separating the per-render random streams of a session.
const (
	projectionSalt uint64 = 0x70726f6a
	riskSalt       uint64 = 0x7269736b
)

// historyFillTimeout bounds a shared history fill once it no longer follows
// the cancellation of the request that started it.
const historyFillTimeout = 30 * time.Second

// ServiceConfig collects the inputs needed to assemble a Service.
type ServiceConfig struct {
	Catalog         *Catalog
	Creators        CreatorConfig
	HistoryStart    time.Time
	HistorySeed     uint64
	SessionSeed     uint64
	SessionCapacity int
	Cache           *Cache
}

// Service coordinates generation, the history cache and live sessions.
type Service struct {
	catalog *Catalog
	gen     *CreatorGenerator
	store   *SessionStore
	cache   *Cache
	start   time.Time
	seed    uint64
	flight  singleflight.Group
}

// NewService validates cfg and wires the generator and session store.
func NewService(cfg ServiceConfig) (*Service, error) {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	gen, err := NewCreatorGenerator(catalog, cfg.Creators)
	if err != nil {
		return nil, err
	}
	store, err := NewSessionStore(gen, cfg.SessionCapacity, cfg.SessionSeed)
	if err != nil {
		return nil, err
	}
	start := cfg.HistoryStart
	if start.IsZero() {
		start = DefaultHistoryStart
	}
	return &Service{
		catalog: catalog,
		gen:     gen,
		store:   store,
		cache:   cfg.Cache,
		start:   monthStart(start),
		seed:    cfg.HistorySeed,
	}, nil
}

// Catalog returns the platform catalog.
func (s *Service) Catalog() *Catalog { return s.catalog }

// Generator returns the creator generator.
func (s *Service) Generator() *CreatorGenerator { return s.gen }

// Categories returns the content categories creators are drawn from.
func (s *Service) Categories() []string { return s.gen.Categories() }

// CacheStats reports history cache lookups.
func (s *Service) CacheStats() CacheStats { return s.cache.Stats() }

// Store returns the live session store.
func (s *Service) Store() *SessionStore { return s.store }

// Session returns the session for id, generating its panel on first use.
func (s *Service) Session(id string) *Session {
	return s.store.GetOrCreate(id)
}

// SessionAt returns the session for id. A new panel is generated as of now.
func (s *Service) SessionAt(id string, now time.Time) *Session {
	return s.store.GetOrCreateAt(id, now)
}

// lastClosedMonth is the month of the latest month-end at or before now.
func lastClosedMonth(now time.Time) time.Time {
	month := monthStart(now)
	if now.UTC().Before(monthEnd(month)) {
		month = month.AddDate(0, -1, 0)
	}
	return month
}

// History returns one point per platform for every month-end from the
// configured start up to now. Results are cached per range and concurrent
// callers for the same range share one synthesis.
func (s *Service) History(ctx context.Context, now time.Time) ([]MarketHistoryPoint, error) {
	end := lastClosedMonth(now)
	synth, err := NewHistorySynthesizer(s.catalog, HistoryConfig{Start: s.start, End: end})
	if err != nil {
		return nil, err
	}
	keyBase := keyHistory(s.seed, s.start, end)
	// The fill is shared by every waiter and ignores the starter's cancellation.
	detached := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(keyBase, func() (any, error) {
		fillCtx, cancel := context.WithTimeout(detached, historyFillTimeout)
		defer cancel()
		points, err := s.cache.LoadHistory(fillCtx, keyBase, func() []MarketHistoryPoint {
			return synth.Synthesize(NewRand(s.seed))
		})
		return points, err
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		points := res.Val.([]MarketHistoryPoint)
		return append([]MarketHistoryPoint(nil), points...), nil
	}
}

// Dashboard loads history and the session panel concurrently and assembles
// every view of the dashboard for the given filters. The filters become the
// session's current selection.
func (s *Service) Dashboard(ctx context.Context, sessionID string, filters Filters, now time.Time) (Dashboard, error) {
	return s.dashboard(ctx, sessionID, filters, now, true)
}

// View is Dashboard without touching the session's stored filters. Read
// endpoints such as the JSON API and exports use it.
func (s *Service) View(ctx context.Context, sessionID string, filters Filters, now time.Time) (Dashboard, error) {
	return s.dashboard(ctx, sessionID, filters, now, false)
}

func (s *Service) dashboard(ctx context.Context, sessionID string, filters Filters, now time.Time, persist bool) (Dashboard, error) {
	var (
		history []MarketHistoryPoint
		sess    *Session
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		history, err = s.History(gctx, now)
		return err
	})
	group.Go(func() error {
		sess = s.SessionAt(sessionID, now)
		return nil
	})
	if err := group.Wait(); err != nil {
		return Dashboard{}, err
	}
	if persist {
		sess.SetFilters(filters)
	}
	dash := BuildDashboard(DashboardInput{
		Catalog:       s.catalog,
		Categories:    s.gen.Categories(),
		History:       history,
		Panel:         sess.Creators(),
		Filters:       filters,
		ProjectionRNG: sess.ViewRand(projectionSalt),
		RiskRNG:       sess.ViewRand(riskSalt),
	})
	dash.SessionID = sess.ID()
	dash.GeneratedAt = now
	dash.RefreshedAt = sess.RefreshedAt()
	dash.Ticks = sess.Ticks()
	return dash, nil
}

// Refresh applies one manual jitter tick to the session.
func (s *Service) Refresh(sessionID string, now time.Time) *Session {
	sess := s.SessionAt(sessionID, now)
	sess.Tick(now)
	return sess
}
