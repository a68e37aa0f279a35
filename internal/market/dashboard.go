package market

import "time"

// Dashboard sizing.
const (
	TopEarnerCount = 10
	HistogramBins  = 20
)

// DashboardInput is everything BuildDashboard needs.
type DashboardInput struct {
	Catalog       *Catalog
	Categories    []string
	History       []MarketHistoryPoint
	Panel         []CreatorRecord
	Filters       Filters
	ProjectionRNG Rand
	RiskRNG       Rand
}

// Dashboard is the data behind one render of the dashboard. Overview and
// PlatformTable describe the whole market; the remaining views follow the
// filters.
type Dashboard struct {
	SessionID   string    `json:"session_id"`
	GeneratedAt time.Time `json:"generated_at"`
	RefreshedAt time.Time `json:"refreshed_at"`
	Ticks       uint64    `json:"ticks"`
	Filters     Filters   `json:"filters"`

	Platforms  []Platform `json:"platforms"`
	Categories []string   `json:"categories"`

	Overview      Overview      `json:"overview"`
	PlatformTable []PlatformRow `json:"platform_table"`

	Creators      []CreatorRecord      `json:"creators"`
	History       []MarketHistoryPoint `json:"history"`
	Latest        []MarketHistoryPoint `json:"latest"`
	TopEarners    []CreatorRecord      `json:"top_earners"`
	Histogram     []HistogramBin       `json:"histogram"`
	CategoryMix   []Breakdown          `json:"category_mix"`
	CountryMix    []Breakdown          `json:"country_mix"`
	Correlation   CorrelationMatrix    `json:"correlation"`
	UserSeries    []PlatformSeries     `json:"user_series"`
	CreatorSeries []PlatformSeries     `json:"creator_series"`
	RevenueSeries []PlatformSeries     `json:"revenue_series"`
	ShareSeries   []PlatformSeries     `json:"share_series"`
	Cumulative    []PlatformSeries     `json:"cumulative"`
	Growth        []PlatformSeries     `json:"growth"`
	Seasonality   []PlatformSeries     `json:"seasonality"`

	Projections []ProjectionPoint  `json:"projections,omitempty"`
	Risks       []RiskScore        `json:"risks"`
	Regulation  []RegulationFactor `json:"regulation"`
}

// BuildDashboard computes every view from already generated data. It never
// mutates in.Panel or in.History.
func BuildDashboard(in DashboardInput) Dashboard {
	history := FilterHistory(in.History, in.Filters)
	creators := FilterCreators(in.Panel, in.Filters)
	dash := Dashboard{
		Filters:       in.Filters,
		Platforms:     in.Catalog.Platforms(),
		Categories:    append([]string(nil), in.Categories...),
		Overview:      BuildOverview(in.Catalog, in.History, in.Panel),
		PlatformTable: BuildPlatformTable(in.Catalog, in.History, in.Panel),
		Creators:      creators,
		History:       history,
		Latest:        LatestPoints(history),
		TopEarners:    TopEarners(creators, TopEarnerCount),
		Histogram:     EarningsHistogram(creators, HistogramBins),
		CategoryMix:   CategoryBreakdown(creators),
		CountryMix:    CountryBreakdown(creators),
		Correlation:   Correlations(creators),
		UserSeries:    SeriesByPlatform(history, MetricUsers),
		CreatorSeries: SeriesByPlatform(history, MetricCreators),
		RevenueSeries: SeriesByPlatform(history, MetricRevenue),
		ShareSeries:   SeriesByPlatform(history, MetricMarketShare),
		Cumulative:    CumulativeRevenue(history),
		Growth:        MonthlyGrowth(history),
		Seasonality:   Seasonality(history),
		Regulation:    RegulationFactors(),
	}
	if in.Filters.ShowProjections && in.ProjectionRNG != nil {
		dash.Projections = Project(in.Catalog, history, in.ProjectionRNG, DefaultProjectionMonths)
	}
	if in.RiskRNG != nil {
		dash.Risks = RiskScores(in.Catalog, in.RiskRNG)
	}
	return dash
}
