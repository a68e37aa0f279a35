package market

import (
	"math"
	"time"
)

// DefaultHistoryStart is the first month of synthesized history.
var DefaultHistoryStart = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	growthPerMonth = 0.1
	growthCap      = 3.0
	userNoise      = 0.05
	creatorNoise   = 0.03
)

// MarketHistoryPoint is one platform's figures for one month end.
type MarketHistoryPoint struct {
	Date            time.Time `json:"date" csv:"date"`
	Platform        string    `json:"platform" csv:"platform"`
	MonthlyUsers    float64   `json:"monthly_users" csv:"monthly_users"`
	CreatorsCount   float64   `json:"creators_count" csv:"creators_count"`
	Revenue         float64   `json:"revenue" csv:"revenue"`
	RevenueMillions float64   `json:"revenue_millions" csv:"revenue_millions"`
	MarketShare     float64   `json:"market_share" csv:"market_share"`
}

// HistoryConfig bounds the synthesized range. Both ends are resolved to
// whole calendar months.
type HistoryConfig struct {
	Start time.Time `validate:"required"`
	End   time.Time `validate:"required"`
}

// HistorySynthesizer produces the monthly market time series.
type HistorySynthesizer struct {
	catalog *Catalog
	cfg     HistoryConfig
}

// NewHistorySynthesizer validates the range against the catalog.
func NewHistorySynthesizer(catalog *Catalog, cfg HistoryConfig) (*HistorySynthesizer, error) {
	if catalog.Len() == 0 {
		return nil, invalidf("history synthesizer requires a non-empty catalog")
	}
	if err := validateStruct(cfg); err != nil {
		return nil, err
	}
	cfg.Start = monthStart(cfg.Start)
	cfg.End = monthStart(cfg.End)
	if cfg.Start.After(cfg.End) {
		return nil, invalidf("history start %s after end %s", cfg.Start.Format("2006-01"), cfg.End.Format("2006-01"))
	}
	return &HistorySynthesizer{catalog: catalog, cfg: cfg}, nil
}

// Config returns the month-normalised range.
func (s *HistorySynthesizer) Config() HistoryConfig {
	return s.cfg
}

// MonthEnds lists the month-end dates covered by the range.
func (s *HistorySynthesizer) MonthEnds() []time.Time {
	return MonthEnds(s.cfg.Start, s.cfg.End)
}

// Synthesize generates raw revenue for every (month, platform) pair, then
// normalises market share per month.
func (s *HistorySynthesizer) Synthesize(rng Rand) []MarketHistoryPoint {
	dates := s.MonthEnds()
	platforms := s.catalog.Platforms()
	points := make([]MarketHistoryPoint, 0, len(dates)*len(platforms))
	for _, date := range dates {
		first := len(points)
		for _, p := range platforms {
			growth := GrowthFactor(MonthsSinceFounded(date, p.Founded))
			users := p.MonthlyUsers * growth * (1 + normal(rng, 0, userNoise))
			creators := p.CreatorsCount * growth * (1 + normal(rng, 0, creatorNoise))
			revenue := creators * p.AvgCreatorEarnings * p.FeeFraction()
			points = append(points, MarketHistoryPoint{
				Date:            date,
				Platform:        p.Name,
				MonthlyUsers:    users,
				CreatorsCount:   creators,
				Revenue:         revenue,
				RevenueMillions: revenue / 1_000_000,
			})
		}
		normalizeShares(points[first:])
	}
	return points
}

// normalizeShares assigns revenue/total*100 to every row of one date. A
// zero total leaves every share at 0 instead of NaN.
func normalizeShares(rows []MarketHistoryPoint) {
	total := 0.0
	for _, row := range rows {
		total += row.Revenue
	}
	for i := range rows {
		if total == 0 || math.IsNaN(total) {
			rows[i].MarketShare = 0
			continue
		}
		rows[i].MarketShare = rows[i].Revenue / total * 100
	}
}

// MonthsSinceFounded counts months from the start of the founding year up
// to date's month, never below zero.
func MonthsSinceFounded(date time.Time, founded int) int {
	months := (date.Year()-founded)*12 + int(date.Month())
	if months < 0 {
		return 0
	}
	return months
}

// GrowthFactor is linear in elapsed months and saturates at 3.0.
func GrowthFactor(months int) float64 {
	if months <= 0 {
		return 0
	}
	return math.Min(float64(months)*growthPerMonth, growthCap)
}

// MonthEnds returns the last day of every calendar month between from and
// to, inclusive.
func MonthEnds(from, to time.Time) []time.Time {
	start := monthStart(from)
	end := monthStart(to)
	var out []time.Time
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		out = append(out, monthEnd(m))
	}
	return out
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthEnd(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}
