package market

import (
	"math"
	"time"
)

// DefaultProjectionMonths is the projection horizon.
const DefaultProjectionMonths = 12

// ProjectionPoint is a forecast month for one platform.
type ProjectionPoint struct {
	Date            time.Time `json:"date"`
	Platform        string    `json:"platform"`
	MonthlyUsers    float64   `json:"monthly_users"`
	CreatorsCount   float64   `json:"creators_count"`
	RevenueMillions float64   `json:"revenue_millions"`
	GrowthRate      float64   `json:"growth_rate"`
}

// Project compounds each platform's latest figures with a monthly growth
// rate drawn from U(0.02, 0.08), for the months following history.
func Project(catalog *Catalog, history []MarketHistoryPoint, rng Rand, months int) []ProjectionPoint {
	if months <= 0 || len(history) == 0 {
		return nil
	}
	last := make(map[string]MarketHistoryPoint)
	for _, p := range history {
		if cur, ok := last[p.Platform]; !ok || !p.Date.Before(cur.Date) {
			last[p.Platform] = p
		}
	}
	latest := LatestDate(history)
	out := make([]ProjectionPoint, 0, months*catalog.Len())
	for _, name := range catalog.Names() {
		base, ok := last[name]
		if !ok {
			continue
		}
		rate := uniform(rng, 0.02, 0.08)
		for i := 0; i < months; i++ {
			factor := math.Pow(1+rate, float64(i+1))
			out = append(out, ProjectionPoint{
				Date:            monthEnd(monthStart(latest).AddDate(0, i+1, 0)),
				Platform:        name,
				MonthlyUsers:    base.MonthlyUsers * factor,
				CreatorsCount:   base.CreatorsCount * factor,
				RevenueMillions: base.RevenueMillions * factor,
				GrowthRate:      rate,
			})
		}
	}
	return out
}
