package market

// Filters are the user-controlled selection predicates of the dashboard.
// They never influence generation.
type Filters struct {
	Platforms       []string `json:"platforms"`
	Categories      []string `json:"categories"`
	MinEarnings     float64  `json:"min_earnings"`
	MaxEarnings     float64  `json:"max_earnings"`
	AutoRefresh     bool     `json:"auto_refresh"`
	ShowProjections bool     `json:"show_projections"`
}

// DefaultFilters selects everything with auto refresh and projections on.
func DefaultFilters() Filters {
	return Filters{AutoRefresh: true, ShowProjections: true}
}

// FilterCreators keeps creators on a selected platform, in a selected
// category and inside the earnings range. A zero MaxEarnings means no
// upper bound.
func FilterCreators(panel []CreatorRecord, f Filters) []CreatorRecord {
	platforms := toSet(f.Platforms)
	categories := toSet(f.Categories)
	out := make([]CreatorRecord, 0, len(panel))
	for _, c := range panel {
		if len(platforms) > 0 && !platforms[c.Platform] {
			continue
		}
		if len(categories) > 0 && !categories[c.Category] {
			continue
		}
		if c.MonthlyEarnings < f.MinEarnings {
			continue
		}
		if f.MaxEarnings > 0 && c.MonthlyEarnings > f.MaxEarnings {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FilterHistory keeps rows of the selected platforms.
func FilterHistory(points []MarketHistoryPoint, f Filters) []MarketHistoryPoint {
	platforms := toSet(f.Platforms)
	if len(platforms) == 0 {
		return append([]MarketHistoryPoint(nil), points...)
	}
	out := make([]MarketHistoryPoint, 0, len(points))
	for _, p := range points {
		if platforms[p.Platform] {
			out = append(out, p)
		}
	}
	return out
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
