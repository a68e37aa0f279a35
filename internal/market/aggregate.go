package market

import (
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
)

// Metric names a numeric column of MarketHistoryPoint.
type Metric string

// Supported history metrics.
const (
	MetricUsers       Metric = "monthly_users"
	MetricCreators    Metric = "creators_count"
	MetricRevenue     Metric = "revenue_millions"
	MetricMarketShare Metric = "market_share"
)

func (m Metric) value(p MarketHistoryPoint) float64 {
	switch m {
	case MetricUsers:
		return p.MonthlyUsers
	case MetricCreators:
		return p.CreatorsCount
	case MetricMarketShare:
		return p.MarketShare
	default:
		return p.RevenueMillions
	}
}

// Overview holds the headline cards of the dashboard.
type Overview struct {
	TotalRevenueMillions float64 `json:"total_revenue_millions"`
	TotalCreators        float64 `json:"total_creators"`
	TotalUsers           float64 `json:"total_users"`
	AvgCreatorEarnings   float64 `json:"avg_creator_earnings"`
}

// PlatformRow is one line of the platform comparison table.
type PlatformRow struct {
	Name               string  `json:"name" csv:"platform"`
	Color              string  `json:"color" csv:"-"`
	Founded            int     `json:"founded" csv:"founded"`
	FeePercent         float64 `json:"fee_percent" csv:"fee_percent"`
	ContentType        string  `json:"content_type" csv:"content_type"`
	MonthlyUsers       float64 `json:"monthly_users" csv:"monthly_users"`
	CreatorsCount      float64 `json:"creators_count" csv:"creators_count"`
	RevenueMillions    float64 `json:"revenue_millions" csv:"revenue_millions"`
	MarketShare        float64 `json:"market_share" csv:"market_share"`
	AvgCreatorEarnings float64 `json:"avg_creator_earnings" csv:"avg_creator_earnings"`
}

// Breakdown groups the panel by a tag.
type Breakdown struct {
	Key          string  `json:"key"`
	Count        int     `json:"count"`
	MeanEarnings float64 `json:"mean_earnings"`
}

// HistogramBin counts creators whose earnings fall in [Lower, Upper).
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// CorrelationMatrix is a symmetric Pearson matrix over Labels.
type CorrelationMatrix struct {
	Labels []string    `json:"labels"`
	Values [][]float64 `json:"values"`
}

// PlatformSeries is one platform's values over Labels.
type PlatformSeries struct {
	Platform string    `json:"platform"`
	Labels   []string  `json:"labels"`
	Values   []float64 `json:"values"`
}

// LatestDate returns the most recent date of history.
func LatestDate(history []MarketHistoryPoint) time.Time {
	var latest time.Time
	for _, p := range history {
		if p.Date.After(latest) {
			latest = p.Date
		}
	}
	return latest
}

// LatestPoints returns the rows of the most recent date.
func LatestPoints(history []MarketHistoryPoint) []MarketHistoryPoint {
	latest := LatestDate(history)
	out := make([]MarketHistoryPoint, 0)
	for _, p := range history {
		if p.Date.Equal(latest) {
			out = append(out, p)
		}
	}
	return out
}

// BuildOverview summarises the latest month, the catalog and the panel.
func BuildOverview(catalog *Catalog, history []MarketHistoryPoint, panel []CreatorRecord) Overview {
	var ov Overview
	for _, p := range LatestPoints(history) {
		ov.TotalRevenueMillions += p.RevenueMillions
	}
	for _, p := range catalog.Platforms() {
		ov.TotalCreators += p.CreatorsCount
		ov.TotalUsers += p.MonthlyUsers
	}
	ov.AvgCreatorEarnings = meanEarnings(panel)
	return ov
}

// BuildPlatformTable joins catalog attributes, the latest history row and
// the panel's mean earnings per platform.
func BuildPlatformTable(catalog *Catalog, history []MarketHistoryPoint, panel []CreatorRecord) []PlatformRow {
	latest := make(map[string]MarketHistoryPoint)
	for _, p := range LatestPoints(history) {
		latest[p.Platform] = p
	}
	byPlatform := make(map[string][]CreatorRecord)
	for _, c := range panel {
		byPlatform[c.Platform] = append(byPlatform[c.Platform], c)
	}
	rows := make([]PlatformRow, 0, catalog.Len())
	for _, p := range catalog.Platforms() {
		point := latest[p.Name]
		rows = append(rows, PlatformRow{
			Name:               p.Name,
			Color:              p.Color,
			Founded:            p.Founded,
			FeePercent:         p.FeePercent,
			ContentType:        p.ContentType,
			MonthlyUsers:       point.MonthlyUsers,
			CreatorsCount:      point.CreatorsCount,
			RevenueMillions:    point.RevenueMillions,
			MarketShare:        point.MarketShare,
			AvgCreatorEarnings: meanEarnings(byPlatform[p.Name]),
		})
	}
	return rows
}

// TopEarners returns up to n creators by descending monthly earnings.
func TopEarners(panel []CreatorRecord, n int) []CreatorRecord {
	sorted := append([]CreatorRecord(nil), panel...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MonthlyEarnings > sorted[j].MonthlyEarnings })
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// EarningsHistogram splits [min, max] of panel earnings into equal bins.
func EarningsHistogram(panel []CreatorRecord, bins int) []HistogramBin {
	if len(panel) == 0 || bins <= 0 {
		return nil
	}
	data := earningsData(panel)
	lo, _ := stats.Min(data)
	hi, _ := stats.Max(data)
	width := (hi - lo) / float64(bins)
	out := make([]HistogramBin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	for _, v := range data {
		idx := bins - 1
		if width > 0 {
			idx = int((v - lo) / width)
			if idx >= bins {
				idx = bins - 1
			}
		}
		out[idx].Count++
	}
	return out
}

// CategoryBreakdown counts creators and averages earnings per category.
func CategoryBreakdown(panel []CreatorRecord) []Breakdown {
	return breakdown(panel, func(c CreatorRecord) string { return c.Category })
}

// CountryBreakdown counts creators and averages earnings per country.
func CountryBreakdown(panel []CreatorRecord) []Breakdown {
	return breakdown(panel, func(c CreatorRecord) string { return c.Country })
}

func breakdown(panel []CreatorRecord, key func(CreatorRecord) string) []Breakdown {
	groups := make(map[string][]CreatorRecord)
	for _, c := range panel {
		groups[key(c)] = append(groups[key(c)], c)
	}
	out := make([]Breakdown, 0, len(groups))
	for k, members := range groups {
		out = append(out, Breakdown{Key: k, Count: len(members), MeanEarnings: meanEarnings(members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Correlations computes Pearson coefficients between the numeric creator
// metrics.
func Correlations(panel []CreatorRecord) CorrelationMatrix {
	labels := []string{"monthly_earnings", "followers", "engagement_rate", "content_quality", "subscription_price"}
	columns := make([]stats.Float64Data, len(labels))
	for _, c := range panel {
		columns[0] = append(columns[0], c.MonthlyEarnings)
		columns[1] = append(columns[1], float64(c.Followers))
		columns[2] = append(columns[2], c.EngagementRate)
		columns[3] = append(columns[3], c.ContentQuality)
		columns[4] = append(columns[4], float64(c.SubscriptionPrice))
	}
	values := make([][]float64, len(labels))
	for i := range labels {
		values[i] = make([]float64, len(labels))
		for j := range labels {
			if i == j {
				values[i][j] = 1
				continue
			}
			r, err := stats.Correlation(columns[i], columns[j])
			if err != nil || math.IsNaN(r) {
				r = 0
			}
			values[i][j] = r
		}
	}
	return CorrelationMatrix{Labels: labels, Values: values}
}

// SeriesByPlatform pivots history into one series per platform, keeping
// the order platforms first appear in.
func SeriesByPlatform(history []MarketHistoryPoint, metric Metric) []PlatformSeries {
	index := make(map[string]int)
	var out []PlatformSeries
	for _, p := range history {
		i, ok := index[p.Platform]
		if !ok {
			i = len(out)
			index[p.Platform] = i
			out = append(out, PlatformSeries{Platform: p.Platform})
		}
		out[i].Labels = append(out[i].Labels, p.Date.Format("2006-01"))
		out[i].Values = append(out[i].Values, metric.value(p))
	}
	return out
}

// CumulativeRevenue accumulates monthly revenue (millions) per platform.
func CumulativeRevenue(history []MarketHistoryPoint) []PlatformSeries {
	series := SeriesByPlatform(history, MetricRevenue)
	for i := range series {
		sum, err := stats.CumulativeSum(series[i].Values)
		if err != nil {
			continue
		}
		series[i].Values = sum
	}
	return series
}

// MonthlyGrowth converts revenue into month-over-month percent change. The
// first month and months following a zero revenue report 0.
func MonthlyGrowth(history []MarketHistoryPoint) []PlatformSeries {
	series := SeriesByPlatform(history, MetricRevenue)
	for i := range series {
		growth := make([]float64, len(series[i].Values))
		for j := 1; j < len(series[i].Values); j++ {
			prev := series[i].Values[j-1]
			if prev == 0 {
				continue
			}
			growth[j] = (series[i].Values[j] - prev) / prev * 100
		}
		series[i].Values = growth
	}
	return series
}

// Seasonality averages revenue (millions) per calendar month and platform.
func Seasonality(history []MarketHistoryPoint) []PlatformSeries {
	labels := make([]string, 12)
	for m := 0; m < 12; m++ {
		labels[m] = time.Month(m + 1).String()[:3]
	}
	index := make(map[string]int)
	var buckets [][12]stats.Float64Data
	var out []PlatformSeries
	for _, p := range history {
		i, ok := index[p.Platform]
		if !ok {
			i = len(out)
			index[p.Platform] = i
			out = append(out, PlatformSeries{Platform: p.Platform, Labels: labels})
			buckets = append(buckets, [12]stats.Float64Data{})
		}
		m := int(p.Date.Month()) - 1
		buckets[i][m] = append(buckets[i][m], p.RevenueMillions)
	}
	for i := range out {
		out[i].Values = make([]float64, 12)
		for m := 0; m < 12; m++ {
			if mean, err := stats.Mean(buckets[i][m]); err == nil {
				out[i].Values[m] = mean
			}
		}
	}
	return out
}

func earningsData(panel []CreatorRecord) stats.Float64Data {
	data := make(stats.Float64Data, 0, len(panel))
	for _, c := range panel {
		data = append(data, c.MonthlyEarnings)
	}
	return data
}

func meanEarnings(panel []CreatorRecord) float64 {
	mean, err := stats.Mean(earningsData(panel))
	if err != nil {
		return 0
	}
	return mean
}
