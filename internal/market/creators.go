package market

import (
	"fmt"
	"time"
)

// DefaultPanelSize is the number of creators in a fresh panel.
const DefaultPanelSize = 100

// Content categories with dedicated earnings multipliers.
const (
	CategoryAdult   = "Adult"
	CategoryFitness = "Fitness"
)

// DefaultCategories lists the content categories creators are drawn from.
var DefaultCategories = []string{"Fitness", "Cosplay", "Lifestyle", "Adult", "Gaming", "Art", "Music", "Education"}

// DefaultCountries lists the countries creators are drawn from.
var DefaultCountries = []string{"USA", "UK", "Canada", "Australia", "Germany", "France", "Brazil", "Japan"}

// CreatorRecord is one simulated creator account.
type CreatorRecord struct {
	ID                int       `json:"id" csv:"id"`
	Username          string    `json:"username" csv:"username"`
	Platform          string    `json:"platform" csv:"platform"`
	Category          string    `json:"category" csv:"category"`
	Country           string    `json:"country" csv:"country"`
	MonthlyEarnings   float64   `json:"monthly_earnings" csv:"monthly_earnings"`
	Followers         int       `json:"followers" csv:"followers"`
	SubscriptionPrice int       `json:"subscription_price" csv:"subscription_price"`
	EngagementRate    float64   `json:"engagement_rate" csv:"engagement_rate"`
	ContentQuality    float64   `json:"content_quality" csv:"content_quality"`
	ActiveSince       time.Time `json:"active_since" csv:"active_since"`
}

// CreatorConfig parameterises panel generation.
type CreatorConfig struct {
	Size       int      `validate:"gt=0"`
	Categories []string `validate:"min=1,dive,required"`
	Countries  []string `validate:"min=1,dive,required"`
}

// DefaultCreatorConfig returns the standard 100-creator configuration.
func DefaultCreatorConfig() CreatorConfig {
	return CreatorConfig{
		Size:       DefaultPanelSize,
		Categories: append([]string(nil), DefaultCategories...),
		Countries:  append([]string(nil), DefaultCountries...),
	}
}

// CreatorGenerator produces synthetic creator panels.
type CreatorGenerator struct {
	catalog *Catalog
	cfg     CreatorConfig
}

// NewCreatorGenerator validates cfg against the catalog.
func NewCreatorGenerator(catalog *Catalog, cfg CreatorConfig) (*CreatorGenerator, error) {
	if catalog.Len() == 0 {
		return nil, invalidf("creator generator requires a non-empty catalog")
	}
	if err := validateStruct(cfg); err != nil {
		return nil, err
	}
	cfg.Categories = append([]string(nil), cfg.Categories...)
	cfg.Countries = append([]string(nil), cfg.Countries...)
	return &CreatorGenerator{catalog: catalog, cfg: cfg}, nil
}

// Size returns the configured panel size.
func (g *CreatorGenerator) Size() int {
	return g.cfg.Size
}

// Categories returns the configured category set.
func (g *CreatorGenerator) Categories() []string {
	return append([]string(nil), g.cfg.Categories...)
}

// Generate draws a full panel; ids run from 1 to Size.
func (g *CreatorGenerator) Generate(rng Rand, now time.Time) []CreatorRecord {
	names := g.catalog.Names()
	panel := make([]CreatorRecord, 0, g.cfg.Size)
	for i := 1; i <= g.cfg.Size; i++ {
		platformName := choice(rng, names)
		platform, _ := g.catalog.Lookup(platformName)
		category := choice(rng, g.cfg.Categories)
		country := choice(rng, g.cfg.Countries)

		earnings := platform.AvgCreatorEarnings * earningsMultiplier(rng, category)
		followers := uniformInt(rng, 1000, 500000)
		price := uniformInt(rng, 5, 50)
		engagement := uniform(rng, 2, 15)
		quality := uniform(rng, 3, 5)
		days := uniformInt(rng, 30, 1000)

		panel = append(panel, CreatorRecord{
			ID:                i,
			Username:          fmt.Sprintf("creator_%d", i),
			Platform:          platformName,
			Category:          category,
			Country:           country,
			MonthlyEarnings:   earnings,
			Followers:         followers,
			SubscriptionPrice: price,
			EngagementRate:    engagement,
			ContentQuality:    quality,
			ActiveSince:       now.Add(-time.Duration(days) * 24 * time.Hour),
		})
	}
	return panel
}

func earningsMultiplier(rng Rand, category string) float64 {
	switch category {
	case CategoryAdult:
		return uniform(rng, 1.5, 4.0)
	case CategoryFitness:
		return uniform(rng, 1.2, 2.5)
	default:
		return uniform(rng, 0.8, 2.0)
	}
}
