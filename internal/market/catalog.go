package market

import "strings"

// Platform describes the business parameters of one subscription service.
type Platform struct {
	Name               string  `json:"name" yaml:"name"`
	Color              string  `json:"color" yaml:"color"`
	Founded            int     `json:"founded" yaml:"founded"`
	FeePercent         float64 `json:"fee_percent" yaml:"fee_percent"`
	ContentType        string  `json:"content_type" yaml:"content_type"`
	MonthlyUsers       float64 `json:"monthly_users" yaml:"monthly_users"`
	CreatorsCount      float64 `json:"creators_count" yaml:"creators_count"`
	AvgCreatorEarnings float64 `json:"avg_creator_earnings" yaml:"avg_creator_earnings"`
}

// FeeFraction converts the fee percentage into a multiplier (20 => 0.20).
func (p Platform) FeeFraction() float64 {
	return p.FeePercent / 100
}

// Catalog is an immutable, ordered set of platforms keyed by name.
type Catalog struct {
	order []string
	byKey map[string]Platform
}

// DefaultCatalog returns the compiled-in platform table.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultPlatforms()...)
	if err != nil {
		panic(err)
	}
	return c
}

func defaultPlatforms() []Platform {
	return []Platform{
		{Name: "OnlyFans", Color: "#00A2FF", Founded: 2016, FeePercent: 20, ContentType: "Mixed", MonthlyUsers: 250_000_000, CreatorsCount: 3_000_000, AvgCreatorEarnings: 180},
		{Name: "MyM", Color: "#FF6B35", Founded: 2018, FeePercent: 20, ContentType: "Adult", MonthlyUsers: 50_000_000, CreatorsCount: 500_000, AvgCreatorEarnings: 220},
		{Name: "Fansly", Color: "#FF4081", Founded: 2020, FeePercent: 20, ContentType: "Adult", MonthlyUsers: 100_000_000, CreatorsCount: 800_000, AvgCreatorEarnings: 190},
		{Name: "Patreon", Color: "#FF9500", Founded: 2013, FeePercent: 5, ContentType: "Mixed", MonthlyUsers: 80_000_000, CreatorsCount: 250_000, AvgCreatorEarnings: 150},
		{Name: "JustForFans", Color: "#4CAF50", Founded: 2019, FeePercent: 20, ContentType: "Adult", MonthlyUsers: 30_000_000, CreatorsCount: 200_000, AvgCreatorEarnings: 280},
		{Name: "LoyalFans", Color: "#9C27B0", Founded: 2020, FeePercent: 15, ContentType: "Adult", MonthlyUsers: 40_000_000, CreatorsCount: 300_000, AvgCreatorEarnings: 210},
	}
}

// NewCatalog builds a catalog preserving the given order.
func NewCatalog(platforms ...Platform) (*Catalog, error) {
	if len(platforms) == 0 {
		return nil, invalidf("catalog requires at least one platform")
	}
	c := &Catalog{
		order: make([]string, 0, len(platforms)),
		byKey: make(map[string]Platform, len(platforms)),
	}
	for _, p := range platforms {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, invalidf("platform name required")
		}
		if _, exists := c.byKey[p.Name]; exists {
			return nil, invalidf("duplicate platform %q", p.Name)
		}
		if p.FeePercent < 0 || p.FeePercent > 100 {
			return nil, invalidf("platform %q fee %.2f outside [0,100]", p.Name, p.FeePercent)
		}
		if p.MonthlyUsers < 0 || p.CreatorsCount < 0 || p.AvgCreatorEarnings < 0 {
			return nil, invalidf("platform %q has negative base figures", p.Name)
		}
		c.order = append(c.order, p.Name)
		c.byKey[p.Name] = p
	}
	return c, nil
}

// Lookup returns a copy of the platform record for name.
func (c *Catalog) Lookup(name string) (Platform, bool) {
	if c == nil {
		return Platform{}, false
	}
	p, ok := c.byKey[name]
	return p, ok
}

// Has reports whether name is a catalog key.
func (c *Catalog) Has(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// Names lists platform names in catalog order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Platforms lists platform records in catalog order.
func (c *Catalog) Platforms() []Platform {
	if c == nil {
		return nil
	}
	out := make([]Platform, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byKey[name])
	}
	return out
}

// Len returns the number of platforms.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Colors maps platform names to their display colors.
func (c *Catalog) Colors() map[string]string {
	out := make(map[string]string, c.Len())
	for _, p := range c.Platforms() {
		out[p.Name] = p.Color
	}
	return out
}
