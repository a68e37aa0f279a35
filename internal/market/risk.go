package market

// RiskScore is a platform's exposure to one risk type, in [0, 1].
type RiskScore struct {
	Platform string  `json:"platform"`
	RiskType string  `json:"risk_type"`
	Score    float64 `json:"score"`
}

// RegulationFactor is a fixed impact weight of one regulatory area.
type RegulationFactor struct {
	Name   string  `json:"name"`
	Impact float64 `json:"impact"`
}

var riskRanges = []struct {
	name   string
	lo, hi float64
}{
	{"Regulatory", 0.3, 0.9},
	{"Competitive", 0.2, 0.8},
	{"Technological", 0.1, 0.6},
	{"Reputation", 0.4, 0.9},
	{"Creator dependency", 0.3, 0.8},
}

// RiskScores draws one score per (platform, risk type).
func RiskScores(catalog *Catalog, rng Rand) []RiskScore {
	out := make([]RiskScore, 0, catalog.Len()*len(riskRanges))
	for _, name := range catalog.Names() {
		for _, r := range riskRanges {
			out = append(out, RiskScore{Platform: name, RiskType: r.name, Score: uniform(rng, r.lo, r.hi)})
		}
	}
	return out
}

// RegulationFactors returns the static regulatory impact table.
func RegulationFactors() []RegulationFactor {
	return []RegulationFactor{
		{Name: "Legal compliance", Impact: 0.85},
		{Name: "Payments & banking", Impact: 0.78},
		{Name: "Data protection", Impact: 0.72},
		{Name: "Illegal content", Impact: 0.91},
		{Name: "Taxation", Impact: 0.65},
		{Name: "Copyright", Impact: 0.58},
	}
}
