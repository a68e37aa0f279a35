package market

const (
	earningsJitterSigma = 0.1
	followerDeltaMin    = -50
	followerDeltaMax    = 100
	engagementDelta     = 0.5
	engagementMin       = 0.0
	engagementMax       = 20.0
)

// UpdateOne returns record with one tick of live jitter applied. Earnings
// and followers never go negative; engagement stays within [0, 20].
func UpdateOne(record CreatorRecord, rng Rand) CreatorRecord {
	record.MonthlyEarnings *= 1 + normal(rng, 0, earningsJitterSigma)
	if record.MonthlyEarnings < 0 {
		record.MonthlyEarnings = 0
	}
	record.Followers += uniformInt(rng, followerDeltaMin, followerDeltaMax)
	if record.Followers < 0 {
		record.Followers = 0
	}
	record.EngagementRate = clamp(record.EngagementRate+uniform(rng, -engagementDelta, engagementDelta), engagementMin, engagementMax)
	return record
}

// ApplyJitter updates a caller-owned panel in place.
func ApplyJitter(panel []CreatorRecord, rng Rand) {
	for i := range panel {
		panel[i] = UpdateOne(panel[i], rng)
	}
}
