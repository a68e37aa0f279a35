package live

import (
	"time"

	"github.com/fanmetrics/fanmetrics/internal/market"
)

const snapshotTopEarners = 5

// Snapshot is the payload pushed to a session's sockets after each tick.
type Snapshot struct {
	SessionID      string                 `json:"session_id"`
	Ticks          uint64                 `json:"ticks"`
	RefreshedAt    time.Time              `json:"refreshed_at"`
	Creators       int                    `json:"creators"`
	AvgEarnings    float64                `json:"avg_earnings"`
	TotalFollowers int                    `json:"total_followers"`
	AvgEngagement  float64                `json:"avg_engagement"`
	TopEarners     []market.CreatorRecord `json:"top_earners"`
}

// BuildSnapshot summarises the session panel under its current filters.
func BuildSnapshot(sess *market.Session) Snapshot {
	creators := market.FilterCreators(sess.Creators(), sess.Filters())
	snap := Snapshot{
		SessionID:   sess.ID(),
		Ticks:       sess.Ticks(),
		RefreshedAt: sess.RefreshedAt(),
		Creators:    len(creators),
		TopEarners:  market.TopEarners(creators, snapshotTopEarners),
	}
	if len(creators) == 0 {
		return snap
	}
	var earnings, engagement float64
	for _, c := range creators {
		earnings += c.MonthlyEarnings
		engagement += c.EngagementRate
		snap.TotalFollowers += c.Followers
	}
	snap.AvgEarnings = earnings / float64(len(creators))
	snap.AvgEngagement = engagement / float64(len(creators))
	return snap
}
