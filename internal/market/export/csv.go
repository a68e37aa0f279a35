package export

import (
	"io"

	"github.com/gocarina/gocsv"

	"github.com/fanmetrics/fanmetrics/internal/market"
)

// WriteCreatorsCSV serialises the creator panel, one row per creator.
func WriteCreatorsCSV(w io.Writer, creators []market.CreatorRecord) error {
	rows := creators
	if rows == nil {
		rows = []market.CreatorRecord{}
	}
	return gocsv.Marshal(&rows, w)
}

// WriteHistoryCSV emits the monthly market history.
func WriteHistoryCSV(w io.Writer, points []market.MarketHistoryPoint) error {
	rows := points
	if rows == nil {
		rows = []market.MarketHistoryPoint{}
	}
	return gocsv.Marshal(&rows, w)
}

// WritePlatformsCSV emits the platform comparison table.
func WritePlatformsCSV(w io.Writer, platforms []market.PlatformRow) error {
	rows := platforms
	if rows == nil {
		rows = []market.PlatformRow{}
	}
	return gocsv.Marshal(&rows, w)
}
