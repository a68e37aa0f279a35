package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/fanmetrics/fanmetrics/internal/market"
	"github.com/fanmetrics/fanmetrics/internal/view"
)

// snapshotSession is the session id the CLI renders its panel under.
const snapshotSession = "cli"

// DashboardSource produces dashboards; *market.Service satisfies it.
type DashboardSource interface {
	Catalog() *market.Catalog
	Dashboard(ctx context.Context, sessionID string, filters market.Filters, now time.Time) (market.Dashboard, error)
}

// MarketCLI prints dashboard snapshots to a terminal.
type MarketCLI struct {
	source DashboardSource
}

// NewMarketCLI constructs the snapshot helper.
func NewMarketCLI(source DashboardSource) (*MarketCLI, error) {
	if source == nil {
		return nil, errors.New("market cli: dashboard source required")
	}
	return &MarketCLI{source: source}, nil
}

// SnapshotOptions configure the snapshot command.
type SnapshotOptions struct {
	Platforms  []string
	Top        int
	At         time.Time
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// SnapshotSummary is the machine-readable snapshot output.
type SnapshotSummary struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Overview    market.Overview        `json:"overview"`
	Platforms   []market.PlatformRow   `json:"platforms"`
	TopEarners  []market.CreatorRecord `json:"top_earners"`
	Risks       []market.RiskScore     `json:"risks"`
}

// SnapshotCommand renders the market overview, the platform table and the
// top earners of one generated panel. It returns the process exit code.
func (c *MarketCLI) SnapshotCommand(ctx context.Context, opts SnapshotOptions) int {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	if c == nil || c.source == nil {
		fmt.Fprintln(stderr, "snapshot: dashboard source not configured")
		return 1
	}
	catalog := c.source.Catalog()
	for _, name := range opts.Platforms {
		if !catalog.Has(name) {
			fmt.Fprintf(stderr, "snapshot: unknown platform %q\n", name)
			return 2
		}
	}
	at := opts.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	filters := market.Filters{Platforms: opts.Platforms}
	dash, err := c.source.Dashboard(ctx, snapshotSession, filters, at)
	if err != nil {
		fmt.Fprintf(stderr, "snapshot: %v\n", err)
		return 1
	}

	top := dash.TopEarners
	if opts.Top > 0 && opts.Top < len(top) {
		top = top[:opts.Top]
	}
	summary := SnapshotSummary{
		GeneratedAt: at,
		Overview:    dash.Overview,
		Platforms:   dash.PlatformTable,
		TopEarners:  top,
		Risks:       dash.Risks,
	}

	if opts.JSONOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fmt.Fprintf(stderr, "snapshot: encode: %v\n", err)
			return 1
		}
		return 0
	}
	writeSnapshot(stdout, summary)
	return 0
}

func writeSnapshot(w io.Writer, s SnapshotSummary) {
	fmt.Fprintf(w, "Market snapshot %s\n", s.GeneratedAt.Format("2006-01-02"))
	fmt.Fprintf(w, "Revenue $%sM  Creators %s  Users %s  Avg earnings %s\n\n",
		strconv.FormatFloat(s.Overview.TotalRevenueMillions, 'f', 1, 64),
		view.FormatCompact(s.Overview.TotalCreators),
		view.FormatCompact(s.Overview.TotalUsers),
		view.FormatMoney(s.Overview.AvgCreatorEarnings),
	)

	platforms := tablewriter.NewWriter(w)
	platforms.SetHeader([]string{"Platform", "Fee %", "Users", "Creators", "Revenue (M)", "Share %", "Avg earnings"})
	platforms.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, row := range s.Platforms {
		platforms.Append([]string{
			row.Name,
			strconv.FormatFloat(row.FeePercent, 'f', 0, 64),
			view.FormatCompact(row.MonthlyUsers),
			view.FormatCompact(row.CreatorsCount),
			strconv.FormatFloat(row.RevenueMillions, 'f', 1, 64),
			strconv.FormatFloat(row.MarketShare, 'f', 1, 64),
			view.FormatMoney(row.AvgCreatorEarnings),
		})
	}
	platforms.Render()
	fmt.Fprintln(w)

	earners := tablewriter.NewWriter(w)
	earners.SetHeader([]string{"#", "Creator", "Platform", "Category", "Country", "Monthly", "Followers"})
	earners.SetAlignment(tablewriter.ALIGN_RIGHT)
	for i, c := range s.TopEarners {
		earners.Append([]string{
			strconv.Itoa(i + 1),
			c.Username,
			c.Platform,
			c.Category,
			c.Country,
			view.FormatMoney(c.MonthlyEarnings),
			view.FormatNumber(c.Followers),
		})
	}
	earners.Render()

	if len(s.Risks) == 0 {
		return
	}
	fmt.Fprintln(w)
	risks := tablewriter.NewWriter(w)
	risks.SetHeader([]string{"Platform", "Risk", "Score"})
	for _, r := range s.Risks {
		risks.Append([]string{r.Platform, r.RiskType, strconv.FormatFloat(r.Score, 'f', 1, 64)})
	}
	risks.Render()
}
