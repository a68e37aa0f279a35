package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fanmetrics/fanmetrics/internal/market"
	"github.com/fanmetrics/fanmetrics/internal/market/ui"
)

func TestWriteCreatorsCSV(t *testing.T) {
	creators := []market.CreatorRecord{
		{ID: 1, Username: "creator_1", Platform: "MyM", Category: "Art", Country: "UK", MonthlyEarnings: 123.5, Followers: 4000, SubscriptionPrice: 9, EngagementRate: 4.2, ContentQuality: 3.9, ActiveSince: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	buf := &bytes.Buffer{}
	if err := WriteCreatorsCSV(buf, creators); err != nil {
		t.Fatalf("creators csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header and one row, got %d", len(records))
	}
	want := []string{"id", "username", "platform", "category", "country", "monthly_earnings", "followers", "subscription_price", "engagement_rate", "content_quality", "active_since"}
	if strings.Join(records[0], ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected header %v", records[0])
	}
	if records[1][1] != "creator_1" || records[1][2] != "MyM" {
		t.Fatalf("unexpected row %v", records[1])
	}
	if !strings.HasPrefix(records[1][10], "2024-01-02") {
		t.Fatalf("unexpected date %q", records[1][10])
	}
}

func TestWriteHistoryAndPlatformsCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	points := []market.MarketHistoryPoint{{Date: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Platform: "Fansly", RevenueMillions: 1.5, MarketShare: 100}}
	if err := WriteHistoryCSV(buf, points); err != nil {
		t.Fatalf("history csv error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "date,platform,monthly_users,creators_count,revenue,revenue_millions,market_share") {
		t.Fatalf("unexpected history header %q", buf.String())
	}

	buf.Reset()
	rows := []market.PlatformRow{{Name: "Fansly", Color: "#FF4081", Founded: 2020, FeePercent: 20}}
	if err := WritePlatformsCSV(buf, rows); err != nil {
		t.Fatalf("platform csv error: %v", err)
	}
	if strings.Contains(buf.String(), "#FF4081") {
		t.Fatalf("color column should be skipped")
	}
	if !strings.Contains(buf.String(), "Fansly,2020,20") {
		t.Fatalf("unexpected platform row %q", buf.String())
	}
}

func TestPDFExporterRender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/chromium/convert/html" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("unexpected parse error: %v", err)
		}
		if _, _, err := r.FormFile("files"); err != nil {
			t.Errorf("missing html file: %v", err)
		}
		if r.FormValue("landscape") != "true" {
			t.Errorf("expected landscape output")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("PDF"))
	}))
	defer srv.Close()

	exporter := &PDFExporter{Endpoint: srv.URL}
	data, err := exporter.RenderDashboard(context.Background(), DashboardPayload{GeneratedAt: time.Now()})
	if err != nil {
		t.Fatalf("pdf render error: %v", err)
	}
	if string(data) != "PDF" {
		t.Fatalf("unexpected payload %q", string(data))
	}
}

func TestPDFExporterPropagatesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := (&PDFExporter{Endpoint: srv.URL}).RenderDashboard(context.Background(), DashboardPayload{})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected gotenberg error, got %v", err)
	}
	if _, err := (&PDFExporter{}).RenderDashboard(context.Background(), DashboardPayload{}); !errors.Is(err, ErrNoEndpoint) {
		t.Fatalf("expected endpoint error, got %v", err)
	}
}

func TestBuildHTMLEscapesAndEmbedsCharts(t *testing.T) {
	html := BuildHTML(DashboardPayload{
		Platforms: []ui.PlatformRow{{Name: "<b>"}},
		Sections:  []ui.Section{{Title: "Trends", Charts: []ui.Chart{{Title: "Growth", SVG: "<svg></svg>"}}}},
	})
	if strings.Contains(html, "<b>") {
		t.Fatalf("expected escaped platform name")
	}
	if !strings.Contains(html, "<svg></svg>") {
		t.Fatalf("expected embedded chart")
	}
	if !strings.Contains(html, "&lt;b&gt;") {
		t.Fatalf("expected escaped name in output")
	}
}

func TestBuildHTMLFormatsFigures(t *testing.T) {
	html := BuildHTML(DashboardPayload{
		GeneratedAt: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		KPIs:        []ui.KPICard{{Label: "Total creators", Value: 5200000}},
		TopEarners:  []ui.CreatorRow{{Username: "creator_9", Platform: "Fansly", MonthlyEarnings: 12345.5, Followers: 20000}},
	})
	for _, want := range []string{"15 Jun 2024 12:00 UTC", "5.2M", "$12,345.50", "20,000"} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in report", want)
		}
	}
	if strings.Contains(html, "<h2>Platforms</h2>") {
		t.Fatalf("empty platform table should be omitted")
	}
}
