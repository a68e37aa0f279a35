package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// ErrNoEndpoint is returned when no Gotenberg URL is configured.
var ErrNoEndpoint = errors.New("export: gotenberg endpoint required")

const convertHTMLPath = "/forms/chromium/convert/html"

// PDFExporter converts the dashboard report to PDF through Gotenberg's
// Chromium route.
type PDFExporter struct {
	Endpoint string
	Client   *http.Client
}

// RenderDashboard posts the report HTML and returns the PDF bytes.
func (p *PDFExporter) RenderDashboard(ctx context.Context, payload DashboardPayload) ([]byte, error) {
	if p == nil || strings.TrimSpace(p.Endpoint) == "" {
		return nil, ErrNoEndpoint
	}
	body, contentType, err := reportForm(BuildHTML(payload))
	if err != nil {
		return nil, fmt.Errorf("export: build form: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(p.Endpoint, "/")+convertHTMLPath, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export: gotenberg: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("export: gotenberg status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return io.ReadAll(resp.Body)
}

// reportForm packs the document as Gotenberg's index.html in landscape A4.
func reportForm(html string) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, "", err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, "", err
	}
	fields := [][2]string{
		{"landscape", "true"},
		{"paperWidth", "8.27"},
		{"paperHeight", "11.7"},
		{"printBackground", "true"},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}
