package view

import (
	"fmt"
	"html/template"
	"math"
	"net/http"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/fanmetrics/fanmetrics/internal/shared"
	"github.com/fanmetrics/fanmetrics/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	Flash       *shared.FlashMessage
	CurrentPath string
	Data        any
}

var printer = message.NewPrinter(language.English)

// FuncMap returns the formatting helpers available to every template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"formatNumber":  FormatNumber,
		"formatMoney":   FormatMoney,
		"formatCompact": FormatCompact,
		"formatPercent": func(v float64) string {
			return printer.Sprintf("%.1f%%", v)
		},
		"withQuery": func(path, query string) string {
			if query == "" {
				return path
			}
			return path + "?" + query
		},
	}
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").Funcs(FuncMap()).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// FormatNumber groups thousands: 1234567 becomes "1,234,567".
func FormatNumber(v any) string {
	switch n := v.(type) {
	case int:
		return printer.Sprintf("%d", n)
	case int64:
		return printer.Sprintf("%d", n)
	case uint64:
		return printer.Sprintf("%d", n)
	case float64:
		return printer.Sprintf("%.0f", n)
	}
	return fmt.Sprint(v)
}

// FormatMoney renders a dollar amount with cents.
func FormatMoney(v float64) string {
	return printer.Sprintf("$%.2f", v)
}

// FormatCompact abbreviates large counts: 550000000 becomes "550.0M".
func FormatCompact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return printer.Sprintf("%.1fB", v/1e9)
	case abs >= 1e6:
		return printer.Sprintf("%.1fM", v/1e6)
	case abs >= 1e3:
		return printer.Sprintf("%.1fK", v/1e3)
	}
	return printer.Sprintf("%.0f", v)
}
