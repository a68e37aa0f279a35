// Package web carries the dashboard templates and browser assets compiled
// into the server binary.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/**/*.html
var Templates embed.FS

//go:embed static/**/*
var static embed.FS

// Assets returns the static tree rooted at static/, ready to be served
// under /static/.
func Assets() (fs.FS, error) {
	return fs.Sub(static, "static")
}
