package ui

import (
	"embed"
	"io/fs"
)

// Dist embeds the public status page, the admin page and their static assets.
//
//go:embed all:dist
var Dist embed.FS

// Pages returns the embedded files rooted at dist/, so index.html is at the
// top level and scripts are under static/.
func Pages() (fs.FS, error) {
	return fs.Sub(Dist, "dist")
}
