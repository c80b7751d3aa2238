// Package web holds the server-rendered public pages.
package web

import "embed"

// Templates contains the HTML templates, parsed by name (home.html, hadiya.html).
//
//go:embed templates/*.html
var Templates embed.FS
