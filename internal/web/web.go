// Package web holds the upload form served at GET /.
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.ParseFS(files, "templates/*.html"))
}
