package report

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.txt.tmpl
var reportFS embed.FS

// FS returns the embedded filesystem for report templates in this package.
func FS() fs.FS {
	if sub, err := fs.Sub(reportFS, "templates"); err == nil {
		return sub
	}
	return reportFS
}
