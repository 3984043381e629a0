package admin

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
)

// adminTemplates holds the parsed templates for the editor UI.
var adminTemplates *template.Template

// basePath holds the base path for URLs in templates
var basePath = "/"

// funcMap provides template helper functions used across templates.
var funcMap = template.FuncMap{
	"fmtFloat": func(f float64) string {
		return fmt.Sprintf("%.1f", f)
	},
	"basePath": func() string {
		return basePath
	},
}

// LoadTemplates parses all editor UI templates from the provided filesystem.
// It should be called at application startup.
func LoadTemplates(fsys fs.FS) error {
	t, err := template.New("").Funcs(funcMap).ParseFS(fsys, "*.tmpl")
	if err != nil {
		return err
	}
	adminTemplates = t
	return nil
}

// SetBasePath sets the base path for URLs in templates.
func SetBasePath(path string) {
	basePath = path
}

// ExecuteTemplate renders a named template to the ResponseWriter.
func ExecuteTemplate(w http.ResponseWriter, name string, data interface{}) error {
	if adminTemplates == nil {
		return fmt.Errorf("templates not loaded: call admin.LoadTemplates at startup")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return adminTemplates.ExecuteTemplate(w, name, data)
}

// RenderUnauthorized renders the unauthorized access page
func RenderUnauthorized(w http.ResponseWriter, ip string) {
	data := struct {
		IP string
	}{
		IP: ip,
	}
	w.WriteHeader(http.StatusForbidden)
	if err := ExecuteTemplate(w, "unauthorized.tmpl", data); err != nil {
		http.Error(w, "Unauthorized", http.StatusForbidden)
	}
}
