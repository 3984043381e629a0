// Package report renders human-readable breakdowns of match results: the
// units each name produced, their phonetic codes, the accepted pairs and the
// final verdict. Used by the report endpoint and the demo mode.
package report

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"phonetic-name-match/internal/models"
	errs "phonetic-name-match/pkg/errors"
)

// Manager loads, compiles and renders report templates.
// Templates are compiled once at startup.
type Manager struct {
	mu   sync.RWMutex
	tpls map[string]*template.Template
}

// NewManager parses all embedded templates.
func NewManager() (*Manager, error) {
	m := &Manager{tpls: make(map[string]*template.Template)}

	// Walk embedded FS and parse .tmpl files
	err := fs.WalkDir(FS(), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(p, ".txt.tmpl") {
			return nil
		}
		b, rerr := fs.ReadFile(FS(), p)
		if rerr != nil {
			return fmt.Errorf("read template %s: %w", p, rerr)
		}
		name := strings.TrimSuffix(filepath.Base(p), ".txt.tmpl")
		tpl, perr := template.New(name).Parse(string(b))
		if perr != nil {
			return fmt.Errorf("parse template %s: %w", p, perr)
		}
		m.tpls[name] = tpl
		return nil
	})
	if err != nil {
		return nil, errs.NewConfig("report.NewManager", "failed to load report templates", err)
	}
	return m, nil
}

// Render executes a named template with data and returns the result string.
func (m *Manager) Render(name string, data any) (string, error) {
	m.mu.RLock()
	tpl, ok := m.tpls[name]
	m.mu.RUnlock()
	if !ok {
		return "", errs.NewInput("report.Render", fmt.Sprintf("report template not found: %s", name), nil)
	}
	var sb strings.Builder
	if err := tpl.Execute(&sb, data); err != nil {
		return "", errs.NewBiz("report.Render", fmt.Sprintf("execute template %s", name), err)
	}
	return sb.String(), nil
}

// reportData decorates a match result with the units the solver left out,
// so the trace shows why a score fell short.
type reportData struct {
	models.MatchResult
	UnpairedTargets    []models.EncodedUnit
	UnpairedReferences []models.EncodedUnit
}

// Report renders the full pair-by-pair breakdown for a match result.
func (m *Manager) Report(result models.MatchResult) (string, error) {
	data := reportData{MatchResult: result}

	matchedT := make(map[int]bool, len(result.Assignment.Pairs))
	matchedR := make(map[int]bool, len(result.Assignment.Pairs))
	for _, p := range result.Assignment.Pairs {
		matchedT[p.Target.Unit.Ordinal] = true
		matchedR[p.Reference.Unit.Ordinal] = true
	}
	for _, u := range result.TargetUnits {
		if !matchedT[u.Unit.Ordinal] {
			data.UnpairedTargets = append(data.UnpairedTargets, u)
		}
	}
	for _, u := range result.ReferenceUnits {
		if !matchedR[u.Unit.Ordinal] {
			data.UnpairedReferences = append(data.UnpairedReferences, u)
		}
	}

	return m.Render("match_report", data)
}
