package storefront

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// renderer holds one parsed template set per page, each combined with base.html.
type renderer struct {
	templates map[string]*template.Template
}

func newRenderer(fsys fs.FS) (*renderer, error) {
	base, err := fs.ReadFile(fsys, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("storefront: read base template: %w", err)
	}
	pages, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("storefront: list templates: %w", err)
	}

	r := &renderer{templates: make(map[string]*template.Template)}
	for _, path := range pages {
		name := strings.TrimPrefix(path, "templates/")
		if name == "base.html" {
			continue
		}
		page, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("storefront: read template %s: %w", name, err)
		}
		tmpl, err := template.New("base").Parse(string(base))
		if err != nil {
			return nil, fmt.Errorf("storefront: parse base template for %s: %w", name, err)
		}
		if tmpl, err = tmpl.Parse(string(page)); err != nil {
			return nil, fmt.Errorf("storefront: parse template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

func (r *renderer) render(w http.ResponseWriter, name string, data any) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("storefront: template %q not found", name)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		return fmt.Errorf("storefront: execute template %q: %w", name, err)
	}
	return nil
}
