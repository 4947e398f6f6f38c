package transport

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"geekshelf/internal/domain"
	"geekshelf/internal/forms"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"home.html",
	"product_list.html",
	"product_detail.html",
	"product_new.html",
	"product_edit.html",
}

// View renders the embedded HTML pages. Templates are parsed once at
// construction; a parse failure is a startup error, not a request error.
type View struct {
	pages  map[string]*template.Template
	logger *zap.Logger
}

// NewView parses all embedded page templates.
func NewView(logger *zap.Logger) (*View, error) {
	funcs := template.FuncMap{
		"b64": func(b []byte) string {
			return base64.StdEncoding.EncodeToString(b)
		},
		"date": func(t time.Time) string {
			return t.Format(forms.DateLayout)
		},
		"categoryName": func(categories []*domain.Category, id int64) string {
			for _, c := range categories {
				if c.ID == id {
					return c.Name
				}
			}
			return fmt.Sprintf("#%d", id)
		},
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tpl
	}

	return &View{pages: pages, logger: logger}, nil
}

// pageData is the payload every page template receives.
type pageData struct {
	Flash      string
	Products   []*domain.Product
	Product    *domain.Product
	Categories []*domain.Category
	Form       *forms.ProductForm
}

// Render executes a page into a buffer first so a template error can still
// produce a clean 500 instead of a half-written body.
func (v *View) Render(w http.ResponseWriter, name string, data pageData) {
	tpl, ok := v.pages[name]
	if !ok {
		v.logger.Error("Unknown template requested", zap.String("template", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		v.logger.Error("Failed to render template", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}
