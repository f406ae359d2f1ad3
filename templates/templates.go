// Package templates renders the HTML pages. Every page is parsed together with
// base.html and the includes, and is executed through the "base" template.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin/render"

	"github.com/cppla/yatube/utils"
)

//go:embed html
var files embed.FS

const (
	baseFile     = "html/base.html"
	includesGlob = "html/includes/*.html"
)

var htmlContentType = []string{"text/html; charset=utf-8"}

// Renderer holds one parsed template set per page and implements gin's render.HTMLRender.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page under html/.
func New() (*Renderer, error) {
	r := &Renderer{pages: map[string]*template.Template{}}
	err := fs.WalkDir(files, "html", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") || path == baseFile || strings.HasPrefix(path, "html/includes/") {
			return nil
		}
		name := strings.TrimPrefix(path, "html/")
		t, err := template.New(name).Funcs(Funcs()).ParseFS(files, baseFile, includesGlob, path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// MustNew is New for process boot.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Has reports whether a page named name exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// Instance implements render.HTMLRender.
func (r *Renderer) Instance(name string, data any) render.Render {
	return &pageRender{tmpl: r.pages[name], name: name, entry: "base", data: data}
}

// Fragment executes the named block of a page on its own.
func (r *Renderer) Fragment(page, block string, data any) ([]byte, error) {
	t, ok := r.pages[page]
	if !ok {
		return nil, fmt.Errorf("template %q not found", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type pageRender struct {
	tmpl  *template.Template
	name  string
	entry string
	data  any
}

// Render buffers the whole page so a template error never leaves a half-written body.
func (p *pageRender) Render(w http.ResponseWriter) error {
	p.WriteContentType(w)
	if p.tmpl == nil {
		return fmt.Errorf("template %q not found", p.name)
	}
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, p.entry, p.data); err != nil {
		return fmt.Errorf("render %s: %w", p.name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (p *pageRender) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = htmlContentType
	}
}

var months = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// Funcs are the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"linebreaks":    utils.Linebreaks,
		"truncatewords": func(n int, s string) string { return utils.Truncatewords(s, n) },
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return fmt.Sprintf("%d %s %d", t.Day(), months[t.Month()-1], t.Year())
		},
		"datetime": func(t time.Time) string { return t.Format("02.01.2006 15:04") },
		"pageURL": func(n int) string {
			return "?" + url.Values{"page": {strconv.Itoa(n)}}.Encode()
		},
		"deref": func(id *uint) uint {
			if id == nil {
				return 0
			}
			return *id
		},
		"inc": func(n int) int { return n + 1 },
	}
}
