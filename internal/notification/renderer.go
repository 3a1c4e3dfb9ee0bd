package notification

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
	"text/template"
)

//go:embed templates/*.txt
var defaultTemplates embed.FS

// TemplateRenderer renders text/template mail bodies. Files in the override
// directory shadow the embedded defaults of the same name.
type TemplateRenderer struct {
	fsys fs.FS

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// NewTemplateRenderer returns a renderer over the embedded templates,
// optionally shadowed by overrideDir.
func NewTemplateRenderer(overrideDir string) (*TemplateRenderer, error) {
	embedded, err := fs.Sub(defaultTemplates, "templates")
	if err != nil {
		return nil, fmt.Errorf("opening embedded templates: %w", err)
	}
	layers := layeredFS{embedded}
	if overrideDir != "" {
		info, err := os.Stat(overrideDir)
		if err != nil {
			return nil, fmt.Errorf("template directory %q: %w", overrideDir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("template directory %q is not a directory", overrideDir)
		}
		layers = layeredFS{os.DirFS(overrideDir), embedded}
	}
	return NewFSRenderer(layers), nil
}

// NewFSRenderer returns a renderer that reads templates from fsys only.
func NewFSRenderer(fsys fs.FS) *TemplateRenderer {
	return &TemplateRenderer{fsys: fsys, cache: make(map[string]*template.Template)}
}

// Render executes fileName with vars. Unknown variables are an error.
func (r *TemplateRenderer) Render(_ context.Context, fileName string, vars RenderContext) (string, error) {
	tmpl, err := r.lookup(fileName)
	if err != nil {
		return "", &RenderError{File: fileName, Err: err}
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, map[string]any(vars)); err != nil {
		return "", &RenderError{File: fileName, Err: err}
	}
	return out.String(), nil
}

// Reset drops every cached template so the next Render re-reads the files.
// It returns the number of entries dropped.
func (r *TemplateRenderer) Reset() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.cache)
	r.cache = make(map[string]*template.Template)
	return n
}

func (r *TemplateRenderer) lookup(fileName string) (*template.Template, error) {
	r.mu.RLock()
	tmpl, ok := r.cache[fileName]
	r.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	if !fs.ValidPath(fileName) {
		return nil, fmt.Errorf("invalid template path")
	}
	raw, err := fs.ReadFile(r.fsys, fileName)
	if err != nil {
		return nil, err
	}
	tmpl, err = template.New(fileName).
		Funcs(templateFuncs).
		Option("missingkey=error").
		Parse(string(raw))
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[fileName] = tmpl
	r.mu.Unlock()
	return tmpl, nil
}

var templateFuncs = template.FuncMap{
	"price": formatPrice,
}

// formatPrice prints an amount in yen with thousands separators.
func formatPrice(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	b.WriteString("￥")
	if neg {
		b.WriteByte('-')
	}
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// layeredFS opens a name from the first layer that has it.
type layeredFS []fs.FS

func (l layeredFS) Open(name string) (fs.File, error) {
	for _, layer := range l {
		f, err := layer.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}
