package admin

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
)

//go:embed templates
var embeddedTemplates embed.FS

const viewExtension = ".html"

// Views is a single template set: the built-in templates overlaid with the
// pages of each template folder, earlier folders winning. Overrides share
// the set, so a folder only needs the pages it overrides and those pages
// can still call the built-in partials.
type Views struct {
	folders []string
	logger  *slog.Logger
	engine  *html.Engine
}

var _ fiber.Views = (*Views)(nil)

// NewViews loads the built-in templates, then the folders. Folders that
// do not exist are skipped with a warning.
func NewViews(folders []string, logger *slog.Logger) (*Views, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Views{folders: folders, logger: logger}
	if err := v.Load(); err != nil {
		return nil, err
	}
	return v, nil
}

// Load parses the template set from scratch.
func (v *Views) Load() error {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return fmt.Errorf("admin: built-in templates: %w", err)
	}
	engine := html.NewFileSystem(http.FS(sub), viewExtension)
	if err := engine.Load(); err != nil {
		return fmt.Errorf("admin: load built-in templates: %w", err)
	}

	// The last folder goes on first so earlier folders replace its pages.
	for i := len(v.folders) - 1; i >= 0; i-- {
		dir := v.folders[i]
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			v.logger.Warn("template folder not found, skipping", slog.String("dir", dir))
			continue
		}
		if err := overlay(engine, dir); err != nil {
			return err
		}
	}

	v.engine = engine
	return nil
}

// overlay parses every page under dir into the engine's set, named like the
// engine names its own pages: the slash path relative to dir without the
// extension.
func overlay(engine *html.Engine, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != viewExtension {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.ToSlash(rel), viewExtension)

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("admin: read template %s: %w", path, err)
		}
		if _, err := engine.Templates.New(name).Parse(string(data)); err != nil {
			return fmt.Errorf("admin: parse template %s: %w", path, err)
		}
		return nil
	})
}

// Exists reports whether the set defines name.
func (v *Views) Exists(name string) bool {
	return v.engine != nil && v.engine.Templates != nil && v.engine.Templates.Lookup(name) != nil
}

// Render executes name.
func (v *Views) Render(out io.Writer, name string, binding interface{}, layout ...string) error {
	if !v.Exists(name) {
		return fmt.Errorf("admin: template %q not found", name)
	}
	return v.engine.Render(out, name, binding, layout...)
}
