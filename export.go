package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aryashah/portfolio/content"
	"github.com/aryashah/portfolio/markup"
)

type exportOptions struct {
	OutDir string
	Base   string
	Stars  int
}

// exportSite writes a static copy of the page: index.html, one fragment
// per section under sections/, and the stylesheet under static/.
func exportSite(site *content.Site, r *markup.Renderer, tmpl *template.Template, opts exportOptions) error {
	if err := os.MkdirAll(filepath.Join(opts.OutDir, "sections"), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	star := StarButton{Repo: site.GitHub.Repo, URL: site.GitHub.URL(), Label: site.GitHub.Label, Stars: opts.Stars}
	if star.Label == "" {
		star.Label = "Star"
	}
	page := buildPage(site, r, ThemeLight, star, opts.Base)
	if err := writeTemplate(tmpl, "index.html", page, filepath.Join(opts.OutDir, "index.html")); err != nil {
		return err
	}
	for _, v := range page.Sections {
		if err := writeTemplate(tmpl, "section.html", v, filepath.Join(opts.OutDir, "sections", v.ID+".html")); err != nil {
			return err
		}
	}

	return fs.WalkDir(staticFS, "static", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		dst := filepath.Join(opts.OutDir, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		data, err := staticFS.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(dst, data, 0o644)
	})
}

func writeTemplate(tmpl *template.Template, name string, data any, path string) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
