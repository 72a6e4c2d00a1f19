package main

import (
	"embed"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/aryashah/portfolio/content"
	"github.com/aryashah/portfolio/markup"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

func parseTemplates() (*template.Template, error) {
	return template.New("").ParseFS(templateFS, "templates/*.html")
}

// Theme is the colour scheme the page is rendered with. It travels as a
// cookie and is passed explicitly into page composition.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func parseTheme(s string) Theme {
	if Theme(s) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// SectionView is a section ready for the template, body already rendered.
type SectionView struct {
	ID         string
	Title      string
	Icon       string
	Gradient   string
	Direction  content.Direction
	Paragraphs []template.HTML
}

type StarButton struct {
	Repo  string
	URL   string
	Label string
	Stars int
}

type PageData struct {
	Title       string
	Description string
	Base        string // prefix for links to assets; "/" when served
	Theme       Theme
	Interactive bool // theme toggle and contact form need the server
	Owner       content.Owner
	Hero        content.Hero
	Footer      content.Footer
	Sections    []SectionView
	Star        StarButton
}

func newRenderer(site *content.Site, extra []string) *markup.Renderer {
	glyphs := append(append([]string(nil), site.Emoji...), extra...)
	return markup.New(markup.WithEmoji(glyphs...))
}

func sectionView(sec content.Section, r *markup.Renderer) SectionView {
	return SectionView{
		ID:         sec.ID,
		Title:      sec.Title,
		Icon:       sec.Icon,
		Gradient:   sec.Gradient,
		Direction:  sec.Direction,
		Paragraphs: markup.HTMLBlock(sec.Paragraphs(r)),
	}
}

func buildPage(site *content.Site, r *markup.Renderer, theme Theme, star StarButton, base string) PageData {
	views := make([]SectionView, 0, len(site.Sections))
	for _, sec := range site.Sections {
		views = append(views, sectionView(sec, r))
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return PageData{
		Title:       site.Owner.Name + " | Portfolio",
		Description: describe(site, r),
		Base:        base,
		Theme:       theme,
		Owner:       site.Owner,
		Hero:        site.Hero,
		Footer:      site.Footer,
		Sections:    views,
		Star:        star,
	}
}

// describe builds the meta description from the first paragraph.
func describe(site *content.Site, r *markup.Renderer) string {
	if len(site.Sections) == 0 {
		return site.Hero.Tagline
	}
	frags := site.Sections[0].Paragraphs(r)
	if len(frags) == 0 {
		return site.Hero.Tagline
	}
	return truncate(strings.TrimSpace(frags[0].PlainText()), 160)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
