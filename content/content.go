// Package content holds the portfolio's authored text: the hero, the
// ordered list of sections and their Content Blocks.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aryashah/portfolio/markup"
)

//go:embed site.yaml
var defaultSite []byte

type Owner struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type Hero struct {
	Greeting string `yaml:"greeting"`
	Headline string `yaml:"headline"`
	Tagline  string `yaml:"tagline"`
	Avatar   string `yaml:"avatar"`
}

type GitHub struct {
	Repo  string `yaml:"repo"`
	Label string `yaml:"label"`
}

// URL returns the repository page for the star button.
func (g GitHub) URL() string {
	if g.Repo == "" {
		return ""
	}
	return "https://github.com/" + g.Repo
}

type Footer struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Resume   string `yaml:"resume"`
}

// Direction is the side a section slides in from.
type Direction string

const (
	Left   Direction = "left"
	Right  Direction = "right"
	Top    Direction = "top"
	Bottom Direction = "bottom"
)

func (d Direction) valid() bool {
	switch d {
	case Left, Right, Top, Bottom:
		return true
	}
	return false
}

// Section is one scrollable block of the page. Content is a Content Block
// written in the markup dialect.
type Section struct {
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title"`
	Icon      string    `yaml:"icon"`
	Gradient  string    `yaml:"gradient"`
	Direction Direction `yaml:"direction"`
	Content   string    `yaml:"content"`
}

// Paragraphs renders the section body paragraph by paragraph.
func (s Section) Paragraphs(r *markup.Renderer) []markup.Fragment {
	return r.RenderBlock(s.Content)
}

// Site is the whole authored portfolio. It is not modified after loading.
type Site struct {
	Owner    Owner     `yaml:"owner"`
	Hero     Hero      `yaml:"hero"`
	GitHub   GitHub    `yaml:"github"`
	Footer   Footer    `yaml:"footer"`
	Emoji    []string  `yaml:"emoji"`
	Sections []Section `yaml:"sections"`
}

// Section looks a section up by id.
func (s *Site) Section(id string) (Section, bool) {
	for _, sec := range s.Sections {
		if sec.ID == id {
			return sec, true
		}
	}
	return Section{}, false
}

// Validate reports every problem found, joined.
func (s *Site) Validate() error {
	var errs []error
	if strings.TrimSpace(s.Owner.Name) == "" {
		errs = append(errs, errors.New("owner.name is required"))
	}
	if len(s.Sections) == 0 {
		errs = append(errs, errors.New("at least one section is required"))
	}
	seen := make(map[string]bool, len(s.Sections))
	for i, sec := range s.Sections {
		switch {
		case strings.TrimSpace(sec.ID) == "":
			errs = append(errs, fmt.Errorf("section %d: id is required", i))
		case seen[sec.ID]:
			errs = append(errs, fmt.Errorf("section %d: duplicate id %q", i, sec.ID))
		}
		seen[sec.ID] = true
		if strings.TrimSpace(sec.Title) == "" {
			errs = append(errs, fmt.Errorf("section %q: title is required", sec.ID))
		}
		if !sec.Direction.valid() {
			errs = append(errs, fmt.Errorf("section %q: unknown direction %q", sec.ID, sec.Direction))
		}
	}
	return errors.Join(errs...)
}

// ParseSite decodes and validates a site document.
func ParseSite(data []byte) (*Site, error) {
	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("decode site: %w", err)
	}
	for i := range site.Sections {
		if site.Sections[i].Direction == "" {
			site.Sections[i].Direction = Left
		}
	}
	if err := site.Validate(); err != nil {
		return nil, fmt.Errorf("invalid site: %w", err)
	}
	return &site, nil
}

// LoadSite reads the site from path, or the built-in site when path is
// empty.
func LoadSite(path string) (*Site, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site: %w", err)
	}
	return ParseSite(data)
}

// Default returns the built-in site.
func Default() (*Site, error) {
	return ParseSite(defaultSite)
}
