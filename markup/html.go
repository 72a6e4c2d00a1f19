package markup

import (
	"html/template"
	"strings"
)

// CSS classes attached to the generated elements.
const (
	ClassStrong   = "md-strong"
	ClassEmphasis = "md-em"
	ClassBullet   = "md-bullet"
	ClassEmoji    = "md-emoji"
)

// HTML composes the fragment into markup. Text is always escaped; the only
// elements produced are strong, em, span and br.
func (f Fragment) HTML() template.HTML {
	var b strings.Builder
	f.writeHTML(&b)
	return template.HTML(b.String())
}

func (f Fragment) writeHTML(b *strings.Builder) {
	for _, n := range f {
		switch n.Kind {
		case Strong:
			b.WriteString(`<strong class="` + ClassStrong + `">`)
			n.Children.writeHTML(b)
			b.WriteString(`</strong>`)
		case Emphasis:
			b.WriteString(`<em class="` + ClassEmphasis + `">`)
			n.Children.writeHTML(b)
			b.WriteString(`</em>`)
		case Bullet:
			b.WriteString(`<span class="` + ClassBullet + `">`)
			b.WriteString(template.HTMLEscapeString(n.Text))
			b.WriteString(`</span> `)
		case Emoji:
			b.WriteString(`<span class="` + ClassEmoji + `">`)
			b.WriteString(template.HTMLEscapeString(n.Text))
			b.WriteString(`</span>`)
		case LineBreak:
			b.WriteString(`<br>`)
		default:
			b.WriteString(template.HTMLEscapeString(n.Text))
		}
	}
}

// PlainText returns the fragment's text with every marker consumed:
// emphasis loses its asterisks, bullets keep their glyph and line breaks
// become newlines.
func (f Fragment) PlainText() string {
	var b strings.Builder
	f.writeText(&b)
	return b.String()
}

func (f Fragment) writeText(b *strings.Builder) {
	for _, n := range f {
		switch n.Kind {
		case Strong, Emphasis:
			n.Children.writeText(b)
		case Bullet:
			b.WriteString(n.Text)
			b.WriteByte(' ')
		case LineBreak:
			b.WriteByte('\n')
		default:
			b.WriteString(n.Text)
		}
	}
}

// HTMLBlock renders each fragment with HTML.
func HTMLBlock(frags []Fragment) []template.HTML {
	out := make([]template.HTML, len(frags))
	for i, f := range frags {
		out[i] = f.HTML()
	}
	return out
}
