// Package markup renders the small inline dialect used in section bodies.
//
// A Content Block is split on blank lines into paragraphs and each paragraph
// is turned into a Fragment: a sequence of typed nodes. Strong and Emphasis
// nodes hold their content as children, so bullets, emoji and bold text can
// appear inside a span. Fragments never carry raw markup; HTML is produced by
// Fragment.HTML, which escapes every text payload and only emits a fixed set
// of tags.
//
// Substitutions are applied in a fixed order:
//
//  1. **text**  strong
//  2. *text*    emphasis, which may enclose strong spans
//  3. •         bullet marker, also inside spans
//  4. allow-listed emoji glyphs, also inside spans
//  5. line breaks inside a paragraph
//
// Markers without a closing pair are left as literal text.
package markup

import (
	"regexp"
	"sort"
	"strings"
)

// Kind identifies the role of a Node within a Fragment.
type Kind int

const (
	Text Kind = iota
	Strong
	Emphasis
	Bullet
	Emoji
	LineBreak
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Strong:
		return "strong"
	case Emphasis:
		return "emphasis"
	case Bullet:
		return "bullet"
	case Emoji:
		return "emoji"
	case LineBreak:
		return "linebreak"
	default:
		return "unknown"
	}
}

// Node is a single piece of a rendered paragraph. Strong and Emphasis nodes
// carry Children and no Text.
type Node struct {
	Kind     Kind
	Text     string
	Children Fragment
}

// Fragment is the rendered form of one paragraph.
type Fragment []Node

// BulletGlyph is the literal glyph recognised as a list bullet.
const BulletGlyph = "•"

// DefaultEmoji is the built-in allow-list of decorated emoji.
var DefaultEmoji = []string{
	"\U0001F680",                         // rocket
	"\U0001F4A1",                         // light bulb
	"\U0001F3AE",                         // video game
	"\U0001F4CA",                         // bar chart
	"\U0001F510",                         // locked with key
	"\U0001F4BB",                         // laptop
	"\U0001F31F",                         // glowing star
	"\U0001F393",                         // graduation cap
	"\u26BD",                             // soccer ball
	"\U0001F3C3\u200D\u2642\uFE0F",       // man running
	"\U0001F6B4\u200D\u2642\uFE0F",       // man biking
	"\U0001F3CA\u200D\u2642\uFE0F",       // man swimming
	"\U0001F3CB\uFE0F\u200D\u2642\uFE0F", // man lifting weights
	"\U0001F3AF",                         // direct hit
	"\U0001F4E7",                         // e-mail
	"\U0001F4CD",                         // round pushpin
	"\U0001F4BC",                         // briefcase
	"\u2728",                             // sparkles
	"\U0001F6E0\uFE0F",                   // hammer and wrench
	"\U0001F4C8",                         // chart increasing
	"\U0001F4C4",                         // page facing up
}

var strongRe = regexp.MustCompile(`\*\*(.+?)\*\*`)

// Renderer converts paragraphs to fragments. It is immutable after New and
// safe for concurrent use.
type Renderer struct {
	emoji   []string
	emojiRe *regexp.Regexp
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithEmoji adds glyphs to the emoji allow-list.
func WithEmoji(glyphs ...string) Option {
	return func(r *Renderer) {
		r.emoji = append(r.emoji, glyphs...)
	}
}

// WithoutDefaultEmoji drops the built-in allow-list.
func WithoutDefaultEmoji() Option {
	return func(r *Renderer) {
		r.emoji = nil
	}
}

// New builds a Renderer seeded with DefaultEmoji.
func New(opts ...Option) *Renderer {
	r := &Renderer{emoji: append([]string(nil), DefaultEmoji...)}
	for _, o := range opts {
		o(r)
	}
	r.emoji = normalizeGlyphs(r.emoji)
	if len(r.emoji) > 0 {
		quoted := make([]string, len(r.emoji))
		for i, g := range r.emoji {
			quoted[i] = regexp.QuoteMeta(g)
		}
		r.emojiRe = regexp.MustCompile(strings.Join(quoted, "|"))
	}
	return r
}

// normalizeGlyphs dedupes and orders glyphs longest first, so a ZWJ
// sequence wins over any shorter glyph it starts with.
func normalizeGlyphs(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, g := range in {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// Emoji returns a copy of the allow-list.
func (r *Renderer) Emoji() []string {
	return append([]string(nil), r.emoji...)
}

// Default renders with the built-in allow-list.
var Default = New()

// Render renders p with the Default renderer.
func Render(p string) Fragment { return Default.Render(p) }

// RenderBlock renders block with the Default renderer.
func RenderBlock(block string) []Fragment { return Default.RenderBlock(block) }

// Paragraphs splits a Content Block on blank lines. Order is preserved and
// an empty block has no paragraphs.
func Paragraphs(block string) []string {
	block = normalizeNewlines(block)
	if block == "" {
		return nil
	}
	return strings.Split(block, "\n\n")
}

// RenderBlock renders every paragraph of block in order.
func (r *Renderer) RenderBlock(block string) []Fragment {
	paras := Paragraphs(block)
	out := make([]Fragment, 0, len(paras))
	for _, p := range paras {
		out = append(out, r.Render(p))
	}
	return out
}

// Render converts one paragraph into a Fragment.
func (r *Renderer) Render(p string) Fragment {
	p = normalizeNewlines(p)
	if p == "" {
		return Fragment{}
	}
	f := Fragment{{Kind: Text, Text: p}}
	f = expand(f, splitStrong)
	f = splitEmphasis(f)
	f = expand(f, splitBullets)
	if r.emojiRe != nil {
		f = expand(f, emojiSplitter(r.emojiRe))
	}
	f = expand(f, splitLines)
	return f
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// expand replaces each Text node with the nodes fn produces for it,
// descending into the children of spans.
func expand(in Fragment, fn func(string) Fragment) Fragment {
	out := make(Fragment, 0, len(in))
	for _, n := range in {
		switch n.Kind {
		case Text:
			out = append(out, fn(n.Text)...)
		case Strong, Emphasis:
			n.Children = expand(n.Children, fn)
			out = append(out, n)
		default:
			out = append(out, n)
		}
	}
	return out
}

func appendText(f Fragment, s string) Fragment {
	if s == "" {
		return f
	}
	return append(f, Node{Kind: Text, Text: s})
}

func splitStrong(s string) Fragment {
	var out Fragment
	last := 0
	for _, m := range strongRe.FindAllStringSubmatchIndex(s, -1) {
		out = appendText(out, s[last:m[0]])
		out = append(out, Node{Kind: Strong, Children: Fragment{{Kind: Text, Text: s[m[2]:m[3]]}}})
		last = m[1]
	}
	return appendText(out, s[last:])
}

// pos is a byte offset inside the Text node at index node. The end of a
// fragment is pos{len(f), 0}.
type pos struct{ node, off int }

// splitEmphasis pairs single asterisks left to right. A pair closes at the
// next asterisk when the content between them is non-empty and has no line
// break; strong spans count as content, so *a **b** c* wraps the bold text.
// Strong children are then searched on their own.
func splitEmphasis(in Fragment) Fragment {
	var stars []pos
	for i, n := range in {
		if n.Kind != Text {
			continue
		}
		for j := 0; j < len(n.Text); j++ {
			if n.Text[j] == '*' {
				stars = append(stars, pos{i, j})
			}
		}
	}

	out := make(Fragment, 0, len(in))
	cur := pos{0, 0}
	for k := 0; k+1 < len(stars); {
		opening, closing := stars[k], stars[k+1]
		inner := slice(in, pos{opening.node, opening.off + 1}, closing)
		if len(inner) == 0 || hasLineBreak(inner) {
			k++
			continue
		}
		out = append(out, slice(in, cur, opening)...)
		out = append(out, Node{Kind: Emphasis, Children: inner})
		cur = pos{closing.node, closing.off + 1}
		k += 2
	}
	out = append(out, slice(in, cur, pos{len(in), 0})...)

	for i := range out {
		if out[i].Children != nil {
			out[i].Children = splitEmphasis(out[i].Children)
		}
	}
	return out
}

// slice returns the nodes between from (inclusive) and to (exclusive).
func slice(in Fragment, from, to pos) Fragment {
	var out Fragment
	for i := from.node; i < len(in) && i <= to.node; i++ {
		n := in[i]
		if n.Kind != Text {
			if i < to.node {
				out = append(out, n)
			}
			continue
		}
		start, end := 0, len(n.Text)
		if i == from.node {
			start = from.off
		}
		if i == to.node {
			end = to.off
		}
		out = appendText(out, n.Text[start:end])
	}
	return out
}

func hasLineBreak(f Fragment) bool {
	for _, n := range f {
		if n.Kind == Text && strings.Contains(n.Text, "\n") {
			return true
		}
	}
	return false
}

// splitBullets turns each bullet glyph into a Bullet node. A single space
// after the glyph belongs to the marker.
func splitBullets(s string) Fragment {
	parts := strings.Split(s, BulletGlyph)
	if len(parts) == 1 {
		return Fragment{{Kind: Text, Text: s}}
	}
	out := appendText(nil, parts[0])
	for _, part := range parts[1:] {
		out = append(out, Node{Kind: Bullet, Text: BulletGlyph})
		out = appendText(out, strings.TrimPrefix(part, " "))
	}
	return out
}

func emojiSplitter(re *regexp.Regexp) func(string) Fragment {
	return func(s string) Fragment {
		var out Fragment
		last := 0
		for _, m := range re.FindAllStringIndex(s, -1) {
			out = appendText(out, s[last:m[0]])
			out = append(out, Node{Kind: Emoji, Text: s[m[0]:m[1]]})
			last = m[1]
		}
		return appendText(out, s[last:])
	}
}

func splitLines(s string) Fragment {
	lines := strings.Split(s, "\n")
	if len(lines) == 1 {
		return Fragment{{Kind: Text, Text: s}}
	}
	var out Fragment
	for i, line := range lines {
		if i > 0 {
			out = append(out, Node{Kind: LineBreak})
		}
		out = appendText(out, line)
	}
	return out
}
