package markup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aryashah/portfolio/markup"
)

func TestFragmentHTML(t *testing.T) {
	t.Parallel()

	t.Run("strong label", func(t *testing.T) {
		t.Parallel()
		got := markup.Render("**Background:** Computer Science graduate").HTML()
		assert.Equal(t, `<strong class="md-strong">Background:</strong> Computer Science graduate`, string(got))
	})

	t.Run("bullet list with line breaks", func(t *testing.T) {
		t.Parallel()
		got := markup.Render("• Figma\n• Canva").HTML()
		assert.Equal(t,
			`<span class="md-bullet">•</span> Figma<br><span class="md-bullet">•</span> Canva`,
			string(got))
	})

	t.Run("emoji and emphasis", func(t *testing.T) {
		t.Parallel()
		got := markup.Render("✨ *fresh*").HTML()
		assert.Equal(t, `<span class="md-emoji">✨</span> <em class="md-em">fresh</em>`, string(got))
	})

	t.Run("markers nested in spans", func(t *testing.T) {
		t.Parallel()
		got := markup.Render("**\U0001F680 Launch** *a **b** c*").HTML()
		assert.Equal(t,
			`<strong class="md-strong"><span class="md-emoji">\U0001F680</span> Launch</strong> `+
				`<em class="md-em">a <strong class="md-strong">b</strong> c</em>`,
			string(got))
	})

	t.Run("foreign markup is escaped", func(t *testing.T) {
		t.Parallel()
		got := markup.Render(`<script>alert("x")</script> **<b>bold</b>**`).HTML()
		assert.NotContains(t, string(got), "<script>")
		assert.NotContains(t, string(got), "<b>")
		assert.Contains(t, string(got), "&lt;script&gt;")
		assert.Contains(t, string(got), `<strong class="md-strong">&lt;b&gt;bold&lt;/b&gt;</strong>`)
	})

	t.Run("empty fragment", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "", string(markup.Render("").HTML()))
	})
}

func TestHTMLBlock(t *testing.T) {
	t.Parallel()

	got := markup.HTMLBlock(markup.RenderBlock("one\n\n*two*"))
	assert.Len(t, got, 2)
	assert.Equal(t, "one", string(got[0]))
	assert.Equal(t, `<em class="md-em">two</em>`, string(got[1]))
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	f := markup.Render("\U0001F4CD **Location:** remote\n• on-site")
	assert.Equal(t, "\U0001F4CD Location: remote\n• on-site", f.PlainText())

	nested := markup.Render("*a **• b** c*")
	assert.Equal(t, "a • b c", nested.PlainText())
}
