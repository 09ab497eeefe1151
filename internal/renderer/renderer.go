// Package renderer converts Markdown source into an HTML fragment.
//
// The conversion is a pure function of the source text and the Options the
// Renderer was built with: rendering the same bytes twice yields identical
// output. Rendering is built on goldmark with the GitHub-flavored,
// footnote, definition-list and typographer extensions; fenced code blocks
// are highlighted with chroma using CSS classes, and the result can
// optionally be passed through a bluemonday sanitization policy.
package renderer

import (
	"bytes"
	"fmt"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// Options configures a Renderer.
type Options struct {
	// HardWraps renders soft line breaks inside a paragraph as <br>.
	HardWraps bool
	// Sanitize passes the output through a user-generated-content policy.
	Sanitize bool
	// Highlight enables syntax highlighting of fenced code blocks.
	Highlight bool
	// Style is the chroma style name used for highlighting.
	Style string
}

// Renderer converts Markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	style  *chroma.Style
	code   *chromahtml.Formatter
}

// New builds a Renderer from opts.
func New(opts Options) *Renderer {
	r := &Renderer{}

	rendererOptions := []renderer.Option{html.WithUnsafe()}
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}

	if opts.Highlight {
		r.style = styles.Get(opts.Style)
		r.code = chromahtml.New(chromahtml.WithClasses(true))
		rendererOptions = append(rendererOptions, renderer.WithNodeRenderers(
			util.Prioritized(&codeBlockRenderer{style: r.style, formatter: r.code}, 200),
		))
	}

	r.md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.DefinitionList,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithAttribute(),
		),
		goldmark.WithRendererOptions(rendererOptions...),
	)

	if opts.Sanitize {
		r.policy = newPolicy()
	}

	return r
}

// Render converts source to an HTML fragment.
func (r *Renderer) Render(source []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}

	if r.policy != nil {
		return r.policy.Sanitize(buf.String()), nil
	}
	return buf.String(), nil
}

// Stylesheet returns the CSS for highlighted code blocks, or an empty
// string when highlighting is disabled.
func (r *Renderer) Stylesheet() string {
	if r.code == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := r.code.WriteCSS(&buf, r.style); err != nil {
		return ""
	}
	return buf.String()
}

// newPolicy extends the UGC policy with what the extensions above emit:
// classes for highlighting and footnotes, heading ids for anchors, and
// disabled task-list checkboxes.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("id").Globally()
	p.AllowAttrs("role").OnElements("div", "a")
	p.AllowElements("input")
	p.AllowAttrs("type").Matching(bluemonday.SpaceSeparatedTokens).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")
	return p
}
