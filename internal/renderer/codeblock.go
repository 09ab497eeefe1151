package renderer

import (
	"bytes"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// codeBlockRenderer replaces goldmark's fenced code block output with chroma
// highlighting. Blocks without a known language fall back to plain
// <pre><code>.
type codeBlockRenderer struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func (c *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, c.renderFencedCodeBlock)
}

func (c *codeBlockRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	n := node.(*ast.FencedCodeBlock)
	language := string(n.Language(source))

	var code bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		code.Write(segment.Value(source))
	}

	if language != "" {
		if lexer := lexers.Get(language); lexer != nil {
			iterator, err := chroma.Coalesce(lexer).Tokenise(nil, code.String())
			if err == nil {
				if err := c.formatter.Format(w, c.style, iterator); err != nil {
					return ast.WalkStop, err
				}
				return ast.WalkSkipChildren, nil
			}
		}
	}

	_, _ = w.WriteString("<pre><code")
	if language != "" {
		_, _ = w.WriteString(` class="language-`)
		_, _ = w.Write(util.EscapeHTML([]byte(language)))
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
	_, _ = w.Write(util.EscapeHTML(code.Bytes()))
	_, _ = w.WriteString("</code></pre>\n")

	return ast.WalkSkipChildren, nil
}
