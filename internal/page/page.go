// Package page wraps a rendered Markdown fragment in the full HTML document
// served to viewers: title, inlined stylesheet and fonts, favicon, MathJax,
// footnote placement and, in live mode, the script that reloads the page
// when the server pushes a reload event.
//
// The document itself is the templ component in page.templ; run
// `templ generate` after editing it.
package page

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/a-h/templ"
)

// EventsPath is the endpoint the reload script subscribes to.
const EventsPath = "/events"

// Page is everything needed to produce one document.
type Page struct {
	Title string
	// Body is trusted HTML produced by the renderer.
	Body string
	// CodeCSS is the highlighting stylesheet from the renderer.
	CodeCSS string
	// Live adds the reload script.
	Live   bool
	Assets *Assets
}

func (p Page) assets() *Assets {
	if p.Assets == nil {
		return DefaultAssets()
	}
	return p.Assets
}

func (p Page) hasFavicon() bool {
	return len(p.assets().Favicon) > 0
}

// faviconURL is a data URI, which templ.URL would reject.
func (p Page) faviconURL() templ.SafeURL {
	return templ.SafeURL("data:image/x-icon;base64," + base64.StdEncoding.EncodeToString(p.assets().Favicon))
}

// stylesheet returns the <style> element: font faces, the page stylesheet,
// then the highlighting rules.
func (p Page) stylesheet() string {
	assets := p.assets()

	var b strings.Builder
	b.WriteString("<style>\n")
	for _, font := range assets.Fonts {
		fmt.Fprintf(&b,
			"@font-face {\n  font-family: '%s';\n  src: url(data:font/%s;base64,%s) format('%s');\n  font-weight: %d;\n  font-style: normal;\n}\n",
			font.Family, font.Format, base64.StdEncoding.EncodeToString(font.Data), font.Format, font.Weight)
	}
	for _, css := range []string{assets.CSS, p.CodeCSS} {
		if css == "" {
			continue
		}
		b.WriteString(css)
		b.WriteString("\n")
	}
	b.WriteString("</style>")
	return b.String()
}
