package page

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed assets/style.css
var defaultCSS string

// Font is an embedded @font-face. Data is inlined as a base64 data URI.
type Font struct {
	Family string
	Weight int
	Format string
	Data   []byte
}

// Assets are the static blobs wrapped around every rendered document.
type Assets struct {
	CSS     string
	Favicon []byte
	Fonts   []Font
}

// DefaultAssets returns the built-in stylesheet with no fonts or favicon.
func DefaultAssets() *Assets {
	return &Assets{CSS: defaultCSS}
}

// LoadAssets reads optional overrides from disk. An empty cssPath keeps the
// built-in stylesheet. Font weights are guessed from the file name
// (Light, Medium, Bold); everything else is 400.
func LoadAssets(cssPath, faviconPath string, fontPaths []string) (*Assets, error) {
	assets := DefaultAssets()

	if cssPath != "" {
		css, err := os.ReadFile(cssPath)
		if err != nil {
			return nil, fmt.Errorf("reading stylesheet: %w", err)
		}
		assets.CSS = string(css)
	}

	if faviconPath != "" {
		favicon, err := os.ReadFile(faviconPath)
		if err != nil {
			return nil, fmt.Errorf("reading favicon: %w", err)
		}
		assets.Favicon = favicon
	}

	for _, path := range fontPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading font: %w", err)
		}
		assets.Fonts = append(assets.Fonts, fontFromPath(path, data))
	}

	return assets, nil
}

// fontFromPath derives the face description from names like
// "Oswald-Light.ttf".
func fontFromPath(path string, data []byte) Font {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	family, variant, _ := strings.Cut(stem, "-")

	weight := 400
	switch strings.ToLower(variant) {
	case "thin":
		weight = 100
	case "light":
		weight = 300
	case "medium":
		weight = 500
	case "semibold":
		weight = 600
	case "bold":
		weight = 700
	}

	format := "truetype"
	switch ext {
	case ".otf":
		format = "opentype"
	case ".woff":
		format = "woff"
	case ".woff2":
		format = "woff2"
	}

	return Font{Family: family, Weight: weight, Format: format, Data: data}
}
