package html

import (
	"fmt"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// DefaultTheme names the built-in theme manifest.
const DefaultTheme = "scoreform"

// DefaultManifest describes the built-in look: design tokens, the bundled
// stylesheet, and a dark variant that overrides the surface tokens.
func DefaultManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    DefaultTheme,
		Version: "1.0.0",
		Tokens: map[string]string{
			"color-bg":      "#f4f6fb",
			"color-surface": "#ffffff",
			"color-text":    "#1f2a40",
			"color-muted":   "#5b6779",
			"color-accent":  "#2563eb",
			"color-error":   "#b42318",
			"color-success": "#15803d",
			"color-border":  "#d4dae3",
			"radius":        "8px",
			"font-family":   "system-ui, -apple-system, 'Segoe UI', sans-serif",
		},
		Assets: theme.Assets{
			Prefix: "/static",
			Files: map[string]string{
				"html.stylesheet": StylesheetName,
			},
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{
					"color-bg":      "#10151f",
					"color-surface": "#1a2232",
					"color-text":    "#e7ecf5",
					"color-muted":   "#9aa7ba",
					"color-border":  "#2c3750",
				},
			},
		},
	}
}

// NewThemeRegistry returns a go-theme registry with the built-in manifest
// registered, ready to serve Select calls.
func NewThemeRegistry() (*theme.Selector, error) {
	registry := theme.NewRegistry()
	if err := registry.Register(DefaultManifest()); err != nil {
		return nil, fmt.Errorf("html: register default theme: %w", err)
	}
	return &theme.Selector{Registry: registry, DefaultTheme: DefaultTheme}, nil
}

// buildRendererConfig flattens a theme selection into the shape templates
// consume: merged tokens, derived CSS custom properties, and an asset
// resolver honouring variant overrides.
func buildRendererConfig(selection *theme.Selection) theme.RendererConfig {
	cfg := theme.RendererConfig{
		Theme:    selection.Theme,
		Variant:  selection.Variant,
		Partials: map[string]string{},
		Tokens:   map[string]string{},
		CSSVars:  map[string]string{},
	}

	manifest := selection.Manifest
	if manifest == nil {
		cfg.AssetURL = func(string) string { return "" }
		return cfg
	}

	for key, value := range manifest.Tokens {
		cfg.Tokens[key] = value
	}
	for key, value := range manifest.Templates {
		cfg.Partials[key] = value
	}

	assets := map[string]string{}
	for key, file := range manifest.Assets.Files {
		assets[key] = file
	}

	if variant, ok := manifest.Variants[selection.Variant]; ok {
		for key, value := range variant.Tokens {
			cfg.Tokens[key] = value
		}
		for key, value := range variant.Templates {
			cfg.Partials[key] = value
		}
		for key, file := range variant.Assets.Files {
			assets[key] = file
		}
	}

	for key, value := range cfg.Tokens {
		cfg.CSSVars["--"+key] = value
	}

	prefix := strings.TrimSuffix(manifest.Assets.Prefix, "/")
	cfg.AssetURL = func(key string) string {
		file, ok := assets[key]
		if !ok {
			return ""
		}
		return prefix + "/" + file
	}
	return cfg
}

// inlineCSSVars renders the derived custom properties as a style attribute
// payload for the document root.
func inlineCSSVars(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+": "+vars[key])
	}
	return strings.Join(pairs, "; ")
}
