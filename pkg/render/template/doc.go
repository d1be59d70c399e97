// Package template defines the renderer-agnostic template contract used by
// the HTML surface, plus engine adapters that satisfy it.
package template
