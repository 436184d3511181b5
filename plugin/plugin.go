// Package plugin holds what taps and targets share: configuration
// loading, secret handling, logging, and plugin identity.
package plugin

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/tapkit/tapkit/internal/version"
)

// About describes a plugin for the `about` command.
type About struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities"`
}

// Base carries plugin identity and runtime configuration. Tap and Target
// embed it.
type Base struct {
	Name    string
	Version string
	Config  map[string]any
	Logger  Logger
}

// NewBase returns a Base for name using the build-stamped version.
func NewBase(name string) Base {
	return Base{
		Name:    name,
		Version: version.Version,
		Config:  map[string]any{},
		Logger:  NewLogger(false),
	}
}

// About returns the plugin's about document.
func (b *Base) About(capabilities ...string) About {
	return About{Name: b.Name, Version: b.Version, Capabilities: capabilities}
}

// WriteAbout encodes the about document as indented JSON to w.
func (b *Base) WriteAbout(w io.Writer, capabilities ...string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b.About(capabilities...)); err != nil {
		return fmt.Errorf("encode about: %w", err)
	}
	return nil
}

// ConfigString returns the string value stored under key, or "" when the
// key is absent or not a string.
func (b *Base) ConfigString(key string) string {
	s, _ := b.Config[key].(string)
	return s
}
