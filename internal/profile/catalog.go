// Package profile manages the voice-profile catalog used for speech
// synthesis. Profiles are YAML files in a directory and reload on change.
package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// VoiceProfile describes one synthesis voice selectable per session.
type VoiceProfile struct {
	Slug        string  `yaml:"slug"`
	Name        string  `yaml:"name"`
	Voice       string  `yaml:"voice"`
	Rate        float64 `yaml:"rate,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Default     bool    `yaml:"default,omitempty"`
}

// builtinDefault is used when the catalog directory is empty or missing.
var builtinDefault = VoiceProfile{
	Slug:  "standard",
	Name:  "Standard",
	Voice: "alloy",
	Rate:  1.0,
}

// Catalog holds the loaded profiles. Reads and reloads may interleave.
type Catalog struct {
	mu       sync.RWMutex
	profiles map[string]VoiceProfile
	dir      string
	logger   *slog.Logger
}

// NewCatalog loads all profiles from dir. A missing directory is not an
// error; the built-in default still resolves.
func NewCatalog(dir string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{
		profiles: make(map[string]VoiceProfile),
		dir:      dir,
		logger:   logger,
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads every profile file in the directory. Unparseable files are
// skipped with a warning; they never fail the whole reload.
func (c *Catalog) Reload() error {
	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		c.logger.Debug("profile directory does not exist, using built-in default", "dir", c.dir)
		return nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read profile dir: %w", err)
	}

	loaded := make(map[string]VoiceProfile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(c.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			c.logger.Warn("cannot read profile file", "path", path, "err", err)
			continue
		}

		var p VoiceProfile
		if err := yaml.Unmarshal(data, &p); err != nil {
			c.logger.Warn("cannot parse profile file", "path", path, "err", err)
			continue
		}
		if p.Slug == "" {
			p.Slug = strings.TrimSuffix(name, filepath.Ext(name))
		}
		if p.Voice == "" {
			c.logger.Warn("profile has no voice, skipping", "path", path)
			continue
		}
		if p.Rate == 0 {
			p.Rate = 1.0
		}
		loaded[p.Slug] = p
	}

	c.mu.Lock()
	c.profiles = loaded
	c.mu.Unlock()
	c.logger.Info("voice profiles loaded", "count", len(loaded), "dir", c.dir)
	return nil
}

// Resolve returns the profile for a slug, or the default when the slug is
// empty or unknown.
func (c *Catalog) Resolve(slug string) VoiceProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if slug != "" {
		if p, ok := c.profiles[slug]; ok {
			return p
		}
		c.logger.Warn("unknown voice profile, falling back to default", "slug", slug)
	}
	for _, p := range c.profiles {
		if p.Default {
			return p
		}
	}
	return builtinDefault
}

// Slugs lists the available profile slugs, for display.
func (c *Catalog) Slugs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.profiles))
	for slug := range c.profiles {
		out = append(out, slug)
	}
	return out
}
