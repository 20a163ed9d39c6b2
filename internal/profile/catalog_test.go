package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProfile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCatalogLoadsProfiles(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "warm.yaml", "slug: warm\nname: Warm\nvoice: nova\nrate: 0.9\n")
	writeProfile(t, dir, "crisp.yml", "name: Crisp\nvoice: onyx\ndefault: true\n")
	writeProfile(t, dir, "notes.txt", "not a profile")

	c, err := NewCatalog(dir, nil)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if got := len(c.Slugs()); got != 2 {
		t.Fatalf("expected 2 profiles, got %d: %v", got, c.Slugs())
	}

	warm := c.Resolve("warm")
	if warm.Voice != "nova" || warm.Rate != 0.9 {
		t.Errorf("warm = %+v", warm)
	}

	// Slug falls back to the filename when omitted.
	crisp := c.Resolve("crisp")
	if crisp.Voice != "onyx" {
		t.Errorf("crisp = %+v", crisp)
	}
	if crisp.Rate != 1.0 {
		t.Errorf("rate should default to 1.0, got %v", crisp.Rate)
	}
}

func TestCatalogResolveFallbacks(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "crisp.yaml", "slug: crisp\nvoice: onyx\ndefault: true\n")

	c, err := NewCatalog(dir, nil)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	// Unknown and empty slugs resolve to the marked default.
	if got := c.Resolve("missing"); got.Slug != "crisp" {
		t.Errorf("unknown slug resolved to %+v", got)
	}
	if got := c.Resolve(""); got.Slug != "crisp" {
		t.Errorf("empty slug resolved to %+v", got)
	}
}

func TestCatalogMissingDirectory(t *testing.T) {
	c, err := NewCatalog(filepath.Join(t.TempDir(), "absent"), nil)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	got := c.Resolve("")
	if got.Slug != builtinDefault.Slug || got.Voice != builtinDefault.Voice {
		t.Errorf("expected built-in default, got %+v", got)
	}
}

func TestCatalogSkipsInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "broken.yaml", "slug: [not valid\n")
	writeProfile(t, dir, "voiceless.yaml", "slug: voiceless\nname: No Voice\n")
	writeProfile(t, dir, "ok.yaml", "slug: ok\nvoice: echo\n")

	c, err := NewCatalog(dir, nil)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if got := len(c.Slugs()); got != 1 {
		t.Errorf("expected 1 valid profile, got %d: %v", got, c.Slugs())
	}
}

func TestCatalogReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "a.yaml", "slug: a\nvoice: alloy\n")

	c, err := NewCatalog(dir, nil)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if got := len(c.Slugs()); got != 1 {
		t.Fatalf("expected 1 profile, got %d", got)
	}

	writeProfile(t, dir, "b.yaml", "slug: b\nvoice: nova\n")
	if err := c.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := len(c.Slugs()); got != 2 {
		t.Errorf("expected 2 profiles after reload, got %d", got)
	}
}
