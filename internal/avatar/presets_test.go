package avatar

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	if len(c.Body) == 0 || len(c.Lighting) == 0 {
		t.Fatal("Expected built-in presets")
	}
	p, ok := c.BodyPreset("athletic")
	if !ok {
		t.Fatal("Expected athletic preset")
	}
	start := Default()
	start.EyeSize = 90
	got := p.Apply(start)
	if got.Muscle != 72 || got.BodyFat != 12 {
		t.Errorf("Expected preset body values, got muscle=%d bodyFat=%d", got.Muscle, got.BodyFat)
	}
	if got.EyeSize != 90 {
		t.Errorf("Expected face sliders untouched, got eyeSize=%d", got.EyeSize)
	}

	lp, ok := c.LightingPreset("soft")
	if !ok {
		t.Fatal("Expected soft lighting preset")
	}
	if l := lp.Apply(DefaultLighting()); l.Shadows {
		t.Error("Expected soft preset to disable shadows")
	}

	if _, ok := c.BodyPreset("nope"); ok {
		t.Error("Expected unknown preset lookup to fail")
	}
}

func TestParseCatalog_GenderDecoded(t *testing.T) {
	c := DefaultCatalog()
	p, ok := c.BodyPreset("curvy")
	if !ok {
		t.Fatal("Expected curvy preset")
	}
	if p.Settings.Gender == nil || *p.Settings.Gender != Female {
		t.Errorf("Expected curvy preset gender female, got %v", p.Settings.Gender)
	}
}

func TestParseCatalog_Rejects(t *testing.T) {
	_, err := ParseCatalog([]byte("body:\n  - name: a\n  - name: a\n"))
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected duplicate name to be rejected, got %v", err)
	}
	_, err = ParseCatalog([]byte("body:\n  - name: a\n    settings:\n      gender: robot\n"))
	if err == nil {
		t.Error("Expected unknown gender to be rejected")
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.yaml")
	if err := os.WriteFile(path, []byte("body:\n  - name: tall\n    settings:\n      height: 205\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	p, ok := c.BodyPreset("tall")
	if !ok {
		t.Fatal("Expected tall preset")
	}
	if got := p.Apply(Default()); got.Height != 205 {
		t.Errorf("Expected height 205, got %d", got.Height)
	}

	if _, err := LoadCatalog(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
