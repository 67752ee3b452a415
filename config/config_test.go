package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quill.yaml")
	data := []byte("prompt: \"lua> \"\nraw_paste_window: 128\nlisten: \"127.0.0.1:7000\"\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Prompt != "lua> " {
		t.Errorf("Prompt = %q", cfg.Prompt)
	}
	if cfg.RawPasteWindow != 128 {
		t.Errorf("RawPasteWindow = %d", cfg.RawPasteWindow)
	}
	if cfg.Listen != "127.0.0.1:7000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	// Untouched keys keep their defaults.
	if cfg.ContPrompt != "... " {
		t.Errorf("ContPrompt = %q", cfg.ContPrompt)
	}
}

func TestLoadRejectsBadWindow(t *testing.T) {
	for _, val := range []string{"0", "65536", "-1"} {
		path := filepath.Join(t.TempDir(), "quill.yaml")
		if err := os.WriteFile(path, []byte("raw_paste_window: "+val+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("Load accepted raw_paste_window %s", val)
		}
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quill.yaml")
	if err := os.WriteFile(path, []byte("prompt: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted malformed YAML")
	}
}

func TestFileUnderConfigDir(t *testing.T) {
	if filepath.Dir(File()) != Dir() {
		t.Errorf("File() = %q not under Dir() = %q", File(), Dir())
	}
	if filepath.Base(File()) != "quill.yaml" {
		t.Errorf("File() = %q", File())
	}
}
