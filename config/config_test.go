package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OBS.URL != "ws://localhost:4455" || cfg.Hotkey.Combo != "shift+g" || cfg.Web.Port != 8318 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadFileKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "[obs]\nurl = \"ws://10.0.0.5:4455\"\n\n[web]\nport = 9000\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OBS.URL != "ws://10.0.0.5:4455" || cfg.Web.Port != 9000 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Hotkey.Combo != "shift+g" || cfg.RequestTimeout() != 2*time.Second {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Feedback.Beep = true
	cfg.Log.Level = "debug"
	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}

	again, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Feedback.Beep || again.Log.Level != "debug" {
		t.Errorf("saved values not loaded: %+v", again)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"http url", func(c *Config) { c.OBS.URL = "http://localhost:4455" }, true},
		{"bad port", func(c *Config) { c.Web.Port = 0 }, true},
		{"bad port ignored when web disabled", func(c *Config) { c.Web.Enabled = false; c.Web.Port = 0 }, false},
		{"empty combo", func(c *Config) { c.Hotkey.Combo = "" }, true},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOBSPasswordPriority(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFile(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.OBS.Password = "from-file"

	t.Setenv(PasswordEnv, "")
	if got := cfg.OBSPassword(); got != "from-file" {
		t.Errorf("got %q, want file password", got)
	}

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(PasswordEnv+"=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := cfg.OBSPassword(); got != "from-dotenv" {
		t.Errorf("got %q, want .env password", got)
	}

	t.Setenv(PasswordEnv, "from-env")
	if got := cfg.OBSPassword(); got != "from-env" {
		t.Errorf("got %q, want env password", got)
	}
}

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		in      string
		want    KeyCombo
		wantErr bool
	}{
		{"shift+g", KeyCombo{Shift: true, Key: "g"}, false},
		{"G", KeyCombo{Key: "g"}, false},
		{"Ctrl + Alt + F5", KeyCombo{Ctrl: true, Alt: true, Key: "f5"}, false},
		{"ctrl+win", KeyCombo{Ctrl: true, Win: true}, false},
		{"", KeyCombo{}, true},
		{"hyper+g", KeyCombo{}, true},
		{"shift+", KeyCombo{}, true},
	}
	for _, tt := range tests {
		got, err := ParseHotkey(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHotkey(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseHotkey(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestKeyComboString(t *testing.T) {
	kc, err := ParseHotkey("g+shift")
	if err == nil {
		t.Fatalf("expected error for key before modifier, got %+v", kc)
	}

	kc, err = ParseHotkey("alt+ctrl+m")
	if err != nil {
		t.Fatal(err)
	}
	if got := kc.String(); got != "ctrl+alt+m" {
		t.Errorf("String() = %q, want canonical order", got)
	}
}
