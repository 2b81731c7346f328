package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	appDirName     = "maphider"
	configFileName = "config.toml"

	// PasswordEnv overrides obs.password when set
	PasswordEnv = "MAPHIDER_OBS_PASSWORD"
)

type Config struct {
	OBS      OBSConfig      `toml:"obs"`
	Hotkey   HotkeyConfig   `toml:"hotkey"`
	Web      WebConfig      `toml:"web"`
	Tray     TrayConfig     `toml:"tray"`
	Feedback FeedbackConfig `toml:"feedback"`
	Log      LogConfig      `toml:"log"`

	path string
}

type OBSConfig struct {
	URL              string `toml:"url"`
	Password         string `toml:"password"`
	RequestTimeoutMs int    `toml:"request_timeout_ms"`
}

// HotkeyConfig holds the combo used until a binding is saved from the settings page
type HotkeyConfig struct {
	Combo string `toml:"combo"`
}

type WebConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

type TrayConfig struct {
	Enabled bool `toml:"enabled"`
}

type FeedbackConfig struct {
	Beep bool `toml:"beep"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		OBS: OBSConfig{
			URL:              "ws://localhost:4455",
			Password:         "",
			RequestTimeoutMs: 2000,
		},
		Hotkey: HotkeyConfig{
			Combo: "shift+g",
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8318,
		},
		Tray: TrayConfig{
			Enabled: true,
		},
		Feedback: FeedbackConfig{
			Beep: false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Dir returns the application directory, creating it if needed
func Dir() (string, error) {
	base := os.Getenv("APPDATA")
	if base == "" {
		var err error
		base, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate user config directory: %w", err)
		}
	}

	dir := filepath.Join(base, appDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return dir, nil
}

// ConfigPath returns the path to the configuration file
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load loads the configuration from the TOML file in the application directory
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(configPath)
}

// LoadFile loads the configuration at path.
// If the file doesn't exist, it creates it with default values.
func LoadFile(path string) (*Config, error) {
	cfg := defaultConfig()
	cfg.path = path

	// If config doesn't exist, create it with defaults
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration back to the file it was loaded from
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no file path")
	}

	f, err := os.Create(c.path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(c)
}

// Path returns the file the configuration was loaded from
func (c *Config) Path() string {
	return c.path
}

// Validate checks the values that would otherwise fail later at startup
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.OBS.URL, "ws://") && !strings.HasPrefix(c.OBS.URL, "wss://") {
		return fmt.Errorf("obs.url must start with ws:// or wss://: %q", c.OBS.URL)
	}
	if c.Web.Enabled && (c.Web.Port <= 0 || c.Web.Port > 65535) {
		return fmt.Errorf("web.port out of range: %d", c.Web.Port)
	}
	if _, err := ParseHotkey(c.Hotkey.Combo); err != nil {
		return fmt.Errorf("invalid hotkey.combo: %w", err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// RequestTimeout returns the obs-websocket request timeout
func (c *Config) RequestTimeout() time.Duration {
	if c.OBS.RequestTimeoutMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.OBS.RequestTimeoutMs) * time.Millisecond
}

// OBSPassword resolves the obs-websocket password.
// Priority: environment variable, .env file, config file.
func (c *Config) OBSPassword() string {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw
	}

	envFiles := []string{".env"}
	if c.path != "" {
		envFiles = append(envFiles, filepath.Join(filepath.Dir(c.path), ".env"))
	}
	for _, name := range envFiles {
		env, err := godotenv.Read(name)
		if err != nil {
			continue
		}
		if pw := env[PasswordEnv]; pw != "" {
			slog.Debug("OBS password loaded from env file", "path", name)
			return pw
		}
	}

	return c.OBS.Password
}

// ParseLevel maps a log level name to a slog level
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", name)
	}
}
