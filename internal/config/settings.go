package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Settings holds operator-level configuration loaded from config.toml.
// Everything has a usable default so a missing file is not an error.
type Settings struct {
	Forge    ForgeSettings `toml:"forge"`
	Hub      HubSettings   `toml:"hub"`
	Pipeline PipeSettings  `toml:"pipeline"`
	LogLevel string        `toml:"log_level"`
}

type ForgeSettings struct {
	APIBase  string `toml:"api_base"`
	TokenEnv string `toml:"token_env"`
}

type HubSettings struct {
	Addr          string   `toml:"addr"`
	WebhookSecret string   `toml:"webhook_secret"`
	QueueSize     int      `toml:"queue_size"`
	CorsOrigins   []string `toml:"cors_origins"`
}

type PipeSettings struct {
	WorkflowFile string `toml:"workflow_file"`
}

// DefaultSettings returns the settings used when no config file exists.
func DefaultSettings() Settings {
	return Settings{
		Forge: ForgeSettings{
			APIBase:  "https://api.github.com",
			TokenEnv: "SC3KIT_TOKEN",
		},
		Hub: HubSettings{
			Addr:      ":9400",
			QueueSize: 16,
		},
		Pipeline: PipeSettings{
			WorkflowFile: "release.yml",
		},
		LogLevel: "info",
	}
}

// LoadSettings reads the settings file, applying defaults for anything unset.
// A missing file yields the defaults; a malformed file is an error.
func LoadSettings() (Settings, error) {
	path, err := SettingsPath()
	if err != nil {
		return Settings{}, err
	}
	return loadSettingsFrom(path)
}

func loadSettingsFrom(path string) (Settings, error) {
	cfg := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Settings{}, fmt.Errorf("settings load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Settings{}, fmt.Errorf("settings parse failed (%s): %w", path, err)
	}
	applySettingsDefaults(&cfg)
	if err := ValidateSettings(cfg); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

func applySettingsDefaults(cfg *Settings) {
	def := DefaultSettings()
	if strings.TrimSpace(cfg.Forge.APIBase) == "" {
		cfg.Forge.APIBase = def.Forge.APIBase
	}
	if strings.TrimSpace(cfg.Forge.TokenEnv) == "" {
		cfg.Forge.TokenEnv = def.Forge.TokenEnv
	}
	if strings.TrimSpace(cfg.Hub.Addr) == "" {
		cfg.Hub.Addr = def.Hub.Addr
	}
	if cfg.Hub.QueueSize <= 0 {
		cfg.Hub.QueueSize = def.Hub.QueueSize
	}
	if strings.TrimSpace(cfg.Pipeline.WorkflowFile) == "" {
		cfg.Pipeline.WorkflowFile = def.Pipeline.WorkflowFile
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = def.LogLevel
	}
}

// ValidateSettings rejects values that would only fail later and further
// from their cause.
func ValidateSettings(cfg Settings) error {
	if !strings.HasPrefix(cfg.Forge.APIBase, "http://") && !strings.HasPrefix(cfg.Forge.APIBase, "https://") {
		return fmt.Errorf("settings: forge api_base %q must be an http(s) URL", cfg.Forge.APIBase)
	}
	if strings.ContainsAny(cfg.Forge.TokenEnv, " \t=") {
		return fmt.Errorf("settings: forge token_env %q is not a valid environment variable name", cfg.Forge.TokenEnv)
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("settings: unknown log_level %q", cfg.LogLevel)
	}
	return nil
}

// Token resolves the forge API token from the configured environment
// variable. Returns empty when unset; callers decide whether that is fatal.
func (f ForgeSettings) Token() string {
	return strings.TrimSpace(os.Getenv(f.TokenEnv))
}
