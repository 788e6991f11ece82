package configs

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config is the resolved configuration.
type Config struct {
	Vault VaultConfig `toml:"vault" yaml:"vault" json:"vault"`
	Audit AuditConfig `toml:"audit" yaml:"audit" json:"audit"`
	UI    UIConfig    `toml:"ui" yaml:"ui" json:"ui"`

	// Source is the file the configuration was read from, or "" for defaults.
	Source string `toml:"-" yaml:"-" json:"source,omitempty"`
}

type VaultConfig struct {
	Path   string `toml:"path" yaml:"path" json:"path"`
	Driver string `toml:"driver" yaml:"driver" json:"driver"`
}

type AuditConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled" json:"enabled"`
	// Path defaults to the vault path with an .audit.jsonl suffix when empty.
	Path string `toml:"path,omitempty" yaml:"path,omitempty" json:"path,omitempty"`
}

type UIConfig struct {
	Banner      bool   `toml:"banner" yaml:"banner" json:"banner"`
	HistoryFile string `toml:"history_file" yaml:"history_file" json:"history_file"`
}

// LoadOptions carries command-line overrides.
type LoadOptions struct {
	ConfigPath string
	VaultPath  string
}

// Default returns the configuration used when no file is present.
func Default() (*Config, error) {
	dataDir, err := DataDir()
	if err != nil {
		return nil, fmt.Errorf("error getting data directory: %w", err)
	}

	return &Config{
		Vault: VaultConfig{
			Path:   filepath.Join(dataDir, "vault.db"),
			Driver: "sqlite",
		},
		Audit: AuditConfig{
			Enabled: true,
		},
		UI: UIConfig{
			Banner:      true,
			HistoryFile: filepath.Join(dataDir, "history"),
		},
	}, nil
}

// Load resolves the configuration from opts, the environment and the
// config directory. Values missing from the file keep their defaults.
func Load(opts LoadOptions) (*Config, error) {
	config, err := Default()
	if err != nil {
		return nil, err
	}

	path, explicit := opts.ConfigPath, opts.ConfigPath != ""
	if !explicit {
		if env := os.Getenv(EnvConfig); env != "" {
			path, explicit = env, true
		}
	}
	if !explicit {
		path, err = findDefaultConfig()
		if err != nil {
			return nil, err
		}
	}

	if path != "" {
		path = ExpandHome(path)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := loadFile(path, config); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		config.Source = path
	}

	switch {
	case opts.VaultPath != "":
		config.Vault.Path = opts.VaultPath
	case os.Getenv(EnvVault) != "":
		config.Vault.Path = os.Getenv(EnvVault)
	}

	config.Vault.Path = ExpandHome(config.Vault.Path)
	config.Audit.Path = ExpandHome(config.Audit.Path)
	config.UI.HistoryFile = ExpandHome(config.UI.HistoryFile)

	return config, nil
}

// findDefaultConfig returns the first config file present in ConfigDir,
// or "" if there is none.
func findDefaultConfig() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting config directory: %w", err)
	}
	for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}
