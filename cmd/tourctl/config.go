package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is read from ~/.tourctl.yaml; flags override it.
type Config struct {
	BaseURL      string        `yaml:"base_url"`
	Remember     bool          `yaml:"remember"`
	StoragePath  string        `yaml:"storage_path"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Debounce     time.Duration `yaml:"debounce"`
	Debug        bool          `yaml:"debug"`
}

func defaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:8080",
		StoragePath:  "${HOME}/.tourctl/storage.json",
		PollInterval: 5 * time.Second,
		Debounce:     300 * time.Millisecond,
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tourctl.yaml"
	}
	return filepath.Join(home, ".tourctl.yaml")
}

// loadConfig merges the file at path over the defaults. A missing file is not an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.StoragePath = expandHome(cfg.StoragePath)
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	return cfg, nil
}

func expandHome(p string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	p = strings.ReplaceAll(p, "${HOME}", home)
	if p == "~" || strings.HasPrefix(p, "~/") {
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}
