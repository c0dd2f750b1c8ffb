package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds paths for the store, change log, and watched directory
type Config struct {
	DatabasePath  string
	ChangeLogPath string
	WatchDir      string
}

type tomlConfig struct {
	DatabasePath  string `toml:"database_path"`
	ChangeLogPath string `toml:"change_log_path"`
	WatchDir      string `toml:"watch_dir"`
}

// Load reads config from ~/.config/memsqlite/config.toml, falling back to
// defaults under ~/.local/share/memsqlite and ~/.claude/projects
func Load() (*Config, error) {
	cfg := &Config{}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	dataDir := filepath.Join(home, ".local", "share", "memsqlite")
	cfg.DatabasePath = filepath.Join(dataDir, "claude_code.db")
	cfg.ChangeLogPath = filepath.Join(dataDir, "cc_db_changes.jsonl")
	cfg.WatchDir = filepath.Join(home, ".claude", "projects")

	tomlPath := filepath.Join(home, ".config", "memsqlite", "config.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		var tc tomlConfig
		if _, err := toml.DecodeFile(tomlPath, &tc); err == nil {
			if tc.DatabasePath != "" {
				cfg.DatabasePath = tc.DatabasePath
			}
			if tc.ChangeLogPath != "" {
				cfg.ChangeLogPath = tc.ChangeLogPath
			}
			if tc.WatchDir != "" {
				cfg.WatchDir = tc.WatchDir
			}
		}
	}

	return cfg, nil
}
