// Package settings persists the last used prefix and the next start number
// between runs.
package settings

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPrefix = "img"
	DefaultNumber = 1

	appDir   = "image-renamer"
	fileName = "settings.yaml"
)

type Settings struct {
	LastPrefix string `yaml:"last_prefix"`
	LastNumber int    `yaml:"last_number"`
}

func Default() Settings {
	return Settings{LastPrefix: DefaultPrefix, LastNumber: DefaultNumber}
}

// FileStore keeps Settings in a YAML file. LegacyPath, when set, is a JSON
// config from older releases that is read once if Path does not exist yet.
type FileStore struct {
	Path       string
	LegacyPath string
}

// NewFileStore returns a store under the user config directory.
func NewFileStore() (*FileStore, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	s := &FileStore{Path: filepath.Join(base, appDir, fileName)}
	if home, err := os.UserHomeDir(); err == nil {
		s.LegacyPath = filepath.Join(home, ".image_rename_tool", "config.json")
	}
	return s, nil
}

// Load returns the stored settings, or defaults when nothing is stored.
// On a read or decode error the defaults are returned with the error.
func (s *FileStore) Load() (Settings, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s.loadLegacy(), nil
		}
		return Default(), err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), err
	}
	return sanitize(cfg), nil
}

func (s *FileStore) loadLegacy() Settings {
	if s.LegacyPath == "" {
		return Default()
	}
	data, err := os.ReadFile(s.LegacyPath)
	if err != nil {
		return Default()
	}
	var legacy struct {
		LastNumber int    `json:"last_number"`
		LastPrefix string `json:"last_prefix"`
	}
	if err := json.Unmarshal(data, &legacy); err != nil {
		return Default()
	}
	return sanitize(Settings{LastPrefix: legacy.LastPrefix, LastNumber: legacy.LastNumber})
}

func (s *FileStore) Save(cfg Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(sanitize(cfg))
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0o644)
}

// LastStartNumber and LastPrefix seed the form on launch.
func (s *FileStore) LastStartNumber() int {
	cfg, _ := s.Load()
	return cfg.LastNumber
}

func (s *FileStore) LastPrefix() string {
	cfg, _ := s.Load()
	return cfg.LastPrefix
}

// Persist records the prefix and the next start number after a batch.
func (s *FileStore) Persist(prefix string, next int) error {
	return s.Save(Settings{LastPrefix: prefix, LastNumber: next})
}

func sanitize(cfg Settings) Settings {
	if cfg.LastNumber < 1 {
		cfg.LastNumber = DefaultNumber
	}
	return cfg
}
