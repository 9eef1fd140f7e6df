package collection

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	liberrors "github.com/libragen/libragen/internal/errors"
)

// ConfigFileName is the name of the persisted collections config file
// within a libragen home directory.
const ConfigFileName = "collections.yaml"

// LoadConfig reads the collections config file at path. A missing file
// is not an error; it returns an empty Config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, liberrors.Wrap(liberrors.Internal, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, liberrors.New(liberrors.InvalidFormat, fmt.Sprintf("parsing %s", path), err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return liberrors.Wrap(liberrors.Internal, err)
	}
	return nil
}

// AddCollection adds or replaces (by name) a collection source and
// persists the result.
func AddCollection(path string, ref Ref) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range cfg.Collections {
		if existing.Name == ref.Name {
			cfg.Collections[i] = ref
			replaced = true
			break
		}
	}
	if !replaced {
		cfg.Collections = append(cfg.Collections, ref)
	}
	return SaveConfig(path, cfg)
}

// RemoveCollection removes a collection source by name and persists the
// result. Removing an unknown name is not an error.
func RemoveCollection(path string, name string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	kept := cfg.Collections[:0]
	for _, existing := range cfg.Collections {
		if existing.Name != name {
			kept = append(kept, existing)
		}
	}
	cfg.Collections = kept
	return SaveConfig(path, cfg)
}

// List returns the configured collection sources sorted ascending by
// priority (lower priority value wins when names collide elsewhere).
func List(path string) ([]Ref, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	refs := append([]Ref{}, cfg.Collections...)
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Priority < refs[j].Priority })
	return refs, nil
}
