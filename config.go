package composels

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the .composels.yaml configuration file.
type Config struct {
	Completion CompletionConfig `yaml:"completion"`
	Format     FormatConfig     `yaml:"format"`
	Links      LinksConfig      `yaml:"links"`
	CodeLens   CodeLensConfig   `yaml:"codeLens"`
	Log        LogConfig        `yaml:"log"`
}

// CompletionConfig holds settings for completion.
type CompletionConfig struct {
	// Offer completions for rarely used keys as well.
	Advanced bool `yaml:"advanced"`
}

// FormatConfig holds settings for document formatting.
type FormatConfig struct {
	// Spaces per indentation level; 0 uses the editor's or the document's.
	Indent int `yaml:"indent,omitempty"`
}

// LinksConfig selects which document links are produced.
type LinksConfig struct {
	Images   bool `yaml:"images"`
	EnvFiles bool `yaml:"envFiles"`
}

// CodeLensConfig holds settings for code lenses.
type CodeLensConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig holds logging settings for the language server.
type LogConfig struct {
	// Level is a zap level name: debug, info, warn or error.
	Level string `yaml:"level,omitempty"`
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".composels.yaml", ".composels.yml", "composels.yaml", "composels.yml"}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	return &Config{
		Links:    LinksConfig{Images: true, EnvFiles: true},
		CodeLens: CodeLensConfig{Enabled: true},
		Log:      LogConfig{Level: "info"},
	}
}

// LoadConfig finds and loads the nearest .composels.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s: %w", absDir, ErrConfigNotFound)
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path. Keys missing from the
// file keep their defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}
