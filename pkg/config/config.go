package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file flock looks for in the workspace root.
const FileName = "flock.yaml"

// EnvPrefix prefixes environment overrides, e.g. FLOCK_OUTPUT_GRAPH.
const EnvPrefix = "FLOCK"

// Config represents flock.yaml
type Config struct {
	Manifest ManifestConfig `yaml:"manifest" mapstructure:"manifest"`
	TSConfig TSConfigConfig `yaml:"tsconfig" mapstructure:"tsconfig"`
	Barrel   string         `yaml:"barrel" mapstructure:"barrel"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	LogLevel string         `yaml:"log_level" mapstructure:"log_level"`
}

// ManifestConfig controls how the workspace manifest is located and checked.
type ManifestConfig struct {
	// Files are tried in order; the first that exists is loaded.
	Files []string `yaml:"files" mapstructure:"files"`
	// Strict turns overlapping source roots into a manifest error.
	Strict bool `yaml:"strict" mapstructure:"strict"`
}

// TSConfigConfig names the compiler configs that define the source set.
type TSConfigConfig struct {
	Root        []string `yaml:"root" mapstructure:"root"`
	Application string   `yaml:"application" mapstructure:"application"`
	Library     string   `yaml:"library" mapstructure:"library"`
}

// OutputConfig defines where artifacts are written
type OutputConfig struct {
	Graph string `yaml:"graph" mapstructure:"graph"`
}

// AnalysisConfig tunes source discovery and parsing.
type AnalysisConfig struct {
	Workers        int      `yaml:"workers" mapstructure:"workers"`
	IgnoreDirs     []string `yaml:"ignore_dirs" mapstructure:"ignore_dirs"`
	IgnorePatterns []string `yaml:"ignore_patterns,omitempty" mapstructure:"ignore_patterns"` // Globs over workspace-relative paths
	IncludeHidden  bool     `yaml:"include_hidden" mapstructure:"include_hidden"`             // Expand includes into dot-directories
	Gitignore      bool     `yaml:"gitignore" mapstructure:"gitignore"`
}

// DefaultConfig returns a config for a stock Angular CLI or Nx workspace.
func DefaultConfig() *Config {
	return &Config{
		Manifest: ManifestConfig{
			Files: []string{"angular.json", "workspace.json"},
		},
		TSConfig: TSConfigConfig{
			Root:        []string{"tsconfig.json", "tsconfig.base.json"},
			Application: "tsconfig.app.json",
			Library:     "tsconfig.lib.json",
		},
		Barrel: "index.ts",
		Output: OutputConfig{
			Graph: "data.json",
		},
		Analysis: AnalysisConfig{
			Workers: 0,
			IgnoreDirs: []string{
				"node_modules", ".git", "dist", "tmp", "coverage", ".angular", ".nx",
			},
			Gitignore: true,
		},
		LogLevel: "info",
	}
}

// Load reads configuration for the workspace at root. An explicit path must
// exist; otherwise flock.yaml in root is optional. A .env file in root is
// loaded first so FLOCK_* variables can live there.
func Load(root, path string) (*Config, error) {
	if err := loadDotEnv(root); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.AddConfigPath(root)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("manifest.files", d.Manifest.Files)
	v.SetDefault("manifest.strict", d.Manifest.Strict)
	v.SetDefault("tsconfig.root", d.TSConfig.Root)
	v.SetDefault("tsconfig.application", d.TSConfig.Application)
	v.SetDefault("tsconfig.library", d.TSConfig.Library)
	v.SetDefault("barrel", d.Barrel)
	v.SetDefault("output.graph", d.Output.Graph)
	v.SetDefault("analysis.workers", d.Analysis.Workers)
	v.SetDefault("analysis.ignore_dirs", d.Analysis.IgnoreDirs)
	v.SetDefault("analysis.include_hidden", d.Analysis.IncludeHidden)
	v.SetDefault("analysis.gitignore", d.Analysis.Gitignore)
	v.SetDefault("log_level", d.LogLevel)
}

func loadDotEnv(root string) error {
	envPath := filepath.Join(root, ".env")
	if _, err := os.Stat(envPath); err != nil {
		return nil
	}
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("loading %s: %w", envPath, err)
	}
	return nil
}

// Marshal renders cfg as flock.yaml content.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}
