package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the project root when no explicit
// path is given.
const FileName = "assetpipe.yaml"

// StaticDir and PublicDir are where the site generator reads static files
// and writes the site. They follow the generator's own layout and are not
// configurable.
const (
	StaticDir = "static"
	PublicDir = "public"
)

// Logical tool names.
const (
	ToolMinify = "minify"
	ToolSassc  = "sassc"
	ToolHugo   = "hugo"
)

// Tool maps a logical tool name to an executable and its leading arguments.
type Tool struct {
	Path string   `mapstructure:"path" yaml:"path"`
	Args []string `mapstructure:"args" yaml:"args,omitempty"`
}

type CleanConfig struct {
	// Keep lists globs, relative to each cleaned directory, that survive a clean.
	Keep []string `mapstructure:"keep" yaml:"keep"`
}

type ArchiveConfig struct {
	// Path of the zip written from the site output. Empty disables archiving.
	Path string `mapstructure:"path" yaml:"path"`
}

// Config stores all configuration of the application.
type Config struct {
	Root          string          `mapstructure:"root" yaml:"-"`
	SourceDir     string          `mapstructure:"source_dir" yaml:"source_dir"`
	PostProcess   bool            `mapstructure:"post_process" yaml:"post_process"`
	Concurrency   int             `mapstructure:"concurrency" yaml:"concurrency"`
	ToolTimeout   time.Duration   `mapstructure:"tool_timeout" yaml:"tool_timeout"`
	OptionalSteps []string        `mapstructure:"optional_steps" yaml:"optional_steps"`
	Clean         CleanConfig     `mapstructure:"clean" yaml:"clean"`
	Archive       ArchiveConfig   `mapstructure:"archive" yaml:"archive"`
	LogFile       string          `mapstructure:"log_file" yaml:"log_file,omitempty"`
	Verbose       bool            `mapstructure:"verbose" yaml:"-"`
	Tools         map[string]Tool `mapstructure:"tools" yaml:"tools"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Root:          ".",
		SourceDir:     "src",
		PostProcess:   true,
		Concurrency:   0,
		ToolTimeout:   2 * time.Minute,
		OptionalSteps: []string{"favicon", "html", "xml"},
		Clean:         CleanConfig{Keep: []string{}},
		Tools: map[string]Tool{
			ToolMinify: {Path: "minify"},
			ToolSassc:  {Path: "sassc"},
			ToolHugo: {
				Path: "hugo",
				Args: []string{"--cleanDestinationDir", "--gc", "--ignoreCache", "--noChmod", "--noTimes"},
			},
		},
	}
}

// LoadConfig reads configuration from the defaults, an optional config file
// and ASSETPIPE_* environment variables, in increasing order of precedence.
// When configPath is empty, assetpipe.yaml is looked up in root.
func LoadConfig(root, configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(root)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ASSETPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.UnmarshalExact(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve project root %s: %w", root, err)
	}
	config.Root = absRoot

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("source_dir", d.SourceDir)
	v.SetDefault("post_process", d.PostProcess)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("tool_timeout", d.ToolTimeout)
	v.SetDefault("optional_steps", d.OptionalSteps)
	v.SetDefault("clean.keep", d.Clean.Keep)
	v.SetDefault("archive.path", d.Archive.Path)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("verbose", false)
	for name, tool := range d.Tools {
		v.SetDefault("tools."+name+".path", tool.Path)
		v.SetDefault("tools."+name+".args", tool.Args)
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SourceDir) == "" {
		return fmt.Errorf("source_dir must not be empty")
	}
	if err := checkProjectPath("source_dir", c.SourceDir); err != nil {
		return err
	}
	if c.Archive.Path != "" {
		if err := checkProjectPath("archive.path", c.Archive.Path); err != nil {
			return err
		}
	}
	if c.ToolTimeout <= 0 {
		return fmt.Errorf("tool_timeout must be positive, got %s", c.ToolTimeout)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	for _, name := range []string{ToolMinify, ToolSassc, ToolHugo} {
		if _, err := c.Tool(name); err != nil {
			return err
		}
	}
	for _, arg := range c.Tools[ToolHugo].Args {
		if arg == "-d" || arg == "--destination" || strings.HasPrefix(arg, "--destination=") {
			return fmt.Errorf("tools.hugo.args must not override the output directory (%s), post-processing reads %s", arg, PublicDir)
		}
	}
	return nil
}

// checkProjectPath rejects paths that do not stay below the project root.
// Every build path is resolved against the root.
func checkProjectPath(key, path string) error {
	if filepath.IsAbs(path) {
		return fmt.Errorf("%s must be relative to the project root, got %s", key, path)
	}
	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s must not leave the project root, got %s", key, path)
	}
	return nil
}

// Tool returns the configured executable for a logical tool name.
func (c *Config) Tool(name string) (Tool, error) {
	tool, ok := c.Tools[name]
	if !ok || strings.TrimSpace(tool.Path) == "" {
		return Tool{}, fmt.Errorf("tool %q is not configured", name)
	}
	return tool, nil
}

// AssetsDir is the intermediate asset tree consumed by the site generator.
func (c *Config) AssetsDir() string {
	return filepath.Join(StaticDir, "assets")
}

// WriteDefault writes the default configuration as YAML to path.
func WriteDefault(fsys afero.Fs, path string) error {
	if exists, err := afero.Exists(fsys, path); err != nil {
		return fmt.Errorf("unable to stat %s: %w", path, err)
	} else if exists {
		return fmt.Errorf("config file %s already exists: %w", path, os.ErrExist)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("unable to encode default config: %w", err)
	}

	header := []byte("# assetpipe configuration\n")
	if err := afero.WriteFile(fsys, path, append(header, data...), 0644); err != nil {
		return fmt.Errorf("unable to write default config file: %w", err)
	}
	return nil
}
