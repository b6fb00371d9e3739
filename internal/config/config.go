// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Engine() EngineConfig
	Analyzer() AnalyzerConfig
	Detector() DetectorConfig
	Store() StoreConfig
	Run() RunConfig
	SetRunConfig(rc RunConfig)
}

// Config holds the entire application configuration. It uses private fields
// to enforce access through the Interface's getter methods.
type Config struct {
	logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	analyzer AnalyzerConfig `mapstructure:"analyzer" yaml:"analyzer"`
	detector DetectorConfig `mapstructure:"detector" yaml:"detector"`
	store    StoreConfig    `mapstructure:"store" yaml:"store"`
	// run gets its marching orders from CLI flags, not the config file.
	run RunConfig `mapstructure:"-" yaml:"-"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.logger }
func (c *Config) Engine() EngineConfig     { return c.engine }
func (c *Config) Analyzer() AnalyzerConfig { return c.analyzer }
func (c *Config) Detector() DetectorConfig { return c.detector }
func (c *Config) Store() StoreConfig       { return c.store }
func (c *Config) Run() RunConfig           { return c.run }

// SetRunConfig implements Interface.
func (c *Config) SetRunConfig(rc RunConfig) { c.run = rc }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// EngineConfig configures the two-level worker pool described in §5:
// one pool analyzing extensions in parallel, one analyzing an extension's
// background page and content scripts in parallel within it.
type EngineConfig struct {
	ExtensionConcurrency      int           `mapstructure:"extension_concurrency" yaml:"extension_concurrency"`
	IntraExtensionConcurrency int           `mapstructure:"intra_extension_concurrency" yaml:"intra_extension_concurrency"`
	ExtensionTimeout          time.Duration `mapstructure:"extension_timeout" yaml:"extension_timeout"`
}

// AnalyzerConfig tunes the PDG/data-flow core.
type AnalyzerConfig struct {
	MaxPDGNodes            int    `mapstructure:"max_pdg_nodes" yaml:"max_pdg_nodes"`
	MaxFlowDepth           int    `mapstructure:"max_flow_depth" yaml:"max_flow_depth"`
	Include31Violations    bool   `mapstructure:"include_31_violations" yaml:"include_31_violations"`
	SortBySizeAscending    bool   `mapstructure:"sort_by_size_ascending" yaml:"sort_by_size_ascending"`
	SourceType             string `mapstructure:"source_type" yaml:"source_type"`
	Parser                 string `mapstructure:"parser" yaml:"parser"`
	ParserCommand          string `mapstructure:"parser_command" yaml:"parser_command"`
	ParserTimeoutSeconds   int    `mapstructure:"parser_timeout_seconds" yaml:"parser_timeout_seconds"`
}

// DetectorConfig points at the overridable source/sink/sender-guard tables.
type DetectorConfig struct {
	SourceTablePath string `mapstructure:"source_table_path" yaml:"source_table_path"`
	SinkTablePath   string `mapstructure:"sink_table_path" yaml:"sink_table_path"`
	TableVersion    string `mapstructure:"table_version" yaml:"table_version"`
}

// StoreConfig configures the optional result cache.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN     string `mapstructure:"dsn" yaml:"dsn"`
}

// RunConfig holds settings populated from CLI flags for a specific
// analysis run; it never comes from a config file.
type RunConfig struct {
	ExtensionDirs []string
	ManifestPaths []string
	Output        string
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration field.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "scalpel-extaint")
	v.SetDefault("logger.log_file", "scalpel-extaint.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Engine --
	v.SetDefault("engine.extension_concurrency", 0) // 0 => half of NumCPU, resolved at runtime
	v.SetDefault("engine.intra_extension_concurrency", 2)
	v.SetDefault("engine.extension_timeout", "600s")

	// -- Analyzer --
	v.SetDefault("analyzer.max_pdg_nodes", 200000)
	v.SetDefault("analyzer.max_flow_depth", 64)
	v.SetDefault("analyzer.include_31_violations", false)
	v.SetDefault("analyzer.sort_by_size_ascending", false)
	v.SetDefault("analyzer.source_type", "")
	v.SetDefault("analyzer.parser", "treesitter")
	v.SetDefault("analyzer.parser_command", "")
	v.SetDefault("analyzer.parser_timeout_seconds", 30)

	// -- Detector --
	v.SetDefault("detector.source_table_path", "")
	v.SetDefault("detector.sink_table_path", "")
	v.SetDefault("detector.table_version", "default-1")

	// -- Store --
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.dsn", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.engine.IntraExtensionConcurrency <= 0 {
		return fmt.Errorf("engine.intra_extension_concurrency must be a positive integer")
	}
	if c.engine.ExtensionConcurrency < 0 {
		return fmt.Errorf("engine.extension_concurrency must not be negative")
	}
	if c.engine.ExtensionTimeout <= 0 {
		return fmt.Errorf("engine.extension_timeout must be a positive duration")
	}
	if c.analyzer.MaxPDGNodes <= 0 {
		return fmt.Errorf("analyzer.max_pdg_nodes must be a positive integer")
	}
	if c.analyzer.MaxFlowDepth <= 0 {
		return fmt.Errorf("analyzer.max_flow_depth must be a positive integer")
	}
	switch c.analyzer.Parser {
	case "treesitter", "subprocess":
	default:
		return fmt.Errorf("analyzer.parser must be one of: treesitter, subprocess")
	}
	if c.analyzer.Parser == "subprocess" && c.analyzer.ParserCommand == "" {
		return fmt.Errorf("analyzer.parser_command is required when analyzer.parser is subprocess")
	}
	if c.store.Enabled && c.store.DSN == "" {
		return fmt.Errorf("store.dsn is required when store.enabled is true")
	}
	return nil
}
