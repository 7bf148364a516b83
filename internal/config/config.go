package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort     = 8080
	DefaultHost     = "127.0.0.1"
	DefaultLogLevel = "info"
	DefaultDPI      = 150.0
)

// Config holds all configuration for the fieldkit server and CLI.
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string

	// Coordinate conversion for PDF collaborators
	DPI float64

	// Pipeline tuning. Defaults preserve the empirically tuned values;
	// every knob is overridable by flag or environment.
	MinLabelConfidence       float64
	MinLabelLength           int
	TextOverlapThreshold     float64
	CheckboxOverlapThreshold float64
	UnionOverlapThreshold    float64
	MaxPairGate              float64
	MaxCommitDistance        float64
	Workers                  int
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Mode:                     ModeStdio, // stdio keeps MCP compatibility
		Host:                     DefaultHost,
		Port:                     DefaultPort,
		Version:                  "1.0.0",
		ServerName:               "fieldkit",
		LogLevel:                 DefaultLogLevel,
		DPI:                      DefaultDPI,
		MinLabelConfidence:       30,
		MinLabelLength:           5,
		TextOverlapThreshold:     0.7,
		CheckboxOverlapThreshold: 0.5,
		UnionOverlapThreshold:    0.3,
		MaxPairGate:              300,
		MaxCommitDistance:        200,
		Workers:                  0, // 0 = GOMAXPROCS
	}
}

// LoadFromFlags parses command line flags and returns a configuration.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("FIELDKIT")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("dpi", cfg.DPI)
	viper.SetDefault("minconfidence", cfg.MinLabelConfidence)
	viper.SetDefault("minlabellength", cfg.MinLabelLength)
	viper.SetDefault("textoverlap", cfg.TextOverlapThreshold)
	viper.SetDefault("checkboxoverlap", cfg.CheckboxOverlapThreshold)
	viper.SetDefault("unionoverlap", cfg.UnionOverlapThreshold)
	viper.SetDefault("pairgate", cfg.MaxPairGate)
	viper.SetDefault("commitdistance", cfg.MaxCommitDistance)
	viper.SetDefault("workers", cfg.Workers)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Float64("dpi", cfg.DPI, "Rasterization density for PDF coordinate conversion")
	pflag.Float64("minconfidence", cfg.MinLabelConfidence, "Minimum OCR confidence for label candidates (0-100)")
	pflag.Int("minlabellength", cfg.MinLabelLength, "Minimum label text length reaching the matcher")
	pflag.Float64("textoverlap", cfg.TextOverlapThreshold, "Overlap ratio above which text field detections are duplicates")
	pflag.Float64("checkboxoverlap", cfg.CheckboxOverlapThreshold, "Overlap ratio above which checkbox detections are duplicates")
	pflag.Float64("unionoverlap", cfg.UnionOverlapThreshold, "Overlap ratio for the multi-strategy union dedup pass")
	pflag.Float64("pairgate", cfg.MaxPairGate, "Maximum label-field distance considered during matching")
	pflag.Float64("commitdistance", cfg.MaxCommitDistance, "Maximum distance at which a pair is committed")
	pflag.Int("workers", cfg.Workers, "Concurrent page workers (0 = number of CPUs)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "loglevel", "dpi",
		"minconfidence", "minlabellength",
		"textoverlap", "checkboxoverlap", "unionoverlap",
		"pairgate", "commitdistance", "workers",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nfieldkit - form field detection for scanned documents\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                   # stdio mode (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=8081         # HTTP server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --commitdistance=150 --dpi=300    # tighter matching at high DPI\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  FIELDKIT_MODE            Server mode\n")
		fmt.Fprintf(os.Stderr, "  FIELDKIT_HOST            Server host\n")
		fmt.Fprintf(os.Stderr, "  FIELDKIT_PORT            Server port\n")
		fmt.Fprintf(os.Stderr, "  FIELDKIT_LOGLEVEL        Log level\n")
		fmt.Fprintf(os.Stderr, "  FIELDKIT_DPI             Rasterization density\n")
		fmt.Fprintf(os.Stderr, "  FIELDKIT_COMMITDISTANCE  Pair commit cutoff\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.DPI = viper.GetFloat64("dpi")
	cfg.MinLabelConfidence = viper.GetFloat64("minconfidence")
	cfg.MinLabelLength = viper.GetInt("minlabellength")
	cfg.TextOverlapThreshold = viper.GetFloat64("textoverlap")
	cfg.CheckboxOverlapThreshold = viper.GetFloat64("checkboxoverlap")
	cfg.UnionOverlapThreshold = viper.GetFloat64("unionoverlap")
	cfg.MaxPairGate = viper.GetFloat64("pairgate")
	cfg.MaxCommitDistance = viper.GetFloat64("commitdistance")
	cfg.Workers = viper.GetInt("workers")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.DPI <= 0 {
		return errors.New("dpi must be positive")
	}

	if c.MinLabelConfidence < 0 || c.MinLabelConfidence > 100 {
		return errors.New("minconfidence must be between 0 and 100")
	}

	for name, v := range map[string]float64{
		"textoverlap":     c.TextOverlapThreshold,
		"checkboxoverlap": c.CheckboxOverlapThreshold,
		"unionoverlap":    c.UnionOverlapThreshold,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s must be in (0, 1]", name)
		}
	}

	if c.MaxPairGate <= 0 || c.MaxCommitDistance <= 0 {
		return errors.New("distance cutoffs must be positive")
	}
	if c.MaxCommitDistance > c.MaxPairGate {
		return errors.New("commitdistance cannot exceed pairgate")
	}

	if c.Workers < 0 {
		return errors.New("workers cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, LogLevel: %s, DPI: %g, CommitDistance: %g}",
		c.Mode, c.Host, c.Port, c.LogLevel, c.DPI, c.MaxCommitDistance)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
