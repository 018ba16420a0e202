// Package config provides configuration loading and validation for ipfix-inspect
package config

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen  ListenConfig  `yaml:"listen" json:"listen"`
	Input   InputConfig   `yaml:"input" json:"input"`
	Run     RunConfig     `yaml:"run" json:"run"`
	Report  ReportConfig  `yaml:"report" json:"report"`
	Log     LogConfig     `yaml:"log" json:"log"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

type ListenConfig struct {
	// Transport is either udp or tcp
	Transport  string `yaml:"transport" json:"transport" default:"udp"`
	Address    string `yaml:"address" json:"address" default:"0.0.0.0:9995"`
	BufferSize int    `yaml:"bufferSize" json:"bufferSize" default:"65535"`
	ReusePort  bool   `yaml:"reusePort" json:"reusePort" default:"true"`
}

// InputConfig selects an IPFIX file to replay instead of listening on UDP
type InputConfig struct {
	File     string `yaml:"file" json:"file"`
	Exporter string `yaml:"exporter" json:"exporter" default:"0.0.0.0"`
}

type RunConfig struct {
	// Duration bounds the run, 0 runs until interrupted
	Duration time.Duration `yaml:"duration" json:"duration"`
	// ReportInterval enables interim reports, 0 only reports once on shutdown
	ReportInterval time.Duration `yaml:"reportInterval" json:"reportInterval"`
}

type ReportConfig struct {
	Format        string `yaml:"format" json:"format" default:"table"`
	TopTemplates  int    `yaml:"topTemplates" json:"topTemplates" default:"10"`
	TopFieldTypes int    `yaml:"topFieldTypes" json:"topFieldTypes" default:"20"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level" default:"info"`
	Format string `yaml:"format" json:"format" default:"text"`
}

type MetricsConfig struct {
	// Address to serve /metrics on, empty disables the endpoint
	Address string `yaml:"address" json:"address"`
}

var (
	Transports    = []string{"udp", "tcp"}
	ReportFormats = []string{"table", "yaml", "json"}
	LogLevels     = []string{"debug", "info", "warn", "error"}
	LogFormats    = []string{"text", "json"}
)

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		// the tags are static, failing here is a programming error
		panic(err)
	}
	return cfg
}

// Load reads the YAML configuration file at path on top of the defaults. An empty path
// yields the defaults. The result is not validated, such that flags can still be applied.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	if err := Decode(f, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads YAML from r into cfg, rejecting unknown keys. Keys absent from the document keep
// their value in cfg.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Input.File == "" && c.Listen.Address == "" {
		return errors.New("either listen.address or input.file must be set")
	}
	if c.Input.File == "" && !oneOf(c.Listen.Transport, Transports) {
		return fmt.Errorf("unsupported listen.transport %q, expected one of %v", c.Listen.Transport, Transports)
	}
	if c.Listen.BufferSize < 16 || c.Listen.BufferSize > 65535 {
		return fmt.Errorf("listen.bufferSize must be in [16, 65535], got %d", c.Listen.BufferSize)
	}
	if c.Input.File != "" {
		if _, err := netip.ParseAddr(c.Input.Exporter); err != nil {
			return fmt.Errorf("input.exporter is not an IP address: %w", err)
		}
	}
	if c.Run.Duration < 0 {
		return fmt.Errorf("run.duration must not be negative, got %s", c.Run.Duration)
	}
	if c.Run.ReportInterval < 0 {
		return fmt.Errorf("run.reportInterval must not be negative, got %s", c.Run.ReportInterval)
	}
	if !oneOf(c.Report.Format, ReportFormats) {
		return fmt.Errorf("unsupported report.format %q, expected one of %v", c.Report.Format, ReportFormats)
	}
	if c.Report.TopTemplates <= 0 || c.Report.TopFieldTypes <= 0 {
		return errors.New("report.topTemplates and report.topFieldTypes must be positive")
	}
	if !oneOf(c.Log.Level, LogLevels) {
		return fmt.Errorf("unsupported log.level %q, expected one of %v", c.Log.Level, LogLevels)
	}
	if !oneOf(c.Log.Format, LogFormats) {
		return fmt.Errorf("unsupported log.format %q, expected one of %v", c.Log.Format, LogFormats)
	}
	return nil
}

// ExporterAddr returns the parsed input.exporter address. Validate guarantees it parses
// when a file is configured.
func (c *Config) ExporterAddr() netip.Addr {
	addr, err := netip.ParseAddr(c.Input.Exporter)
	if err != nil {
		return netip.IPv4Unspecified()
	}
	return addr
}

func oneOf(s string, allowed []string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}
