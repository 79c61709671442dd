// Package config loads the verifier configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/lb-conn/offlinexml-verifier/infrastructure/archive"
	"github.com/lb-conn/offlinexml-verifier/infrastructure/certificate"
	"github.com/lb-conn/offlinexml-verifier/infrastructure/offlinexml"
	"github.com/lb-conn/offlinexml-verifier/infrastructure/report"
)

// DefaultCertificatePath is the file name under which the issuer publishes its offline
// verification certificate.
const DefaultCertificatePath = "uidai_offline_publickey_19062019.cer"

// Config is the complete verifier configuration.
type Config struct {
	LogLevel    string            `yaml:"log_level"`
	Output      string            `yaml:"output"`
	Certificate CertificateConfig `yaml:"certificate"`
	Document    DocumentConfig    `yaml:"document"`
	Report      ReportConfig      `yaml:"report"`
	Archive     ArchiveConfig     `yaml:"archive"`
}

// CertificateConfig configures certificate loading.
type CertificateConfig struct {
	Password string `yaml:"password"`
}

// DocumentConfig describes where the signature lives inside the document.
type DocumentConfig struct {
	Strategy       string   `yaml:"strategy"`
	Container      string   `yaml:"container"`
	Values         []string `yaml:"values"`
	ContainerIndex int      `yaml:"container_index"`
	ValueIndex     int      `yaml:"value_index"`
	Whitespace     string   `yaml:"whitespace"`
}

// ReportConfig selects the identity node shown after a successful verification.
type ReportConfig struct {
	Node   string        `yaml:"node"`
	Fields []FieldConfig `yaml:"fields"`
}

// FieldConfig maps one node attribute to a label.
type FieldConfig struct {
	Label     string `yaml:"label"`
	Attribute string `yaml:"attribute"`
}

// ArchiveConfig configures archive extraction.
type ArchiveConfig struct {
	Tool               string `yaml:"tool"`
	Fallback           string `yaml:"fallback"`
	DefaultCertificate string `yaml:"default_certificate"`
}

// Default returns the configuration for the offline identity export.
func Default() Config {
	layout := offlinexml.DefaultLayout()
	reportOpts := report.DefaultOptions()

	fields := make([]FieldConfig, 0, len(reportOpts.Fields))
	for _, f := range reportOpts.Fields {
		fields = append(fields, FieldConfig{Label: f.Label, Attribute: f.Attribute})
	}

	return Config{
		LogLevel:    "warn",
		Output:      string(report.FormatText),
		Certificate: CertificateConfig{Password: certificate.DefaultPassword},
		Document: DocumentConfig{
			Strategy:       string(layout.Strategy),
			Container:      layout.Container,
			Values:         layout.Values,
			ContainerIndex: layout.ContainerIndex,
			ValueIndex:     layout.ValueIndex,
			Whitespace:     string(layout.Whitespace),
		},
		Report: ReportConfig{Node: reportOpts.Node, Fields: fields},
		Archive: ArchiveConfig{
			Fallback:           string(archive.FallbackFail),
			DefaultCertificate: DefaultCertificatePath,
		},
	}
}

// Load reads path and overlays it on Default. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects unknown enum values and empty names.
func (c Config) Validate() error {
	var errs []error

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	switch report.Format(c.Output) {
	case report.FormatText, report.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("output: unknown format %q", c.Output))
	}
	if err := c.Layout().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("document: %w", err))
	}
	for i, f := range c.Report.Fields {
		if f.Label == "" || f.Attribute == "" {
			errs = append(errs, fmt.Errorf("report.fields[%d]: label and attribute are required", i))
		}
	}
	switch archive.Fallback(c.Archive.Fallback) {
	case archive.FallbackFail, archive.FallbackDegrade:
	default:
		errs = append(errs, fmt.Errorf("archive.fallback: unknown policy %q", c.Archive.Fallback))
	}

	return errors.Join(errs...)
}

// Layout converts the document section into a parser layout.
func (c Config) Layout() offlinexml.Layout {
	return offlinexml.Layout{
		Strategy:       offlinexml.Strategy(c.Document.Strategy),
		Container:      c.Document.Container,
		Values:         c.Document.Values,
		ContainerIndex: c.Document.ContainerIndex,
		ValueIndex:     c.Document.ValueIndex,
		Whitespace:     offlinexml.Whitespace(c.Document.Whitespace),
	}
}

// ReportOptions converts the report section into reporter options.
func (c Config) ReportOptions() report.Options {
	fields := make([]report.FieldSpec, 0, len(c.Report.Fields))
	for _, f := range c.Report.Fields {
		fields = append(fields, report.FieldSpec{Label: f.Label, Attribute: f.Attribute})
	}
	return report.Options{Node: c.Report.Node, Fields: fields, Format: report.Format(c.Output)}
}

// ArchiveOptions converts the archive section into extractor options.
func (c Config) ArchiveOptions() archive.Options {
	return archive.Options{
		Tool:     c.Archive.Tool,
		Fallback: archive.Fallback(c.Archive.Fallback),
	}
}

// Level returns the configured zap level, defaulting to warn.
func (c Config) Level() zapcore.Level {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.WarnLevel
	}
	return level
}
