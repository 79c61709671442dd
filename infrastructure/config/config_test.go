package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/lb-conn/offlinexml-verifier/infrastructure/archive"
	"github.com/lb-conn/offlinexml-verifier/infrastructure/offlinexml"
	"github.com/lb-conn/offlinexml-verifier/infrastructure/report"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, offlinexml.DefaultLayout(), cfg.Layout())
	assert.Equal(t, report.DefaultOptions(), cfg.ReportOptions())
	assert.Equal(t, archive.FallbackFail, cfg.ArchiveOptions().Fallback)
	assert.Equal(t, DefaultCertificatePath, cfg.Archive.DefaultCertificate)
	assert.Equal(t, "public", cfg.Certificate.Password)
	assert.Equal(t, zapcore.WarnLevel, cfg.Level())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offlinexml.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
output: json
document:
  strategy: position
  whitespace: strip
report:
  node: Data
archive:
  fallback: degrade
  tool: /usr/local/bin/7zz
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	layout := cfg.Layout()
	assert.Equal(t, offlinexml.StrategyPosition, layout.Strategy)
	assert.Equal(t, offlinexml.WhitespaceStrip, layout.Whitespace)
	assert.Equal(t, "Signature", layout.Container, "unset keys keep their defaults")

	opts := cfg.ReportOptions()
	assert.Equal(t, "Data", opts.Node)
	assert.Equal(t, report.FormatJSON, opts.Format)
	assert.Len(t, opts.Fields, 3)

	assert.Equal(t, archive.FallbackDegrade, cfg.ArchiveOptions().Fallback)
	assert.Equal(t, "/usr/local/bin/7zz", cfg.ArchiveOptions().Tool)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level())
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("document: [unterminated"), 0o600))
	_, err = Load(bad)
	require.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("archive:\n  fallback: maybe\n"), 0o600))
	_, err = Load(invalid)
	require.ErrorContains(t, err, "archive.fallback")
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"output", func(c *Config) { c.Output = "xml" }, "output"},
		{"strategy", func(c *Config) { c.Document.Strategy = "xpath" }, "document"},
		{"field", func(c *Config) { c.Report.Fields = []FieldConfig{{Label: "Name"}} }, "report.fields[0]"},
		{"fallback", func(c *Config) { c.Archive.Fallback = "ignore" }, "archive.fallback"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}
}
