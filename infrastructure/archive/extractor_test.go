package archive

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lb-conn/offlinexml-verifier/application/domain"
)

func writeZip(t *testing.T, dir string, files map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, "offlineaadhaar.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, content := range files {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func missingTool(string) (string, error) {
	return "", errors.New("executable file not found in $PATH")
}

func TestExtractor_Extract_Unencrypted(t *testing.T) {
	src := t.TempDir()
	archivePath := writeZip(t, src, map[string]string{
		"offlineaadhaar.xml": "<Root/>",
		"issuer.cer":         "cert",
	})

	e := NewExtractor(Options{TempDir: t.TempDir()}, nil)
	extraction, err := e.Extract(context.Background(), archivePath, "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filepath.Base(extraction.Dir), dirPrefix))
	assert.Equal(t, "offlineaadhaar.xml", filepath.Base(extraction.DocumentPath))
	assert.Equal(t, "issuer.cer", filepath.Base(extraction.CertificatePath))

	data, err := os.ReadFile(extraction.DocumentPath)
	require.NoError(t, err)
	assert.Equal(t, "<Root/>", string(data))

	require.NoError(t, e.Cleanup(extraction))
	_, err = os.Stat(extraction.Dir)
	assert.True(t, os.IsNotExist(err))
}

func TestExtractor_Extract_NoCertificate(t *testing.T) {
	archivePath := writeZip(t, t.TempDir(), map[string]string{"offlineaadhaar.xml": "<Root/>"})

	extraction, err := NewExtractor(Options{TempDir: t.TempDir()}, nil).Extract(context.Background(), archivePath, "")
	require.NoError(t, err)
	assert.Empty(t, extraction.CertificatePath)
}

func TestExtractor_Extract_Errors(t *testing.T) {
	src := t.TempDir()

	t.Run("missing archive", func(t *testing.T) {
		_, err := NewExtractor(Options{TempDir: t.TempDir()}, nil).Extract(context.Background(), filepath.Join(src, "absent.zip"), "")
		require.ErrorIs(t, err, domain.ErrExtraction)
		assert.Equal(t, domain.ErrCodeInput, domain.CodeOf(err))
	})

	t.Run("no xml", func(t *testing.T) {
		archivePath := writeZip(t, t.TempDir(), map[string]string{"readme.txt": "hello"})
		tmp := t.TempDir()
		_, err := NewExtractor(Options{TempDir: tmp}, nil).Extract(context.Background(), archivePath, "")
		require.ErrorIs(t, err, domain.ErrExtraction)

		entries, err := os.ReadDir(tmp)
		require.NoError(t, err)
		assert.Empty(t, entries, "extraction directory must be removed on failure")
	})

	t.Run("zip slip", func(t *testing.T) {
		archivePath := writeZip(t, t.TempDir(), map[string]string{"../evil.xml": "<Root/>"})
		_, err := NewExtractor(Options{TempDir: t.TempDir()}, nil).Extract(context.Background(), archivePath, "")
		require.ErrorIs(t, err, domain.ErrExtraction)
	})

	t.Run("not a zip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.zip")
		require.NoError(t, os.WriteFile(path, []byte("nope"), 0o600))
		_, err := NewExtractor(Options{TempDir: t.TempDir()}, nil).Extract(context.Background(), path, "")
		require.ErrorIs(t, err, domain.ErrExtraction)
	})
}

func TestExtractor_Extract_Password(t *testing.T) {
	archivePath := writeZip(t, t.TempDir(), map[string]string{"offlineaadhaar.xml": "<Root/>"})

	t.Run("runs 7-Zip", func(t *testing.T) {
		e := NewExtractor(Options{TempDir: t.TempDir()}, nil)
		e.lookPath = func(file string) (string, error) { return "/usr/bin/" + file, nil }

		var gotName string
		var gotArgs []string
		e.run = func(_ context.Context, name string, args ...string) error {
			gotName, gotArgs = name, args
			out := strings.TrimPrefix(args[2], "-o")
			return os.WriteFile(filepath.Join(out, "doc.xml"), []byte("<Root/>"), 0o600)
		}

		extraction, err := e.Extract(context.Background(), archivePath, "RAVI1985")
		require.NoError(t, err)
		assert.Equal(t, "/usr/bin/7z", gotName)
		assert.Equal(t, []string{"x", archivePath, "-o" + extraction.Dir, "-pRAVI1985", "-y"}, gotArgs)
		assert.Equal(t, "doc.xml", filepath.Base(extraction.DocumentPath))
	})

	t.Run("explicit tool", func(t *testing.T) {
		e := NewExtractor(Options{TempDir: t.TempDir(), Tool: "/opt/7zip/7zz"}, nil)
		var looked []string
		e.lookPath = func(file string) (string, error) {
			looked = append(looked, file)
			return file, nil
		}
		e.run = func(_ context.Context, name string, args ...string) error {
			return errors.New("wrong password")
		}

		_, err := e.Extract(context.Background(), archivePath, "RAVI1985")
		require.ErrorIs(t, err, domain.ErrExtraction)
		assert.Equal(t, []string{"/opt/7zip/7zz"}, looked)
	})

	t.Run("tool missing fails by default", func(t *testing.T) {
		e := NewExtractor(Options{TempDir: t.TempDir()}, nil)
		e.lookPath = missingTool

		_, err := e.Extract(context.Background(), archivePath, "RAVI1985")
		require.ErrorIs(t, err, domain.ErrExtraction)
	})

	t.Run("tool missing degrades when configured", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		e := NewExtractor(Options{TempDir: t.TempDir(), Fallback: FallbackDegrade}, zap.New(core))
		e.lookPath = missingTool

		extraction, err := e.Extract(context.Background(), archivePath, "RAVI1985")
		require.NoError(t, err)
		assert.Equal(t, "offlineaadhaar.xml", filepath.Base(extraction.DocumentPath))
		assert.Equal(t, 1, logs.FilterMessageSnippet("7-Zip not found").Len())
	})
}

func TestExtractor_Cleanup_IgnoresForeignDirs(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(Options{}, nil)

	require.NoError(t, e.Cleanup(domain.Extraction{Dir: dir}))
	_, err := os.Stat(dir)
	assert.NoError(t, err)
}
