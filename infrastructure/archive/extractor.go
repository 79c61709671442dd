// Package archive unpacks password-protected offline export archives.
//
// Encrypted archives are delegated to an external 7-Zip binary run as a blocking
// subprocess. Unencrypted archives, and encrypted ones under the degrade policy when
// no 7-Zip binary is available, are read with archive/zip.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lb-conn/offlinexml-verifier/application/domain"
	"github.com/lb-conn/offlinexml-verifier/application/ports"
)

// Fallback decides what happens when a password is given but no 7-Zip binary is found.
type Fallback string

const (
	// FallbackFail aborts the extraction.
	FallbackFail Fallback = "fail"
	// FallbackDegrade logs a warning and extracts without the password.
	FallbackDegrade Fallback = "degrade"
)

const dirPrefix = "OfflineXMLVerifier_"

// toolCandidates are tried in order when no explicit tool path is configured.
var toolCandidates = []string{
	"7z",
	"7za",
	"7zz",
	`C:\Program Files\7-Zip\7z.exe`,
	`C:\Program Files (x86)\7-Zip\7z.exe`,
}

// Options configures an Extractor.
type Options struct {
	Tool     string
	Fallback Fallback
	TempDir  string
}

// Extractor implements ports.Extractor.
type Extractor struct {
	opts     Options
	logger   *zap.Logger
	lookPath func(file string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
}

var _ ports.Extractor = (*Extractor)(nil)

// NewExtractor creates an Extractor. logger may be nil.
func NewExtractor(opts Options, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Fallback == "" {
		opts.Fallback = FallbackFail
	}
	return &Extractor{
		opts:     opts,
		logger:   logger,
		lookPath: exec.LookPath,
		run:      runCommand,
	}
}

// Extract unpacks archivePath into a fresh temporary directory and returns the document
// found there plus the certificate the archive carries, if any. The caller owns the
// directory and should release it with Cleanup.
func (e *Extractor) Extract(ctx context.Context, archivePath, password string) (domain.Extraction, error) {
	if _, err := os.Stat(archivePath); err != nil {
		return domain.Extraction{}, domain.InputError(domain.ErrExtraction,
			fmt.Sprintf("archive %s is not accessible", archivePath), err)
	}

	dir := filepath.Join(e.tempDir(), dirPrefix+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return domain.Extraction{}, domain.InputError(domain.ErrExtraction, "failed to create extraction directory", err)
	}
	e.logger.Info("extracting archive", zap.String("archive", archivePath), zap.String("dir", dir))

	extraction := domain.Extraction{Dir: dir}
	if err := e.unpack(ctx, archivePath, password, dir); err != nil {
		_ = os.RemoveAll(dir)
		return domain.Extraction{}, err
	}

	xmlPath, err := findFirst(dir, ".xml")
	if err != nil {
		_ = os.RemoveAll(dir)
		return domain.Extraction{}, domain.InputError(domain.ErrExtraction, "failed to scan extracted files", err)
	}
	if xmlPath == "" {
		_ = os.RemoveAll(dir)
		return domain.Extraction{}, domain.InputError(domain.ErrExtraction, "XML file not found in the archive", nil)
	}
	extraction.DocumentPath = xmlPath

	certPath, err := findFirst(dir, ".cer")
	if err != nil {
		_ = os.RemoveAll(dir)
		return domain.Extraction{}, domain.InputError(domain.ErrExtraction, "failed to scan extracted files", err)
	}
	extraction.CertificatePath = certPath

	e.logger.Info("archive extracted",
		zap.String("document", filepath.Base(xmlPath)),
		zap.String("certificate", certPath),
	)
	return extraction, nil
}

// Cleanup removes the extraction directory.
func (e *Extractor) Cleanup(extraction domain.Extraction) error {
	if extraction.Dir == "" || !strings.HasPrefix(filepath.Base(extraction.Dir), dirPrefix) {
		return nil
	}
	return os.RemoveAll(extraction.Dir)
}

func (e *Extractor) unpack(ctx context.Context, archivePath, password, dir string) error {
	if password == "" {
		return unzip(archivePath, dir)
	}

	tool, err := e.findTool()
	if err != nil {
		if e.opts.Fallback != FallbackDegrade {
			return domain.InputError(domain.ErrExtraction,
				"7-Zip not found; it is required for password-protected archives", err)
		}
		e.logger.Warn("7-Zip not found, password-protected archive extraction may fail",
			zap.String("archive", archivePath))
		return unzip(archivePath, dir)
	}

	args := []string{"x", archivePath, "-o" + dir, "-p" + password, "-y"}
	if err := e.run(ctx, tool, args...); err != nil {
		return domain.InputError(domain.ErrExtraction, fmt.Sprintf("%s failed to extract %s", filepath.Base(tool), archivePath), err)
	}
	return nil
}

func (e *Extractor) findTool() (string, error) {
	candidates := toolCandidates
	if e.opts.Tool != "" {
		candidates = []string{e.opts.Tool}
	}
	for _, candidate := range candidates {
		if path, err := e.lookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", errors.New("no 7-Zip executable found")
}

func (e *Extractor) tempDir() string {
	if e.opts.TempDir != "" {
		return e.opts.TempDir
	}
	return os.TempDir()
}

// findFirst returns the lexically first file under dir with the given extension.
func findFirst(dir, ext string) (string, error) {
	var matches []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil || len(matches) == 0 {
		return "", err
	}
	sort.Strings(matches)
	return matches[0], nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
