package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lb-conn/offlinexml-verifier/application/domain"
)

// unzip extracts an unencrypted zip archive into dir.
func unzip(archivePath, dir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return domain.InputError(domain.ErrExtraction, fmt.Sprintf("failed to open archive %s", archivePath), err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := extractFile(f, dir); err != nil {
			return domain.InputError(domain.ErrExtraction, fmt.Sprintf("failed to extract %s", f.Name), err)
		}
	}
	return nil
}

func extractFile(f *zip.File, dir string) error {
	target := filepath.Join(dir, f.Name)
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		return fmt.Errorf("entry %q escapes the extraction directory", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o700)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
