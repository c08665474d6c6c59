package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cuongbtq/hr-rag/internal/document"
)

// Upload subdirectories under the configured upload dir.
const (
	documentsDir   = "documents"
	resumesDir     = "resumes"
	attachmentsDir = "attachments"
)

// saveUpload writes fh under uploadDir/sub with a unique prefix and returns
// the path the worker will read.
func (h *Handler) saveUpload(fh *multipart.FileHeader, sub, prefix string) (string, error) {
	dir := filepath.Join(h.uploadDir, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s", prefix, uuid.NewString()[:8], safeFilename(fh.Filename))
	path := filepath.Join(dir, name)

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return path, nil
}

// safeFilename strips directories and separators from a client filename.
func safeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}

// checkFormat rejects files the extractor cannot read before anything is stored.
func checkFormat(filename string) error {
	if _, ok := document.FormatOf(filename); !ok {
		return fmt.Errorf("%w: %s", document.ErrUnsupportedFormat, filepath.Ext(filename))
	}
	return nil
}
