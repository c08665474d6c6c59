// Package document turns uploaded files into plain text and splits that text
// into overlapping chunks for embedding.
package document

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

// Format is the declared document format, derived from the file extension.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatText Format = "txt"
)

// FormatOf maps a path's extension to a Format. ok is false for unsupported extensions.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF, true
	case ".docx":
		return FormatDOCX, true
	case ".txt":
		return FormatText, true
	default:
		return Format(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")), false
	}
}

// Extractor reads supported files as plain text.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract returns the NFC-normalised text of the file at path.
//
// A corrupt or unreadable file yields an *ExtractionError wrapping
// ErrExtractionFailed, never an empty string, so callers can tell a broken
// upload apart from a document that legitimately has no text.
func (e *Extractor) Extract(path string) (string, error) {
	format, ok := FormatOf(path)
	if !ok {
		return "", unsupported(path, format)
	}

	var (
		text string
		err  error
	)
	switch format {
	case FormatPDF:
		text, err = extractPDF(path)
	case FormatDOCX:
		text, err = extractDOCX(path)
	case FormatText:
		text, err = extractText(path)
	}
	if err != nil {
		e.logger.Error("Text extraction failed",
			slog.String("path", path),
			slog.String("format", string(format)),
			slog.Any("error", err),
		)
		return "", failed(path, format, err)
	}

	text = norm.NFC.String(strings.ReplaceAll(text, "\x00", ""))

	e.logger.Debug("Text extracted",
		slog.String("path", path),
		slog.String("format", string(format)),
		slog.Int("chars", utf8.RuneCountInString(text)),
	)
	return text, nil
}

// extractPDF concatenates the text of every page, each followed by a
// newline. Pages with no text contribute nothing.
func extractPDF(path string) (text string, err error) {
	// the pdf reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if pageText == "" {
			continue
		}
		b.WriteString(pageText)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func extractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file is not valid UTF-8")
	}
	return strings.TrimPrefix(string(data), "\uFEFF"), nil
}
