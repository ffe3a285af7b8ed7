// Package extractor turns slip images, PDF statements and plain-text dumps
// into recognized text for the parser. OCR runs through the tesseract and
// poppler command-line tools.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/insightdelivered/slip-scanner/internal/logger"
)

// ErrUnsupportedFile is returned for extensions Extract does not handle.
var ErrUnsupportedFile = errors.New("unsupported file type")

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true,
	".bmp": true, ".webp": true, ".gif": true,
}

// Kind classifies a file by extension: "text", "image", "pdf" or "".
func Kind(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == ".txt":
		return "text"
	case ext == ".pdf":
		return "pdf"
	case imageExts[ext]:
		return "image"
	}
	return ""
}

// Extract returns the recognized text of one document. Text files are read
// as-is, images are OCR'd, and PDFs use their text layer with OCR as the
// fallback for scanned pages.
func Extract(ctx context.Context, path string, opts OCROptions) (string, error) {
	switch Kind(path) {
	case "text":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return string(data), nil

	case "image":
		return RecognizeImage(ctx, path, opts)

	case "pdf":
		pages, err := ExtractText(path)
		if err == nil {
			return strings.Join(pages, "\n"), nil
		}
		log := logger.FromContext(ctx)
		log.Debug().Err(err).Str("file", filepath.Base(path)).Msg("no text layer, trying OCR")

		pages, ocrErr := ExtractTextOCR(ctx, path, opts)
		if ocrErr != nil {
			return "", fmt.Errorf("%s: %w (OCR: %v)", filepath.Base(path), err, ocrErr)
		}
		return strings.Join(pages, "\n"), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(path))
}

// ExtractBytes writes data to a temporary file named like name and extracts
// it. It serves uploads.
func ExtractBytes(ctx context.Context, name string, data []byte, opts OCROptions) (string, error) {
	if Kind(name) == "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(name))
	}
	if Kind(name) == "text" {
		return string(data), nil
	}

	tmp, err := os.CreateTemp("", "slip-*"+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return Extract(ctx, tmp.Name(), opts)
}
