package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/insightdelivered/slip-scanner/internal/logger"
)

// DefaultLanguages are the tesseract models used for Thai bank slips.
const DefaultLanguages = "tha+eng"

var ErrOCRUnavailable = errors.New("OCR tools not installed (need tesseract-ocr and poppler-utils)")

// Progress is called after each OCR step with the number of pages done out
// of total.
type Progress func(done, total int)

// OCROptions configures tesseract.
type OCROptions struct {
	Languages string        // tesseract -l value, DefaultLanguages when empty
	Timeout   time.Duration // per document; zero means no limit
	Progress  Progress
}

func (o OCROptions) languages() string {
	if o.Languages == "" {
		return DefaultLanguages
	}
	return o.Languages
}

func (o OCROptions) report(done, total int) {
	if o.Progress != nil {
		o.Progress(done, total)
	}
}

// IsOCRAvailable reports whether pdftoppm and tesseract are on PATH.
func IsOCRAvailable() bool {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return false
	}
	_, err := exec.LookPath("tesseract")
	return err == nil
}

// RecognizeImage runs tesseract on a single slip image.
func RecognizeImage(ctx context.Context, imagePath string, opts OCROptions) (string, error) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		return "", fmt.Errorf("tesseract not available (install tesseract-ocr): %w", err)
	}
	if _, err := os.Stat(imagePath); err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}

	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	opts.report(0, 1)
	text, err := tesseract(ctx, imagePath, opts.languages())
	if err != nil {
		return "", err
	}
	opts.report(1, 1)

	if text == "" {
		return "", fmt.Errorf("tesseract found no text in %s", filepath.Base(imagePath))
	}
	return text, nil
}

// ExtractTextOCR converts PDF pages to images and runs tesseract on each.
// This handles scanned statements that have no text layer.
func ExtractTextOCR(ctx context.Context, filePath string, opts OCROptions) ([]string, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()
	return extractWithOCR(ctx, filePath, opts)
}

func extractWithOCR(ctx context.Context, filePath string, opts OCROptions) ([]string, error) {
	if !IsOCRAvailable() {
		return nil, ErrOCRUnavailable
	}
	log := logger.FromContext(ctx)

	tmpDir, err := os.MkdirTemp("", "slip-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// 300 DPI keeps Thai vowel marks legible
	imgPrefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm", "-r", "300", "-png", filePath, imgPrefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, strings.TrimSpace(string(out)))
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read temp dir: %w", err)
	}
	var imageFiles []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".png") {
			imageFiles = append(imageFiles, filepath.Join(tmpDir, e.Name()))
		}
	}
	sort.Strings(imageFiles)
	if len(imageFiles) == 0 {
		return nil, errors.New("pdftoppm produced no page images")
	}

	total := len(imageFiles)
	opts.report(0, total)

	var pages []string
	for i, img := range imageFiles {
		text, err := tesseract(ctx, img, opts.languages())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// some pages may still work
			log.Warn().Err(err).Int("page", i+1).Msg("tesseract failed on page")
		} else if text != "" {
			pages = append(pages, text)
		}
		opts.report(i+1, total)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("tesseract OCR produced no text from %d page images", total)
	}
	return pages, nil
}

// tesseract writes recognized text to stdout. PSM 6 treats the image as a
// single block, which suits slips better than column detection.
func tesseract(ctx context.Context, imagePath, languages string) (string, error) {
	cmd := exec.CommandContext(ctx, "tesseract", imagePath, "stdout", "-l", languages, "--psm", "6")
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract %s: %w (%s)", filepath.Base(imagePath), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(string(out)), nil
}

// pdfPageCount returns the number of pages in a PDF using pdfinfo, or 0 when
// it cannot tell.
func pdfPageCount(filePath string) int {
	out, err := exec.Command("pdfinfo", filePath).Output()
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, "Pages:") {
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
			if err == nil {
				return n
			}
		}
	}
	return 0
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
