package extractor

import (
	"context"
	"errors"
	"os/exec"
	"testing"
)

func TestIsOCRAvailable(t *testing.T) {
	// The result depends on the installed tools; check it agrees with LookPath.
	result := IsOCRAvailable()
	t.Logf("IsOCRAvailable() = %v", result)

	_, err1 := exec.LookPath("pdftoppm")
	_, err2 := exec.LookPath("tesseract")
	expected := err1 == nil && err2 == nil
	if result != expected {
		t.Errorf("IsOCRAvailable() = %v, but direct check says %v", result, expected)
	}
}

func TestExtractWithOCR_MissingTools(t *testing.T) {
	if IsOCRAvailable() {
		t.Skip("OCR tools are installed; cannot test missing-tool error path")
	}

	_, err := extractWithOCR(context.Background(), "/nonexistent/file.pdf", OCROptions{})
	if !errors.Is(err, ErrOCRUnavailable) {
		t.Errorf("got %v, want ErrOCRUnavailable", err)
	}
}

func TestExtractWithOCR_NonexistentFile(t *testing.T) {
	if !IsOCRAvailable() {
		t.Skip("OCR tools not installed; skipping")
	}

	_, err := extractWithOCR(context.Background(), "/tmp/nonexistent-file-12345.pdf", OCROptions{})
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestRecognizeImageMissingFile(t *testing.T) {
	if _, err := RecognizeImage(context.Background(), "/tmp/nonexistent-slip-12345.png", OCROptions{}); err == nil {
		t.Error("expected error for nonexistent image")
	}
}

func TestPDFPageCount(t *testing.T) {
	if count := pdfPageCount("/tmp/nonexistent-file-12345.pdf"); count != 0 {
		t.Errorf("expected 0 pages for nonexistent file, got %d", count)
	}
}

func TestOCROptionsDefaults(t *testing.T) {
	var calls [][2]int
	opts := OCROptions{Progress: func(done, total int) { calls = append(calls, [2]int{done, total}) }}

	if got := opts.languages(); got != DefaultLanguages {
		t.Errorf("got %q, want %q", got, DefaultLanguages)
	}
	opts.report(1, 3)
	if len(calls) != 1 || calls[0] != [2]int{1, 3} {
		t.Errorf("got %v", calls)
	}

	OCROptions{}.report(1, 1) // nil Progress must be safe
}
