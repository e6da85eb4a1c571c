package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// PdftotextExtractor reads the embedded text layer by shelling out to
// poppler's pdftotext. The tool is treated as a black box: whatever it prints
// to stdout with layout preserved is the text layer, and any failure is the
// caller's to interpret.
type PdftotextExtractor struct {
	binary string
}

// NewPdftotextExtractor creates a text-layer extractor using the given
// pdftotext binary (path or bare name resolved via PATH).
func NewPdftotextExtractor(binary string) *PdftotextExtractor {
	if binary == "" {
		binary = "pdftotext"
	}
	return &PdftotextExtractor{binary: binary}
}

// ExtractText returns the raw text layer of the document
func (e *PdftotextExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	// "-" routes output to stdout, -enc UTF-8 keeps the encoding predictable.
	cmd := exec.CommandContext(ctx, e.binary, "-enc", "UTF-8", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("pdftotext: %s: %w", msg, err)
		}
		return "", fmt.Errorf("pdftotext: %w", err)
	}

	return strings.Trim(stdout.String(), "\n"), nil
}
