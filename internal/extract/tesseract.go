package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

// TesseractEngine rasterizes the document with pdftoppm and recognizes every
// page in-process through gosseract. Slower to set up than ocrmypdf but has
// no Python dependency, which matters for slim containers.
type TesseractEngine struct {
	pdftoppm string
	logger   *zap.Logger
}

// NewTesseractEngine creates an OCR engine backed by pdftoppm + libtesseract
func NewTesseractEngine(pdftoppm string, logger *zap.Logger) *TesseractEngine {
	if pdftoppm == "" {
		pdftoppm = "pdftoppm"
	}
	return &TesseractEngine{
		pdftoppm: pdftoppm,
		logger:   logger,
	}
}

// Recognize performs OCR over the whole document and returns the extracted text
func (e *TesseractEngine) Recognize(ctx context.Context, path string, langs string) (string, error) {
	tempDir, err := os.MkdirTemp("", "docrouter-pages-*")
	if err != nil {
		return "", fmt.Errorf("create raster temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tempDir); rmErr != nil {
			e.logger.Warn("failed to remove raster temp dir",
				zap.String("path", tempDir),
				zap.Error(rmErr),
			)
		}
	}()

	e.logger.Info("OCR start",
		zap.String("engine", "tesseract"),
		zap.String("langs", langs),
		zap.String("file", path),
	)

	pages, err := e.rasterize(ctx, path, tempDir)
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("pdftoppm produced no page images for %s", path)
	}

	client := gosseract.NewClient()
	defer client.Close()

	// ocrmypdf-style "deu+eng+rus" becomes Tesseract's language list.
	if langs != "" {
		if err := client.SetLanguage(strings.Split(langs, "+")...); err != nil {
			return "", fmt.Errorf("set tesseract languages %q: %w", langs, err)
		}
	}

	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := client.SetImage(page); err != nil {
			return "", fmt.Errorf("set page image %s: %w", page, err)
		}
		text, err := client.Text()
		if err != nil {
			return "", fmt.Errorf("tesseract page %s: %w", page, err)
		}
		parts = append(parts, text)
	}

	text := strings.Trim(strings.Join(parts, "\n"), "\n")
	e.logger.Info("OCR done",
		zap.String("file", path),
		zap.Int("pages", len(pages)),
		zap.Int("chars", len(text)),
	)
	return text, nil
}

// rasterize renders every page to PNG and returns the image paths in page order
func (e *TesseractEngine) rasterize(ctx context.Context, path, tempDir string) ([]string, error) {
	prefix := filepath.Join(tempDir, "page")
	cmd := exec.CommandContext(ctx, e.pdftoppm, "-png", "-r", "300", path, prefix)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("pdftoppm: %s: %w", msg, err)
		}
		return nil, fmt.Errorf("pdftoppm: %w", err)
	}

	pages, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return nil, fmt.Errorf("list page images: %w", err)
	}
	// pdftoppm zero-pads page numbers, so lexical order is page order.
	sort.Strings(pages)
	return pages, nil
}
