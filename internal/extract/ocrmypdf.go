package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/arhipvp/docrouter/internal/domain"
)

// OcrmypdfEngine runs the document through ocrmypdf with forced OCR and then
// re-reads the text layer of the OCR output. The output PDF lives in a
// per-call temp file that is removed on every exit path.
type OcrmypdfEngine struct {
	binary    string
	textLayer domain.TextLayerExtractor
	logger    *zap.Logger
}

// NewOcrmypdfEngine creates an OCR engine backed by the ocrmypdf CLI.
// textLayer is reused to read the text out of the freshly OCRed file.
func NewOcrmypdfEngine(binary string, textLayer domain.TextLayerExtractor, logger *zap.Logger) *OcrmypdfEngine {
	if binary == "" {
		binary = "ocrmypdf"
	}
	return &OcrmypdfEngine{
		binary:    binary,
		textLayer: textLayer,
		logger:    logger,
	}
}

// Recognize performs OCR over the whole document and returns the extracted text
func (e *OcrmypdfEngine) Recognize(ctx context.Context, path string, langs string) (string, error) {
	out, err := os.CreateTemp("", "docrouter-ocr-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create ocr output file: %w", err)
	}
	outPath := out.Name()
	out.Close()
	defer func() {
		if rmErr := os.Remove(outPath); rmErr != nil && !os.IsNotExist(rmErr) {
			e.logger.Warn("failed to remove OCR temp file",
				zap.String("path", outPath),
				zap.Error(rmErr),
			)
		}
	}()

	e.logger.Info("OCR start",
		zap.String("engine", "ocrmypdf"),
		zap.String("langs", langs),
		zap.String("file", path),
	)

	cmd := exec.CommandContext(ctx, e.binary,
		"--force-ocr",
		"--language", langs,
		"--quiet",
		path,
		outPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("ocrmypdf: %s: %w", msg, err)
		}
		return "", fmt.Errorf("ocrmypdf: %w", err)
	}

	text, err := e.textLayer.ExtractText(ctx, outPath)
	if err != nil {
		return "", fmt.Errorf("read text layer of OCR output: %w", err)
	}

	e.logger.Info("OCR done",
		zap.String("file", path),
		zap.Int("chars", len(text)),
	)
	return text, nil
}
