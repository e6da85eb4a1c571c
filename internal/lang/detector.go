package lang

import (
	"fmt"
	"strings"

	"github.com/pemistahl/lingua-go"
	"go.uber.org/zap"

	"github.com/arhipvp/docrouter/internal/domain"
)

// Detector classifies the dominant language of a text with lingua.
// The underlying detector is built once, eagerly, with preloaded language
// models — that build is the warm-up phase and happens before the server
// starts accepting traffic. After warm-up the detector is stateless and safe
// for concurrent use.
//
// A Detector with a nil inner detector is the degraded null classifier:
// every call returns {nil, 0.0}.
type Detector struct {
	detector lingua.LanguageDetector
	logger   *zap.Logger
}

// NewDetector builds the language detector and loads all language models.
// On failure it returns the error together with a usable null detector, so
// the caller can degrade instead of crashing.
func NewDetector(logger *zap.Logger) (*Detector, error) {
	d := &Detector{logger: logger}

	detector, err := buildLinguaDetector()
	if err != nil {
		return d, fmt.Errorf("language detector warm-up failed: %w", err)
	}

	d.detector = detector
	logger.Info("language detector warmed up")
	return d, nil
}

// buildLinguaDetector isolates the model loading. lingua loads its models
// from embedded data and signals trouble by panicking, so the panic is
// converted into an error here.
func buildLinguaDetector() (detector lingua.LanguageDetector, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model preload panicked: %v", r)
		}
	}()

	detector = lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		WithPreloadedLanguageModels().
		Build()
	return detector, nil
}

// Classify detects the dominant language of text. Empty or whitespace-only
// input short-circuits without touching the detector.
func (d *Detector) Classify(text string) domain.LangResult {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.LangResult{DetectedLang: nil, Prob: 0.0}
	}
	if d.detector == nil {
		// Degraded mode after a failed warm-up.
		return domain.LangResult{DetectedLang: nil, Prob: 0.0}
	}

	values := d.detector.ComputeLanguageConfidenceValues(trimmed)
	if len(values) == 0 {
		return domain.LangResult{DetectedLang: nil, Prob: 0.0}
	}

	// Values come back sorted by confidence, best first.
	best := values[0]
	code := strings.ToLower(best.Language().IsoCode639_1().String())

	d.logger.Debug("language classified",
		zap.String("lang", code),
		zap.Float64("prob", best.Value()),
		zap.Int("chars", len(trimmed)),
	)

	return domain.LangResult{DetectedLang: &code, Prob: best.Value()}
}
