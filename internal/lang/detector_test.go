package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestClassifyEmptyInputShortCircuits(t *testing.T) {
	// A nil inner detector would panic if Classify touched it, which proves
	// the short-circuit: empty input must never reach the classifier.
	d := &Detector{logger: zaptest.NewLogger(t)}

	for _, input := range []string{"", "   ", "\n\t  \n"} {
		result := d.Classify(input)
		assert.Nil(t, result.DetectedLang, "input %q", input)
		assert.Equal(t, 0.0, result.Prob, "input %q", input)
	}
}

func TestClassifyDegradedDetectorReturnsNull(t *testing.T) {
	d := &Detector{logger: zaptest.NewLogger(t)}

	result := d.Classify("This is a perfectly normal English sentence.")
	assert.Nil(t, result.DetectedLang)
	assert.Equal(t, 0.0, result.Prob)
}

func TestClassifyDetectsLanguage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping model warm-up in short mode")
	}

	d, err := NewDetector(zaptest.NewLogger(t))
	require.NoError(t, err)

	result := d.Classify("Dies ist ein ganz gewöhnlicher deutscher Satz über Rechnungen und Dokumente.")
	require.NotNil(t, result.DetectedLang)
	assert.Equal(t, "de", *result.DetectedLang)
	assert.Greater(t, result.Prob, 0.5)
}

func TestClassifyConcurrentUse(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping model warm-up in short mode")
	}

	d, err := NewDetector(zaptest.NewLogger(t))
	require.NoError(t, err)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			result := d.Classify("The quick brown fox jumps over the lazy dog near the river bank.")
			assert.NotNil(t, result.DetectedLang)
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
