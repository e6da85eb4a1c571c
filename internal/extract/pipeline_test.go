package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeTextLayer struct {
	text string
	err  error
}

func (f *fakeTextLayer) ExtractText(ctx context.Context, path string) (string, error) {
	return f.text, f.err
}

type fakePageCounter struct {
	pages int
	err   error
}

func (f *fakePageCounter) PageCount(ctx context.Context, path string) (int, error) {
	return f.pages, f.err
}

type fakeOCR struct {
	text  string
	err   error
	calls int32
}

func (f *fakeOCR) Recognize(ctx context.Context, path string, langs string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.text, f.err
}

func (f *fakeOCR) callCount() int32 {
	return atomic.LoadInt32(&f.calls)
}

func writeTestDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test fixture"), 0o644))
	return path
}

func newTestService(t *testing.T, text *fakeTextLayer, pages *fakePageCounter, ocr *fakeOCR, maxPagesOCR int) *Service {
	t.Helper()
	return NewService(text, pages, ocr, zaptest.NewLogger(t), 2, maxPagesOCR)
}

func TestExtractTextLayerPresent(t *testing.T) {
	path := writeTestDoc(t)
	ocr := &fakeOCR{text: "should not be used"}
	svc := newTestService(t,
		&fakeTextLayer{text: "Invoice No. 42\nTotal: 100 EUR"},
		&fakePageCounter{pages: 3},
		ocr, 0)

	result, err := svc.Extract(context.Background(), path, "deu+eng")
	require.NoError(t, err)

	assert.Equal(t, "Invoice No. 42\nTotal: 100 EUR", result.Text)
	assert.True(t, result.HasTextLayer)
	assert.False(t, result.UsedOCR)
	require.NotNil(t, result.Pages)
	assert.Equal(t, 3, *result.Pages)
	assert.EqualValues(t, int32(0), ocr.callCount(), "OCR must not run when a text layer exists")
}

func TestExtractWhitespaceLayerFallsBackToOCR(t *testing.T) {
	path := writeTestDoc(t)
	ocr := &fakeOCR{text: "Gescanntes Dokument"}
	svc := newTestService(t,
		&fakeTextLayer{text: "   \n\t  "},
		&fakePageCounter{pages: 1},
		ocr, 0)

	result, err := svc.Extract(context.Background(), path, "deu+eng")
	require.NoError(t, err)

	assert.Equal(t, "Gescanntes Dokument", result.Text)
	assert.True(t, result.UsedOCR)
	assert.False(t, result.HasTextLayer, "OCR output is not an original text layer")
	assert.EqualValues(t, int32(1), ocr.callCount())
}

func TestExtractOCRDisabledReturnsEmptyResult(t *testing.T) {
	path := writeTestDoc(t)
	ocr := &fakeOCR{text: "never"}
	svc := newTestService(t,
		&fakeTextLayer{text: ""},
		&fakePageCounter{pages: 2},
		ocr, 0)

	result, err := svc.Extract(context.Background(), path, "")
	require.NoError(t, err)

	assert.Empty(t, result.Text)
	assert.False(t, result.UsedOCR)
	assert.False(t, result.HasTextLayer)
	assert.EqualValues(t, int32(0), ocr.callCount(), "OCR must not run when disabled")
}

func TestExtractOCRFailureIsFatal(t *testing.T) {
	path := writeTestDoc(t)
	ocr := &fakeOCR{err: errors.New("tesseract not found")}
	svc := newTestService(t,
		&fakeTextLayer{text: ""},
		&fakePageCounter{pages: 2},
		ocr, 0)

	result, err := svc.Extract(context.Background(), path, "deu+eng+rus")
	require.Error(t, err)
	assert.Nil(t, result)

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, path, extractionErr.Path)
	assert.ErrorContains(t, err, "tesseract not found")
}

func TestExtractTextLayerFailureIsNotFatal(t *testing.T) {
	path := writeTestDoc(t)
	ocr := &fakeOCR{text: "recovered via OCR"}
	svc := newTestService(t,
		&fakeTextLayer{err: errors.New("broken xref table")},
		&fakePageCounter{pages: 1},
		ocr, 0)

	result, err := svc.Extract(context.Background(), path, "eng")
	require.NoError(t, err)

	assert.Equal(t, "recovered via OCR", result.Text)
	assert.True(t, result.UsedOCR)
}

func TestExtractPageCountFailureLeavesPagesUnknown(t *testing.T) {
	path := writeTestDoc(t)
	svc := newTestService(t,
		&fakeTextLayer{text: "text layer content"},
		&fakePageCounter{err: errors.New("encrypted document")},
		&fakeOCR{}, 0)

	result, err := svc.Extract(context.Background(), path, "eng")
	require.NoError(t, err)

	assert.Nil(t, result.Pages)
	assert.Equal(t, "text layer content", result.Text)
	assert.True(t, result.HasTextLayer)
}

func TestExtractPageCeilingSkipsOCR(t *testing.T) {
	path := writeTestDoc(t)
	ocr := &fakeOCR{text: "never"}
	svc := newTestService(t,
		&fakeTextLayer{text: ""},
		&fakePageCounter{pages: 500},
		ocr, 100)

	result, err := svc.Extract(context.Background(), path, "deu+eng")
	require.NoError(t, err)

	assert.Empty(t, result.Text)
	assert.False(t, result.UsedOCR)
	assert.EqualValues(t, int32(0), ocr.callCount(), "OCR must be skipped above the page ceiling")
}

func TestExtractMissingFile(t *testing.T) {
	svc := newTestService(t,
		&fakeTextLayer{text: "x"},
		&fakePageCounter{pages: 1},
		&fakeOCR{}, 0)

	result, err := svc.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), "eng")
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestExtractSizeBytesMatchesFile(t *testing.T) {
	path := writeTestDoc(t)
	info, err := os.Stat(path)
	require.NoError(t, err)

	svc := newTestService(t,
		&fakeTextLayer{text: "abc"},
		&fakePageCounter{pages: 1},
		&fakeOCR{}, 0)

	result, extractErr := svc.Extract(context.Background(), path, "eng")
	require.NoError(t, extractErr)
	assert.Equal(t, info.Size(), result.SizeBytes)
}
