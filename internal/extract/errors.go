package extract

import "fmt"

// ExtractionError means the document could not be extracted at all: the text
// layer yielded nothing and the mandatory OCR fallback failed. Callers should
// treat it as retryable after confirming the OCR tooling is available.
type ExtractionError struct {
	Path   string
	Detail string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed for %s: %s: %v", e.Path, e.Detail, e.Err)
	}
	return fmt.Sprintf("extraction failed for %s: %s", e.Path, e.Detail)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
