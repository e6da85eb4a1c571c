package domain

import "context"

// TextLayerExtractor pulls the machine-readable text layer out of a document
// without any image analysis.
type TextLayerExtractor interface {
	// ExtractText returns the raw text layer of the document, which may be
	// empty when no layer exists.
	ExtractText(ctx context.Context, path string) (string, error)
}

// PageCounter reports the number of pages in a document.
type PageCounter interface {
	PageCount(ctx context.Context, path string) (int, error)
}

// OCREngine derives text from a rasterized rendering of the document.
// Implementations own any temporary files they create and must release them
// on every exit path.
type OCREngine interface {
	// Recognize runs OCR over the whole document. langs is an engine-specific
	// language spec such as "deu+eng+rus".
	Recognize(ctx context.Context, path string, langs string) (string, error)
}

// Classifier detects the dominant language of a text.
type Classifier interface {
	Classify(text string) LangResult
}

// Prompter is the human-facing surface the decision resolver presents
// pending decisions on. Exactly one decision is live at a time, so
// implementations never see concurrent calls.
type Prompter interface {
	// Prompt renders the decision and returns one raw human input line.
	Prompt(d *PendingDecision) (string, error)

	// PromptPath asks for a new destination path after a "create" choice.
	// An empty return means "use the suggested default".
	PromptPath(suggested string) (string, error)
}
