package domain

// ExtractionResult is produced once per document and is immutable after
// creation. HasTextLayer refers to the original document only: once OCR runs,
// the text layer on the OCR output is ours, not the document's, so
// HasTextLayer and UsedOCR are never both true.
type ExtractionResult struct {
	Text         string `json:"text"`
	HasTextLayer bool   `json:"has_text_layer"`
	UsedOCR      bool   `json:"used_ocr"`
	Pages        *int   `json:"pages"`
	SizeBytes    int64  `json:"size_bytes"`
}

// PendingDecision represents one routing choice awaiting a human. It is
// created by an inbound request, enqueued, consumed exactly once by the
// resolver and discarded after the callback attempt.
type PendingDecision struct {
	RequestID       string   `json:"request_id"`
	ResumeURL       string   `json:"resume_url"`
	FolderEndpoints []string `json:"folder_endpoints"`
	SuggestedPath   string   `json:"suggested_path,omitempty"`
	PreviewText     string   `json:"preview_text,omitempty"`
}

// DecisionResult is what the resolver POSTs to ResumeURL. Exactly one of
// SelectedPath or (SuggestedPath with Create=true) is populated.
type DecisionResult struct {
	RequestID     string  `json:"request_id"`
	SelectedPath  *string `json:"selected_path"`
	SuggestedPath *string `json:"suggested_path"`
	Create        bool    `json:"create"`
}

// LangResult is the outcome of language classification.
type LangResult struct {
	DetectedLang *string `json:"detected_lang"`
	Prob         float64 `json:"prob"`
}

// RouteTarget is the resolved destination for a routed document.
type RouteTarget struct {
	FinalRelPath string `json:"final_rel_path"`
	FinalPath    string `json:"final_path"`
	FinalName    string `json:"final_name"`
}

// TreeNode is one directory in the archive tree.
type TreeNode struct {
	Name     string      `json:"name"`
	PathRel  string      `json:"path_rel"`
	Children []*TreeNode `json:"children"`
}

// FinalReport is the aggregate the workflow engine sends for display once a
// document finished the pipeline.
type FinalReport struct {
	Status    string         `json:"status"`
	File      ReportFile     `json:"file"`
	Routing   ReportRouting  `json:"routing"`
	Summaries ReportSummary  `json:"summaries"`
	Content   ReportPreviews `json:"content_preview"`
}

type ReportFile struct {
	OriginalName string `json:"original_name"`
	Pages        *int   `json:"pages"`
	SizeBytes    int64  `json:"size_bytes"`
	DetectedLang string `json:"detected_lang"`
	UsedOCR      bool   `json:"used_ocr"`
}

type ReportRouting struct {
	Matched        bool    `json:"matched"`
	SelectedPath   string  `json:"selected_path"`
	SuggestedPath  string  `json:"suggested_path"`
	NeedsNewFolder bool    `json:"needs_new_folder"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
}

type ReportSummary struct {
	RU string `json:"ru"`
	DE string `json:"de"`
}

type ReportPreviews struct {
	RUShort string `json:"ru_short"`
	DEShort string `json:"de_short"`
}
