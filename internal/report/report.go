package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/arhipvp/docrouter/internal/domain"
)

const previewLimit = 1000

// Printer renders the final pipeline report to a terminal-style sink.
// The workflow engine has no display of its own, so the service console
// doubles as the operator's report screen.
type Printer struct {
	out    io.Writer
	logger *zap.Logger
}

// NewPrinter creates a printer writing to out
func NewPrinter(out io.Writer, logger *zap.Logger) *Printer {
	return &Printer{out: out, logger: logger}
}

// Print логирует сводку и печатает финальный отчет о документе:
// статус, факты о файле, исход маршрутизации (включая «нужна новая папка»),
// резюме и превью текста на двух языках.
func (p *Printer) Print(r *domain.FinalReport) {
	p.logger.Info("pipeline report",
		zap.String("status", r.Status),
		zap.String("file", r.File.OriginalName),
		zap.String("pages", formatPages(r.File.Pages)),
		zap.String("lang", r.File.DetectedLang),
		zap.Bool("used_ocr", r.File.UsedOCR),
	)

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "========== DOC PIPELINE REPORT ==========")
	fmt.Fprintf(p.out, "status: %s\n", r.Status)
	fmt.Fprintf(p.out, "file:   %s | pages=%s | size=%d | lang=%s OCR=%t\n",
		r.File.OriginalName, formatPages(r.File.Pages), r.File.SizeBytes,
		r.File.DetectedLang, r.File.UsedOCR)

	if r.Routing.Matched {
		fmt.Fprintf(p.out, "path:   %s  (conf=%g)\n", r.Routing.SelectedPath, r.Routing.Confidence)
	} else {
		if r.Routing.NeedsNewFolder {
			path := r.Routing.SelectedPath
			if path == "" {
				path = r.Routing.SuggestedPath
			}
			fmt.Fprintf(p.out, "path:   NEEDS NEW -> %s  (conf=%g)\n", path, r.Routing.Confidence)
		}
		if r.Routing.Reason != "" {
			fmt.Fprintf(p.out, "reason: %s\n", r.Routing.Reason)
		}
	}

	fmt.Fprintln(p.out, "\n-- SUMMARY (RU) --")
	fmt.Fprintln(p.out, r.Summaries.RU)
	fmt.Fprintln(p.out, "\n-- SUMMARY (DE) --")
	fmt.Fprintln(p.out, r.Summaries.DE)
	fmt.Fprintf(p.out, "\n-- FULL TEXT PREVIEW (RU, %d) --\n", previewLimit)
	fmt.Fprintln(p.out, short(r.Content.RUShort, previewLimit))
	fmt.Fprintf(p.out, "\n-- FULL TEXT PREVIEW (DE, %d) --\n", previewLimit)
	fmt.Fprintln(p.out, short(r.Content.DEShort, previewLimit))
	fmt.Fprint(p.out, "=========================================\n\n")
}

func formatPages(pages *int) string {
	if pages == nil {
		return "n/a"
	}
	return strconv.Itoa(*pages)
}

// short caps s at n runes; an over-long preview is cut back to the last
// word boundary inside the window and marked with an ellipsis.
func short(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := string(runes[:n])
	if idx := strings.LastIndex(cut, " "); idx != -1 {
		cut = cut[:idx]
	}
	return cut + "…"
}
