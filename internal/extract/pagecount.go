package extract

import (
	"context"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PdfcpuPageCounter counts pages by parsing the PDF cross-reference table
// with pdfcpu. It never touches page content, so it stays cheap even for
// scanned documents.
type PdfcpuPageCounter struct{}

// NewPdfcpuPageCounter creates a pdfcpu-backed page counter
func NewPdfcpuPageCounter() *PdfcpuPageCounter {
	return &PdfcpuPageCounter{}
}

// PageCount returns the number of pages in the document at path
func (c *PdfcpuPageCounter) PageCount(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return api.PageCountFile(path)
}
