package decision

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/arhipvp/docrouter/internal/domain"
)

// ConsolePrompter renders pending decisions as an interactive terminal menu,
// the way the operators of the routing pipeline actually confirm routes.
// It is one implementation of domain.Prompter; a web UI or bot could replace
// it without touching the resolver.
type ConsolePrompter struct {
	in           *bufio.Reader
	out          io.Writer
	previewLimit int
}

// NewConsolePrompter creates a prompter reading from in and writing to out.
// previewLimit caps how many runes of the document preview are shown.
func NewConsolePrompter(in io.Reader, out io.Writer, previewLimit int) *ConsolePrompter {
	if previewLimit <= 0 {
		previewLimit = 1000
	}
	return &ConsolePrompter{
		in:           bufio.NewReader(in),
		out:          out,
		previewLimit: previewLimit,
	}
}

// Prompt renders the decision menu and returns one raw input line
func (p *ConsolePrompter) Prompt(d *domain.PendingDecision) (string, error) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "================= DECISION REQUIRED =================")
	fmt.Fprintf(p.out, "request_id: %s\n", d.RequestID)
	fmt.Fprintln(p.out, "Existing endpoints:")
	for i, endpoint := range d.FolderEndpoints {
		fmt.Fprintf(p.out, "  [%d] %s\n", i+1, endpoint)
	}
	if d.SuggestedPath != "" {
		fmt.Fprintf(p.out, "Suggested NEW path: %s\n", d.SuggestedPath)
	}
	if preview := truncateRunes(d.PreviewText, p.previewLimit); preview != "" {
		fmt.Fprintf(p.out, "\n[TEXT PREVIEW <=%d]:\n%s\n", p.previewLimit, preview)
	}
	fmt.Fprintf(p.out, "\nChoose: number 1..%d, or 'c' to create new (then enter path).\n", len(d.FolderEndpoints))
	fmt.Fprint(p.out, "> ")

	return p.readLine()
}

// PromptPath asks for the new destination path after a "create" choice
func (p *ConsolePrompter) PromptPath(suggested string) (string, error) {
	fmt.Fprintf(p.out, "New path [%s]: ", suggested)
	return p.readLine()
}

func (p *ConsolePrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// truncateRunes cuts s to at most limit runes
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
