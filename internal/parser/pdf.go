package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/ydzat/literature-review-mcp/internal/doctree"
)

// PDFParser handles PDF files. Pages are rebuilt row by row so headings stay
// on their own line; pdftotext is used when the Go library cannot read the
// file.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "papercompress-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	pages, err := extractPDFPages(tmpPath)
	if (err != nil || blank(pages)) && p.FallbackPdftotext {
		var text string
		text, err = extractPdftotext(tmpPath)
		pages = strings.Split(text, "\f")
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	tree := &doctree.DocTree{Title: baseTitle(filename)}
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Text: page,
			Page: i + 1,
		})
	}
	return tree, nil
}

func extractPDFPages(path string) ([]string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, pageText(page))
	}
	return pages, nil
}

// pageText joins each row's words into one line, falling back to the
// library's plain text when rows are unavailable.
func pageText(page pdflib.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil || len(rows) == 0 {
		text, err := page.GetPlainText(nil)
		if err != nil {
			return ""
		}
		return text
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		words := make([]string, 0, len(row.Content))
		for _, t := range row.Content {
			if s := strings.TrimSpace(t.S); s != "" {
				words = append(words, s)
			}
		}
		if len(words) > 0 {
			lines = append(lines, strings.Join(words, " "))
		}
	}
	return strings.Join(lines, "\n")
}

func blank(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
