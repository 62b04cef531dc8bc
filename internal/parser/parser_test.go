package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ydzat/literature-review-mcp/internal/section"
)

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		want     string
		wantErr  bool
	}{
		{"a.txt", "*parser.TextParser", false},
		{"a.MD", "*parser.MarkdownParser", false},
		{"a.markdown", "*parser.MarkdownParser", false},
		{"a.htm", "*parser.HTMLParser", false},
		{"a.pdf", "*parser.PDFParser", false},
		{"a.docx", "*parser.DOCXParser", false},
		{"a.csv", "", true},
		{"noext", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.filename, func(t *testing.T) {
			p, err := ForFile(tc.filename, Options{PDFFallbackPdftotext: true})
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tc.filename)
				}
				if IsSupportedExtension(tc.filename) {
					t.Errorf("%s reported as supported", tc.filename)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := typeName(p); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}

	p, _ := ForFile("x.pdf", Options{PDFFallbackPdftotext: true})
	if !p.(*PDFParser).FallbackPdftotext {
		t.Error("expected pdf fallback option to be passed through")
	}
}

func typeName(p Parser) string {
	switch p.(type) {
	case *TextParser:
		return "*parser.TextParser"
	case *MarkdownParser:
		return "*parser.MarkdownParser"
	case *HTMLParser:
		return "*parser.HTMLParser"
	case *PDFParser:
		return "*parser.PDFParser"
	case *DOCXParser:
		return "*parser.DOCXParser"
	}
	return "unknown"
}

func TestExtractText_HeadingsClassify(t *testing.T) {
	input := "# Abstract\n\nWe compress papers.\n\n## 1 Introduction\n\nContext.\n\n## References\n\n[1] Someone.\n"
	text, err := ExtractText(strings.NewReader(input), "paper.md", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sections := section.Classify(text, nil, "")
	var types []section.Type
	for _, s := range sections {
		types = append(types, s.Type)
	}
	want := []section.Type{section.Abstract, section.Introduction, section.Reference}
	if len(types) != len(want) {
		t.Fatalf("expected types %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("section %d: expected %s, got %s", i, want[i], types[i])
		}
	}
}

func TestExtract_Outline(t *testing.T) {
	input := "# Abstract\n\nWe compress papers.\n\n## 1 Introduction\n\nContext.\n\n## References\n\n[1] Someone.\n"
	doc, err := Extract(strings.NewReader(input), "paper.md", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(doc.Headings, "|"); got != "Abstract|1 Introduction|References" {
		t.Errorf("unexpected headings %q", got)
	}
	if doc.Pages != 0 {
		t.Errorf("expected no pages for markdown, got %d", doc.Pages)
	}
	text, _ := ExtractText(strings.NewReader(input), "paper.md", Options{})
	if doc.Text != text {
		t.Error("expected ExtractText to return the document text")
	}
}

func TestExtractText_Errors(t *testing.T) {
	if _, err := ExtractText(strings.NewReader("a,b"), "data.csv", Options{}); err == nil {
		t.Error("expected unsupported extension error")
	}
	if _, err := ExtractText(strings.NewReader("\n\n  \n"), "blank.txt", Options{}); err == nil {
		t.Error("expected error for document without text")
	}
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.txt")
	if err := os.WriteFile(path, []byte("Abstract\nShort.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	text, err := ExtractFile(path, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Abstract\nShort." {
		t.Errorf("unexpected text %q", text)
	}

	if _, err := ExtractFile(filepath.Join(t.TempDir(), "missing.txt"), Options{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDocxHeadingLevel(t *testing.T) {
	tests := map[string]int{
		"Heading1":  1,
		"heading 2": 2,
		"Heading 6": 6,
		"Heading9":  6,
		"Heading":   0,
		"Normal":    0,
		"":          0,
	}
	for style, want := range tests {
		if got := docxHeadingLevel(style); got != want {
			t.Errorf("docxHeadingLevel(%q) = %d, want %d", style, got, want)
		}
	}
}

func TestBlankPages(t *testing.T) {
	if !blank([]string{"", " \n "}) {
		t.Error("expected whitespace pages to be blank")
	}
	if blank([]string{"", "text"}) {
		t.Error("expected page with text to be non-blank")
	}
}
