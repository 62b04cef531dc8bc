// Package parser turns uploaded papers into document trees whose flattened
// text feeds section classification and compression.
package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ydzat/literature-review-mcp/internal/doctree"
)

// Parser converts raw document bytes into a DocTree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.DocTree, error)
}

// Options tunes parser selection.
type Options struct {
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Document is a parsed paper: its flattened text plus the outline the
// parser recovered.
type Document struct {
	Text     string
	Headings []string
	Pages    int // 0 when the format has no pages
}

// Extract parses r with the parser for filename. It fails when the document
// yields no text.
func Extract(r io.Reader, filename string, opts Options) (Document, error) {
	p, err := ForFile(filename, opts)
	if err != nil {
		return Document{}, err
	}
	tree, err := p.Parse(r, filename)
	if err != nil {
		return Document{}, fmt.Errorf("parse %s: %w", filepath.Base(filename), err)
	}
	text := tree.Text()
	if strings.TrimSpace(text) == "" {
		return Document{}, fmt.Errorf("parse %s: no text content", filepath.Base(filename))
	}
	return Document{Text: text, Headings: tree.Headings(), Pages: tree.Pages()}, nil
}

// ExtractText is Extract returning only the flattened text.
func ExtractText(r io.Reader, filename string, opts Options) (string, error) {
	doc, err := Extract(r, filename, opts)
	return doc.Text, err
}

// ExtractFile is ExtractText for a file on disk.
func ExtractFile(path string, opts Options) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return ExtractText(f, path, opts)
}

func baseTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
