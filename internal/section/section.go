package section

import "strings"

// Type is the kind of a document section.
type Type string

const (
	Abstract     Type = "abstract"
	Introduction Type = "introduction"
	Method       Type = "method"
	Experiment   Type = "experiment"
	Result       Type = "result"
	Discussion   Type = "discussion"
	Conclusion   Type = "conclusion"
	RelatedWork  Type = "related_work"
	Reference    Type = "reference"
	Appendix     Type = "appendix"
	Other        Type = "other"
)

// Types lists every section type in heading check order, followed by Other.
var Types = []Type{
	Abstract, Introduction, Method, Experiment, Result, Discussion,
	Conclusion, RelatedWork, Reference, Appendix, Other,
}

// Section is a contiguous span of a source document.
type Section struct {
	Type    Type   `json:"type"`
	Title   string `json:"title"`             // Trimmed heading, or a synthetic title.
	Heading string `json:"heading,omitempty"` // Raw heading line; empty for synthetic titles.
	Content string `json:"content"`           // Text after the heading line.

	// StartLine and EndLine are 0-based and inclusive. StartLine is the
	// heading line when the section has one.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	TokenCount int `json:"tokens"`
}

// importance is the share of a section's tokens worth keeping.
var importance = map[Type]float64{
	Abstract:     1.0,
	Introduction: 0.9,
	Method:       1.0,
	Experiment:   0.8,
	Result:       0.8,
	Discussion:   0.6,
	Conclusion:   0.9,
	RelatedWork:  0.5,
	Reference:    0.0,
	Appendix:     0.3,
	Other:        0.7,
}

// Importance returns the retention ratio for t. Types outside the
// enumeration get the Other ratio.
func Importance(t Type) float64 {
	if r, ok := importance[t]; ok {
		return r
	}
	return importance[Other]
}

// Reassemble joins sections back into document text, restoring heading
// lines. For sections produced by Classify it reproduces the source.
func Reassemble(sections []Section) string {
	var lines []string
	for _, s := range sections {
		if s.Heading != "" {
			lines = append(lines, s.Heading)
			if s.StartLine == s.EndLine {
				continue
			}
		}
		lines = append(lines, s.Content)
	}
	return strings.Join(lines, "\n")
}
