package section

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ydzat/literature-review-mcp/internal/tokens"
)

// TokenCounter counts tokens for a model hint.
type TokenCounter interface {
	Count(text, model string) int
}

// maxHeadingRunes bounds how long a heading line may be. Longer lines that
// happen to start with a keyword are running prose.
const maxHeadingRunes = 80

const (
	preambleTitle = "Preamble"
	fullTextTitle = "Full Text"
)

type headingPattern struct {
	typ Type
	re  *regexp.Regexp
}

// Optional markdown marker, then optional numbering such as "2.", "3.1 " or
// "IV. ". Abstract, reference and appendix headings are never numbered.
const (
	mdPrefix  = `^(?:#{1,6}\s*)?`
	numbering = `(?:(?:\d+(?:\.\d+)*\.?\s*)|(?:[IVXLC]+\.\s*))?`
)

var markdownMarker = regexp.MustCompile(mdPrefix)

// headingTitle is the heading line without whitespace or markdown marker.
func headingTitle(line string) string {
	return strings.TrimSpace(markdownMarker.ReplaceAllString(strings.TrimSpace(line), ""))
}

func pattern(numbered bool, keywords ...string) *regexp.Regexp {
	expr := mdPrefix
	if numbered {
		expr += numbering
	}
	expr += "(?i:" + strings.Join(keywords, "|") + ")"
	return regexp.MustCompile(expr)
}

// headingPatterns are checked in order; the first match wins.
var headingPatterns = []headingPattern{
	{Abstract, pattern(false, "abstract", "摘要")},
	{Introduction, pattern(true, "introduction", "引言", "介绍")},
	{Method, pattern(true, "method", "methodology", "approach", "方法")},
	{Experiment, pattern(true, "experiment", "evaluation", "实验", "评估")},
	{Result, pattern(true, "result", "findings", "结果")},
	{Discussion, pattern(true, "discussion", "讨论")},
	{Conclusion, pattern(true, "conclusion", "summary", "结论", "总结")},
	{RelatedWork, pattern(true, "related work", "background", "literature review", "相关工作", "背景")},
	{Reference, pattern(false, "reference", "bibliography", "参考文献")},
	{Appendix, pattern(false, "appendix", "附录")},
}

// MatchHeading reports the section type a line opens, if any.
func MatchHeading(line string) (Type, bool) {
	line = strings.TrimSpace(line)
	if line == "" || utf8.RuneCountInString(line) > maxHeadingRunes {
		return "", false
	}
	for _, p := range headingPatterns {
		if p.re.MatchString(line) {
			return p.typ, true
		}
	}
	return "", false
}

// Classify splits text into typed sections in document order. The result
// is never empty and covers every line exactly once. Lines before the first
// heading become an Other section; a document without headings becomes a
// single Other section.
func Classify(text string, counter TokenCounter, model string) []Section {
	lines := strings.Split(text, "\n")

	var sections []Section
	open := -1 // index into sections of the section being filled

	closeOpen := func(end int) {
		if open < 0 {
			return
		}
		s := &sections[open]
		s.EndLine = end
		bodyStart := s.StartLine
		if s.Heading != "" {
			bodyStart++
		}
		if bodyStart <= end {
			s.Content = strings.Join(lines[bodyStart:end+1], "\n")
		}
		s.TokenCount = count(counter, s.Content, model)
	}

	for i, line := range lines {
		typ, ok := MatchHeading(line)
		if !ok {
			if open < 0 {
				sections = append(sections, Section{Type: Other, Title: preambleTitle, StartLine: i})
				open = len(sections) - 1
			}
			continue
		}
		closeOpen(i - 1)
		sections = append(sections, Section{
			Type:      typ,
			Title:     headingTitle(line),
			Heading:   line,
			StartLine: i,
		})
		open = len(sections) - 1
	}
	closeOpen(len(lines) - 1)

	if len(sections) == 1 && sections[0].Heading == "" {
		sections[0].Title = fullTextTitle
	}
	return sections
}

func count(counter TokenCounter, text, model string) int {
	if counter == nil {
		return tokens.Estimate(text)
	}
	return counter.Count(text, model)
}
