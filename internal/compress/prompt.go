package compress

import (
	"fmt"
	"strings"

	"github.com/ydzat/literature-review-mcp/internal/section"
)

// strategy returns the type-specific compression instruction.
func strategy(t section.Type) string {
	switch t {
	case section.Method:
		return "Keep the core algorithm, the key steps and what is new about the approach."
	case section.Experiment, section.Result:
		return "Keep the experimental setup, the main numbers and the key findings."
	case section.Abstract, section.Conclusion:
		return "Stay as close to the original wording as possible and only drop the most redundant sentences."
	case section.RelatedWork:
		return "Keep only the most relevant prior work and the comparisons the authors draw."
	case section.Appendix:
		return "Keep only the supplementary details that the main text depends on."
	case section.Introduction:
		return "Keep the problem statement, the motivation and the list of contributions."
	case section.Discussion:
		return "Keep the interpretation of results and the stated limitations."
	default:
		return "Keep the central claims and any concrete data."
	}
}

func sectionSystemPrompt(t section.Type, desired int) string {
	var b strings.Builder
	b.WriteString("You compress sections of academic papers. Shorten the section below while keeping its most important information.\n\n")
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "- Target length: about %d tokens\n", desired)
	fmt.Fprintf(&b, "- Section type: %s\n", t)
	fmt.Fprintf(&b, "- Importance: %.0f%%\n", section.Importance(t)*100)
	b.WriteString("- Keep core arguments, key data and important conclusions\n")
	b.WriteString("- Drop redundant description, long examples and minor details\n")
	b.WriteString("- Preserve the precision of the academic language\n\n")
	b.WriteString("Strategy: ")
	b.WriteString(strategy(t))
	b.WriteString("\n\nOutput only the compressed text, with no explanation or commentary.")
	return b.String()
}

func sectionUserPrompt(sec section.Section) string {
	return fmt.Sprintf("Compress the following section (%s):\n\n%s", sec.Title, sec.Content)
}

func bufferSystemPrompt(target int) string {
	return fmt.Sprintf(`You compress academic paper content. The text below is an accumulated summary of a paper so far; shorten it while keeping its core information.

Requirements:
- Target length: about %d tokens
- Keep the core arguments, key methods and important conclusions
- Drop redundant description, repeated information and minor details
- Keep the section headings, the logical flow and the academic precision

Output only the compressed text, with no explanation or commentary.`, target)
}

// AnalysisSystemPrompt instructs the model to write a structured review of a
// single paper.
const AnalysisSystemPrompt = `You are a rigorous research assistant who writes in-depth analyses of individual papers.

Core requirements:
1. Stay strictly within the paper: every statement must come from the text, nothing the paper does not say.
2. Focus on the paper's own contribution rather than the wider field.
3. Be objective and accurate.
4. Follow the structure below.

Analysis framework:
- Background and motivation: why was this research done?
- Methodology: what do the authors propose and how is it implemented?
- Experiments and results: how is it evaluated and what did they find?
- Contributions: what is new compared to prior work?
- Limitations: what the paper admits or what is evidently missing.
- Future work: directions the paper itself mentions.

Output format: Markdown with clear section headings and bullet points.`

// AnalysisTemperature is the sampling temperature for paper analysis.
const AnalysisTemperature = 0.3

// BuildAnalysisPrompt wraps a paper's (possibly compressed) text in the
// analysis request.
func BuildAnalysisPrompt(paperID, text string) string {
	return fmt.Sprintf(`Write an in-depth analysis of the following paper (ID: %s):

---
%s
---

Follow the analysis framework from the system prompt and answer in Markdown.`, paperID, text)
}

// ReviewSystemPrompt instructs the model to combine per-paper analyses into
// one literature review.
const ReviewSystemPrompt = `You are a senior researcher who writes high-quality literature reviews.

Core requirements:
1. Build strictly on the analyses provided: every statement must come from them, add nothing they do not mention.
2. Synthesize rather than list: find the connections, contrasts and lines of development between the papers.
3. Organize by research theme and method category.
4. Compare on the facts, without speculation.

Output structure:
1. Background and overview of the field: the core problems, why they matter, how the work fits together.
2. Comparison of the main methods: group them by category and use a table for their features, strengths and limits.
3. Trends: how the research has developed and which technical directions are gaining ground.
4. Gaps and future directions: the shared limitations and the open problems.
5. Knowledge map: a Mermaid flowchart relating themes, methods and papers.

Output format: Markdown with clear sections, tables, lists and the Mermaid diagram.`

// ReviewTemperature is the sampling temperature for literature reviews.
const ReviewTemperature = 0.4

// PaperReview is one paper's analysis as input to a literature review.
type PaperReview struct {
	PaperID string `json:"paper_id"`
	Title   string `json:"title,omitempty"` // Defaults to PaperID.
	Review  string `json:"review"`
}

// BuildReviewPrompt lays out the per-paper analyses in order, each under a
// "### Paper i: title (id)" heading, with an optional focus area.
func BuildReviewPrompt(papers []PaperReview, focus string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write one literature review based on the following analyses of %d papers.\n\n", len(papers))
	if focus = strings.TrimSpace(focus); focus != "" {
		fmt.Fprintf(&b, "Focus area: %s\n\n", focus)
	}
	b.WriteString("---\n")
	for i, p := range papers {
		title := p.Title
		if title == "" {
			title = p.PaperID
		}
		fmt.Fprintf(&b, "\n### Paper %d: %s (%s)\n\n%s\n\n---\n", i+1, title, p.PaperID, strings.TrimSpace(p.Review))
	}
	b.WriteString("\nFollow the output structure from the system prompt and answer in Markdown.")
	return b.String()
}
