package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ydzat/literature-review-mcp/internal/section"
)

var (
	systemPrompt string
	noCompress   bool
)

func init() {
	compressCmd.Flags().StringVar(&systemPrompt, "system", "", "system prompt the result must fit next to")
	compressCmd.Flags().BoolVar(&noCompress, "disable", false, "return the text unchanged")
}

// countCmd reports token counts against the model budget
var countCmd = &cobra.Command{
	Use:   "count FILE",
	Short: "Count tokens and compare with the model's input budget",
	Long: `Count the tokens of a document and compare them with the input budget
of the configured model (context window minus max output minus reserve).

Examples:
  papercompress count paper.pdf
  cat notes.md | papercompress count -`,
	Args: cobra.ExactArgs(1),
	RunE: runCount,
}

// sectionsCmd lists the detected sections
var sectionsCmd = &cobra.Command{
	Use:   "sections FILE",
	Short: "List detected sections with types and token counts",
	Args:  cobra.ExactArgs(1),
	RunE:  runSections,
}

// compressCmd prints the compressed document
var compressCmd = &cobra.Command{
	Use:   "compress FILE",
	Short: "Compress a document to fit the model's context window",
	Long: `Compress a document section by section until it fits the configured
model's input budget. Text that already fits is printed unchanged.

Examples:
  papercompress compress paper.pdf > paper.txt
  papercompress compress --system "$(cat prompt.txt)" paper.docx`,
	Args: cobra.ExactArgs(1),
	RunE: runCompress,
}

func runCount(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	text, err := readDocument(args[0], a.parserOptions(), cmd.InOrStdin())
	if err != nil {
		return err
	}

	n := a.counter.Count(text, a.model.Name)
	available := a.compressor.Available()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "model:      %s\n", a.model.Name)
	fmt.Fprintf(out, "tokens:     %d\n", n)
	fmt.Fprintf(out, "available:  %d\n", available)
	fmt.Fprintf(out, "fits:       %t\n", n <= available)
	return nil
}

func runSections(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	text, err := readDocument(args[0], a.parserOptions(), cmd.InOrStdin())
	if err != nil {
		return err
	}
	printSections(cmd, section.Classify(text, a.counter, a.model.Name))
	return nil
}

func printSections(cmd *cobra.Command, sections []section.Section) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tTITLE\tLINES\tTOKENS\tKEEP")
	total := 0
	for _, s := range sections {
		fmt.Fprintf(tw, "%s\t%s\t%d-%d\t%d\t%.1f\n",
			s.Type, clip(s.Title, 48), s.StartLine+1, s.EndLine+1, s.TokenCount, section.Importance(s.Type))
		total += s.TokenCount
	}
	fmt.Fprintf(tw, "\t\t\t%d\t\n", total)
	tw.Flush()
}

func runCompress(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, !noCompress)
	if err != nil {
		return err
	}
	text, err := readDocument(args[0], a.parserOptions(), cmd.InOrStdin())
	if err != nil {
		return err
	}

	out, rep := a.compressor.MaybeCompressWith(cmd.Context(), text, systemPrompt, noCompress)
	a.log.Info("done",
		"compressed", rep.Compressed,
		"tokens", rep.InputTokens,
		"output_tokens", rep.OutputTokens,
		"available", rep.AvailableTokens,
		"ratio", fmt.Sprintf("%.2f", rep.Ratio()),
	)
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
