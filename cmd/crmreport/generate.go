package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/crmreport/internal/document"
	"github.com/seenimoa/crmreport/internal/report"
	"github.com/seenimoa/crmreport/pkg/utils"
)

// --- Generate Command ---

var generateCmd = &cobra.Command{
	Use:   "generate [payload]",
	Short: "Render one report from a JSON payload",
	Long: `Render one report from a JSON payload given inline, as a file path,
or as "-" for standard input.

Examples:
  crmreport generate result.json -o trending.pdf
  crmreport generate '{"answer":"...","rationale":[],"key_metrics":[]}' --no-llm
  cat result.json | crmreport generate - --format text`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := readPayload(args[0])
		if err != nil {
			return err
		}
		gen, err := configuredGenerator(cmd)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = "report" + extension(gen)
		}

		start := time.Now()
		data, err := gen.Generate(cmd.Context(), p)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Println(okStyle.Render("✓") + " " + out + " " +
			mutedStyle.Render(fmt.Sprintf("(%d bytes, %s)", len(data), time.Since(start).Round(time.Millisecond))))
		return nil
	},
}

func init() {
	addReportFlags(generateCmd)
	generateCmd.Flags().StringP("output", "o", "", "output file (default report.pdf or report.txt)")
}

// --- Batch Command ---

var batchCmd = &cobra.Command{
	Use:   "batch [dir]",
	Short: "Render a report for every JSON payload in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobs, bad, err := collectJobs(args[0])
		if err != nil {
			return err
		}
		if len(jobs)+len(bad) == 0 {
			return fmt.Errorf("no .json payloads in %s", args[0])
		}
		gen, err := configuredGenerator(cmd)
		if err != nil {
			return err
		}

		outDir, _ := cmd.Flags().GetString("output")
		if outDir == "" {
			outDir = args[0]
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("concurrency")
		if limit <= 0 {
			limit = cfg.Report.Concurrency
		}

		results := report.GenerateBatch(cmd.Context(), gen, jobs, limit)
		failed := len(bad)
		for name, err := range bad {
			fmt.Println(badStyle.Render("✗") + " " + name + " " + mutedStyle.Render(err.Error()))
		}
		for _, r := range results {
			if r.Err == nil {
				path := filepath.Join(outDir, r.Name+extension(gen))
				if err := os.WriteFile(path, r.Data, 0o644); err != nil {
					r.Err = fmt.Errorf("write report: %w", err)
				} else {
					fmt.Println(okStyle.Render("✓") + " " + path + " " +
						mutedStyle.Render(r.Duration.Round(time.Millisecond).String()))
					continue
				}
			}
			failed++
			fmt.Println(badStyle.Render("✗") + " " + r.Name + " " + mutedStyle.Render(r.Err.Error()))
		}

		total := len(jobs) + len(bad)
		summary := fmt.Sprintf("%s rendered, %d failed", utils.Plural(total-failed, "report"), failed)
		if failed > 0 {
			fmt.Println(boxStyle.Render(warnStyle.Render(summary)))
			return fmt.Errorf("%s failed", utils.Plural(failed, "report"))
		}
		fmt.Println(boxStyle.Render(okStyle.Render(summary)))
		return nil
	},
}

func init() {
	addReportFlags(batchCmd)
	batchCmd.Flags().StringP("output", "o", "", "output directory (default: the input directory)")
	batchCmd.Flags().Int("concurrency", 0, "reports rendered at once (default report.concurrency)")
}

// ── helpers ──

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("title", "t", "", "report title")
	cmd.Flags().StringP("subtitle", "s", "", `report subtitle (default "Generated on <date>")`)
	cmd.Flags().Bool("no-llm", false, "always use the deterministic narrative")
	cmd.Flags().String("format", "pdf", "output format: pdf or text")
}

// configuredGenerator applies the report flags to the configured generator.
func configuredGenerator(cmd *cobra.Command) (*report.Generator, error) {
	noLLM, _ := cmd.Flags().GetBool("no-llm")
	title, _ := cmd.Flags().GetString("title")
	subtitle, _ := cmd.Flags().GetString("subtitle")
	format, _ := cmd.Flags().GetString("format")

	opts := []report.Option{report.WithTitle(title), report.WithSubtitle(subtitle)}
	switch format {
	case "pdf":
	case "text", "txt":
		opts = append(opts, report.WithRenderer(document.TextRenderer{}))
	default:
		return nil, fmt.Errorf("unsupported format %q (want pdf or text)", format)
	}

	gen, _, _, err := newGenerator(noLLM)
	if err != nil {
		return nil, err
	}
	return gen.With(opts...), nil
}

func extension(gen *report.Generator) string {
	if _, ok := gen.Renderer.(document.TextRenderer); ok {
		return ".txt"
	}
	return ".pdf"
}

func readPayload(arg string) (report.Payload, error) {
	if arg == "-" {
		return report.DecodePayload(os.Stdin)
	}
	return report.ParsePayload(arg)
}

// collectJobs reads every *.json file in dir, sorted by name. Files that do
// not decode to a valid payload are returned by name in bad.
func collectJobs(dir string) (jobs []report.Job, bad map[string]error, err error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(paths)
	bad = map[string]error{}
	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".json")
		p, err := report.ParsePayload(path)
		if err != nil {
			bad[name] = err
			continue
		}
		jobs = append(jobs, report.Job{Name: name, Payload: p})
	}
	return jobs, bad, nil
}
