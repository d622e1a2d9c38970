package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/broadsheet/internal/model"
	"github.com/ppiankov/broadsheet/internal/qa"
)

// Renderer writes reports as JSON, Markdown or a short text summary
type Renderer struct {
	includeText  bool
	includeItems bool
}

// NewRenderer creates a renderer honoring the output settings
func NewRenderer(cfg model.OutputConfig) *Renderer {
	return &Renderer{
		includeText:  cfg.IncludeText,
		includeItems: cfg.IncludeItems,
	}
}

// RenderJSON writes the report as indented JSON to path
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error {
		return r.WriteJSON(w, report)
	})
}

// RenderMarkdown writes the report as Markdown to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error {
		return r.WriteMarkdown(w, report)
	})
}

// WriteJSON encodes the trimmed report to w
func (r *Renderer) WriteJSON(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.trim(report)); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteMarkdown renders a human-readable report to w
func (r *Renderer) WriteMarkdown(w io.Writer, report *model.Report) error {
	rep := r.trim(report)
	var b strings.Builder

	title := rep.Title
	if title == "" {
		title = rep.DocumentID
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if rep.Source != "" {
		fmt.Fprintf(&b, "- Source: `%s`\n", rep.Source)
	}
	fmt.Fprintf(&b, "- Run: `%s`\n", rep.RunID)
	fmt.Fprintf(&b, "- Processed: %s\n", rep.ProcessedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- Pages: %d, stories: %d, jumps: %d\n", len(rep.Pages), len(rep.Stories), rep.JumpCount())
	fmt.Fprintf(&b, "- Embedding: %s\n\n", embeddingLine(rep.Embedding))

	b.WriteString("## Pages\n\n")
	b.WriteString("| Page | Columns | Items | QA score | Strategy | Notes |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, p := range rep.Pages {
		notes := append([]string(nil), p.QA.Notes...)
		if p.Fallback.Reason != "" {
			notes = append(notes, p.Fallback.Reason)
		}
		if p.Error != "" {
			notes = append(notes, "error: "+p.Error)
		}
		fmt.Fprintf(&b, "| %d | %d | %d | %.2f | %s | %s |\n",
			p.Number, p.Columns, len(p.Items), p.QA.Score, p.Fallback.Strategy,
			escapeCell(strings.Join(notes, "; ")))
	}
	b.WriteString("\n## Stories\n\n")

	for _, s := range rep.Stories {
		headline := s.Headline
		if headline == "" {
			headline = "(untitled)"
		}
		fmt.Fprintf(&b, "### %s\n\n", headline)
		fmt.Fprintf(&b, "_Pages %s", joinInts(s.Pages))
		if s.Section != "" {
			fmt.Fprintf(&b, " · %s", s.Section)
		}
		if s.Byline != "" {
			fmt.Fprintf(&b, " · %s", s.Byline)
		}
		b.WriteString("_\n\n")
		if s.Text != "" {
			b.WriteString(s.Text)
			b.WriteString("\n\n")
		}
	}

	if r.includeItems {
		ads := adItems(rep)
		if len(ads) > 0 {
			b.WriteString("## Ad candidates\n\n")
			for _, a := range ads {
				fmt.Fprintf(&b, "- page %d `%s` %.2f: %s\n", a.page, a.id, a.score.Composite, strings.Join(a.score.Reasons, ", "))
			}
			b.WriteString("\n")
		}
	}

	if len(rep.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range rep.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteSummary prints a one-screen run summary
func (r *Renderer) WriteSummary(w io.Writer, report *model.Report) {
	fmt.Fprintf(w, "\n%s (%s)\n", report.DocumentID, report.RunID)
	fmt.Fprintf(w, "  pages:    %d", len(report.Pages))
	if failed := report.FailedPages(); len(failed) > 0 {
		fmt.Fprintf(w, " (failed: %s)", joinInts(failed))
	}
	fmt.Fprintln(w)

	fallbacks := 0
	for _, p := range report.Pages {
		if p.Fallback.Strategy == qa.StrategyFallback {
			fallbacks++
		}
	}
	fmt.Fprintf(w, "  fallback: %d\n", fallbacks)
	fmt.Fprintf(w, "  stories:  %d (%d jumps)\n", len(report.Stories), report.JumpCount())
	fmt.Fprintf(w, "  links:    %d\n", len(report.Links))
	fmt.Fprintf(w, "  embedding: %s\n", embeddingLine(report.Embedding))
	if len(report.Warnings) > 0 {
		fmt.Fprintf(w, "  warnings: %d\n", len(report.Warnings))
	}
}

// trim returns a copy of report without the sections disabled in output settings
func (r *Renderer) trim(report *model.Report) *model.Report {
	out := *report
	out.Pages = make([]model.PageReport, len(report.Pages))
	for i, p := range report.Pages {
		if !r.includeItems {
			p.Items = nil
			p.ItemScores = nil
			p.Seeds = nil
		} else if !r.includeText {
			p.Items = append([]model.ItemGroup(nil), p.Items...)
			for j := range p.Items {
				p.Items[j].Text = ""
			}
			p.Seeds = append([]model.StorySeed(nil), p.Seeds...)
			for j := range p.Seeds {
				p.Seeds[j].Text = ""
			}
		}
		out.Pages[i] = p
	}
	if !r.includeText {
		out.Stories = append([]model.Story(nil), report.Stories...)
		for i := range out.Stories {
			out.Stories[i].Text = ""
		}
	}
	return &out
}

type adItem struct {
	page  int
	id    string
	score model.SignalScoreResult
}

func adItems(report *model.Report) []adItem {
	var out []adItem
	for _, p := range report.Pages {
		for id, s := range p.ItemScores {
			if s.Ad.Positive {
				out = append(out, adItem{page: p.Number, id: id, score: s.Ad})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].page != out[j].page {
			return out[i].page < out[j].page
		}
		return out[i].id < out[j].id
	})
	return out
}

func embeddingLine(s model.EmbeddingStatus) string {
	switch {
	case s.Used:
		return "used (" + s.Provider + ")"
	case s.Degraded:
		return "degraded: " + s.Reason
	default:
		return "off"
	}
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func writeFile(path string, write func(w io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
