package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/broadsheet/internal/model"
)

func processedReport(t *testing.T) *model.Report {
	t.Helper()
	p := testPipeline(t, &bytes.Buffer{})
	report, err := p.ProcessDocument(context.Background(), jumpDocument())
	if err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}
	return report
}

func TestRenderer_Markdown(t *testing.T) {
	report := processedReport(t)

	var buf bytes.Buffer
	if err := NewRenderer(model.OutputConfig{IncludeText: true, IncludeItems: true}).WriteMarkdown(&buf, report); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	md := buf.String()

	for _, want := range []string{
		"# The Gazette",
		"## Pages",
		"### COUNCIL APPROVES BUDGET",
		"_Pages 1, 2_",
		"The mayor said spending on roads would rise next year.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderer_TrimsTextAndItems(t *testing.T) {
	report := processedReport(t)

	var buf bytes.Buffer
	if err := NewRenderer(model.OutputConfig{}).WriteJSON(&buf, report); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got model.Report
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, s := range got.Stories {
		if s.Text != "" {
			t.Errorf("expected story text stripped, got %q", s.Text)
		}
	}
	for _, p := range got.Pages {
		if len(p.Items) != 0 || len(p.ItemScores) != 0 {
			t.Errorf("expected items stripped on page %d", p.Number)
		}
	}

	// The original report is untouched
	if report.Stories[0].Text == "" || len(report.Pages[0].Items) == 0 {
		t.Error("trim mutated the source report")
	}
}

func TestRenderer_RenderJSONCreatesDirs(t *testing.T) {
	report := processedReport(t)
	path := filepath.Join(t.TempDir(), "out", "report.json")

	if err := NewRenderer(model.OutputConfig{IncludeText: true, IncludeItems: true}).RenderJSON(report, path); err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected report file: %v", err)
	}
}

func TestRenderer_Summary(t *testing.T) {
	report := processedReport(t)
	report.Pages[1].Error = "boom"

	var buf bytes.Buffer
	NewRenderer(model.OutputConfig{}).WriteSummary(&buf, report)
	out := buf.String()

	for _, want := range []string{"pages:    2 (failed: 2)", "stories:  3 (1 jumps)", "embedding: off"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q in %q", want, out)
		}
	}
}
