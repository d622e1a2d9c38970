// Demo program for cross-page story linking. It builds a small three page
// issue in memory, runs the pipeline on it and prints the stories found.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/broadsheet/internal/geom"
	"github.com/ppiankov/broadsheet/internal/llm"
	"github.com/ppiankov/broadsheet/internal/model"
	"github.com/ppiankov/broadsheet/internal/pipeline"
)

func block(id string, t model.BlockType, x1, y1, x2, y2 float64, text string) model.Block {
	return model.NewBlock(id, t, geom.New(x1, y1, x2, y2), text)
}

func sampleIssue() *model.Document {
	return &model.Document{
		ID:    "demo-issue",
		Title: "The Harbour Gazette",
		Pages: []model.Page{
			{
				Number: 1, Width: 1000, Height: 1400,
				Blocks: []model.Block{
					block("p1-sec", model.BlockSectionLabel, 0, 0, 480, 30, "METRO"),
					block("p1-h1", model.BlockHeadline, 0, 40, 480, 110, "BRIDGE REPAIRS DELAYED AGAIN"),
					block("p1-by", model.BlockByline, 0, 115, 480, 135, "By Ana Ruiz, Staff Writer"),
					block("p1-b1", model.BlockBody, 0, 140, 480, 700, "Repairs to the North Bridge slipped for a third time on Monday, the city engineer said. Continued on page 3"),
					block("p1-h2", model.BlockHeadline, 520, 40, 1000, 110, "SCHOOL BOARD VOTES"),
					block("p1-b2", model.BlockBody, 520, 120, 1000, 600, "The school board approved the new calendar by a narrow margin."),
					block("p1-ad", model.BlockAd, 520, 650, 1000, 1000, "BIG SALE! Call 555-123-4567 today. Buy now, save 50%. $9.99 only!"),
				},
			},
			{
				Number: 2, Width: 1000, Height: 1400,
				Blocks: []model.Block{
					block("p2-h1", model.BlockHeadline, 0, 40, 1000, 110, "HARBOUR FESTIVAL RETURNS"),
					block("p2-b1", model.BlockBody, 0, 120, 1000, 800, "The festival returns this summer with a larger programme."),
				},
			},
			{
				Number: 3, Width: 1000, Height: 1400,
				Blocks: []model.Block{
					block("p3-sec", model.BlockSectionLabel, 0, 0, 480, 30, "METRO"),
					block("p3-h1", model.BlockHeadline, 0, 40, 480, 110, "BRIDGE REPAIRS"),
					block("p3-b1", model.BlockBody, 0, 120, 480, 700, "The contractor blamed supply problems and said work would resume in May."),
				},
			},
		},
	}
}

func main() {
	fmt.Println("=== Jump Linking Demo ===")
	fmt.Println()

	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false

	p, err := pipeline.NewPipelineWithDeps(cfg, pipeline.Deps{Embedder: llm.NoopEmbedder{}})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = p.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := p.ProcessDocument(ctx, sampleIssue())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, s := range report.Stories {
		marker := " "
		if s.IsJump() {
			marker = "*"
		}
		fmt.Printf("%s %-32s pages %v\n", marker, s.Headline, s.Pages)
	}

	fmt.Println()
	for _, page := range report.Pages {
		for _, item := range page.Items {
			scores := page.ItemScores[item.ID]
			if scores.Ad.Positive {
				fmt.Printf("ad candidate on page %d (%.2f): %s\n",
					page.Number, scores.Ad.Composite, strings.Join(scores.Ad.Reasons, ", "))
			}
		}
	}

	fmt.Println()
	fmt.Println("* spans more than one page")
}
