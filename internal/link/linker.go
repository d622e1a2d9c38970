// Package link merges per-page story seeds into cross-page stories.
//
// Edges come from two sources: explicit jump lines ("Continued on page 7")
// matched against the target page's seeds, and optional embedding
// similarity between seeds on later pages. All edges feed a union-find;
// each connected component becomes one Story whose identity comes from its
// earliest seed, so the result does not depend on edge discovery order.
package link

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/broadsheet/internal/extract"
	"github.com/ppiankov/broadsheet/internal/llm"
	"github.com/ppiankov/broadsheet/internal/model"
)

// Config holds configuration for story linking
type Config struct {
	// MinSimilarity is the cosine similarity an embedding edge needs
	// Default: 0.32
	MinSimilarity float64

	// MinEntityOverlap is the capitalized-token overlap an embedding edge needs
	// Default: 0.2
	MinEntityOverlap float64

	// EmbedBodyWords is how many body words follow the headline in the embedded text
	// Default: 120
	EmbedBodyWords int

	// EmbeddingTimeout bounds the single per-document embedding call
	// Default: 30s
	EmbeddingTimeout time.Duration
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		MinSimilarity:    0.32,
		MinEntityOverlap: 0.2,
		EmbedBodyWords:   120,
		EmbeddingTimeout: 30 * time.Second,
	}
}

// ConfigFromModel converts model.LinkingConfig to link.Config
func ConfigFromModel(m model.LinkingConfig) Config {
	cfg := DefaultConfig()
	if m.MinSimilarity > 0 {
		cfg.MinSimilarity = m.MinSimilarity
	}
	if m.MinEntityOverlap > 0 {
		cfg.MinEntityOverlap = m.MinEntityOverlap
	}
	if m.EmbedBodyWords > 0 {
		cfg.EmbedBodyWords = m.EmbedBodyWords
	}
	if m.EmbeddingTimeout > 0 {
		cfg.EmbeddingTimeout = m.EmbeddingTimeout
	}
	return cfg
}

// Linker builds stories from seeds
type Linker struct {
	config   Config
	embedder llm.Embedder
	detector *extract.ContinuationDetector
}

// NewLinker creates a linker. A nil embedder disables embedding edges.
func NewLinker(config Config, embedder llm.Embedder) *Linker {
	if embedder == nil {
		embedder = llm.NoopEmbedder{}
	}
	return &Linker{
		config:   config,
		embedder: embedder,
		detector: extract.NewContinuationDetector(),
	}
}

// Result is the outcome of linking one document
type Result struct {
	Stories   []model.Story
	Edges     []model.LinkEdge
	Embedding model.EmbeddingStatus
	Warnings  []string
}

// Link runs rule edges, embedding edges and the union-find merge. It
// never fails: embedding problems degrade to rule-only linking and are
// reported in Result.Embedding and Result.Warnings.
func (l *Linker) Link(ctx context.Context, seeds []model.StorySeed) Result {
	sorted := sortSeeds(seeds)

	var result Result
	result.Edges = l.RuleEdges(sorted)

	embedEdges, status := l.EmbeddingEdges(ctx, sorted)
	result.Embedding = status
	if status.Degraded {
		result.Warnings = append(result.Warnings, fmt.Sprintf("embedding linking disabled: %s", status.Reason))
	}
	result.Edges = append(result.Edges, embedEdges...)
	if ws, ok := l.embedder.(llm.WarningSource); ok {
		result.Warnings = append(result.Warnings, ws.DrainWarnings()...)
	}

	result.Stories = Merge(sorted, result.Edges)
	return result
}

// RuleEdges links seeds that name a target page in a jump line to the best
// matching seed on that page
func (l *Linker) RuleEdges(seeds []model.StorySeed) []model.LinkEdge {
	sorted := sortSeeds(seeds)

	byPage := make(map[int][]model.StorySeed)
	for _, s := range sorted {
		byPage[s.Page] = append(byPage[s.Page], s)
	}

	var edges []model.LinkEdge
	for _, s := range sorted {
		refs := l.detector.References(s.Headline + "\n" + s.Text)
		for _, target := range refs {
			if target == s.Page {
				continue
			}
			candidates := byPage[target]
			if len(candidates) == 0 {
				continue
			}

			best, score := bestRuleCandidate(s, candidates)
			edges = append(edges, model.LinkEdge{
				From:  s.ID,
				To:    best.ID,
				Kind:  model.LinkRule,
				Score: score,
			})
		}
	}
	return edges
}

// bestRuleCandidate narrows candidates to the seed's section when possible
// and picks the highest headline Jaccard similarity, first-seen on ties
func bestRuleCandidate(s model.StorySeed, candidates []model.StorySeed) (model.StorySeed, float64) {
	if section := extract.NormalizeSection(s.Section); section != "" {
		var filtered []model.StorySeed
		for _, c := range candidates {
			if extract.NormalizeSection(c.Section) == section {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	tokens := extract.TokenSet(s.Headline)
	if len(candidates) == 1 {
		return candidates[0], extract.Jaccard(tokens, extract.TokenSet(candidates[0].Headline))
	}

	best := candidates[0]
	bestScore := extract.Jaccard(tokens, extract.TokenSet(best.Headline))
	for _, c := range candidates[1:] {
		score := extract.Jaccard(tokens, extract.TokenSet(c.Headline))
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, bestScore
}

// EmbeddingText is the text embedded for a seed: headline plus the first body words
func (l *Linker) EmbeddingText(s model.StorySeed) string {
	body := extract.FirstWords(s.Text, l.config.EmbedBodyWords)
	return strings.TrimSpace(s.Headline + "\n" + body)
}

// EmbeddingEdges issues one batch embedding call for all seeds and links
// each seed to the first acceptable seed on a later page. The scan is
// greedy: candidates are visited in page/first-seen order and the first
// match wins even if a later one is more similar.
func (l *Linker) EmbeddingEdges(ctx context.Context, seeds []model.StorySeed) ([]model.LinkEdge, model.EmbeddingStatus) {
	if llm.IsNoop(l.embedder) {
		return nil, model.EmbeddingStatus{}
	}
	status := model.EmbeddingStatus{Provider: l.embedder.Name()}
	if len(seeds) < 2 {
		return nil, status
	}

	sorted := sortSeeds(seeds)
	texts := make([]string, len(sorted))
	entities := make([]map[string]struct{}, len(sorted))
	for i, s := range sorted {
		texts[i] = l.EmbeddingText(s)
		entities[i] = extract.CapitalizedTokens(texts[i])
	}

	embedCtx := ctx
	if l.config.EmbeddingTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, l.config.EmbeddingTimeout)
		defer cancel()
	}

	vectors, err := l.embedder.Embed(embedCtx, texts)
	switch {
	case err != nil:
		status.Degraded = true
		status.Reason = err.Error()
		return nil, status
	case vectors == nil:
		// Provider reports embeddings unavailable
		return nil, status
	case len(vectors) != len(texts):
		status.Degraded = true
		status.Reason = fmt.Sprintf("embedding count mismatch: sent %d, got %d", len(texts), len(vectors))
		return nil, status
	}
	status.Used = true

	for i := range vectors {
		vectors[i] = llm.Normalize(vectors[i])
	}

	var edges []model.LinkEdge
	for i, s := range sorted {
		section := extract.NormalizeSection(s.Section)
		for j := range sorted {
			c := sorted[j]
			if c.Page <= s.Page {
				continue
			}
			if other := extract.NormalizeSection(c.Section); section != "" && other != "" && section != other {
				continue
			}
			sim := llm.Dot(vectors[i], vectors[j])
			if sim < l.config.MinSimilarity {
				continue
			}
			if extract.OverlapRatio(entities[i], entities[j]) < l.config.MinEntityOverlap {
				continue
			}
			edges = append(edges, model.LinkEdge{
				From:  s.ID,
				To:    c.ID,
				Kind:  model.LinkEmbedding,
				Score: sim,
			})
			break
		}
	}
	return edges, status
}

// Merge unions seeds along edges and builds one story per component.
// Edges naming unknown seeds are ignored. Stories are ordered by their
// representative seed, which is the lowest page, then ordinal, then id.
func Merge(seeds []model.StorySeed, edges []model.LinkEdge) []model.Story {
	sorted := sortSeeds(seeds)

	index := make(map[string]int, len(sorted))
	for i, s := range sorted {
		index[s.ID] = i
	}

	uf := NewUnionFind(len(sorted))
	for _, e := range edges {
		a, okA := index[e.From]
		b, okB := index[e.To]
		if !okA || !okB {
			continue
		}
		uf.Union(a, b)
	}

	// Seeds are sorted, so each group's first member is its representative
	groups := uf.Groups()
	stories := make([]model.Story, 0, len(groups))
	for _, g := range groups {
		stories = append(stories, buildStory(sorted, g))
	}
	return stories
}

func buildStory(sorted []model.StorySeed, members []int) model.Story {
	rep := sorted[members[0]]
	story := model.Story{
		ID:       rep.ID,
		Headline: rep.Headline,
		Section:  rep.Section,
		Byline:   rep.Byline,
	}

	var texts []string
	seenPage := make(map[int]bool)
	for _, m := range members {
		s := sorted[m]
		story.SeedIDs = append(story.SeedIDs, s.ID)
		story.BlockIDs = append(story.BlockIDs, s.BlockIDs...)
		if !seenPage[s.Page] {
			seenPage[s.Page] = true
			story.Pages = append(story.Pages, s.Page)
		}
		if t := strings.TrimSpace(s.Text); t != "" {
			texts = append(texts, t)
		}
	}
	story.Text = strings.Join(texts, "\n\n")
	return story
}

// sortSeeds returns a copy of seeds in page, ordinal, id order
func sortSeeds(seeds []model.StorySeed) []model.StorySeed {
	out := append([]model.StorySeed(nil), seeds...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Before(out[j])
	})
	return out
}
