package ingest

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/broadsheet/internal/cache"
	"github.com/ppiankov/broadsheet/internal/model"
)

const sampleJSON = `{
  "id": "gazette-1921-03-04",
  "title": "Evening Gazette",
  "pages": [
    {"number": 2, "width": 1000, "height": 1500, "blocks": [
      {"id": "h1", "type": "Heading", "bbox": [0, 0, 300, 40], "text": "Mayor Opens Bridge"},
      {"type": "paragraph", "bbox": {"x1": 300, "y1": 200, "x2": 0, "y2": 50}, "text": "The mayor said..."}
    ]},
    {"number": 1, "width": 1000, "height": 1500, "blocks": []}
  ]
}`

const sampleHOCR = `<!DOCTYPE html>
<html><head><title>Gazette page</title></head>
<body>
<div class="ocr_page" id="page_1" title="image &quot;scan-01.tif&quot;; bbox 0 0 2000 3000; ppageno 0">
  <div class="ocr_carea" id="block_1" title="bbox 100 100 900 200">
    <p class="ocr_par" id="par_1" title="bbox 100 100 900 200">
      <span class="ocr_header" title="bbox 100 100 900 200">
        <span class="ocrx_word" title="bbox 100 100 400 200; x_wconf 90">FLOOD</span>
        <span class="ocrx_word" title="bbox 450 100 900 200; x_wconf 80">WARNING</span>
      </span>
    </p>
  </div>
  <div class="ocr_carea" id="block_2" title="bbox 100 250 900 400">
    <p class="ocr_par" id="par_2" title="bbox 100 250 900 400">
      <span class="ocr_line" title="bbox 100 250 900 300">
        <span class="ocrx_word" title="bbox 100 250 300 300; x_wconf 95">River</span>
        <span class="ocrx_word" title="bbox 320 250 500 300; x_wconf 95">rises</span>
      </span>
      <span class="ocr_line" title="bbox 100 320 900 370">
        <span class="ocrx_word" title="bbox 100 320 300 370; x_wconf 95">again.</span>
      </span>
    </p>
  </div>
  <div class="ocr_carea" id="block_3" data-block-type="advertisement" title="bbox 100 500 900 700">
    <p class="ocr_par" id="par_3" title="bbox 100 500 900 700">
      <span class="ocr_line" title="bbox 100 500 900 700">
        <span class="ocrx_word" title="bbox 100 500 900 700; x_wconf 70">SALE</span>
      </span>
    </p>
  </div>
  <div class="ocr_photo" id="photo_1" title="bbox 1000 100 1900 900"></div>
</div>
</body></html>`

func TestRegistry_FindAdapter(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		source      string
		contentType string
		want        string
	}{
		{"issue.json", "", "json"},
		{"issue.YAML", "", "yaml"},
		{"issue.yml", "", "yaml"},
		{"page.hocr", "", "hocr"},
		{"https://example.org/api/issue", "application/json; charset=utf-8", "json"},
		{"https://example.org/page?id=3", "text/html", "hocr"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			a, err := r.FindAdapter(tt.source, tt.contentType)
			if err != nil {
				t.Fatalf("FindAdapter failed: %v", err)
			}
			if a.Name() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, a.Name())
			}
		})
	}

	if _, err := r.FindAdapter("scan.pdf", "application/pdf"); !errors.Is(err, ErrNoAdapter) {
		t.Errorf("expected ErrNoAdapter, got %v", err)
	}
}

func TestJSONAdapter_Shapes(t *testing.T) {
	a := NewJSONAdapter()

	doc, err := a.Decode([]byte(sampleJSON), "x.json")
	if err != nil {
		t.Fatalf("document decode failed: %v", err)
	}
	if doc.ID != "gazette-1921-03-04" || len(doc.Pages) != 2 {
		t.Errorf("unexpected document %+v", doc)
	}

	doc, err = a.Decode([]byte(`{"number": 4, "blocks": [{"id": "a", "type": "body", "bbox": [0,0,1,1]}]}`), "p.json")
	if err != nil {
		t.Fatalf("page decode failed: %v", err)
	}
	if len(doc.Pages) != 1 || doc.Pages[0].Number != 4 {
		t.Errorf("expected single page 4, got %+v", doc.Pages)
	}

	doc, err = a.Decode([]byte(`[{"blocks": []}, {"blocks": []}]`), "p.json")
	if err != nil {
		t.Fatalf("array decode failed: %v", err)
	}
	if len(doc.Pages) != 2 {
		t.Errorf("expected 2 pages, got %d", len(doc.Pages))
	}

	if _, err := a.Decode([]byte("  "), "x.json"); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestYAMLAdapter_Document(t *testing.T) {
	src := `
id: weekly
pages:
  - number: 1
    width: 800
    height: 1200
    blocks:
      - id: h
        type: headline
        bbox: [0, 0, 400, 30]
        text: Harvest Festival
      - id: b
        type: body
        bbox: {x1: 0, y1: 40, x2: 400, y2: 300}
        text: Crowds gathered.
        metadata:
          source: column-3
`
	doc, err := NewYAMLAdapter().Decode([]byte(src), "weekly.yaml")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if doc.ID != "weekly" || len(doc.Pages) != 1 || len(doc.Pages[0].Blocks) != 2 {
		t.Fatalf("unexpected document %+v", doc)
	}
	b := doc.Pages[0].Blocks[1]
	if b.BBox.Y2 != 300 || b.MetaString("source") != "column-3" {
		t.Errorf("unexpected block %+v", b)
	}

	single, err := NewYAMLAdapter().Decode([]byte("number: 2\nblocks: []\n"), "p.yaml")
	if err != nil || len(single.Pages) != 1 || single.Pages[0].Number != 2 {
		t.Errorf("expected single page, got %+v (%v)", single, err)
	}
}

func TestHOCRAdapter_Decode(t *testing.T) {
	doc, err := NewHOCRAdapter().Decode([]byte(sampleHOCR), "page.hocr")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if doc.Title != "Gazette page" {
		t.Errorf("unexpected title %q", doc.Title)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}

	page := doc.Pages[0]
	if page.Width != 2000 || page.Height != 3000 || page.Image != "scan-01.tif" {
		t.Errorf("unexpected page header %+v", page)
	}
	if len(page.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(page.Blocks))
	}

	byID := make(map[string]model.Block)
	for _, b := range page.Blocks {
		byID[b.ID] = b
	}

	head := byID["par_1"]
	if head.Type != model.BlockHeadline || head.Text != "FLOOD WARNING" {
		t.Errorf("unexpected headline block %+v", head)
	}
	if head.Confidence == nil || *head.Confidence < 0.849 || *head.Confidence > 0.851 {
		t.Errorf("expected mean confidence 0.85, got %v", head.Confidence)
	}

	body := byID["par_2"]
	if body.Type != model.BlockText || body.Text != "River rises\nagain." || len(body.Words) != 3 {
		t.Errorf("unexpected body block %+v", body)
	}

	if byID["par_3"].Type != model.BlockAd {
		t.Errorf("expected data-block-type override to ad, got %s", byID["par_3"].Type)
	}
	if byID["photo_1"].Type != model.BlockImage {
		t.Errorf("expected photo block, got %s", byID["photo_1"].Type)
	}

	if _, err := NewHOCRAdapter().Decode([]byte("<html><body>nothing</body></html>"), "x.hocr"); err == nil {
		t.Error("expected error without ocr_page")
	}
}

func TestNormalize(t *testing.T) {
	doc, err := NewJSONAdapter().Decode([]byte(sampleJSON), "issues/gazette.json")
	if err != nil {
		t.Fatal(err)
	}
	doc.ID = ""
	doc.Pages[0].Blocks = append(doc.Pages[0].Blocks, model.Block{ID: "h1", Type: "body"})

	notes := Normalize(doc, "issues/gazette.json", "")

	if doc.ID != "gazette" || doc.Source != "issues/gazette.json" {
		t.Errorf("unexpected id/source %q %q", doc.ID, doc.Source)
	}
	if doc.Pages[0].Number != 1 || doc.Pages[1].Number != 2 {
		t.Errorf("expected pages sorted, got %d,%d", doc.Pages[0].Number, doc.Pages[1].Number)
	}

	blocks := doc.Pages[1].Blocks
	if blocks[0].Type != model.BlockHeadline || blocks[1].Type != model.BlockText {
		t.Errorf("expected aliases normalized, got %s %s", blocks[0].Type, blocks[1].Type)
	}
	if blocks[1].ID != "p2-b1" {
		t.Errorf("expected generated id p2-b1, got %q", blocks[1].ID)
	}
	if blocks[1].BBox.X1 != 0 || blocks[1].BBox.X2 != 300 {
		t.Errorf("expected normalized bbox, got %v", blocks[1].BBox)
	}
	if blocks[2].ID != "h1-2" {
		t.Errorf("expected duplicate renamed, got %q", blocks[2].ID)
	}
	if len(notes) != 1 || !strings.Contains(notes[0], "duplicate block id") {
		t.Errorf("expected one duplicate note, got %v", notes)
	}
}

func TestNormalize_RenamedIDsStayUnique(t *testing.T) {
	doc := &model.Document{
		ID: "d",
		Pages: []model.Page{{
			Number: 1,
			Blocks: []model.Block{
				{ID: "a-2", Type: "body"},
				{ID: "a", Type: "body"},
				{ID: "a", Type: "body"},
			},
		}},
	}

	notes := Normalize(doc, "d.json", "")

	seen := make(map[string]bool)
	for _, b := range doc.Pages[0].Blocks {
		if seen[b.ID] {
			t.Errorf("block id %q assigned twice", b.ID)
		}
		seen[b.ID] = true
	}
	if got := doc.Pages[0].Blocks[2].ID; got != "a-2-2" {
		t.Errorf("expected third block renamed to a-2-2, got %q", got)
	}
	if len(notes) != 1 {
		t.Errorf("expected one rename note, got %v", notes)
	}
}

func TestNormalize_PageSizeFromImage(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "scan.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 64, 96))); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	doc := &model.Document{Pages: []model.Page{
		{Number: 1, Image: "scan.png"},
		{Number: 2, Image: "missing.png"},
	}}
	notes := Normalize(doc, filepath.Join(dir, "doc.json"), dir)

	if doc.Pages[0].Width != 64 || doc.Pages[0].Height != 96 {
		t.Errorf("expected 64x96, got %.0fx%.0f", doc.Pages[0].Width, doc.Pages[0].Height)
	}
	if len(notes) != 1 || !strings.Contains(notes[0], "page 2: size unknown") {
		t.Errorf("expected note for missing image, got %v", notes)
	}
}

func TestLoader_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "issue")
	if err := os.WriteFile(path, []byte(sampleJSON), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(model.DefaultConfig().HTTP, nil, 0)
	result, err := loader.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if result.Adapter != "json" {
		t.Errorf("expected sniffed json adapter, got %s", result.Adapter)
	}
	if result.Document.ID != "gazette-1921-03-04" {
		t.Errorf("unexpected id %q", result.Document.ID)
	}

	if _, err := loader.Load(context.Background(), filepath.Join(dir, "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoader_RemoteWithCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, sampleJSON)
	}))
	defer server.Close()

	mem := cache.NewMemoryCache(time.Minute, time.Minute)
	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, true, "", "", "")
	loader := NewLoaderWithRegistry(NewRegistry(), fetcher, mem, time.Minute)

	url := server.URL + "/issues/1921-03-04"
	first, err := loader.Load(context.Background(), url)
	if err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	if first.FromCache {
		t.Error("first load should not come from cache")
	}

	second, err := loader.Load(context.Background(), url)
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if !second.FromCache {
		t.Error("second load should come from cache")
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 document request, got %d", hits.Load())
	}
	if len(second.Document.Pages) != 2 {
		t.Errorf("unexpected cached document %+v", second.Document)
	}
}

func TestIsRemote(t *testing.T) {
	if !IsRemote("https://example.org/a.json") || IsRemote("a.json") || IsRemote("file:///tmp/a.json") {
		t.Error("unexpected IsRemote classification")
	}
}
