package ingest

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/broadsheet/internal/geom"
	"github.com/ppiankov/broadsheet/internal/model"
)

// hOCR line-level classes that carry words
var hocrLineClasses = []string{"ocr_line", "ocr_header", "ocr_caption", "ocr_textfloat"}

// HOCRAdapter decodes hOCR output from OCR engines such as Tesseract. Each
// ocr_par becomes a block; ocr_photo and ocr_image areas become image
// blocks. A data-block-type attribute on the block or an ancestor overrides
// the inferred type.
type HOCRAdapter struct{}

// NewHOCRAdapter creates an hOCR adapter
func NewHOCRAdapter() *HOCRAdapter {
	return &HOCRAdapter{}
}

// Name returns the adapter name
func (a *HOCRAdapter) Name() string {
	return "hocr"
}

// CanHandle accepts .hocr sources and HTML content
func (a *HOCRAdapter) CanHandle(source string, contentType string) bool {
	switch extension(source) {
	case ".hocr", ".html", ".htm", ".xhtml":
		return true
	}
	mt := mediaType(contentType)
	return mt == "text/html" || mt == "application/xhtml+xml" || mt == "text/vnd.hocr+html"
}

// Decode parses hOCR into a document
func (a *HOCRAdapter) Decode(data []byte, source string) (*model.Document, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse hocr: %w", err)
	}

	pageNodes := findAll(root, func(n *html.Node) bool { return hasClass(n, "ocr_page") })
	if len(pageNodes) == 0 {
		return nil, fmt.Errorf("parse hocr: no ocr_page elements")
	}

	doc := &model.Document{}
	if title := findFirst(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "title"
	}); title != nil {
		doc.Title = extractText(title)
	}

	for i, pn := range pageNodes {
		doc.Pages = append(doc.Pages, a.decodePage(pn, i+1))
	}
	return doc, nil
}

func (a *HOCRAdapter) decodePage(pn *html.Node, number int) model.Page {
	props := parseTitle(getAttribute(pn, "title"))
	page := model.Page{Number: number}
	if box, ok := titleBBox(props); ok {
		page.Width = box.Width()
		page.Height = box.Height()
	}
	if img, ok := props["image"]; ok {
		page.Image = strings.Trim(img, `"'`)
	}

	isBlock := func(n *html.Node) bool {
		return hasClass(n, "ocr_par") || hasClass(n, "ocr_photo") || hasClass(n, "ocr_image")
	}
	blockNodes := findAll(pn, isBlock)

	// Areas without paragraphs still carry text
	for _, area := range findAll(pn, func(n *html.Node) bool { return hasClass(n, "ocr_carea") && !isBlock(n) }) {
		if findFirst(area, isBlock) == nil {
			blockNodes = append(blockNodes, area)
		}
	}

	for i, bn := range blockNodes {
		page.Blocks = append(page.Blocks, decodeBlock(bn, pn, number, i))
	}
	return page
}

func decodeBlock(bn, pageNode *html.Node, pageNumber, idx int) model.Block {
	id := getAttribute(bn, "id")
	if id == "" {
		id = fmt.Sprintf("p%d-b%d", pageNumber, idx)
	}

	block := model.Block{
		ID:       id,
		Type:     inferBlockType(bn, pageNode),
		Metadata: map[string]any{"hocr_class": getAttribute(bn, "class")},
	}
	if box, ok := titleBBox(parseTitle(getAttribute(bn, "title"))); ok {
		block.BBox = box
	}

	var confSum float64
	var confCount int
	for _, wn := range findAll(bn, func(n *html.Node) bool { return hasClass(n, "ocrx_word") }) {
		props := parseTitle(getAttribute(wn, "title"))
		word := model.Word{Text: extractText(wn)}
		if word.Text == "" {
			continue
		}
		if box, ok := titleBBox(props); ok {
			word.BBox = box
		}
		if conf, err := strconv.ParseFloat(props["x_wconf"], 64); err == nil {
			word.Confidence = conf / 100
			confSum += word.Confidence
			confCount++
		}
		block.Words = append(block.Words, word)
	}
	if confCount > 0 {
		mean := confSum / float64(confCount)
		block.Confidence = &mean
	}

	lines := findAll(bn, func(n *html.Node) bool { return hasAnyClass(n, hocrLineClasses) })
	if len(lines) > 0 {
		texts := make([]string, 0, len(lines))
		for _, ln := range lines {
			if t := extractText(ln); t != "" {
				texts = append(texts, t)
			}
		}
		block.Text = strings.Join(texts, "\n")
	} else {
		words := make([]string, len(block.Words))
		for i, w := range block.Words {
			words[i] = w.Text
		}
		block.Text = strings.Join(words, " ")
	}
	return block
}

// inferBlockType prefers an explicit data-block-type, then the line classes
func inferBlockType(bn, pageNode *html.Node) model.BlockType {
	for n := bn; n != nil && n != pageNode; n = n.Parent {
		if t := getAttribute(n, "data-block-type"); t != "" {
			return model.ParseBlockType(t)
		}
	}

	if hasClass(bn, "ocr_photo") || hasClass(bn, "ocr_image") {
		return model.BlockImage
	}

	lines := findAll(bn, func(n *html.Node) bool { return hasAnyClass(n, hocrLineClasses) })
	if len(lines) > 0 {
		headers, captions := 0, 0
		for _, ln := range lines {
			switch {
			case hasClass(ln, "ocr_header"):
				headers++
			case hasClass(ln, "ocr_caption"):
				captions++
			}
		}
		switch len(lines) {
		case headers:
			return model.BlockHeadline
		case captions:
			return model.BlockCaption
		}
	}
	return model.BlockText
}

// parseTitle splits an hOCR title attribute into property -> value
func parseTitle(title string) map[string]string {
	props := make(map[string]string)
	for _, part := range strings.Split(title, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, " ")
		props[key] = strings.TrimSpace(value)
	}
	return props
}

func titleBBox(props map[string]string) (geom.BBox, bool) {
	fields := strings.Fields(props["bbox"])
	if len(fields) != 4 {
		return geom.BBox{}, false
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return geom.BBox{}, false
		}
		v[i] = n
	}
	return geom.New(v[0], v[1], v[2], v[3]), true
}

// extractText extracts whitespace-collapsed text content from a node
func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}

	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		buf.WriteString(extractText(c))
		buf.WriteString(" ")
	}
	return strings.Join(strings.Fields(buf.String()), " ")
}

// hasClass checks if a node has a specific CSS class
func hasClass(n *html.Node, className string) bool {
	if n.Type != html.ElementNode {
		return false
	}

	for _, attr := range n.Attr {
		if attr.Key == "class" {
			for _, class := range strings.Fields(attr.Val) {
				if class == className {
					return true
				}
			}
		}
	}
	return false
}

func hasAnyClass(n *html.Node, classes []string) bool {
	for _, c := range classes {
		if hasClass(n, c) {
			return true
		}
	}
	return false
}

// getAttribute gets an attribute value from a node
func getAttribute(n *html.Node, attrKey string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrKey {
			return attr.Val
		}
	}
	return ""
}

// findAll finds all nodes matching a predicate in document order
func findAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}

// findFirst finds the first node matching a predicate
func findFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	var result *html.Node

	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if predicate(node) {
			result = node
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(n)
	return result
}
