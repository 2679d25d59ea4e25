package scraper

import (
	"bytes"
	"encoding/json"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/domain"
)

// Extraction source precedence, highest first. Each field resolves through
// its own ordered strategy chain; the first strategy that yields a value
// wins and later ones are never consulted.
const (
	SourceStructuredData = "structured-data"
	SourceSocialMeta     = "social-meta"
	SourceSelector       = "selector"
	SourceRegexScan      = "regex-scan"
)

var (
	titleSelectors       = "h1, .product-single__title, .product-title, .product__title"
	descriptionSelectors = ".product-single__description, .product-description, .description, .rte"
	priceSelectors       = []string{
		".product-single__price", ".price", ".product-price", ".price__regular", ".price--large",
		".money", ".product__price", ".variant__price", ".price-item--regular", ".price-item--sale",
	}

	priceKeyRe   = regexp.MustCompile(`"price"\s*:\s*"?([\d.,]+)"?`)
	priceLooseRe = regexp.MustCompile(`price\W*:\W*([\d.,]+)`)
	numberRe     = regexp.MustCompile(`[\d.]+`)
)

// page bundles the parsed views of one product document that the strategies
// read from.
type page struct {
	url  *url.URL
	doc  *goquery.Document
	raw  string
	ld   map[string]any // first product-typed structured data block, or nil
}

type textStrategy struct {
	source string
	get    func(*page) (string, bool)
}

type priceStrategy struct {
	source string
	get    func(*page) (float64, bool)
}

type imageStrategy struct {
	source string
	get    func(*page) ([]string, bool)
}

var titleChain = []textStrategy{
	{SourceStructuredData, titleFromStructured},
	{SourceSocialMeta, titleFromMeta},
	{SourceSelector, titleFromSelector},
}

var descriptionChain = []textStrategy{
	{SourceStructuredData, descriptionFromStructured},
	{SourceSocialMeta, descriptionFromMeta},
	{SourceSelector, descriptionFromSelector},
}

var priceChain = []priceStrategy{
	{SourceStructuredData, priceFromStructured},
	{SourceSelector, priceFromSelectors},
	{SourceRegexScan, priceFromScan},
}

var imageChain = []imageStrategy{
	{SourceStructuredData, imagesFromStructured},
	{SourceSocialMeta, imagesFromMeta},
	{SourceSelector, imagesFromTags},
}

// Extract builds a best-effort ProductRecord from fetched markup. It never
// fails: fields the page does not expose come back empty, and the record
// always carries the input pageURL.
func Extract(pageURL string, markup []byte) domain.ProductRecord {
	record := domain.ProductRecord{URL: pageURL, Images: []string{}}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return record
	}

	p := &page{doc: doc, raw: string(markup), ld: productStructuredData(doc)}
	if u, err := url.Parse(pageURL); err == nil {
		p.url = u
	}

	record.Title = firstText(p, titleChain)
	record.Description = firstText(p, descriptionChain)
	for _, s := range priceChain {
		if v, ok := s.get(p); ok {
			record.Price = &v
			break
		}
	}
	for _, s := range imageChain {
		if imgs, ok := s.get(p); ok {
			record.Images = p.absolutize(imgs)
			break
		}
	}
	return record
}

func firstText(p *page, chain []textStrategy) string {
	for _, s := range chain {
		if v, ok := s.get(p); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// productStructuredData scans every ld+json block for the first object whose
// @type contains "product" (case-insensitive), looking inside top-level
// arrays and @graph members. Malformed blocks are skipped.
func productStructuredData(doc *goquery.Document) map[string]any {
	var found map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		switch v := data.(type) {
		case []any:
			if m := productFromList(v); m != nil {
				found = m
				return false
			}
		case map[string]any:
			if isProductType(v) {
				found = v
				return false
			}
			if graph, ok := v["@graph"].([]any); ok {
				if m := productFromList(graph); m != nil {
					found = m
					return false
				}
			}
		}
		return true
	})
	return found
}

func productFromList(items []any) map[string]any {
	for _, item := range items {
		if m, ok := item.(map[string]any); ok && isProductType(m) {
			return m
		}
	}
	return nil
}

func isProductType(m map[string]any) bool {
	t, _ := m["@type"].(string)
	return strings.Contains(strings.ToLower(t), "product")
}

// --- title ---

func titleFromStructured(p *page) (string, bool) {
	if p.ld == nil {
		return "", false
	}
	for _, key := range []string{"name", "headline"} {
		if v, ok := p.ld[key].(string); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	return "", false
}

func titleFromMeta(p *page) (string, bool) {
	return metaContent(p.doc, `meta[property="og:title"], meta[name="og:title"]`)
}

func titleFromSelector(p *page) (string, bool) {
	return selectorText(p.doc, titleSelectors)
}

// --- description ---

func descriptionFromStructured(p *page) (string, bool) {
	if p.ld == nil {
		return "", false
	}
	if v, ok := p.ld["description"].(string); ok && strings.TrimSpace(v) != "" {
		return v, true
	}
	if review, ok := p.ld["review"].(map[string]any); ok {
		if v, ok := review["reviewBody"].(string); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	return "", false
}

func descriptionFromMeta(p *page) (string, bool) {
	return metaContent(p.doc,
		`meta[property="og:description"], meta[name="og:description"], meta[name="description"]`)
}

func descriptionFromSelector(p *page) (string, bool) {
	return selectorText(p.doc, descriptionSelectors)
}

// --- price ---

func priceFromStructured(p *page) (float64, bool) {
	if p.ld == nil {
		return 0, false
	}
	offers, ok := p.ld["offers"].(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := offers["price"].(type) {
	case string:
		return parsePrice(v)
	case float64:
		if validPrice(v) {
			return v, true
		}
	}
	return 0, false
}

func priceFromSelectors(p *page) (float64, bool) {
	for _, sel := range priceSelectors {
		el := p.doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if v, ok := parsePrice(el.Text()); ok {
			return v, true
		}
	}
	return 0, false
}

// priceFromScan is the last resort: storefront themes often carry the price
// only inside inline JS product JSON.
func priceFromScan(p *page) (float64, bool) {
	for _, re := range []*regexp.Regexp{priceKeyRe, priceLooseRe} {
		if m := re.FindStringSubmatch(p.raw); m != nil {
			if v, ok := parsePrice(m[1]); ok {
				return v, true
			}
		}
	}
	return 0, false
}

// parsePrice extracts the first numeric token after stripping thousands
// separators. Only non-negative finite values qualify.
func parsePrice(text string) (float64, bool) {
	m := numberRe.FindString(strings.ReplaceAll(text, ",", ""))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || !validPrice(v) {
		return 0, false
	}
	return v, true
}

func validPrice(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// --- images ---

func imagesFromStructured(p *page) ([]string, bool) {
	if p.ld == nil {
		return nil, false
	}
	for _, key := range []string{"image", "images"} {
		switch v := p.ld[key].(type) {
		case string:
			if v != "" {
				return []string{v}, true
			}
		case []any:
			var imgs []string
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					imgs = append(imgs, s)
				}
			}
			if len(imgs) > 0 {
				return imgs, true
			}
		}
	}
	return nil, false
}

func imagesFromMeta(p *page) ([]string, bool) {
	if v, ok := metaContent(p.doc, `meta[property="og:image"], meta[name="og:image"]`); ok {
		return []string{v}, true
	}
	return nil, false
}

// imagesFromTags collects img sources, skipping icon and sprite assets.
func imagesFromTags(p *page) ([]string, bool) {
	var imgs []string
	p.doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if src == "" {
			src = s.AttrOr("data-src", "")
		}
		if src == "" {
			src = s.AttrOr("data-lazy-src", "")
		}
		if src == "" {
			return
		}
		full := p.resolve(src)
		if strings.Contains(full, "icon") || strings.Contains(full, "sprite") {
			return
		}
		imgs = append(imgs, full)
	})
	if len(imgs) == 0 {
		return nil, false
	}
	return imgs, true
}

func metaContent(doc *goquery.Document, selector string) (string, bool) {
	content := doc.Find(selector).First().AttrOr("content", "")
	if strings.TrimSpace(content) == "" {
		return "", false
	}
	return content, true
}

func selectorText(doc *goquery.Document, selector string) (string, bool) {
	el := doc.Find(selector).First()
	if el.Length() == 0 {
		return "", false
	}
	text := strings.Join(strings.Fields(el.Text()), " ")
	if text == "" {
		return "", false
	}
	return text, true
}

// resolve makes a single URL absolute against the page URL.
func (p *page) resolve(href string) string {
	if p.url == nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return p.url.ResolveReference(ref).String()
}

// absolutize resolves every image URL and deduplicates preserving first-seen
// order.
func (p *page) absolutize(imgs []string) []string {
	seen := make(map[string]bool, len(imgs))
	out := make([]string, 0, len(imgs))
	for _, img := range imgs {
		full := p.resolve(img)
		if full == "" || seen[full] {
			continue
		}
		seen[full] = true
		out = append(out, full)
	}
	return out
}
