package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/policyscope/policyscope/internal/model"
	"github.com/policyscope/policyscope/internal/util"
	"golang.org/x/net/html"
)

// truncationMarker is appended when extracted text exceeds the configured cap
const truncationMarker = "... [content truncated]"

// nonContentSelector matches markup that never carries policy text
const nonContentSelector = "script, style, noscript, iframe, img, svg, header, footer, nav"

// genericSelectors are content containers tried for any document type, after
// the type-specific ones
var genericSelectors = []string{
	"main",
	"article",
	"#content",
	".content",
	"#main-content",
	".main-content",
	".container",
	".main",
	".body",
	"#body",
	"body > div:nth-child(1)",
	".page",
	"#page",
	".page-content",
}

// termsSelectors are tried first when extracting a terms-of-service document
var termsSelectors = []string{
	"#terms",
	".terms",
	"#terms-of-service",
	".terms-of-service",
	"#terms-conditions",
	".terms-conditions",
	"#legal",
	".legal",
	`[id*="terms"]`,
	`[class*="terms"]`,
	`[id*="tos"]`,
	`[class*="tos"]`,
}

// privacySelectors are tried first when extracting a privacy policy
var privacySelectors = []string{
	"#privacy",
	".privacy",
	"#privacy-policy",
	".privacy-policy",
	"#data-policy",
	".data-policy",
	`[id*="privacy"]`,
	`[class*="privacy"]`,
}

// Extractor reduces fetched HTML to plain policy text through a strictly
// ordered degrade chain: type-specific and generic content containers first,
// then paragraph concatenation, then whole-document text. Each tier engages
// only when the prior tier missed its threshold.
type Extractor struct {
	// containerMinLen is the minimum trimmed length for a container to win
	containerMinLen int
	// minContentLen is the threshold below which a tier is considered failed
	minContentLen int
	// maxContentLen caps the returned text
	maxContentLen int
}

// NewExtractor creates an extractor with the configured thresholds
func NewExtractor(cfg model.FetchConfig) *Extractor {
	return &Extractor{
		containerMinLen: cfg.ContainerMinLen,
		minContentLen:   cfg.MinContentLen,
		maxContentLen:   cfg.MaxContentLen,
	}
}

// Extract pulls policy text out of an HTML document. Parse failures degrade
// to the raw body rather than erroring, capped like any other result.
func (e *Extractor) Extract(htmlBody string, docType model.PolicyType) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return e.cap(strings.TrimSpace(htmlBody))
	}

	doc.Find(nonContentSelector).Remove()

	selectors := genericSelectors
	switch docType {
	case model.PolicyTerms:
		selectors = append(append([]string{}, termsSelectors...), genericSelectors...)
	case model.PolicyPrivacy:
		selectors = append(append([]string{}, privacySelectors...), genericSelectors...)
	}

	// Tier 1: first container whose trimmed text clears the container
	// threshold, in selector priority order.
	var text string
	for _, selector := range selectors {
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			candidate := strings.TrimSpace(s.Text())
			if len(candidate) > e.containerMinLen {
				text = candidate
				return false
			}
			return true
		})
		if text != "" {
			break
		}
	}

	// Tier 2: paragraph concatenation, only when the page has enough
	// paragraph-like elements to be worth joining.
	if len(text) < e.minContentLen {
		paragraphs := doc.Find("p")
		if paragraphs.Length() > 5 {
			var parts []string
			paragraphs.Each(func(_ int, s *goquery.Selection) {
				if p := strings.TrimSpace(s.Text()); p != "" {
					parts = append(parts, p)
				}
			})
			if joined := strings.Join(parts, "\n\n"); len(joined) > len(text) {
				text = joined
			}
		}
	}

	// Tier 3: whole-document text.
	if len(text) < e.minContentLen {
		if root := doc.Get(0); root != nil {
			text = strings.TrimSpace(nodeText(root))
		}
	}

	return e.cap(text)
}

func (e *Extractor) cap(text string) string {
	if len(text) > e.maxContentLen {
		return util.Truncate(text, e.maxContentLen) + truncationMarker
	}
	return text
}

// nodeText collects the text nodes under n, separating siblings with spaces
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}

	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		part := nodeText(c)
		if part == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(part)
	}
	return b.String()
}
