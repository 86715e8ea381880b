package extractor

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Extractor collects link URLs from HTML pages.
//
// Design decision: golang.org/x/net/html rather than regex, because it
// correctly handles the malformed HTML the web actually serves and gives
// a proper tree to walk in one pass.
type Extractor struct {
	// checkResources extends extraction beyond anchors and <link> to
	// resource-bearing tags: img, script, iframe, source.
	checkResources bool
}

// New creates an extractor. checkResources controls whether embedded
// resources are extracted in addition to hyperlinks.
func New(checkResources bool) *Extractor {
	return &Extractor{checkResources: checkResources}
}

// Extract parses an HTML document and returns every resolvable reference
// as an absolute URL string, in document order, duplicates removed.
// contentType drives charset detection for non-UTF-8 pages. Scheme-only
// pseudo-links (javascript:, mailto:, tel:, data:) and bare fragments are
// dropped here; everything else is the caller's decision.
func (e *Extractor) Extract(r io.Reader, contentType string, page *url.URL) ([]string, error) {
	decoded, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	doc, err := html.Parse(decoded)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	// A <base href> replaces the page URL for resolving every reference,
	// including ones appearing before it in the document.
	base := page
	if baseHref := findBaseHref(doc); baseHref != "" {
		if resolved, err := page.Parse(baseHref); err == nil {
			base = resolved
		}
	}

	var links []string
	seen := make(map[string]struct{})
	appendLink := func(ref string) {
		resolved := resolve(base, ref)
		if resolved == "" {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		links = append(links, resolved)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			e.processElement(n, appendLink)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

func (e *Extractor) processElement(n *html.Node, appendLink func(string)) {
	switch n.Data {
	case "a", "area":
		if href := getAttr(n, "href"); href != "" {
			appendLink(href)
		}
	case "link":
		if href := getAttr(n, "href"); href != "" {
			appendLink(href)
		}
	case "img", "script", "iframe", "source", "embed":
		if !e.checkResources {
			return
		}
		if src := getAttr(n, "src"); src != "" {
			appendLink(src)
		}
	}
}

// resolve turns one reference into an absolute URL string, or "" when the
// reference is not a crawlable link.
func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return ""
	}
	lower := strings.ToLower(ref)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// findBaseHref returns the href of the first <base> element, if any.
func findBaseHref(doc *html.Node) string {
	var href string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "base" {
			href = getAttr(n, "href")
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return href
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
