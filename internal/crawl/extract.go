package crawl

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractText pulls the readable text out of an HTML page. Script and style
// elements are dropped, then heading and paragraph text is concatenated; if
// the page has neither, the whole document's visible text is used instead.
// Malformed HTML degrades to whatever the parser salvages, never an error
// the caller has to handle.
func ExtractText(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style").Remove()

	var parts []string
	doc.Find("h1, h2, h3, h4, h5, h6, p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// ExtractTitle returns the page title, or "No Title" when absent.
func ExtractTitle(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "No Title"
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return "No Title"
}

// ExtractLinks collects anchor hrefs from a page, resolved against pageURL.
// Fragment-only links are dropped, links to other hosts are dropped when
// restrictDomain is set, and duplicates within the page are removed.
func ExtractLinks(html []byte, pageURL string, restrictDomain bool) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		link := resolved.String()
		if restrictDomain && !SameHost(link, pageURL) {
			return
		}
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})
	return links
}
