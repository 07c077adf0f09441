package unsubscribe

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var linkKeywords = []string{"unsubscribe", "opt-out", "optout", "remove", "preferences", "manage-subscription"}

var urlPattern = regexp.MustCompile(`https?://[^\s<>"'()\[\]]+`)

// FindBodyLink returns the first unsubscribe link in the HTML anchors, then
// the first matching bare URL in the plain text.
func FindBodyLink(html, plain string) string {
	if html != "" {
		if link := anchorLink(html); link != "" {
			return link
		}
	}
	for _, text := range []string{plain, html} {
		for _, u := range urlPattern.FindAllString(text, -1) {
			u = strings.TrimRight(u, ".,;:!?")
			if hasKeyword(u) {
				return u
			}
		}
	}
	return ""
}

func anchorLink(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		lower := strings.ToLower(href)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") && !strings.HasPrefix(lower, "mailto:") {
			return true
		}
		if hasKeyword(href) || hasKeyword(s.Text()) {
			found = href
			return false
		}
		return true
	})
	return found
}

func hasKeyword(s string) bool {
	s = strings.ToLower(s)
	for _, k := range linkKeywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
