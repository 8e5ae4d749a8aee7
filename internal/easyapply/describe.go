// internal/easyapply/describe.go
// Job-description extraction. The fast path reads the posting's description
// container in-page; when the selectors come up empty (markup drift, A/B
// variants) the full document is parsed and the largest text block wins.
package easyapply

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/hireloop/easyapply/api/schemas"
)

const descriptionScript = `(function() { /* probe:job-description */
	const sels = [
		"div.jobs-description__content",
		"div.jobs-box__html-content",
		"article.jobs-description__container",
		"section.description",
	];
	for (const sel of sels) {
		const el = document.querySelector(sel);
		if (el && el.innerText.trim().length > 0) { return el.innerText.trim(); }
	}
	return "";
})()`

// extractDescription returns the posting's description text, or "" when
// neither the in-page probe nor the HTML fallback finds one.
func extractDescription(ctx context.Context, driver schemas.PageDriver) string {
	var text string
	if err := driver.ExecuteScript(ctx, descriptionScript, &text); err == nil && text != "" {
		return text
	}

	raw, err := driver.OuterHTML(ctx)
	if err != nil || raw == "" {
		return ""
	}
	return largestTextBlock(raw)
}

// largestTextBlock parses the document and returns the text of the element
// subtree with the most text, skipping script/style/nav chrome. Good enough
// for language detection and tailoring, which only need representative
// body text.
func largestTextBlock(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return ""
	}

	var best string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "header", "footer":
				return
			case "div", "section", "article", "main":
				if t := nodeText(n); len(t) > len(best) {
					best = t
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(best)
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
