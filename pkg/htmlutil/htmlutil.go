package htmlutil

import (
	"bytes"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// GetText concatenates every text node beneath `node`.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// NormalizeText turns non-breaking spaces into plain spaces, drops
// non-printable runes, collapses runs of whitespace and trims the result.
func NormalizeText(text string) string {
	text = strings.Map(func(r rune) rune {
		if r == ' ' || unicode.IsSpace(r) {
			return ' '
		}
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}

// ResolveURL resolves a relative `link` against `base` (base may be nil).
// Absolute links are returned as written, fragment and all.
func ResolveURL(base *url.URL, link string) (string, error) {
	link = strings.TrimSpace(link)
	parsed, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	if parsed.IsAbs() || base == nil {
		return link, nil
	}
	return base.ResolveReference(parsed).String(), nil
}
