package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

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

// OwnTexts returns the text nodes that are direct children of the nodes in
// sel, in document order. Text inside nested elements is not included.
func OwnTexts(sel *goquery.Selection) []string {
	var texts []string
	for _, n := range sel.Nodes {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.TextNode {
				texts = append(texts, child.Data)
			}
		}
	}
	return texts
}

// FirstOwnText is OwnTexts(sel)[0], ok is false when there is no text node.
func FirstOwnText(sel *goquery.Selection) (string, bool) {
	texts := OwnTexts(sel)
	if len(texts) == 0 {
		return "", false
	}
	return texts[0], true
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// Clean trims a text node and collapses runs of inner whitespace
// (including non-breaking spaces) to a single space.
func Clean(s string) string {
	s = removeNonPrintable(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}
