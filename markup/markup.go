// Package markup renders submission descriptions.
package markup

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/wansing/infodesk/util"
	"gitlab.com/golang-commonmark/markdown"
	"golang.org/x/net/html"
)

const DefaultExcerptLength = 160

// raw HTML is escaped
var parser = markdown.New(markdown.HTML(false), markdown.Linkify(true), markdown.Typographer(true), markdown.MaxNesting(10))

// unindent removes leading tabs from each line, so pasted text is not rendered as a code block.
func unindent(description string) []byte {
	var unindented = &bytes.Buffer{}
	var lineScanner = bufio.NewScanner(strings.NewReader(description))
	lineScanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lineScanner.Scan() {
		unindented.WriteString(strings.TrimLeft(lineScanner.Text(), "\t"))
		unindented.WriteString("\n")
	}
	return unindented.Bytes()
}

var blockTags = map[string]bool{
	"blockquote": true, "br": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"hr": true, "li": true, "ol": true, "p": true, "pre": true, "td": true, "th": true, "tr": true, "ul": true,
}

// Render converts CommonMark to HTML.
func Render(description string) string {
	if strings.TrimSpace(description) == "" {
		return ""
	}
	var result = &bytes.Buffer{}
	parser.RenderTokens(result, parser.Parse(unindent(description)))
	return result.String()
}

// Excerpt returns the text content of the rendered description, with whitespace collapsed and truncated to maxRunes.
func Excerpt(description string, maxRunes int) string {

	if maxRunes <= 0 {
		maxRunes = DefaultExcerptLength
	}

	var tokenizer = html.NewTokenizerFragment(strings.NewReader(Render(description)), "body")
	var text = &strings.Builder{}

	for text.Len() < 4*maxRunes { // enough bytes for maxRunes runes
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break // assuming tokenizer.Err() == io.EOF
		}
		switch tt {
		case html.TextToken:
			text.Write(tokenizer.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			if name, _ := tokenizer.TagName(); blockTags[string(name)] {
				text.WriteString(" ")
			}
		}
	}

	return util.Trunc(strings.Join(strings.Fields(text.String()), " "), maxRunes)
}
