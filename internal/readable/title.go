package readable

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Title returns the text of the first <title> element, whitespace collapsed,
// or "" when there is none. It scans tokens only and builds no tree.
func Title(markup string) string {
	return TitleFrom(strings.NewReader(markup))
}

// TitleFrom is Title over a reader.
func TitleFrom(r io.Reader) string {
	z := html.NewTokenizer(r)
	inTitle := false
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			if inTitle {
				return normalizeSpace(b.String())
			}
			return ""
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				b.Write(z.Text())
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); inTitle && string(name) == "title" {
				return normalizeSpace(b.String())
			}
		}
	}
}
