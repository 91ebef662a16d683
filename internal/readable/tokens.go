package readable

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

type eventKind int

const (
	startTag eventKind = iota
	endTag
	textChunk
)

// event is one item of the tag stream. Only id and class attributes are kept.
type event struct {
	kind  eventKind
	name  string
	id    string
	class string
	text  string
}

// skipTags hold content that is never visible as page text.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// voidTags never have an end tag, so they close as soon as they open.
var voidTags = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// tokenStream turns markup into start, end and text events. It relies on the
// html.Tokenizer for tolerance: stray '<', bare '&' and unclosed tags come out
// as text or best-effort tags, never as an error.
type tokenStream struct {
	z          *html.Tokenizer
	skipDepth  int
	pendingEnd string
}

func newTokenStream(r io.Reader) *tokenStream {
	return &tokenStream{z: html.NewTokenizer(r)}
}

// next returns the next event in document order. It returns false once the
// input is exhausted or unreadable.
func (s *tokenStream) next() (event, bool) {
	if s.pendingEnd != "" {
		name := s.pendingEnd
		s.pendingEnd = ""
		return event{kind: endTag, name: name}, true
	}
	for {
		tt := s.z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF and read errors both end the stream; what was seen stays usable.
			return event{}, false
		case html.TextToken:
			if s.skipDepth > 0 {
				continue
			}
			return event{kind: textChunk, text: string(s.z.Text())}, true
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := s.z.TagName()
			tag := string(name)
			if skipTags[tag] {
				if tt == html.StartTagToken {
					s.skipDepth++
				}
				continue
			}
			if s.skipDepth > 0 {
				continue
			}
			ev := event{kind: startTag, name: tag}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = s.z.TagAttr()
				switch string(key) {
				case "id":
					ev.id = strings.TrimSpace(string(val))
				case "class":
					ev.class = string(val)
				}
			}
			if tt == html.SelfClosingTagToken || voidTags[tag] {
				s.pendingEnd = tag
			}
			return ev, true
		case html.EndTagToken:
			name, _ := s.z.TagName()
			tag := string(name)
			if skipTags[tag] {
				if s.skipDepth > 0 {
					s.skipDepth--
				}
				continue
			}
			if s.skipDepth > 0 || voidTags[tag] {
				continue
			}
			return event{kind: endTag, name: tag}, true
		}
		// comments and doctypes carry no readable text
	}
}
