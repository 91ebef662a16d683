package readable

import (
	"regexp"
	"strings"
)

// maxVisited bounds every traversal of a tree.
const maxVisited = 120_000

// paragraphTags each produce one line of collected text.
var paragraphTags = map[string]bool{
	"p":          true,
	"li":         true,
	"blockquote": true,
	"pre":        true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
}

var manyNewlines = regexp.MustCompile(`\n{3,}`)

// Collect linearizes the subtree at n into newline-separated paragraphs in
// document order. When the subtree has no paragraph-like element with text it
// returns the whitespace-normalized text of n instead.
func Collect(n *Node) string {
	if n == nil {
		return ""
	}
	var lines []string
	visited := 0
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visited++
		if visited > maxVisited {
			break
		}
		if paragraphTags[cur.Tag] {
			if line := normalizeSpace(subtreeText(cur, isParagraph)); line != "" {
				lines = append(lines, line)
			}
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" {
		text = normalizeSpace(subtreeText(n, nil))
	}
	return manyNewlines.ReplaceAllString(text, "\n\n")
}

func isParagraph(n *Node) bool { return paragraphTags[n.Tag] }

// subtreeText joins the text of n and its descendants in document order.
// Descendants for which skip reports true are left out; they are collected on
// their own. Non-inline elements are padded with spaces so words on either
// side of a block boundary stay apart.
func subtreeText(n *Node, skip func(*Node) bool) string {
	type frame struct {
		n     *Node
		child int
		frag  int
	}
	var b strings.Builder
	visited := 0
	stack := []frame{{n: n}}
	for len(stack) > 0 {
		top := len(stack) - 1
		f := stack[top]
		for f.frag < len(f.n.fragments) && f.n.fragments[f.frag].at <= f.child {
			b.WriteString(f.n.fragments[f.frag].text)
			f.frag++
		}
		if f.child >= len(f.n.Children) {
			if !inlineTags[f.n.Tag] {
				b.WriteByte(' ')
			}
			stack = stack[:top]
			continue
		}
		c := f.n.Children[f.child]
		f.child++
		stack[top] = f
		if skip != nil && skip(c) {
			b.WriteByte(' ')
			continue
		}
		visited++
		if visited > maxVisited {
			continue
		}
		if !inlineTags[c.Tag] {
			b.WriteByte(' ')
		}
		stack = append(stack, frame{n: c})
	}
	return b.String()
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
