// Package readable extracts the main human-readable text from HTML without
// running scripts. A document is tokenized, built into a light node tree,
// every block is scored for "main content" likelihood and the winner is
// linearized into paragraphs.
//
// All functions are pure: trees are built per call and never shared, so
// concurrent calls need no coordination.
package readable

import (
	"bytes"
	"io"
	"strings"
	"unicode"
)

// Options tune one extraction. The zero value is usable.
type Options struct {
	// Selector is an optional descendant selector ("#main .post").
	// When it matches, the best matching block wins over the heuristic.
	Selector string
	// MaxChars caps the returned text in characters; 0 means no cap.
	MaxChars int
	// MaxNodes and MaxDepth bound tree construction. Zero uses the defaults.
	MaxNodes int
	MaxDepth int
}

func (o Options) maxNodes() int {
	if o.MaxNodes > 0 {
		return o.MaxNodes
	}
	return DefaultMaxNodes
}

func (o Options) maxDepth() int {
	if o.MaxDepth > 0 {
		return o.MaxDepth
	}
	return DefaultMaxDepth
}

// Extract returns the readable text of the markup read from r, or "" when
// nothing readable was found.
func Extract(r io.Reader, opts Options) string {
	tree := Parse(r, opts.selector(), opts)
	return Truncate(tree.Readable(), opts.MaxChars)
}

func (o Options) selector() Selector {
	if strings.TrimSpace(o.Selector) == "" {
		return nil
	}
	// an unusable selector just falls back to whole-tree scoring
	sel, _ := ParseSelector(o.Selector)
	return sel
}

// ExtractString is Extract over an in-memory document.
func ExtractString(markup string, opts Options) string {
	if markup == "" {
		return ""
	}
	return Extract(strings.NewReader(markup), opts)
}

// Readable picks the text of the best block in the tree. Selector matches are
// preferred; otherwise the best positively scored block is used.
func (t *Tree) Readable() string {
	text, _ := t.pick()
	return text
}

// pick also reports whether the text came from a selector match.
func (t *Tree) pick() (string, bool) {
	if best := bestOf(t.Matches, false); best != nil {
		if text := Collect(best); text != "" {
			return text, true
		}
	}
	best := bestOf(t.Blocks, true)
	if best == nil {
		return "", false
	}
	return Collect(best), false
}

// bestOf returns the highest scored node, the earliest one on ties. With
// positiveOnly, nodes scoring zero or less are not candidates at all.
func bestOf(nodes []*Node, positiveOnly bool) *Node {
	var best *Node
	bestScore := 0.0
	for _, n := range nodes {
		s := Score(n)
		if positiveOnly && s <= 0 {
			continue
		}
		if best == nil || s > bestScore {
			best, bestScore = n, s
		}
	}
	return best
}

// Truncate caps text at maxChars characters and marks the cut with " …".
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	n := 0
	for i := range text {
		if n == maxChars {
			return strings.TrimRightFunc(text[:i], unicode.IsSpace) + " …"
		}
		n++
	}
	return text
}

// Document is the title and readable text of one page.
type Document struct {
	Title string
	Text  string
	// Selected is set when Text came from a selector match rather than
	// the scoring heuristic.
	Selected bool
}

// FromHTML extracts both the title and the readable text.
func FromHTML(input []byte, opts Options) Document {
	if len(input) == 0 {
		return Document{}
	}
	tree := Parse(bytes.NewReader(input), opts.selector(), opts)
	text, selected := tree.pick()
	return Document{
		Title:    TitleFrom(bytes.NewReader(input)),
		Text:     Truncate(text, opts.MaxChars),
		Selected: selected,
	}
}

// Extractor converts raw HTML into a Document. Implementations must be
// deterministic and free of side effects.
type Extractor interface {
	Extract(input []byte) Document
}

// Heuristic is the scoring extractor with fixed options.
type Heuristic struct {
	Options Options
}

func (h Heuristic) Extract(input []byte) Document {
	return FromHTML(input, h.Options)
}
