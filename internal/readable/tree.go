package readable

import (
	"io"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxNodes caps how many nodes one document may create.
	DefaultMaxNodes = 120_000
	// DefaultMaxDepth caps the open-node stack.
	DefaultMaxDepth = 4096
)

// blockTags are the structural and text-bearing tags considered for scoring.
var blockTags = map[string]bool{
	"article":    true,
	"main":       true,
	"section":    true,
	"div":        true,
	"td":         true,
	"p":          true,
	"li":         true,
	"blockquote": true,
	"pre":        true,
}

// inlineTags do not break words when their text is joined with the
// surrounding text.
var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "cite": true,
	"code": true, "data": true, "del": true, "dfn": true, "em": true, "font": true,
	"i": true, "ins": true, "kbd": true, "label": true, "mark": true, "q": true,
	"s": true, "samp": true, "small": true, "span": true, "strong": true,
	"sub": true, "sup": true, "time": true, "u": true, "var": true,
}

type fragment struct {
	text string
	// at is the number of children the node had when the text arrived.
	at int
}

// Stats are the subtree figures computed once when a node closes.
type Stats struct {
	Words       int
	Punctuation int
	Chars       int
}

// Node is one element of the parsed tree. The root has an empty Tag.
type Node struct {
	Tag     string
	ID      string
	Classes map[string]struct{}
	// LinkTextLen estimates how many characters of the subtree sit in links.
	LinkTextLen int
	Children    []*Node

	parent    *Node
	fragments []fragment
	stats     Stats
	closed    bool
}

// Parent returns the enclosing node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// HasClass reports whether the class token is set on the node.
func (n *Node) HasClass(class string) bool {
	_, ok := n.Classes[class]
	return ok
}

// Text returns the text collected while this node was the innermost open node.
func (n *Node) Text() string {
	if len(n.fragments) == 1 {
		return n.fragments[0].text
	}
	var b strings.Builder
	for _, f := range n.fragments {
		b.WriteString(f.text)
	}
	return b.String()
}

// Stats returns the aggregated subtree figures.
func (n *Node) Stats() Stats { return n.stats }

// hints renders "id class..." in lowercase for vocabulary checks.
func (n *Node) hints() string {
	parts := make([]string, 0, len(n.Classes)+1)
	parts = append(parts, n.ID)
	classes := make([]string, 0, len(n.Classes))
	for c := range n.Classes {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	parts = append(parts, classes...)
	return strings.ToLower(strings.Join(parts, " "))
}

func (n *Node) appendText(s string) {
	n.fragments = append(n.fragments, fragment{text: s, at: len(n.Children)})
}

// close folds child figures into the node and freezes it. An anchor's whole
// subtree text is link text, at least one unit so empty anchors still count.
func (n *Node) close() {
	if n.closed {
		return
	}
	n.closed = true
	st := textStats(n.Text())
	st.Words = len(strings.Fields(n.wordText()))
	links := 0
	for _, c := range n.Children {
		c.close()
		st.Words += c.stats.Words
		st.Punctuation += c.stats.Punctuation
		st.Chars += c.stats.Chars
		links += c.LinkTextLen
	}
	if n.Tag == "a" {
		links = max(links+1, st.Chars)
	}
	n.stats = st
	n.LinkTextLen = links
}

// wordText is the own text with a space wherever a child element interrupted
// it, so "foo<span>x</span>baz" counts foo and baz apart.
func (n *Node) wordText() string {
	if len(n.fragments) < 2 {
		return n.Text()
	}
	var b strings.Builder
	for i, f := range n.fragments {
		if i > 0 && f.at != n.fragments[i-1].at {
			b.WriteByte(' ')
		}
		b.WriteString(f.text)
	}
	return b.String()
}

func textStats(s string) Stats {
	return Stats{
		Words:       len(strings.Fields(s)),
		Punctuation: strings.Count(s, ".") + strings.Count(s, ",") + strings.Count(s, "!") + strings.Count(s, "?"),
		Chars:       utf8.RuneCountInString(s),
	}
}

func classSet(attr string) map[string]struct{} {
	fields := strings.Fields(attr)
	if len(fields) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Tree is the result of one parse. Blocks and Matches are in document order.
type Tree struct {
	Root *Node
	// Blocks lists every node whose tag is in the block set.
	Blocks []*Node
	// Matches lists block nodes that satisfied the selector, if one was given.
	Matches []*Node
	// Truncated is set when a node or depth ceiling dropped structure.
	Truncated bool
}

type treeBuilder struct {
	tree     *Tree
	stack    []*Node
	sel      Selector
	nodes    int
	maxNodes int
	maxDepth int
	// ignored counts start tags that opened no node, by name, so their end
	// tags do not pop an enclosing node of the same name.
	ignored map[string]int
}

// Parse builds the node tree for markup, recording selector matches in the
// same pass. A nil or empty selector records nothing.
func Parse(r io.Reader, sel Selector, opts Options) *Tree {
	root := &Node{}
	b := &treeBuilder{
		tree:     &Tree{Root: root},
		stack:    []*Node{root},
		sel:      sel,
		maxNodes: opts.maxNodes(),
		maxDepth: opts.maxDepth(),
	}
	s := newTokenStream(r)
	for {
		ev, ok := s.next()
		if !ok {
			break
		}
		switch ev.kind {
		case startTag:
			b.start(ev)
		case endTag:
			b.end(ev.name)
		case textChunk:
			b.text(ev.text)
		}
	}
	// unclosed nodes still count; closing the root folds in everything below it
	root.close()
	return b.tree
}

func (b *treeBuilder) top() *Node { return b.stack[len(b.stack)-1] }

func (b *treeBuilder) start(ev event) {
	if b.nodes >= b.maxNodes {
		b.tree.Truncated = true
		b.ignore(ev.name)
		return
	}
	parent := b.top()
	n := &Node{Tag: ev.name, ID: ev.id, Classes: classSet(ev.class), parent: parent}
	parent.Children = append(parent.Children, n)
	b.nodes++
	if blockTags[n.Tag] {
		b.tree.Blocks = append(b.tree.Blocks, n)
		if len(b.sel) > 0 && b.sel.Matches(n) {
			b.tree.Matches = append(b.tree.Matches, n)
		}
	}
	if len(b.stack) > b.maxDepth {
		// attached but never opened
		b.tree.Truncated = true
		b.ignore(n.Tag)
		n.close()
		return
	}
	b.stack = append(b.stack, n)
}

// end pops only when the name matches the innermost open node. Mismatched end
// tags are ignored, which keeps lax real-world markup nested as written.
func (b *treeBuilder) end(name string) {
	if b.ignored[name] > 0 {
		b.ignored[name]--
		return
	}
	if len(b.stack) < 2 || b.top().Tag != name {
		return
	}
	n := b.top()
	b.stack = b.stack[:len(b.stack)-1]
	n.close()
}

func (b *treeBuilder) ignore(name string) {
	if b.ignored == nil {
		b.ignored = make(map[string]int)
	}
	b.ignored[name]++
}

func (b *treeBuilder) text(s string) {
	if strings.TrimSpace(s) == "" {
		b.top().appendText(" ")
		return
	}
	b.top().appendText(s)
}
