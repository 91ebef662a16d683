package readable

import (
	"strings"
	"testing"
)

func parse(t *testing.T, markup string, selector string, opts Options) *Tree {
	t.Helper()
	var sel Selector
	if selector != "" {
		var err error
		sel, err = ParseSelector(selector)
		if err != nil {
			t.Fatalf("parse selector %q: %v", selector, err)
		}
	}
	return Parse(strings.NewReader(markup), sel, opts)
}

func findByID(tree *Tree, id string) *Node {
	stack := []*Node{tree.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.ID == id {
			return n
		}
		stack = append(stack, n.Children...)
	}
	return nil
}

func TestParse_RecordsIDClassesAndParents(t *testing.T) {
	tree := parse(t, `<div id="outer" class="a  b"><p id="inner">text</p></div>`, "", Options{})
	outer := findByID(tree, "outer")
	inner := findByID(tree, "inner")
	if outer == nil || inner == nil {
		t.Fatalf("expected both nodes")
	}
	if !outer.HasClass("a") || !outer.HasClass("b") || len(outer.Classes) != 2 {
		t.Fatalf("unexpected classes %v", outer.Classes)
	}
	if inner.Parent() != outer || outer.Parent() != tree.Root || tree.Root.Parent() != nil {
		t.Fatalf("unexpected parent links")
	}
	if tree.Root.Tag != "" {
		t.Fatalf("expected synthetic root with empty tag, got %q", tree.Root.Tag)
	}
	if len(tree.Blocks) != 2 || tree.Blocks[0] != outer || tree.Blocks[1] != inner {
		t.Fatalf("expected blocks in document order")
	}
}

func TestParse_WhitespaceChunksBecomeSingleSpace(t *testing.T) {
	tree := parse(t, "<div id=\"d\">one<b>two</b>\n\t  <i>three</i></div>", "", Options{})
	d := findByID(tree, "d")
	if got := d.Text(); got != "one " {
		t.Fatalf("expected own text 'one ', got %q", got)
	}
	if got := normalizeSpace(subtreeText(d, nil)); got != "onetwo three" {
		t.Fatalf("unexpected subtree text %q", got)
	}
}

func TestParse_LinkTextPropagatesUpward(t *testing.T) {
	tree := parse(t, `<div id="d"><p id="p"><a href="#">abcd</a>efgh</p><a href="#"></a></div>`, "", Options{})
	p := findByID(tree, "p")
	d := findByID(tree, "d")
	if p.LinkTextLen != 4 {
		t.Fatalf("expected paragraph link length 4, got %d", p.LinkTextLen)
	}
	// words are counted per text run, so "abcd" and "efgh" count apart
	if p.Stats().Chars != 8 || p.Stats().Words != 2 {
		t.Fatalf("unexpected paragraph stats %+v", p.Stats())
	}
	// the empty anchor still counts one unit
	if d.LinkTextLen != 5 {
		t.Fatalf("expected div link length 5, got %d", d.LinkTextLen)
	}
}

func TestParse_ZeroWidthSpaceIsNotLinkText(t *testing.T) {
	tree := parse(t, `<div><p id="x">Plain prose&#8203; with no anchors at all, just words.</p></div>`, "", Options{})
	p := findByID(tree, "x")
	if p.LinkTextLen != 0 {
		t.Fatalf("expected no link text, got %d of %d chars", p.LinkTextLen, p.Stats().Chars)
	}
	if !strings.Contains(p.Text(), "\u200b") {
		t.Fatalf("zero-width space should stay in the text, got %q", p.Text())
	}
}

func TestParse_WordsSplitAroundChildElements(t *testing.T) {
	tree := parse(t, `<div id="d">foo<span>x</span>baz</div>`, "", Options{})
	d := findByID(tree, "d")
	if got := d.Stats().Words; got != 3 {
		t.Fatalf("expected foo, x and baz as 3 words, got %d", got)
	}
	if got := d.Stats().Chars; got != 7 {
		t.Fatalf("expected 7 chars, got %d", got)
	}
}

func TestParse_MismatchedEndTagLeavesStack(t *testing.T) {
	tree := parse(t, `<div><span>text</div><p>after</p>`, "", Options{})
	div := tree.Root.Children[0]
	if div.Tag != "div" || len(div.Children) != 1 {
		t.Fatalf("unexpected root child %q", div.Tag)
	}
	span := div.Children[0]
	if span.Tag != "span" || len(span.Children) != 1 || span.Children[0].Tag != "p" {
		t.Fatalf("expected <p> nested under the unclosed <span>")
	}
	if div.Stats().Words != 2 {
		t.Fatalf("expected unclosed nodes to be aggregated, got %+v", div.Stats())
	}
}

func TestParse_VoidAndSelfClosingTagsDoNotNest(t *testing.T) {
	tree := parse(t, `<div id="d">a<br>b<img src="x"><hr/>c<p>para</p></div>`, "", Options{})
	d := findByID(tree, "d")
	if len(d.Children) != 4 {
		t.Fatalf("expected 4 children, got %d", len(d.Children))
	}
	for _, c := range d.Children[:3] {
		if len(c.Children) != 0 {
			t.Fatalf("void element %q should not have children", c.Tag)
		}
	}
	if d.Children[3].Tag != "p" {
		t.Fatalf("expected <p> to stay a direct child")
	}
}

func TestParse_NodeCeilingBoundsTree(t *testing.T) {
	markup := strings.Repeat(`<div><p>word.</p></div>`, 100)
	tree := parse(t, markup, "", Options{MaxNodes: 10})
	if !tree.Truncated {
		t.Fatalf("expected truncated tree")
	}
	if len(tree.Blocks) > 10 {
		t.Fatalf("expected at most 10 blocks, got %d", len(tree.Blocks))
	}
	if tree.Readable() == "" {
		t.Fatalf("expected best-effort text from a truncated tree")
	}
}

func TestParse_NodeCeilingSwallowsEndTagsOfDroppedNodes(t *testing.T) {
	tree := parse(t, `<div id="outer"><div id="inner">a</div><div>b</div>after</div>`, "", Options{MaxNodes: 2})
	outer := findByID(tree, "outer")
	if outer == nil || !tree.Truncated {
		t.Fatalf("expected a truncated tree with the outer div")
	}
	if got := normalizeSpace(outer.Text()); got != "b after" && got != "bafter" {
		t.Fatalf("expected text after the dropped div to stay in outer, got %q", got)
	}
	if strings.TrimSpace(tree.Root.Text()) != "" {
		t.Fatalf("nothing should leak to the root, got %q", tree.Root.Text())
	}
}

func TestParse_DepthCeilingBoundsStack(t *testing.T) {
	markup := strings.Repeat("<div>", 50) + "<p>Deep text.</p>" + strings.Repeat("<section>", 50)
	tree := parse(t, markup, "", Options{MaxDepth: 8})
	if !tree.Truncated {
		t.Fatalf("expected truncated tree")
	}
	depth := 0
	for n := tree.Root; len(n.Children) > 0; n = n.Children[0] {
		depth++
	}
	if depth > 9 {
		t.Fatalf("expected depth at most 9, got %d", depth)
	}
}

func TestParse_SelectorMatchesRecordedDuringBuild(t *testing.T) {
	markup := `<div id="main"><section><div><div class="body"><p>x</p></div></div></section></div><div class="body">outside</div>`
	tree := parse(t, markup, "#main .body", Options{})
	var matchedBody, matchedOutside bool
	for _, n := range tree.Matches {
		if n.HasClass("body") && n.Parent().Tag == "div" {
			matchedBody = true
		}
		if n.HasClass("body") && n.Parent() == tree.Root {
			matchedOutside = true
		}
	}
	if !matchedBody {
		t.Fatalf("expected nested .body under #main to match")
	}
	if matchedOutside {
		t.Fatalf("did not expect .body outside #main to match")
	}
}
