package readable

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseSelector_ClassifiesTokens(t *testing.T) {
	got, err := ParseSelector("  #main   .Post  ARTICLE ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Selector{
		{Kind: KindID, Value: "main"},
		{Kind: KindClass, Value: "Post"},
		{Kind: KindTag, Value: "article"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected chain: %#v", got)
	}
	if got.String() != "#main .Post article" {
		t.Fatalf("unexpected string form %q", got.String())
	}
}

func TestParseSelector_EmptyIsInvalid(t *testing.T) {
	for _, in := range []string{"", "   ", "# .", "\t\n"} {
		if _, err := ParseSelector(in); !errors.Is(err, ErrEmptySelector) {
			t.Fatalf("ParseSelector(%q): expected ErrEmptySelector, got %v", in, err)
		}
	}
}

func TestSelector_MatchesRightToLeft(t *testing.T) {
	tree := parse(t, `<div id="main"><div><div><section class="body" id="target"><p id="leaf">x</p></section></div></div></div><div class="body" id="stray"></div>`, "", Options{})
	target := findByID(tree, "target")
	leaf := findByID(tree, "leaf")
	stray := findByID(tree, "stray")

	cases := []struct {
		sel  string
		node *Node
		want bool
	}{
		{"#main .body", target, true},
		{"#main .body", stray, false},
		{"div section", target, true},
		{"section div", target, false},
		{".body #main", target, false},
		{"#main div div .body", target, true},
		{"#main div div div .body", target, false},
		{"#main .body p", leaf, true},
		// an ancestor may satisfy the last token
		{"#main .body", leaf, true},
		{"article", target, false},
	}
	for _, c := range cases {
		sel, err := ParseSelector(c.sel)
		if err != nil {
			t.Fatalf("parse %q: %v", c.sel, err)
		}
		if got := sel.Matches(c.node); got != c.want {
			t.Fatalf("%q matches %s: got %t want %t", c.sel, c.node.ID, got, c.want)
		}
	}
	if (Selector{}).Matches(target) {
		t.Fatalf("empty chain must not match")
	}
}
