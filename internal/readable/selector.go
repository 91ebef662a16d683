package readable

import (
	"errors"
	"strings"
)

// ErrEmptySelector is returned when a selector string holds no usable token.
var ErrEmptySelector = errors.New("readable: empty selector")

// SelectorKind tells what a simple selector compares against.
type SelectorKind int

const (
	KindTag SelectorKind = iota
	KindID
	KindClass
)

// SimpleSelector is one whitespace-separated token of a selector.
type SimpleSelector struct {
	Kind  SelectorKind
	Value string
}

func (s SimpleSelector) String() string {
	switch s.Kind {
	case KindID:
		return "#" + s.Value
	case KindClass:
		return "." + s.Value
	}
	return s.Value
}

func (s SimpleSelector) matches(n *Node) bool {
	switch s.Kind {
	case KindID:
		return n.ID == s.Value
	case KindClass:
		return n.HasClass(s.Value)
	}
	return n.Tag == s.Value
}

// Selector is a chain of descendant combinators such as "#main .post p".
// Only tag, .class and #id tokens are understood.
type Selector []SimpleSelector

// ParseSelector splits the selector on whitespace and classifies each token by
// its leading sigil. Tag tokens are lowercased. Bare "#" or "." tokens are
// dropped.
func ParseSelector(selector string) (Selector, error) {
	var chain Selector
	for _, tok := range strings.Fields(selector) {
		switch {
		case strings.HasPrefix(tok, "#"):
			if v := tok[1:]; v != "" {
				chain = append(chain, SimpleSelector{Kind: KindID, Value: v})
			}
		case strings.HasPrefix(tok, "."):
			if v := tok[1:]; v != "" {
				chain = append(chain, SimpleSelector{Kind: KindClass, Value: v})
			}
		default:
			chain = append(chain, SimpleSelector{Kind: KindTag, Value: strings.ToLower(tok)})
		}
	}
	if len(chain) == 0 {
		return nil, ErrEmptySelector
	}
	return chain, nil
}

// Matches walks from n towards the root, consuming the chain right to left.
// Each token may be satisfied by n itself or any ancestor above the node that
// satisfied the token after it, so intermediate nesting depth is irrelevant.
func (s Selector) Matches(n *Node) bool {
	if len(s) == 0 {
		return false
	}
	i := len(s) - 1
	for cur := n; cur != nil && i >= 0; cur = cur.parent {
		if s[i].matches(cur) {
			i--
		}
	}
	return i < 0
}

func (s Selector) String() string {
	parts := make([]string, len(s))
	for i, p := range s {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}
