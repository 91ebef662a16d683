package readable

import "strings"

var goodHints = []string{"content", "article", "post", "entry", "main", "body", "text", "read"}

var badHints = []string{"nav", "menu", "header", "footer", "sidebar", "promo", "ads", "social", "share", "related", "cookie"}

const (
	wordWeight        = 0.8
	punctuationWeight = 0.8
	linkPenalty       = 2.0
	hintWeight        = 2.0
)

// Score rates how likely n is the main content block. It reads only the
// figures aggregated when the tree was built and never walks children.
func Score(n *Node) float64 {
	if n == nil || n.stats.Words == 0 {
		return 0
	}
	st := n.stats
	density := 1.0
	if st.Chars > 0 {
		density = min(1.0, float64(n.LinkTextLen)/float64(st.Chars))
	}
	score := wordWeight*float64(st.Words) + punctuationWeight*float64(st.Punctuation) - linkPenalty*density
	return score + hintBonus(n) + tagBonus(n.Tag)
}

func hintBonus(n *Node) float64 {
	if n.ID == "" && len(n.Classes) == 0 {
		return 0
	}
	h := n.hints()
	bonus := 0.0
	if containsAny(h, goodHints) {
		bonus += hintWeight
	}
	if containsAny(h, badHints) {
		bonus -= hintWeight
	}
	return bonus
}

func tagBonus(tag string) float64 {
	switch tag {
	case "article", "main":
		return 1.5
	case "section", "div":
		return 0.5
	}
	return 0
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
