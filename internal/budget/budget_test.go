package budget

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, c := range cases {
		if got := EstimateTokens(c.in); got != c.want {
			t.Fatalf("EstimateTokens(%d chars) = %d, want %d", len(c.in), got, c.want)
		}
	}
}

func TestModelContextTokens(t *testing.T) {
	if ModelContextTokens("") != defaultContext {
		t.Fatal("empty model should use the default context")
	}
	if ModelContextTokens("GPT-4o") != 128_000 {
		t.Fatal("lookup should ignore case")
	}
	if ModelContextTokens("mistral-32k") != 32_768 {
		t.Fatal("size suffix should be honored")
	}
	if ModelContextTokens("phi-3-mini") != 128_000 {
		t.Fatal("mini models assume large contexts")
	}
}

func TestInputTokens(t *testing.T) {
	// 2048 - 256 headroom - 500 output - 1 prompt token
	if got := InputTokens("tinyllama", "abc", 500); got != 1291 {
		t.Fatalf("InputTokens = %d, want 1291", got)
	}
	if got := InputTokens("tinyllama", "", 10_000); got != 0 {
		t.Fatalf("expected no budget left, got %d", got)
	}
}

func TestFitText(t *testing.T) {
	short := "fits easily"
	if got := FitText("gpt-4o", "", short, 100); got != short {
		t.Fatalf("short text changed: %q", got)
	}
	long := strings.Repeat("héllo wörld ", 2000)
	got := FitText("tinyllama", "", long, 0)
	if !strings.HasSuffix(got, " …") || !utf8.ValidString(got) {
		t.Fatalf("expected valid truncated text")
	}
	if EstimateTokens(got) > InputTokens("tinyllama", "", 0)+2 {
		t.Fatalf("text still exceeds budget: %d tokens", EstimateTokens(got))
	}
}
