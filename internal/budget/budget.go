// Package budget estimates token use so page text sent to a model fits its
// context window.
package budget

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// charsPerToken is a conservative English average.
const charsPerToken = 4

// defaultContext is assumed for models that are not recognized.
const defaultContext = 8192

// EstimateTokens returns the estimated token count of s, at least 1 for
// non-empty input.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return int(math.Ceil(float64(len(s)) / charsPerToken))
}

// ModelContextTokens returns an approximate context window for modelName.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	for _, s := range sizeSuffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.tokens
		}
	}
	if strings.Contains(name, "-mini") {
		return 128_000
	}
	return defaultContext
}

// Headroom covers tokenizer error and message framing: 5% of the context,
// at least 256 tokens.
func Headroom(modelName string) int {
	return max(int(math.Ceil(float64(ModelContextTokens(modelName))*0.05)), 256)
}

// InputTokens is what remains for page text after the fixed prompt, the
// reserved output and headroom. Never negative.
func InputTokens(modelName, fixedPrompt string, reservedOutput int) int {
	n := ModelContextTokens(modelName) - Headroom(modelName) - max(reservedOutput, 0) - EstimateTokens(fixedPrompt)
	return max(n, 0)
}

// FitText shortens text so it fits the remaining input budget. Text that
// already fits is returned unchanged.
func FitText(modelName, fixedPrompt, text string, reservedOutput int) string {
	limit := InputTokens(modelName, fixedPrompt, reservedOutput) * charsPerToken
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return strings.TrimRightFunc(text[:cut], unicode.IsSpace) + " …"
}

var knownModelMax = map[string]int{
	"gpt-4o":        128_000,
	"gpt-4o-mini":   128_000,
	"gpt-4-turbo":   128_000,
	"gpt-3.5-turbo": 16_384,
	"llama-3":       8_192,
	"llama3":        8_192,
	"llama-3.1":     128_000,
	"llama3.1":      128_000,
	"gpt-oss-20b":   4_096,
	"tinyllama":     2_048,
}

var sizeSuffixes = []struct {
	suffix string
	tokens int
}{
	{"1m", 1_000_000},
	{"200k", 200_000},
	{"128k", 128_000},
	{"32k", 32_768},
	{"16k", 16_384},
}
