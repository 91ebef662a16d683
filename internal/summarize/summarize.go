// Package summarize condenses extracted page text with an OpenAI-compatible
// chat model.
package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goreadable/internal/budget"
	"github.com/hyperifyio/goreadable/internal/cache"
	"github.com/hyperifyio/goreadable/internal/llm"
)

// ErrNotConfigured is returned when no client or model is set. Callers fall
// back to the unsummarized text.
var ErrNotConfigured = errors.New("summarizer not configured")

// ErrEmptySummary means the model answered without content.
var ErrEmptySummary = errors.New("empty summary")

const (
	DefaultMaxWords = 120
	retryDelay      = 100 * time.Millisecond
	// reservedOutput is kept free in the context window for the answer.
	reservedOutput = 512
)

type Summarizer struct {
	Client llm.Client
	Model  string
	Cache  *cache.LLMCache
	// MaxWords is the requested summary length. Zero uses DefaultMaxWords.
	MaxWords int
	// SystemPrompt overrides the default instructions.
	SystemPrompt string
}

// Summarize returns a short plain-text summary of text. Identical requests are
// answered from Cache when one is set.
func (s *Summarizer) Summarize(ctx context.Context, title, text string) (string, error) {
	if s == nil || s.Client == nil || strings.TrimSpace(s.Model) == "" {
		return "", ErrNotConfigured
	}
	system := s.systemMessage()
	text = budget.FitText(s.Model, system+title, text, reservedOutput)
	user := userMessage(title, text)
	key := cache.KeyFrom(s.Model, system+"\n\n"+user)
	if s.Cache != nil {
		if raw, ok, _ := s.Cache.Get(ctx, key); ok {
			var out struct {
				Summary string `json:"summary"`
			}
			if err := json.Unmarshal(raw, &out); err == nil && strings.TrimSpace(out.Summary) != "" {
				return out.Summary, nil
			}
		}
	}

	req := openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.1,
		N:           1,
	}
	resp, err := s.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Debug().Err(err).Str("model", s.Model).Msg("summary call failed, retrying once")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(retryDelay):
		}
		resp, err = s.Client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("summary call (after retry): %w", err)
		}
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptySummary
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptySummary
	}
	if s.Cache != nil {
		payload, _ := json.Marshal(map[string]string{"summary": out})
		if err := s.Cache.Save(ctx, key, payload); err != nil {
			log.Debug().Err(err).Msg("summary cache save failed")
		}
	}
	return out, nil
}

func (s *Summarizer) systemMessage() string {
	if strings.TrimSpace(s.SystemPrompt) != "" {
		return s.SystemPrompt
	}
	words := s.MaxWords
	if words <= 0 {
		words = DefaultMaxWords
	}
	return fmt.Sprintf("You summarize web pages. Answer in plain text, at most %d words. "+
		"Use only facts stated in the page. Do not add headings, links or commentary.", words)
}

func userMessage(title, text string) string {
	var b strings.Builder
	if t := strings.TrimSpace(title); t != "" {
		b.WriteString("Title: ")
		b.WriteString(t)
		b.WriteString("\n\n")
	}
	b.WriteString("Page text:\n")
	b.WriteString(strings.TrimSpace(text))
	return b.String()
}
