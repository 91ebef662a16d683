package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goreadable/internal/cache"
)

type capturingClient struct {
	lastReq openai.ChatCompletionRequest
	calls   int
	fail    int
	content string
}

func (c *capturingClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.calls++
	c.lastReq = req
	if c.calls <= c.fail {
		return openai.ChatCompletionResponse{}, errors.New("temporarily unavailable")
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: c.content},
		}},
	}, nil
}

func TestSummarize_NotConfigured(t *testing.T) {
	var s *Summarizer
	if _, err := s.Summarize(context.Background(), "", "text"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured for nil summarizer, got %v", err)
	}
	if _, err := (&Summarizer{Client: &capturingClient{}}).Summarize(context.Background(), "", "text"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured without model, got %v", err)
	}
}

func TestSummarize_BuildsPrompt(t *testing.T) {
	cc := &capturingClient{content: "  Kyoto is old.  "}
	s := &Summarizer{Client: cc, Model: "tiny", MaxWords: 40}
	out, err := s.Summarize(context.Background(), "Kyoto", "Kyoto was the capital for a thousand years.")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if out != "Kyoto is old." {
		t.Fatalf("unexpected summary %q", out)
	}
	if cc.lastReq.Model != "tiny" || len(cc.lastReq.Messages) != 2 {
		t.Fatalf("unexpected request %+v", cc.lastReq)
	}
	if !strings.Contains(cc.lastReq.Messages[0].Content, "at most 40 words") {
		t.Fatalf("system message lacks length: %q", cc.lastReq.Messages[0].Content)
	}
	user := cc.lastReq.Messages[1].Content
	if !strings.HasPrefix(user, "Title: Kyoto\n\n") || !strings.Contains(user, "thousand years") {
		t.Fatalf("unexpected user message %q", user)
	}
}

func TestSummarize_RetryOnceThenFail(t *testing.T) {
	cc := &capturingClient{fail: 1, content: "ok"}
	s := &Summarizer{Client: cc, Model: "m"}
	if out, err := s.Summarize(context.Background(), "", "x"); err != nil || out != "ok" {
		t.Fatalf("expected success after one retry, got %q %v", out, err)
	}
	cc = &capturingClient{fail: 2, content: "ok"}
	s.Client = cc
	if _, err := s.Summarize(context.Background(), "", "x"); err == nil {
		t.Fatalf("expected failure after retry")
	}
	if cc.calls != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", cc.calls)
	}
}

func TestSummarize_EmptyAnswer(t *testing.T) {
	s := &Summarizer{Client: &capturingClient{content: "   "}, Model: "m"}
	if _, err := s.Summarize(context.Background(), "", "x"); !errors.Is(err, ErrEmptySummary) {
		t.Fatalf("expected ErrEmptySummary, got %v", err)
	}
}

func TestSummarize_UsesCache(t *testing.T) {
	cc := &capturingClient{content: "cached summary"}
	s := &Summarizer{Client: cc, Model: "m", Cache: &cache.LLMCache{Dir: t.TempDir()}}
	for i := 0; i < 3; i++ {
		out, err := s.Summarize(context.Background(), "T", "same text")
		if err != nil || out != "cached summary" {
			t.Fatalf("call %d: %q %v", i, out, err)
		}
	}
	if cc.calls != 1 {
		t.Fatalf("expected one model call, got %d", cc.calls)
	}
	if _, err := s.Summarize(context.Background(), "T", "different text"); err != nil {
		t.Fatal(err)
	}
	if cc.calls != 2 {
		t.Fatalf("different prompt must miss the cache")
	}
}

func TestSummarize_FitsTextIntoContext(t *testing.T) {
	client := &capturingClient{content: "short"}
	s := &Summarizer{Client: client, Model: "tinyllama"}
	long := strings.Repeat("lorem ipsum dolor ", 2000)
	if _, err := s.Summarize(context.Background(), "T", long); err != nil {
		t.Fatalf("summarize: %v", err)
	}
	user := client.lastReq.Messages[1].Content
	if len(user) >= len(long) || !strings.Contains(user, " …") {
		t.Fatalf("expected the page text to be shortened, got %d bytes", len(user))
	}
}
