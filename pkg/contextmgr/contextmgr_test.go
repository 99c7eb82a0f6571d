package contextmgr

import (
	"strings"
	"testing"

	"interviewd/pkg/llm"
)

func TestFitUnderBudgetUnchanged(t *testing.T) {
	m := NewManager(nil, 1000)
	msgs := []llm.CompletionMessage{
		llm.NewSystemMessage("instructions"),
		llm.NewUserMessage("hello"),
		llm.NewAssistantMessage("hi there"),
	}
	got := m.Fit(msgs)
	if len(got) != 3 {
		t.Fatalf("got %d messages", len(got))
	}
}

func TestFitDropsOldestTurnsFirst(t *testing.T) {
	// Character-estimation counter: 4 chars per token, +4 overhead each.
	// sys=4, each long turn=24, "recent question"=7; total 59 against a
	// budget of 50 forces the oldest turn out.
	m := NewManager(nil, 50)
	long := strings.Repeat("x", 80) // ~20 tokens + overhead

	msgs := []llm.CompletionMessage{
		llm.NewSystemMessage("sys"),
		llm.NewUserMessage(long),      // oldest turn
		llm.NewAssistantMessage(long), //
		llm.NewUserMessage("recent question"),
	}
	got := m.Fit(msgs)

	if got[0].Role != llm.RoleSystem {
		t.Fatal("system message must survive trimming")
	}
	last := got[len(got)-1]
	if last.Content != "recent question" {
		t.Errorf("newest message must survive, got %q", last.Content)
	}
	if len(got) >= len(msgs) {
		t.Errorf("expected trimming, kept %d of %d", len(got), len(msgs))
	}
}

func TestFitPreservesOrder(t *testing.T) {
	m := NewManager(nil, 1000)
	msgs := []llm.CompletionMessage{
		llm.NewSystemMessage("sys"),
		llm.NewUserMessage("a"),
		llm.NewAssistantMessage("b"),
		llm.NewUserMessage("c"),
	}
	got := m.Fit(msgs)
	want := []string{"sys", "a", "b", "c"}
	for i, m := range got {
		if m.Content != want[i] {
			t.Errorf("position %d: got %q, want %q", i, m.Content, want[i])
		}
	}
}

func TestFitAlwaysKeepsIncomingMessage(t *testing.T) {
	// System prompt alone exceeds the budget; the incoming participant
	// message must still be sent.
	m := NewManager(nil, 30)
	msgs := []llm.CompletionMessage{
		llm.NewSystemMessage(strings.Repeat("s", 400)),
		llm.NewUserMessage("old turn"),
		llm.NewAssistantMessage("old reply"),
		llm.NewUserMessage("incoming question"),
	}
	got := m.Fit(msgs)

	if len(got) != 2 {
		t.Fatalf("got %d messages, want system + incoming", len(got))
	}
	if got[0].Role != llm.RoleSystem {
		t.Fatal("system message must survive trimming")
	}
	if got[1].Content != "incoming question" {
		t.Errorf("incoming message must survive, got %q", got[1].Content)
	}
}

func TestFitZeroBudgetDisabled(t *testing.T) {
	m := NewManager(nil, 0)
	msgs := []llm.CompletionMessage{llm.NewUserMessage(strings.Repeat("x", 10000))}
	if got := m.Fit(msgs); len(got) != 1 {
		t.Errorf("zero budget should disable trimming, got %d messages", len(got))
	}
}
