// Package contextmgr manages conversation context windows and token budgets
// for model calls.
package contextmgr

import (
	"interviewd/pkg/llm"
	"interviewd/pkg/utils"
)

// Manager trims conversation history so a composed request stays within the
// model's context budget. System messages are never trimmed; participant and
// agent turns are dropped oldest-first.
type Manager struct {
	counter *utils.TokenCounter
	budget  int
}

// NewManager creates a context manager with the given token budget.
// A nil counter falls back to character-based estimation.
func NewManager(counter *utils.TokenCounter, budget int) *Manager {
	return &Manager{
		counter: counter,
		budget:  budget,
	}
}

// countMessage counts tokens for one message including a small per-message overhead.
func (m *Manager) countMessage(msg *llm.CompletionMessage) int {
	const perMessageOverhead = 4
	return m.counter.CountTokens(msg.Content) + perMessageOverhead
}

// Fit returns messages trimmed to the budget. The relative order of the
// surviving messages is preserved and system messages always survive.
func (m *Manager) Fit(messages []llm.CompletionMessage) []llm.CompletionMessage {
	if m.budget <= 0 {
		return messages
	}

	total := 0
	for i := range messages {
		total += m.countMessage(&messages[i])
	}
	if total <= m.budget {
		return messages
	}

	// Reserve the system messages, then admit conversation turns newest-first.
	reserved := 0
	for i := range messages {
		if messages[i].Role == llm.RoleSystem {
			reserved += m.countMessage(&messages[i])
		}
	}

	remaining := m.budget - reserved
	keep := make([]bool, len(messages))
	admittedNewest := false
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleSystem {
			keep[i] = true
			continue
		}
		cost := m.countMessage(&messages[i])
		// The incoming turn is always sent, even when the system prompt
		// alone exhausts the budget.
		if !admittedNewest {
			keep[i] = true
			remaining -= cost
			admittedNewest = true
			continue
		}
		if cost <= remaining {
			keep[i] = true
			remaining -= cost
		}
	}

	out := make([]llm.CompletionMessage, 0, len(messages))
	for i := range messages {
		if keep[i] {
			out = append(out, messages[i])
		}
	}
	return out
}
