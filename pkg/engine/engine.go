package engine

import (
	"context"
	"fmt"
	"strings"

	"interviewd/pkg/contextmgr"
	"interviewd/pkg/interview"
	"interviewd/pkg/llm"
	"interviewd/pkg/llm/middleware/metrics"
	"interviewd/pkg/logx"
	"interviewd/pkg/safeguarding"
	"interviewd/pkg/templates"
)

// Retriever is the knowledge lookup the engine queries each turn.
// A failed retrieval degrades to an empty result, never a failed turn.
type Retriever interface {
	Query(ctx context.Context, text string) ([]interview.KnowledgeChunk, error)
}

// Engine computes one interview turn: validate, compose, call the model,
// apply the variant's transition rules, and return the reply plus new
// state. It has no side effects; persistence belongs to the caller.
type Engine struct {
	client      llm.Client
	composer    *templates.Composer
	retriever   Retriever
	contextMgr  *contextmgr.Manager
	maxTokens   int
	temperature float32
	logger      *logx.Logger
}

// Options configures model call parameters for the engine.
type Options struct {
	MaxTokens   int
	Temperature float32
}

// New creates an engine. retriever may be nil when no corpus is configured.
func New(client llm.Client, composer *templates.Composer, retriever Retriever, cm *contextmgr.Manager, opts Options) *Engine {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	return &Engine{
		client:      client,
		composer:    composer,
		retriever:   retriever,
		contextMgr:  cm,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		logger:      logx.NewLogger("engine"),
	}
}

// Advance computes one turn. incoming may be nil only for the greeting
// turn of a fresh session. history must be in chronological order and
// state.Phase must be valid for the variant. The returned state is a new
// value; the input state is never mutated.
func (e *Engine) Advance(ctx context.Context, sc interview.SessionContext, history []interview.Message, state interview.ConversationState, incoming *interview.Message) (string, interview.ConversationState, error) {
	if !IsValidPhase(sc.Variant, state.Phase) {
		return "", state, interview.NewValidationError("phase", fmt.Sprintf("%q is not a phase of variant %q", state.Phase, sc.Variant))
	}

	if incoming == nil {
		if state.TurnCount > 0 || len(history) > 0 {
			return "", state, interview.NewValidationError("message", "message is required after the first turn")
		}
		return e.greet(sc, state)
	}
	if strings.TrimSpace(incoming.Content) == "" {
		return "", state, interview.NewValidationError("message", "message must not be empty")
	}
	if state.Complete {
		return "", state, interview.ErrSessionInactive
	}

	newState := state.Clone()
	newState.TurnCount++

	// Safeguarding runs concurrently with retrieval. It is deterministic
	// and must run every turn regardless of phase.
	flagCh := make(chan []interview.SafeguardingFlag, 1)
	go func() {
		flagCh <- safeguarding.Detect(incoming.Content)
	}()

	knowledge := e.retrieve(ctx, sc, incoming.Content)

	flags := <-flagCh
	if len(flags) > 0 {
		newState.Flags = append(newState.Flags, flags...)
		e.logger.Warn("safeguarding flags raised: session=%s count=%d", sc.SessionID, len(flags))
	}

	systemPrompt, err := e.composer.Compose(sc, newState, knowledge, MaxTurns(sc.Variant))
	if err != nil {
		return "", state, fmt.Errorf("failed to compose prompt: %w", err)
	}

	reply, err := e.callModel(ctx, sc, systemPrompt, history, incoming)
	if err != nil {
		// The turn failed before any state was handed back. The caller
		// persists nothing, so a retry sees the session untouched.
		return "", state, err
	}

	if err := e.applyTransition(sc, &newState, incoming.Content, reply); err != nil {
		return "", state, err
	}

	if newState.Complete && !state.Complete {
		reply = e.composer.Closing(sc)
	}

	return reply, newState, nil
}

// greet produces the opening turn and moves the session to the first
// substantive phase. No model call is involved.
func (e *Engine) greet(sc interview.SessionContext, state interview.ConversationState) (string, interview.ConversationState, error) {
	newState := state.Clone()
	next := firstSubstantivePhase(sc.Variant)
	if !IsValidTransition(sc.Variant, newState.Phase, next) {
		return "", state, fmt.Errorf("cannot move %q from %q to %q", sc.Variant, newState.Phase, next)
	}
	newState.Phase = next
	return Greeting(sc), newState, nil
}

// retrieve queries the knowledge corpus, degrading to no knowledge on
// any failure.
func (e *Engine) retrieve(ctx context.Context, sc interview.SessionContext, message string) []interview.KnowledgeChunk {
	if e.retriever == nil {
		return nil
	}
	query := knowledgeQuery(sc, message)
	chunks, err := e.retriever.Query(ctx, query)
	if err != nil {
		e.logger.Warn("knowledge retrieval degraded for session %s: %v", sc.SessionID, err)
		return nil
	}
	return chunks
}

// knowledgeQuery combines the participant's message with session context
// so retrieval can favor variant- and module-relevant passages.
func knowledgeQuery(sc interview.SessionContext, message string) string {
	var parts []string
	if sc.Module != "" {
		parts = append(parts, sc.Module)
	}
	if sc.ParticipantRole != "" {
		parts = append(parts, sc.ParticipantRole)
	}
	parts = append(parts, message)
	return strings.Join(parts, " ")
}

// callModel runs the composed prompt plus the conversation history
// through the client, trimming history to the context budget first.
func (e *Engine) callModel(ctx context.Context, sc interview.SessionContext, systemPrompt string, history []interview.Message, incoming *interview.Message) (string, error) {
	messages := make([]llm.CompletionMessage, 0, len(history)+2)
	messages = append(messages, llm.NewSystemMessage(systemPrompt))
	for _, m := range history {
		switch m.Role {
		case interview.RoleParticipant:
			messages = append(messages, llm.NewUserMessage(m.Content))
		case interview.RoleAgent:
			messages = append(messages, llm.NewAssistantMessage(m.Content))
		}
	}
	messages = append(messages, llm.NewUserMessage(incoming.Content))

	if e.contextMgr != nil {
		messages = e.contextMgr.Fit(messages)
	}

	req := llm.CompletionRequest{
		Messages:    messages,
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	}

	ctx = metrics.WithLabels(ctx, metrics.Labels{
		SessionID: sc.SessionID,
		Variant:   string(sc.Variant),
	})

	resp, err := e.client.Complete(ctx, req)
	if err != nil {
		return "", interview.NewModelCallError(err, isTransient(err))
	}
	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		return "", interview.NewModelCallError(fmt.Errorf("model returned empty reply"), true)
	}
	return reply, nil
}

// applyTransition applies the variant's transition rules to the new
// state, marking completion when terminal.
func (e *Engine) applyTransition(sc interview.SessionContext, state *interview.ConversationState, incoming, reply string) error {
	var next interview.Phase
	switch sc.Variant {
	case interview.VariantTestimonial:
		next = e.testimonialTransition(state, incoming, reply)
	default:
		p, err := phaseForTurn(sc.Variant, state.TurnCount)
		if err != nil {
			return err
		}
		next = p
	}

	if next != state.Phase {
		if phaseRank(sc.Variant, next) < phaseRank(sc.Variant, state.Phase) {
			// Thresholds and intents only ever move forward. A lower
			// rank means the stored state is ahead of the turn counter,
			// which we honor rather than regress.
			next = state.Phase
		} else {
			// Skipping intermediate phases is allowed when turn counts
			// jump; any forward move is accepted.
			state.CoveredTopics = appendCovered(state.CoveredTopics, string(state.Phase))
			state.Phase = next
		}
	}

	if state.Phase == interview.PhaseCompleted && !state.Complete {
		markComplete(state)
	}
	return nil
}

// testimonialTransition applies the intent-driven testimonial rules.
// Intent signals always beat positional defaults.
func (e *Engine) testimonialTransition(state *interview.ConversationState, incoming, reply string) interview.Phase {
	ts := state.Testimonial
	if ts == nil {
		ts = &interview.TestimonialState{Answers: make(map[interview.Phase]string)}
		state.Testimonial = ts
	}
	if ts.Answers == nil {
		ts.Answers = make(map[interview.Phase]string)
	}

	switch state.Phase {
	case interview.PhaseChallenge, interview.PhaseExperience, interview.PhaseResults:
		ts.Answers[state.Phase] = incoming
		return nextInfoPhase(state.Phase)
	case interview.PhaseRecommendation:
		ts.Answers[state.Phase] = incoming
		// The reply to the recommendation answer presents the draft.
		ts.Draft = reply
		return interview.PhaseReview
	case interview.PhaseReview:
		switch ClassifyReviewIntent(incoming) {
		case IntentApprove:
			return interview.PhaseRating
		case IntentEdit:
			// The revised draft is the model's reply this turn.
			ts.Draft = reply
			return interview.PhaseReview
		default:
			return interview.PhaseReview
		}
	case interview.PhaseRating:
		if rating := ParseRating(incoming); rating > 0 {
			ts.Rating = rating
			return interview.PhaseCompleted
		}
		return interview.PhaseRating
	default:
		return state.Phase
	}
}

func nextInfoPhase(p interview.Phase) interview.Phase {
	switch p {
	case interview.PhaseChallenge:
		return interview.PhaseExperience
	case interview.PhaseExperience:
		return interview.PhaseResults
	case interview.PhaseResults:
		return interview.PhaseRecommendation
	default:
		return p
	}
}

func appendCovered(topics []string, topic string) []string {
	for _, t := range topics {
		if t == topic {
			return topics
		}
	}
	return append(topics, topic)
}
