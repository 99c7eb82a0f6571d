package engine

import (
	"errors"
	"fmt"
	"time"

	"interviewd/pkg/interview"
	"interviewd/pkg/llm/llmerrors"
)

// Greeting produces the deterministic opening message for a session.
// No model call is made; the greeting must work even when the provider
// is down so a participant can always start.
func Greeting(sc interview.SessionContext) string {
	name := sc.ParticipantName
	switch sc.Variant {
	case interview.VariantStakeholder:
		return fmt.Sprintf(
			"Hi %s, thanks for making the time. I'm here to gather your perspective as part of a stakeholder assessment. "+
				"There are no right or wrong answers; I'm interested in how things actually look from where you sit. "+
				"To start, could you briefly describe your role and what a typical week looks like for you?", name)
	case interview.VariantArchetype:
		return fmt.Sprintf(
			"Welcome, %s. This conversation is about discovering your natural working style, the patterns in how you lead, decide, and relate to others. "+
				"We'll explore some real situations from your work life. "+
				"To begin: think of a recent moment at work when you felt completely in your element. What was happening?", name)
	case interview.VariantEducation:
		module := sc.Module
		if module == "" {
			module = "wellbeing"
		}
		return fmt.Sprintf(
			"Hi %s! Welcome to the %s session. This is a relaxed conversation, just between us, and you can say as much or as little as you like. "+
				"To start us off: how has your week been so far?", name, module)
	case interview.VariantTestimonial:
		return fmt.Sprintf(
			"Hi %s, thanks for agreeing to share your experience! I'll ask a few short questions and then put together a draft testimonial in your own words for you to approve. "+
				"First up: what challenge or situation were you facing before we started working together?", name)
	default:
		return fmt.Sprintf("Hi %s, welcome. Shall we begin?", name)
	}
}

// markComplete sets the terminal control fields. Idempotent: a state
// already complete keeps its original completion timestamp.
func markComplete(state *interview.ConversationState) {
	if state.Complete {
		return
	}
	state.Phase = interview.PhaseCompleted
	state.Complete = true
	now := time.Now().UTC()
	state.CompletedAt = &now
}

// isTransient reports whether a model call failure is worth retrying,
// as opposed to a configuration problem the operator must fix.
func isTransient(err error) bool {
	var llmErr *llmerrors.Error
	if errors.As(err, &llmErr) {
		switch llmErr.Type {
		case llmerrors.ErrorTypeAuth, llmerrors.ErrorTypeBadPrompt:
			return false
		default:
			return true
		}
	}
	return true
}
