// Package interview defines the shared types of the conversational interview engine:
// variants, phases, conversation state, messages, safeguarding flags, and the
// typed errors that cross the engine boundary.
package interview

import (
	"fmt"
	"time"
)

// Variant identifies one of the supported interview domains.
type Variant string

const (
	// VariantStakeholder is the stakeholder assessment interview.
	VariantStakeholder Variant = "stakeholder-assessment"
	// VariantArchetype is the coaching archetype discovery interview.
	VariantArchetype Variant = "coaching-archetype"
	// VariantEducation is the education wellbeing module interview.
	VariantEducation Variant = "education-module"
	// VariantTestimonial is the customer testimonial interview.
	VariantTestimonial Variant = "testimonial"
)

// ValidVariants returns all supported interview variants.
func ValidVariants() []Variant {
	return []Variant{VariantStakeholder, VariantArchetype, VariantEducation, VariantTestimonial}
}

// ParseVariant validates and converts a string to a Variant.
func ParseVariant(s string) (Variant, error) {
	for _, v := range ValidVariants() {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown interview variant: %q", s)
}

// Phase is a named stage in a variant's conversation protocol.
// Each variant defines its own phase set; PhaseCompleted is shared.
type Phase string

// Phases shared across variants.
const (
	PhaseIntroduction Phase = "introduction"
	PhaseCompleted    Phase = "completed"
)

// Stakeholder assessment phases.
const (
	PhaseWarmUp    Phase = "warm_up"
	PhaseDeepDive  Phase = "deep_dive"
	PhaseSynthesis Phase = "synthesis"
)

// Coaching archetype phases.
const (
	PhaseExploration Phase = "exploration"
	PhasePatterns    Phase = "patterns"
)

// Education module phases.
const (
	PhaseModuleQuestions Phase = "module_questions"
	PhaseReflection      Phase = "reflection"
)

// Testimonial phases.
const (
	PhaseChallenge      Phase = "challenge"
	PhaseExperience     Phase = "experience"
	PhaseResults        Phase = "results"
	PhaseRecommendation Phase = "recommendation"
	PhaseReview         Phase = "review"
	PhaseRating         Phase = "rating"
)

// MessageRole identifies the author of a message.
type MessageRole string

const (
	// RoleParticipant is the interviewee.
	RoleParticipant MessageRole = "participant"
	// RoleAgent is the AI interviewer.
	RoleAgent MessageRole = "agent"
)

// Message is one turn of the conversation. Append-only, never mutated.
type Message struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// SessionContext carries the participant and session metadata the engine
// needs for one turn. It is read-only from the engine's perspective.
type SessionContext struct {
	SessionID       string            `json:"session_id"`
	Variant         Variant           `json:"variant"`
	ParticipantName string            `json:"participant_name"`
	ParticipantRole string            `json:"participant_role,omitempty"` // role/type, variant-specific
	Module          string            `json:"module,omitempty"`           // education variant module selector
	Extra           map[string]string `json:"extra,omitempty"`            // free-form variant-specific context
}

// TestimonialState holds the testimonial variant's extra control fields.
// Answers are keyed by the informational phase that captured them.
type TestimonialState struct {
	Answers map[Phase]string `json:"answers,omitempty"`
	Draft   string           `json:"draft,omitempty"`
	Rating  int              `json:"rating,omitempty"` // 1-10, 0 = not yet given
}

// ConversationState is the engine's control block for one session.
// The variant tags which phase set and optional sub-state apply.
type ConversationState struct {
	Variant       Variant            `json:"variant"`
	Phase         Phase              `json:"phase"`
	TurnCount     int                `json:"turn_count"`
	CoveredTopics []string           `json:"covered_topics,omitempty"`
	Complete      bool               `json:"complete"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
	Flags         []SafeguardingFlag `json:"safeguarding_flags,omitempty"`
	Testimonial   *TestimonialState  `json:"testimonial,omitempty"`
}

// Clone returns a deep copy so Advance can build new state without
// mutating the caller's copy.
func (s *ConversationState) Clone() ConversationState {
	out := *s
	out.CoveredTopics = append([]string(nil), s.CoveredTopics...)
	out.Flags = append([]SafeguardingFlag(nil), s.Flags...)
	if s.Testimonial != nil {
		t := *s.Testimonial
		t.Answers = make(map[Phase]string, len(s.Testimonial.Answers))
		for k, v := range s.Testimonial.Answers {
			t.Answers[k] = v
		}
		out.Testimonial = &t
	}
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

// SafeguardingFlag is a detected indicator of participant distress or risk.
type SafeguardingFlag struct {
	Type       string    `json:"type"`
	Excerpt    string    `json:"excerpt"`
	Confidence float64   `json:"confidence"` // 0..1
	DetectedAt time.Time `json:"detected_at"`
}

// KnowledgeChunk is a passage of reference text returned from a corpus query.
type KnowledgeChunk struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
	Similarity float64   `json:"similarity"`
}

// TurnResult is what one handled turn returns to the transport layer.
type TurnResult struct {
	Reply                string            `json:"response"`
	State                ConversationState `json:"conversationState"`
	IsComplete           bool              `json:"isComplete"`
	SafeguardingDetected bool              `json:"safeguardingDetected"`
}
