// Package engine implements the per-turn interview state machine: input
// validation, prompt composition, the model call, and the per-variant
// phase-transition rules.
package engine

import (
	"fmt"

	"interviewd/pkg/interview"
)

// validTransitions is the per-variant transition table. Phases only move
// forward; the single exception is the testimonial review edit loop,
// modeled as a self-transition.
var validTransitions = map[interview.Variant]map[interview.Phase][]interview.Phase{
	interview.VariantStakeholder: {
		interview.PhaseIntroduction: {interview.PhaseWarmUp},
		interview.PhaseWarmUp:       {interview.PhaseDeepDive},
		interview.PhaseDeepDive:     {interview.PhaseSynthesis},
		interview.PhaseSynthesis:    {interview.PhaseCompleted},
		interview.PhaseCompleted:    {},
	},
	interview.VariantArchetype: {
		interview.PhaseIntroduction: {interview.PhaseExploration},
		interview.PhaseExploration:  {interview.PhasePatterns},
		interview.PhasePatterns:     {interview.PhaseSynthesis},
		interview.PhaseSynthesis:    {interview.PhaseCompleted},
		interview.PhaseCompleted:    {},
	},
	interview.VariantEducation: {
		interview.PhaseIntroduction:    {interview.PhaseModuleQuestions},
		interview.PhaseModuleQuestions: {interview.PhaseReflection},
		interview.PhaseReflection:      {interview.PhaseCompleted},
		interview.PhaseCompleted:       {},
	},
	interview.VariantTestimonial: {
		interview.PhaseIntroduction:   {interview.PhaseChallenge},
		interview.PhaseChallenge:      {interview.PhaseExperience},
		interview.PhaseExperience:     {interview.PhaseResults},
		interview.PhaseResults:        {interview.PhaseRecommendation},
		interview.PhaseRecommendation: {interview.PhaseReview},
		interview.PhaseReview:         {interview.PhaseReview, interview.PhaseRating},
		interview.PhaseRating:         {interview.PhaseRating, interview.PhaseCompleted},
		interview.PhaseCompleted:      {},
	},
}

// phaseOrder gives each phase a rank within its variant so forward
// progress can be checked without walking the table.
var phaseOrder = map[interview.Variant][]interview.Phase{
	interview.VariantStakeholder: {
		interview.PhaseIntroduction, interview.PhaseWarmUp, interview.PhaseDeepDive,
		interview.PhaseSynthesis, interview.PhaseCompleted,
	},
	interview.VariantArchetype: {
		interview.PhaseIntroduction, interview.PhaseExploration, interview.PhasePatterns,
		interview.PhaseSynthesis, interview.PhaseCompleted,
	},
	interview.VariantEducation: {
		interview.PhaseIntroduction, interview.PhaseModuleQuestions, interview.PhaseReflection,
		interview.PhaseCompleted,
	},
	interview.VariantTestimonial: {
		interview.PhaseIntroduction, interview.PhaseChallenge, interview.PhaseExperience,
		interview.PhaseResults, interview.PhaseRecommendation, interview.PhaseReview,
		interview.PhaseRating, interview.PhaseCompleted,
	},
}

// IsValidPhase reports whether phase belongs to the variant's phase set.
func IsValidPhase(variant interview.Variant, phase interview.Phase) bool {
	for _, p := range phaseOrder[variant] {
		if p == phase {
			return true
		}
	}
	return false
}

// IsValidTransition reports whether from → to is allowed for the variant.
// Staying in the same phase is always allowed.
func IsValidTransition(variant interview.Variant, from, to interview.Phase) bool {
	if from == to {
		return true
	}
	for _, next := range validTransitions[variant][from] {
		if next == to {
			return true
		}
	}
	return false
}

// phaseRank returns the index of phase in its variant's ordering, or -1.
func phaseRank(variant interview.Variant, phase interview.Phase) int {
	for i, p := range phaseOrder[variant] {
		if p == phase {
			return i
		}
	}
	return -1
}

// Turn-count thresholds for the threshold-driven variants. A turn count
// at or below the threshold keeps the conversation in that phase.
type turnThreshold struct {
	maxTurn int
	phase   interview.Phase
}

var stakeholderThresholds = []turnThreshold{
	{1, interview.PhaseIntroduction},
	{4, interview.PhaseWarmUp},
	{10, interview.PhaseDeepDive},
	{14, interview.PhaseSynthesis},
}

var archetypeThresholds = []turnThreshold{
	{1, interview.PhaseIntroduction},
	{5, interview.PhaseExploration},
	{9, interview.PhasePatterns},
	{12, interview.PhaseSynthesis},
}

var educationThresholds = []turnThreshold{
	{1, interview.PhaseIntroduction},
	{7, interview.PhaseModuleQuestions},
	{9, interview.PhaseReflection},
}

// MaxTurns returns the turn budget for threshold-driven variants. The
// testimonial variant is intent-driven and has no hard cap.
func MaxTurns(variant interview.Variant) int {
	switch variant {
	case interview.VariantStakeholder:
		return 15
	case interview.VariantArchetype:
		return 13
	case interview.VariantEducation:
		return 10
	default:
		return 0
	}
}

// phaseForTurn resolves the phase for a turn count in a threshold-driven
// variant. Beyond the last threshold the interview is completed.
func phaseForTurn(variant interview.Variant, turn int) (interview.Phase, error) {
	var thresholds []turnThreshold
	switch variant {
	case interview.VariantStakeholder:
		thresholds = stakeholderThresholds
	case interview.VariantArchetype:
		thresholds = archetypeThresholds
	case interview.VariantEducation:
		thresholds = educationThresholds
	default:
		return "", fmt.Errorf("variant %q is not threshold-driven", variant)
	}

	for _, t := range thresholds {
		if turn <= t.maxTurn {
			return t.phase, nil
		}
	}
	return interview.PhaseCompleted, nil
}

// firstSubstantivePhase is where the greeting turn lands the conversation.
func firstSubstantivePhase(variant interview.Variant) interview.Phase {
	if variant == interview.VariantTestimonial {
		return interview.PhaseChallenge
	}
	return interview.PhaseIntroduction
}

// InitialState returns a fresh conversation state for a variant.
func InitialState(variant interview.Variant) interview.ConversationState {
	state := interview.ConversationState{
		Variant: variant,
		Phase:   interview.PhaseIntroduction,
	}
	if variant == interview.VariantTestimonial {
		state.Testimonial = &interview.TestimonialState{
			Answers: make(map[interview.Phase]string),
		}
	}
	return state
}
