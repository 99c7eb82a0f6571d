package engine

import (
	"testing"

	"interviewd/pkg/interview"
)

func TestPhaseForTurnStakeholder(t *testing.T) {
	tests := []struct {
		turn int
		want interview.Phase
	}{
		{1, interview.PhaseIntroduction},
		{2, interview.PhaseWarmUp},
		{4, interview.PhaseWarmUp},
		{5, interview.PhaseDeepDive},
		{10, interview.PhaseDeepDive},
		{11, interview.PhaseSynthesis},
		{14, interview.PhaseSynthesis},
		{15, interview.PhaseCompleted},
		{20, interview.PhaseCompleted},
	}
	for _, tt := range tests {
		got, err := phaseForTurn(interview.VariantStakeholder, tt.turn)
		if err != nil {
			t.Fatalf("phaseForTurn(%d): %v", tt.turn, err)
		}
		if got != tt.want {
			t.Errorf("turn %d: got %q, want %q", tt.turn, got, tt.want)
		}
	}
}

func TestPhaseForTurnEducation(t *testing.T) {
	tests := []struct {
		turn int
		want interview.Phase
	}{
		{1, interview.PhaseIntroduction},
		{7, interview.PhaseModuleQuestions},
		{8, interview.PhaseReflection},
		{9, interview.PhaseReflection},
		{10, interview.PhaseCompleted},
	}
	for _, tt := range tests {
		got, err := phaseForTurn(interview.VariantEducation, tt.turn)
		if err != nil {
			t.Fatalf("phaseForTurn(%d): %v", tt.turn, err)
		}
		if got != tt.want {
			t.Errorf("turn %d: got %q, want %q", tt.turn, got, tt.want)
		}
	}
}

func TestPhaseForTurnRejectsTestimonial(t *testing.T) {
	if _, err := phaseForTurn(interview.VariantTestimonial, 1); err == nil {
		t.Fatal("expected error for intent-driven variant")
	}
}

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		variant interview.Variant
		from    interview.Phase
		to      interview.Phase
		want    bool
	}{
		{interview.VariantStakeholder, interview.PhaseIntroduction, interview.PhaseWarmUp, true},
		{interview.VariantStakeholder, interview.PhaseWarmUp, interview.PhaseIntroduction, false},
		{interview.VariantStakeholder, interview.PhaseDeepDive, interview.PhaseDeepDive, true},
		{interview.VariantTestimonial, interview.PhaseReview, interview.PhaseReview, true},
		{interview.VariantTestimonial, interview.PhaseReview, interview.PhaseRating, true},
		{interview.VariantTestimonial, interview.PhaseRating, interview.PhaseReview, false},
		{interview.VariantTestimonial, interview.PhaseCompleted, interview.PhaseRating, false},
	}
	for _, tt := range tests {
		got := IsValidTransition(tt.variant, tt.from, tt.to)
		if got != tt.want {
			t.Errorf("%s: %q -> %q: got %v, want %v", tt.variant, tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsValidPhase(t *testing.T) {
	if !IsValidPhase(interview.VariantStakeholder, interview.PhaseDeepDive) {
		t.Error("deep_dive should be valid for stakeholder")
	}
	if IsValidPhase(interview.VariantStakeholder, interview.PhaseRating) {
		t.Error("rating should not be valid for stakeholder")
	}
	if !IsValidPhase(interview.VariantTestimonial, interview.PhaseRating) {
		t.Error("rating should be valid for testimonial")
	}
}

func TestInitialState(t *testing.T) {
	s := InitialState(interview.VariantStakeholder)
	if s.Phase != interview.PhaseIntroduction {
		t.Errorf("initial phase: got %q", s.Phase)
	}
	if s.Testimonial != nil {
		t.Error("stakeholder state should not carry testimonial sub-state")
	}

	ts := InitialState(interview.VariantTestimonial)
	if ts.Testimonial == nil || ts.Testimonial.Answers == nil {
		t.Fatal("testimonial state must initialize answer map")
	}
}
