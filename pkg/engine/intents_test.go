package engine

import "testing"

func TestClassifyReviewIntent(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{"Looks good to me!", IntentApprove},
		{"yes", IntentApprove},
		{"That's perfect, thank you", IntentApprove},
		{"no changes needed", IntentApprove},
		{"Could you change the second sentence?", IntentEdit},
		{"Please remove the bit about pricing", IntentEdit},
		{"It's a bit too formal", IntentEdit},
		{"Hmm, let me think about it", IntentNone},
		{"", IntentNone},
		// Approval beats an incidental edit keyword in the same message.
		{"Looks good, no need to change anything", IntentApprove},
	}
	for _, tt := range tests {
		if got := ClassifyReviewIntent(tt.text); got != tt.want {
			t.Errorf("ClassifyReviewIntent(%q): got %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"9", 9},
		{" 10 ", 10},
		{"I'd say 8 out of 10", 8},
		{"definitely a 10", 10},
		{"zero", 0},
		{"11", 0},
		{"0", 0},
		{"no rating from me", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := ParseRating(tt.text); got != tt.want {
			t.Errorf("ParseRating(%q): got %d, want %d", tt.text, got, tt.want)
		}
	}
}
