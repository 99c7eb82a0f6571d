package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// Intent is a deterministic classification of a participant message in
// the testimonial review phase.
type Intent string

const (
	// IntentApprove means the participant accepted the draft as-is.
	IntentApprove Intent = "approve"
	// IntentEdit means the participant asked for changes.
	IntentEdit Intent = "edit"
	// IntentNone means neither signal was detected.
	IntentNone Intent = "none"
)

var approvalPhrases = []string{
	"looks good", "looks great", "that's great", "thats great", "that's perfect",
	"thats perfect", "i approve", "approved", "happy with it", "happy with that",
	"love it", "perfect", "yes, that works", "that works", "go ahead",
	"no changes", "it's good", "its good", "sounds good", "all good",
}

var editPhrases = []string{
	"change", "revise", "reword", "rewrite", "edit", "instead",
	"can you remove", "please remove", "take out", "add ", "don't like",
	"dont like", "not quite", "too formal", "too casual", "shorter", "longer",
	"tweak", "adjust", "different", "actually",
}

// ClassifyReviewIntent classifies a review-phase message. The approval
// check runs first: an explicit approval beats an incidental edit word,
// because approval ends the review loop immediately.
func ClassifyReviewIntent(text string) Intent {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return IntentNone
	}
	if lower == "yes" || lower == "yep" || lower == "yeah" || lower == "ok" || lower == "okay" {
		return IntentApprove
	}
	for _, p := range approvalPhrases {
		if strings.Contains(lower, p) {
			return IntentApprove
		}
	}
	for _, p := range editPhrases {
		if strings.Contains(lower, p) {
			return IntentEdit
		}
	}
	return IntentNone
}

var ratingPattern = regexp.MustCompile(`\b(10|[1-9])\b`)

// ParseRating extracts a 1-10 rating from a participant message.
// Returns 0 when no rating is present.
func ParseRating(text string) int {
	// A bare number is the common case.
	if n, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
		if n >= 1 && n <= 10 {
			return n
		}
		return 0
	}
	match := ratingPattern.FindString(text)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil || n < 1 || n > 10 {
		return 0
	}
	return n
}
