// Package safeguarding scans participant utterances for safety-critical
// content. Detection is deterministic keyword matching, never a model
// call, so it keeps working when the model provider is degraded.
package safeguarding

import (
	"strings"
	"time"

	"interviewd/pkg/interview"
)

// Flag types.
const (
	FlagSelfHarm       = "self_harm"
	FlagAbuse          = "abuse"
	FlagSevereDistress = "severe_distress"
)

// pattern is one detection rule. Confidence reflects how unambiguous the
// phrase is on its own, without surrounding context.
type pattern struct {
	phrase     string
	flagType   string
	confidence float64
}

// patterns is the detection table. Phrases are matched case-insensitively
// as substrings of the utterance.
var patterns = []pattern{
	{"kill myself", FlagSelfHarm, 0.95},
	{"end my life", FlagSelfHarm, 0.95},
	{"suicide", FlagSelfHarm, 0.9},
	{"suicidal", FlagSelfHarm, 0.9},
	{"hurt myself", FlagSelfHarm, 0.85},
	{"harm myself", FlagSelfHarm, 0.85},
	{"self-harm", FlagSelfHarm, 0.85},
	{"self harm", FlagSelfHarm, 0.85},
	{"don't want to be here anymore", FlagSelfHarm, 0.75},
	{"no reason to live", FlagSelfHarm, 0.8},
	{"better off without me", FlagSelfHarm, 0.75},

	{"being abused", FlagAbuse, 0.9},
	{"abusing me", FlagAbuse, 0.9},
	{"hits me", FlagAbuse, 0.85},
	{"hurting me", FlagAbuse, 0.75},
	{"afraid of him", FlagAbuse, 0.6},
	{"afraid of her", FlagAbuse, 0.6},
	{"afraid to go home", FlagAbuse, 0.8},
	{"threatens me", FlagAbuse, 0.8},

	{"can't cope", FlagSevereDistress, 0.6},
	{"can't go on", FlagSevereDistress, 0.7},
	{"completely hopeless", FlagSevereDistress, 0.7},
	{"giving up on everything", FlagSevereDistress, 0.65},
	{"breaking down", FlagSevereDistress, 0.55},
	{"crisis", FlagSevereDistress, 0.5},
	{"panic attack", FlagSevereDistress, 0.6},
}

// excerptRadius is how many characters of surrounding text to keep on
// each side of a match for the audit record.
const excerptRadius = 40

// Detect scans one utterance and returns zero or more flags. Multiple
// distinct patterns may fire on one utterance; duplicate types are
// collapsed to the highest-confidence match.
func Detect(text string) []interview.SafeguardingFlag {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	now := time.Now().UTC()

	best := make(map[string]interview.SafeguardingFlag)
	for _, p := range patterns {
		idx := strings.Index(lower, p.phrase)
		if idx < 0 {
			continue
		}
		existing, ok := best[p.flagType]
		if ok && existing.Confidence >= p.confidence {
			continue
		}
		best[p.flagType] = interview.SafeguardingFlag{
			Type:       p.flagType,
			Excerpt:    excerpt(text, idx, len(p.phrase)),
			Confidence: p.confidence,
			DetectedAt: now,
		}
	}

	if len(best) == 0 {
		return nil
	}
	// Stable output order for tests and audit records.
	var flags []interview.SafeguardingFlag
	for _, t := range []string{FlagSelfHarm, FlagAbuse, FlagSevereDistress} {
		if f, ok := best[t]; ok {
			flags = append(flags, f)
		}
	}
	return flags
}

// excerpt returns the matched phrase with surrounding context, trimmed
// to word boundaries where possible.
func excerpt(text string, idx, length int) string {
	start := idx - excerptRadius
	if start < 0 {
		start = 0
	}
	end := idx + length + excerptRadius
	if end > len(text) {
		end = len(text)
	}
	out := text[start:end]
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}
