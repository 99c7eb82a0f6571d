package templates

import (
	"fmt"

	"interviewd/pkg/interview"
)

// FallbackClosing is the fixed closing string used when rendering the
// closing template fails. Completion is never blocked by a template error.
const FallbackClosing = "Thank you for your time. The interview is now complete and your responses have been recorded."

// Composer builds the system instruction string for one model call.
// It never touches message history; history replay stays consistent
// because only the system prompt varies per turn.
type Composer struct {
	renderer *Renderer
}

// NewComposer creates a composer over a parsed renderer.
func NewComposer(renderer *Renderer) *Composer {
	return &Composer{renderer: renderer}
}

// Compose produces the system instructions for the current turn.
func (c *Composer) Compose(sc interview.SessionContext, state interview.ConversationState, knowledge []interview.KnowledgeChunk, maxTurns int) (string, error) {
	data := &PromptData{
		ParticipantName: sc.ParticipantName,
		ParticipantRole: sc.ParticipantRole,
		Module:          sc.Module,
		Phase:           string(state.Phase),
		TurnCount:       state.TurnCount,
		MaxTurns:        maxTurns,
		CoveredTopics:   state.CoveredTopics,
		Knowledge:       passages(knowledge),
		Extra:           sc.Extra,
	}

	var name PromptTemplate
	switch sc.Variant {
	case interview.VariantStakeholder:
		name = StakeholderSystemTemplate
		data.FocusAreas = StakeholderFocusAreas(sc.ParticipantRole)
	case interview.VariantArchetype:
		name = ArchetypeSystemTemplate
		data.FocusAreas = ArchetypeFocusAreas()
	case interview.VariantEducation:
		name = EducationSystemTemplate
		data.FocusAreas = EducationFocusAreas(sc.Module)
	case interview.VariantTestimonial:
		name = TestimonialSystemTemplate
		if state.Testimonial != nil {
			data.Draft = state.Testimonial.Draft
		}
	default:
		return "", fmt.Errorf("no prompt template for variant %q", sc.Variant)
	}

	return c.renderer.Render(name, data)
}

// Closing renders the deterministic closing message. On any rendering
// failure the fixed fallback string is returned instead of an error.
func (c *Composer) Closing(sc interview.SessionContext) string {
	out, err := c.renderer.Render(ClosingTemplate, &PromptData{
		ParticipantName: sc.ParticipantName,
	})
	if err != nil {
		return FallbackClosing
	}
	return out
}

func passages(chunks []interview.KnowledgeChunk) []KnowledgePassage {
	if len(chunks) == 0 {
		return nil
	}
	out := make([]KnowledgePassage, len(chunks))
	for i, c := range chunks {
		out[i] = KnowledgePassage{Source: c.Source, Content: c.Content}
	}
	return out
}
