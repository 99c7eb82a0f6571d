// Package templates renders the per-variant system instructions for one
// model call. Templates are embedded; composers fill them with session
// context, conversation state, and retrieved knowledge.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed *.tpl.md
var templateFS embed.FS

// PromptTemplate names one embedded template file.
type PromptTemplate string

const (
	// StakeholderSystemTemplate is the system prompt for stakeholder assessments.
	StakeholderSystemTemplate PromptTemplate = "stakeholder_system.tpl.md"
	// ArchetypeSystemTemplate is the system prompt for coaching archetype discovery.
	ArchetypeSystemTemplate PromptTemplate = "archetype_system.tpl.md"
	// EducationSystemTemplate is the system prompt for education wellbeing modules.
	EducationSystemTemplate PromptTemplate = "education_system.tpl.md"
	// TestimonialSystemTemplate is the system prompt for testimonial interviews.
	TestimonialSystemTemplate PromptTemplate = "testimonial_system.tpl.md"
	// ClosingTemplate is the deterministic closing message shown on completion.
	ClosingTemplate PromptTemplate = "closing.tpl.md"
)

// PromptData holds everything a prompt template can reference.
type PromptData struct {
	ParticipantName string
	ParticipantRole string
	Module          string
	Phase           string
	TurnCount       int
	MaxTurns        int
	FocusAreas      []string
	CoveredTopics   []string
	Knowledge       []KnowledgePassage
	Draft           string
	Extra           map[string]string
}

// KnowledgePassage is one retrieved corpus passage for the context block.
type KnowledgePassage struct {
	Source  string
	Content string
}

// Renderer parses the embedded templates once and renders them on demand.
type Renderer struct {
	templates map[PromptTemplate]*template.Template
}

// NewRenderer loads and parses all embedded prompt templates.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[PromptTemplate]*template.Template),
	}

	names := []PromptTemplate{
		StakeholderSystemTemplate,
		ArchetypeSystemTemplate,
		EducationSystemTemplate,
		TestimonialSystemTemplate,
		ClosingTemplate,
	}

	for _, name := range names {
		content, err := templateFS.ReadFile(string(name))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}

		tmpl, err := template.New(string(name)).Funcs(template.FuncMap{
			"join": strings.Join,
		}).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		r.templates[name] = tmpl
	}

	return r, nil
}

// Render renders the named template with the given data.
func (r *Renderer) Render(name PromptTemplate, data *PromptData) (string, error) {
	tmpl, exists := r.templates[name]
	if !exists {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}

	return buf.String(), nil
}
