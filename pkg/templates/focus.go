package templates

import "strings"

// stakeholderFocus maps a participant role to the question emphasis for
// that role. Unknown roles get the default set.
var stakeholderFocus = map[string][]string{
	"executive": {
		"strategic direction and whether it is understood below the leadership level",
		"where decisions stall and why",
		"the biggest organizational risk they see in the next year",
	},
	"manager": {
		"how priorities reach their team and how clear they are",
		"friction between their team and the rest of the organization",
		"what support they need but do not get",
	},
	"employee": {
		"their day-to-day experience of how work actually gets done",
		"whether they feel heard when they raise problems",
		"what they would change first if they could",
	},
	"customer": {
		"what the organization is like to deal with from the outside",
		"where expectations were met or missed",
		"what would make them a stronger advocate",
	},
}

var stakeholderDefaultFocus = []string{
	"their role and how it connects to the organization's goals",
	"what is working well and what is not",
	"what they would change first if they could",
}

// archetypeFocus is the fixed emphasis for coaching archetype discovery.
var archetypeFocus = []string{
	"how they behave under pressure versus at their best",
	"what energizes them and what drains them",
	"how they make decisions when the answer is not obvious",
	"the role they naturally take in a group",
}

// educationFocus maps a module name to its focus points. Unknown modules
// get the default wellbeing set.
var educationFocus = map[string][]string{
	"resilience": {
		"a recent setback and how they responded to it",
		"what helped them recover, and who supported them",
		"one small strategy they could try next time",
	},
	"friendships": {
		"what makes a friendship feel good or bad",
		"how they handle disagreements with friends",
		"when and how to ask for help with a friendship problem",
	},
	"emotions": {
		"noticing and naming feelings as they happen",
		"what situations bring up strong feelings",
		"safe ways to express and manage strong feelings",
	},
	"transitions": {
		"what is changing for them at the moment",
		"what they are looking forward to and what worries them",
		"what has helped them through changes before",
	},
}

var educationDefaultFocus = []string{
	"how they have been feeling lately",
	"what is going well for them",
	"anything they are finding difficult right now",
}

// StakeholderFocusAreas returns the focus areas for a stakeholder role.
func StakeholderFocusAreas(role string) []string {
	if areas, ok := stakeholderFocus[strings.ToLower(strings.TrimSpace(role))]; ok {
		return areas
	}
	return stakeholderDefaultFocus
}

// ArchetypeFocusAreas returns the coaching archetype focus areas.
func ArchetypeFocusAreas() []string {
	return archetypeFocus
}

// EducationFocusAreas returns the focus areas for an education module.
func EducationFocusAreas(module string) []string {
	if areas, ok := educationFocus[strings.ToLower(strings.TrimSpace(module))]; ok {
		return areas
	}
	return educationDefaultFocus
}

// KnownEducationModules lists the modules with dedicated focus areas.
func KnownEducationModules() []string {
	return []string{"resilience", "friendships", "emotions", "transitions"}
}
