package rules

import "time"

// SubjectDescription is the immutable input of one authoring session,
// created from the subject's persistent document.
type SubjectDescription struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	EntityKind  string   `json:"entityKind"`
	Level       int      `json:"level"`
	Traits      []string `json:"traits"`
	Description string   `json:"description"`
}

// SideEffectMode selects how transient effects are materialized.
type SideEffectMode string

const (
	// SideEffectToggle produces a persistent, toggleable companion effect.
	SideEffectToggle SideEffectMode = "toggle"
	// SideEffectDiscrete produces a time-boxed companion effect document.
	SideEffectDiscrete SideEffectMode = "discrete-effect"
)

// GenerationRequest carries operator-supplied overrides for one synthesis.
type GenerationRequest struct {
	CustomRequirements        string         `json:"customRequirements,omitempty"`
	IgnoreOriginalDescription bool           `json:"ignoreOriginalDescription,omitempty"`
	SideEffectMode            SideEffectMode `json:"sideEffectMode,omitempty"`
}

// Validate enforces the request invariants checked before any oracle call.
func (r GenerationRequest) Validate() error {
	if r.IgnoreOriginalDescription && r.CustomRequirements == "" {
		return &PreconditionError{
			Field:  "ignoreOriginalDescription",
			Reason: "requires non-empty customRequirements",
		}
	}
	switch r.SideEffectMode {
	case "", SideEffectToggle, SideEffectDiscrete:
	default:
		return &PreconditionError{
			Field:  "sideEffectMode",
			Reason: "must be \"toggle\" or \"discrete-effect\"",
		}
	}
	return nil
}

// MechanicKeyword is a short advisory tag extracted from a description.
// Never required for correctness; downstream treats an empty list as
// "no mechanics known".
type MechanicKeyword string

// ReferenceExample is a read-only entry from the reference index, ranked by
// keyword relevance.
type ReferenceExample struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	EntityKind     string       `json:"entityKind"`
	SourceLabel    string       `json:"sourceLabel"`
	Rules          []RuleObject `json:"rules"`
	Description    string       `json:"description"`
	RelevanceScore float64      `json:"relevanceScore"`
}

// SynthesisResult is the immutable output of one synthesis or corrective
// pass. A corrective pass supersedes the whole result, it never merges.
type SynthesisResult struct {
	Rules             []RuleObject       `json:"rules"`
	Explanation       string             `json:"explanation"`
	ReferenceExamples []ReferenceExample `json:"referenceExamples,omitempty"`
	SideEffectPlans   []SideEffectPlan   `json:"sideEffectPlans,omitempty"`
}

// Duration classifications for side-effect plans.
const (
	DurationUnlimited = "unlimited"
	DurationRounds    = "rounds"
	DurationMinutes   = "minutes"
	DurationHours     = "hours"
)

// NormalizeDuration maps out-of-enumeration values to a safe default so the
// planner stays non-blocking.
func NormalizeDuration(d string) string {
	switch d {
	case DurationUnlimited, DurationRounds, DurationMinutes, DurationHours:
		return d
	}
	return DurationUnlimited
}

// SideEffectPlan describes a companion effect document that must exist before
// the main rule set can reference it. Traits stays empty in practice; the
// domain disallows tags on effect documents, but the field is kept so oracle
// output round-trips.
type SideEffectPlan struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Duration    string       `json:"duration"`
	Rules       []RuleObject `json:"rules"`
	Traits      []string     `json:"traits"`
	Rarity      string       `json:"rarity"`
}

// CreatedSideEffect is the persisted result of committing one plan.
// StableReference is the identifier injected into rule objects or
// description text that must point at the new document.
type CreatedSideEffect struct {
	Name            string `json:"name"`
	StableReference string `json:"stableReference"`
	ContainerID     string `json:"containerId"`
}

// ValidationSignal is one diagnostic captured from the external validation
// channel during the post-commit window. Opaque: forwarded verbatim to the
// corrective loop, never interpreted here.
type ValidationSignal struct {
	Message    string    `json:"message"`
	CapturedAt time.Time `json:"capturedAt"`
}

// ApplyOutcome reports a successful commit: what was written, what companion
// documents were created, and any validation signals captured in the window.
type ApplyOutcome struct {
	CommittedRules     []RuleObject        `json:"committedRules"`
	CreatedSideEffects []CreatedSideEffect `json:"createdSideEffects"`
	Signals            []ValidationSignal  `json:"signals"`
}
