package synthesis

import (
	"strings"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
)

// TransientPhraseSource is a simple SuggestionSource: it flags a subject as
// carrying a transient effect when the description uses time-boxed or
// while-active phrasing. Hosts with a richer shape analysis substitute their
// own SuggestionSource.
type TransientPhraseSource struct{}

type transientMarker struct {
	phrase        string
	durationClass string
}

var transientMarkers = []transientMarker{
	{"until the end of", rules.DurationRounds},
	{"for 1 round", rules.DurationRounds},
	{"for one round", rules.DurationRounds},
	{"for 1 minute", rules.DurationMinutes},
	{"for one minute", rules.DurationMinutes},
	{"for 10 minutes", rules.DurationMinutes},
	{"for 1 hour", rules.DurationHours},
	{"for one hour", rules.DurationHours},
	{"while active", rules.DurationUnlimited},
	{"can activate", rules.DurationUnlimited},
	{"when activated", rules.DurationUnlimited},
}

// Suggest scans the description for transient phrasing. At most one
// suggestion per subject: the companion effect carrying the transient part.
func (TransientPhraseSource) Suggest(subject rules.SubjectDescription, _ []rules.RuleObject) []EffectSuggestion {
	lower := strings.ToLower(subject.Description)
	for _, m := range transientMarkers {
		if strings.Contains(lower, m.phrase) {
			return []EffectSuggestion{{
				Name:          "Effect: " + subject.Name,
				Description:   subject.Description,
				DurationClass: m.durationClass,
			}}
		}
	}
	return nil
}
