// Package index implements the read-only reference index and the retriever
// that ranks existing entities as style references for synthesis.
package index

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
)

// Entry is one record of the reference index.
type Entry struct {
	ID          string
	Name        string
	EntityKind  string
	SourceLabel string
	Rules       []rules.RuleObject
	Description string
}

// Index is the external read-only search surface. Implementations may be
// partial or unavailable; the retriever degrades to an empty result either
// way.
type Index interface {
	Search(ctx context.Context, entityKind string) ([]Entry, error)
}

// Scoring constants: a keyword matching the entry name is worth more than one
// matching only the description; the sum is capped so one spammy entry cannot
// run away.
const (
	nameMatchWeight = 0.5
	bodyMatchWeight = 0.2
	scoreCap        = 1.0
	scoreThreshold  = 0.2
	maxExamples     = 5
)

// Retriever ranks index entries against mechanic keywords.
type Retriever struct {
	index  Index
	logger *zap.Logger
}

// NewRetriever builds a retriever over an index.
func NewRetriever(idx Index, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{index: idx, logger: logger}
}

// Retrieve returns up to five reference examples of the given kind that carry
// at least one rule and score above the threshold, sorted by score descending
// with ties broken by rule count descending. Retrieval is advisory: empty
// keywords or an index failure yield an empty result, never an error.
func (r *Retriever) Retrieve(ctx context.Context, entityKind string, keywords []rules.MechanicKeyword) []rules.ReferenceExample {
	if len(keywords) == 0 {
		return nil
	}
	entries, err := r.index.Search(ctx, entityKind)
	if err != nil {
		r.logger.Warn("reference index unavailable, proceeding without examples",
			zap.String("entityKind", entityKind),
			zap.Error(err))
		return nil
	}

	var out []rules.ReferenceExample
	for _, e := range entries {
		if len(e.Rules) == 0 {
			continue
		}
		score := scoreEntry(e, keywords)
		if score < scoreThreshold {
			continue
		}
		out = append(out, rules.ReferenceExample{
			ID:             e.ID,
			Name:           e.Name,
			EntityKind:     e.EntityKind,
			SourceLabel:    e.SourceLabel,
			Rules:          e.Rules,
			Description:    e.Description,
			RelevanceScore: score,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RelevanceScore != out[j].RelevanceScore {
			return out[i].RelevanceScore > out[j].RelevanceScore
		}
		return len(out[i].Rules) > len(out[j].Rules)
	})
	if len(out) > maxExamples {
		out = out[:maxExamples]
	}
	return out
}

func scoreEntry(e Entry, keywords []rules.MechanicKeyword) float64 {
	name := strings.ToLower(e.Name)
	body := strings.ToLower(e.Description)
	var score float64
	for _, kw := range keywords {
		term := strings.ToLower(strings.TrimSpace(string(kw)))
		if term == "" {
			continue
		}
		if strings.Contains(name, term) {
			score += nameMatchWeight
		}
		if strings.Contains(body, term) {
			score += bodyMatchWeight
		}
	}
	if score > scoreCap {
		score = scoreCap
	}
	return score
}

// StaticIndex is an in-memory Index, useful for embedded corpora and tests.
type StaticIndex struct {
	entries []Entry
}

// NewStaticIndex builds an index over fixed entries.
func NewStaticIndex(entries []Entry) *StaticIndex {
	return &StaticIndex{entries: entries}
}

// Search filters entries by entity kind. An empty kind matches everything.
func (s *StaticIndex) Search(_ context.Context, entityKind string) ([]Entry, error) {
	if entityKind == "" {
		return s.entries, nil
	}
	var out []Entry
	for _, e := range s.entries {
		if strings.EqualFold(e.EntityKind, entityKind) {
			out = append(out, e)
		}
	}
	return out, nil
}
