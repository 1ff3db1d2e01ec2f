package synthesis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/oracle"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
)

func TestAnalyzeStructuredResponse(t *testing.T) {
	client := &fakeOracle{resp: &oracle.RawResponse{
		ToolCalls: []oracle.StructuredCall{{
			Name:      "report_mechanics",
			Arguments: `{"mechanics": ["Attack Bonus", "attack bonus", "  toggle  "]}`,
		}},
	}}
	a := NewAnalyzer(client, nil)

	got := a.Analyze(context.Background(), "grants an attack bonus you can toggle")
	assert.Equal(t, []rules.MechanicKeyword{"attack bonus", "toggle"}, got,
		"keywords are lowercased, trimmed and deduplicated")
}

func TestAnalyzeFreeTextFallback(t *testing.T) {
	// No structured envelope; the content mentions vocabulary terms in prose.
	client := &fakeOracle{resp: &oracle.RawResponse{
		Content: "This description is about an aura and some resistance.",
	}}
	a := NewAnalyzer(client, nil)

	got := a.Analyze(context.Background(), "whatever")
	assert.Contains(t, got, rules.MechanicKeyword("aura"))
	assert.Contains(t, got, rules.MechanicKeyword("resistance"))
}

func TestAnalyzeDescriptionFallback(t *testing.T) {
	// Oracle answers with nothing usable at all; the description itself still
	// names a vocabulary term.
	client := &fakeOracle{resp: &oracle.RawResponse{Content: "no tags here"}}
	a := NewAnalyzer(client, nil)

	got := a.Analyze(context.Background(), "the creature has darkvision")
	assert.Contains(t, got, rules.MechanicKeyword("darkvision"))
}

func TestAnalyzeNeverErrors(t *testing.T) {
	t.Run("oracle_failure", func(t *testing.T) {
		a := NewAnalyzer(&fakeOracle{err: errors.New("timeout")}, nil)
		assert.Nil(t, a.Analyze(context.Background(), "some description"))
	})
	t.Run("empty_description", func(t *testing.T) {
		client := &fakeOracle{}
		a := NewAnalyzer(client, nil)
		assert.Nil(t, a.Analyze(context.Background(), "   "))
		assert.Equal(t, 0, client.invocations)
	})
}

func TestAnalyzeRepairsMalformedArguments(t *testing.T) {
	client := &fakeOracle{resp: &oracle.RawResponse{
		ToolCalls: []oracle.StructuredCall{{
			Name:      "report_mechanics",
			Arguments: `{mechanics: ['damage dice',]}`,
		}},
	}}
	a := NewAnalyzer(client, nil)

	got := a.Analyze(context.Background(), "adds a damage die")
	assert.Equal(t, []rules.MechanicKeyword{"damage dice"}, got)
}
