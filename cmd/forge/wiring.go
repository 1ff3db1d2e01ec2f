package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/apply"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/corpus"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/index"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/oracle"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/pipeline"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/store"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/synthesis"
)

// session bundles the constructed collaborators for one CLI invocation.
type session struct {
	pipe *pipeline.Pipeline
	docs *store.SQLiteStore
}

func (s *session) close() {
	if s.docs != nil {
		_ = s.docs.Close()
	}
}

// newSession constructs the pipeline from config. Collaborators are built
// once here and injected; nothing is fetched through globals.
func newSession(ctx context.Context) (*session, error) {
	client, err := newOracleClient(ctx)
	if err != nil {
		return nil, err
	}

	docs, err := store.NewSQLiteStore(cfg.Store.DatabasePath, logger.Named("store"))
	if err != nil {
		return nil, err
	}

	kc := corpus.Default()
	monitor := apply.NewMonitor(apply.NewBroadcaster(), cfg.Validation.Markers, logger.Named("monitor"))

	pipe := pipeline.New(pipeline.Deps{
		Analyzer:    synthesis.NewAnalyzer(client, logger.Named("mechanics")),
		Retriever:   index.NewRetriever(index.NewStaticIndex(builtinExamples()), logger.Named("retriever")),
		Synthesizer: synthesis.NewSynthesizer(client, kc, logger.Named("synthesis")),
		Planner:     synthesis.NewPlanner(client, logger.Named("planner")),
		Suggestions: synthesis.TransientPhraseSource{},
		Controller:  apply.NewController(docs, monitor, cfg.ValidationWindow(), logger.Named("apply")),
		Corrector:   synthesis.NewCorrector(client, kc, logger.Named("corrective")),
		Logger:      logger.Named("pipeline"),
	})
	return &session{pipe: pipe, docs: docs}, nil
}

func newOracleClient(ctx context.Context) (oracle.Client, error) {
	switch cfg.Oracle.Provider {
	case "gemini":
		return oracle.NewGeminiClient(ctx, oracle.GeminiConfig{
			APIKey: cfg.Oracle.APIKey,
			Model:  cfg.Oracle.Model,
		}, logger.Named("oracle"))
	case "", "openai-compatible":
		return oracle.NewHTTPClient(oracle.HTTPConfig{
			APIKey:     cfg.Oracle.APIKey,
			BaseURL:    cfg.Oracle.BaseURL,
			Model:      cfg.Oracle.Model,
			Timeout:    cfg.OracleTimeout(),
			MaxRetries: 3,
		}, logger.Named("oracle")), nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Oracle.Provider)
	}
}

// loadSubject reads a subject description from a YAML file.
func loadSubject(path string) (rules.SubjectDescription, error) {
	var subject rules.SubjectDescription
	raw, err := os.ReadFile(path)
	if err != nil {
		return subject, fmt.Errorf("failed to read subject %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &subject); err != nil {
		return subject, fmt.Errorf("failed to parse subject %s: %w", path, err)
	}
	if subject.Name == "" {
		return subject, fmt.Errorf("subject %s has no name", path)
	}
	return subject, nil
}

// ensureSubjectDocument makes sure the subject exists in the store, creating
// it when the file carried no id, and returns the subject with its id set.
func ensureSubjectDocument(ctx context.Context, s *session, subject rules.SubjectDescription) (rules.SubjectDescription, error) {
	if subject.ID != "" {
		if _, err := s.docs.Get(ctx, subject.ID); err != nil {
			return subject, fmt.Errorf("subject document %s: %w", subject.ID, err)
		}
		return subject, nil
	}
	id, _, err := s.docs.Create(ctx, subject.EntityKind, map[string]interface{}{
		"name":        subject.Name,
		"level":       subject.Level,
		"traits":      subject.Traits,
		"description": subject.Description,
		"rules":       []interface{}{},
	})
	if err != nil {
		return subject, fmt.Errorf("failed to create subject document: %w", err)
	}
	subject.ID = id
	fmt.Printf("created subject document %s\n", id)
	return subject, nil
}

func writeJSON(path string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0644)
}

func readJSON(path string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// builtinExamples seeds the reference index so retrieval works before any
// corpus import. Deployments point the retriever at their own index.
func builtinExamples() []index.Entry {
	return []index.Entry{
		{
			ID:          "example-weapon-focus",
			Name:        "Weapon Focus",
			EntityKind:  "feat",
			SourceLabel: "builtin",
			Description: "You gain an attack bonus with your chosen weapon group.",
			Rules: []rules.RuleObject{
				{"key": "FlatModifier", "selector": "attack", "type": "circumstance", "value": 1},
			},
		},
		{
			ID:          "example-defensive-stance",
			Name:        "Defensive Stance",
			EntityKind:  "feat",
			SourceLabel: "builtin",
			Description: "While active, you gain a bonus to armor class but your speed drops.",
			Rules: []rules.RuleObject{
				{"key": "RollOption", "domain": "all", "option": "defensive-stance", "toggleable": true},
				{"key": "FlatModifier", "selector": "ac", "type": "circumstance", "value": 2, "predicate": []interface{}{"defensive-stance"}},
			},
		},
		{
			ID:          "example-protective-aura",
			Name:        "Protective Aura",
			EntityKind:  "feat",
			SourceLabel: "builtin",
			Description: "An aura that grants allies a bonus to saving throws.",
			Rules: []rules.RuleObject{
				{"key": "Aura", "radius": 15, "effects": []interface{}{}},
			},
		},
	}
}
