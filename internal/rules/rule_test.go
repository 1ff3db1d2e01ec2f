package rules

import (
	"errors"
	"testing"
)

func TestRuleObjectValidate(t *testing.T) {
	tests := []struct {
		name    string
		rule    RuleObject
		wantErr bool
	}{
		{
			name: "flat_modifier_ok",
			rule: RuleObject{"key": "FlatModifier", "selector": "attack", "value": 2},
		},
		{
			name:    "missing_discriminant",
			rule:    RuleObject{"selector": "attack", "value": 2},
			wantErr: true,
		},
		{
			name:    "non_string_discriminant",
			rule:    RuleObject{"key": 42},
			wantErr: true,
		},
		{
			name:    "flat_modifier_missing_selector",
			rule:    RuleObject{"key": "FlatModifier", "value": 2},
			wantErr: true,
		},
		{
			name: "unknown_kind_passes_through",
			rule: RuleObject{"key": "SomeFutureKind", "whatever": true},
		},
		{
			name:    "roll_option_missing_option",
			rule:    RuleObject{"key": "RollOption", "domain": "all"},
			wantErr: true,
		},
		{
			name: "grant_item_ok",
			rule: RuleObject{"key": "GrantItem", "uuid": "Document.effect.abc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRule) {
				t.Errorf("error should wrap ErrInvalidRule, got %v", err)
			}
		})
	}
}

func TestValidateAll(t *testing.T) {
	t.Run("empty_set_rejected", func(t *testing.T) {
		if err := ValidateAll(nil); err == nil {
			t.Fatal("expected error for empty set")
		}
	})

	t.Run("one_bad_rule_rejects_batch", func(t *testing.T) {
		set := []RuleObject{
			{"key": "FlatModifier", "selector": "attack", "value": 1},
			{"selector": "ac"},
		}
		if err := ValidateAll(set); err == nil {
			t.Fatal("expected error for batch with invalid rule")
		}
	})
}

func TestCloneIsDeep(t *testing.T) {
	orig := []RuleObject{{"key": "Aura", "radius": 15, "effects": []interface{}{}}}
	cp := Clone(orig)
	cp[0]["radius"] = 30
	cp[0]["effects"] = append(cp[0]["effects"].([]interface{}), "x")

	if orig[0]["radius"] != 15 {
		t.Errorf("clone mutated original radius: %v", orig[0]["radius"])
	}
	if len(orig[0]["effects"].([]interface{})) != 0 {
		t.Error("clone mutated original effects")
	}
}

func TestEqual(t *testing.T) {
	a := []RuleObject{{"key": "FlatModifier", "selector": "attack", "value": float64(2)}}
	b := []RuleObject{{"value": float64(2), "selector": "attack", "key": "FlatModifier"}}
	c := []RuleObject{{"key": "FlatModifier", "selector": "attack", "value": float64(3)}}

	if !Equal(a, b) {
		t.Error("field order should not affect equality")
	}
	if Equal(a, c) {
		t.Error("different values should not be equal")
	}
	if !Equal(Clone(a), a) {
		t.Error("clone should be equal to source")
	}
}

func TestGenerationRequestValidate(t *testing.T) {
	t.Run("ignore_without_requirements_rejected", func(t *testing.T) {
		req := GenerationRequest{IgnoreOriginalDescription: true}
		err := req.Validate()
		if err == nil {
			t.Fatal("expected precondition error")
		}
		var pre *PreconditionError
		if !errors.As(err, &pre) {
			t.Fatalf("expected *PreconditionError, got %T", err)
		}
	})

	t.Run("ignore_with_requirements_ok", func(t *testing.T) {
		req := GenerationRequest{IgnoreOriginalDescription: true, CustomRequirements: "only fire damage"}
		if err := req.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("bad_side_effect_mode_rejected", func(t *testing.T) {
		req := GenerationRequest{SideEffectMode: "sometimes"}
		if err := req.Validate(); err == nil {
			t.Fatal("expected precondition error")
		}
	})
}

func TestNormalizeDuration(t *testing.T) {
	if got := NormalizeDuration("rounds"); got != DurationRounds {
		t.Errorf("rounds normalized to %q", got)
	}
	if got := NormalizeDuration("fortnights"); got != DurationUnlimited {
		t.Errorf("out-of-enumeration value normalized to %q, want %q", got, DurationUnlimited)
	}
	if got := NormalizeDuration(""); got != DurationUnlimited {
		t.Errorf("empty value normalized to %q, want %q", got, DurationUnlimited)
	}
}
