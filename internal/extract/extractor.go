// Package extract recovers a typed payload from raw oracle responses. The
// oracle is treated as unreliable: it may answer through the structured
// tool-call envelope, the legacy single function-call envelope, or free text
// with an object literal buried in prose. Extraction tries each shape in
// order and leans on the repair chain whenever a parse fails.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/oracle"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
)

// Payload is the canonical shape every recovery strategy maps onto.
type Payload struct {
	Rules       []rules.RuleObject `json:"rules"`
	Explanation string             `json:"explanation"`
}

// Extract recovers a payload from a raw response. Strategies are tried in
// order, first success wins:
//
//  1. native tool-call arguments,
//  2. legacy single function-call arguments,
//  3. free-text content (direct parse, then candidate scan + repair).
//
// Extraction that yields zero rules is a generation failure, never a valid
// result. Extract is pure: it has no side effects on the response.
func Extract(raw *oracle.RawResponse) (*Payload, error) {
	if raw == nil {
		return nil, &rules.GenerationFailure{Stage: "extract", Reason: "nil response"}
	}

	var lastErr error
	for _, call := range raw.ToolCalls {
		p, err := parseArguments(call.Arguments)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	if raw.FunctionCall != nil {
		p, err := parseArguments(raw.FunctionCall.Arguments)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	if raw.Content != "" {
		p, err := parseContent(raw.Content)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}

	return nil, &rules.GenerationFailure{
		Stage:  "extract",
		Reason: "no recovery strategy produced a usable payload",
		Err:    lastErr,
	}
}

// parseArguments handles a structured call's argument text. Providers
// occasionally emit malformed arguments even under a schema, so failures go
// through the repair chain before giving up.
func parseArguments(args string) (*Payload, error) {
	if strings.TrimSpace(args) == "" {
		return nil, fmt.Errorf("empty call arguments")
	}
	if p, err := decodePayload(args); err == nil {
		return p, nil
	}
	if p, err := decodePayload(Repair(args)); err == nil {
		return p, nil
	}
	p, err := decodePayload(RepairAggressive(args))
	if err != nil {
		return nil, fmt.Errorf("call arguments unrecoverable: %w", err)
	}
	return p, nil
}

// parseContent handles free-text content: direct parse first, then every
// scanned object candidate (largest first, since models tend to wrap the real
// payload in decoys and preambles), each through the repair tiers.
func parseContent(content string) (*Payload, error) {
	if p, err := decodePayload(content); err == nil {
		return p, nil
	}

	candidates := findJSONCandidates(content)
	// Prefer candidates that mention the rules array at all.
	ranked := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if strings.Contains(c, `"rules"`) || strings.Contains(c, "rules:") || strings.Contains(c, "rules :") {
			ranked = append(ranked, c)
		}
	}
	if len(ranked) == 0 {
		ranked = candidates
	}

	var lastErr error = fmt.Errorf("no object candidates in content")
	for i := len(ranked) - 1; i >= 0; i-- {
		cand := ranked[i]
		if p, err := decodePayload(cand); err == nil {
			return withLooseExplanation(p, content), nil
		}
		if p, err := decodePayload(Repair(cand)); err == nil {
			return withLooseExplanation(p, content), nil
		}
		p, err := decodePayload(RepairAggressive(cand))
		if err == nil {
			return withLooseExplanation(p, content), nil
		}
		lastErr = err
	}

	// The whole content may be a fenced object the scanner cannot see
	// (single-quoted braces, unterminated tail). One shot through the chain.
	if p, err := decodePayload(Repair(content)); err == nil {
		return withLooseExplanation(p, content), nil
	}
	if p, err := decodePayload(RepairAggressive(content)); err == nil {
		return withLooseExplanation(p, content), nil
	}
	return nil, lastErr
}

// withLooseExplanation fills a missing explanation from the surrounding prose.
// Only the explanation is ever recovered loosely; the rules array never is.
func withLooseExplanation(p *Payload, content string) *Payload {
	if p.Explanation != "" {
		return p
	}
	e := LooseExplanation(content)
	if strings.HasPrefix(e, "{") || strings.HasPrefix(e, "[") {
		return p
	}
	p.Explanation = e
	return p
}

// decodePayload parses text into a Payload and enforces the non-empty rules
// invariant. Rules may arrive as objects or, from sloppier models, as JSON
// strings containing objects; a bare top-level array is read as the rules
// array with no envelope.
func decodePayload(text string) (*Payload, error) {
	var env struct {
		Rules       []json.RawMessage `json:"rules"`
		Explanation string            `json:"explanation"`
	}
	if strings.HasPrefix(strings.TrimSpace(text), "[") {
		if err := json.Unmarshal([]byte(text), &env.Rules); err != nil {
			return nil, err
		}
	} else if err := json.NewDecoder(strings.NewReader(text)).Decode(&env); err != nil {
		return nil, err
	}
	if len(env.Rules) == 0 {
		return nil, fmt.Errorf("payload has no rules")
	}

	out := &Payload{Explanation: strings.TrimSpace(env.Explanation)}
	for i, raw := range env.Rules {
		var obj rules.RuleObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			// Tolerate a double-encoded rule: a JSON string holding an object.
			var s string
			if serr := json.Unmarshal(raw, &s); serr != nil {
				return nil, fmt.Errorf("rule %d: %w", i, err)
			}
			if serr := json.Unmarshal([]byte(Repair(s)), &obj); serr != nil {
				return nil, fmt.Errorf("rule %d: %w", i, serr)
			}
		}
		out.Rules = append(out.Rules, obj)
	}
	return out, nil
}
