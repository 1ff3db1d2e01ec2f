package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// The repair chain turns almost-JSON oracle output into parseable JSON.
// Each pass is a pure string -> string function; passes 1-4 are idempotent
// and the chain as a whole never touches input that already parses. Repaired
// text is only ever an input to a subsequent parse attempt, never assumed
// correct.
//
// RepairAggressive is a separate, stricter tier invoked only after the
// standard chain's output still fails to parse. It is deliberately more
// destructive and may truncate malformed trailing content.

var (
	fenceRe        = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$[\r\n]?")
	inlineFenceRe  = regexp.MustCompile("```[a-zA-Z]*")
	lineCommentRe  = regexp.MustCompile(`(?m)^\s*//[^\n]*\n?`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	returnWrapRe   = regexp.MustCompile(`^\s*return\s+`)
	controlCharRe  = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f]")
	bareKeyRe      = regexp.MustCompile(`([{,]\s*)([A-Za-z_$][A-Za-z0-9_$]*)(\s*:)`)
	dupCommaRe     = regexp.MustCompile(`,(\s*,)+`)
	trailCommaRe   = regexp.MustCompile(`,(\s*[}\]])`)
	singleQuoteRe  = regexp.MustCompile(`([\[{:,]\s*)'((?:[^'\\]|\\.)*)'(\s*[,}\]:])`)
)

// Repair runs the standard chain. Input that already parses as JSON is
// returned unchanged.
func Repair(text string) string {
	if json.Valid([]byte(strings.TrimSpace(text))) {
		return text
	}
	out := stripNoise(text)
	out = quoteBareKeys(out)
	out = removeBadCommas(out)
	out = normalizeQuotes(out)
	out = escapeRawStrings(out)
	if !json.Valid([]byte(out)) {
		out = coerceObject(out)
	}
	return out
}

// stripNoise removes code fences, comments, return-statement wrappers,
// trailing semicolons and control characters. Pass 1.
//
// Control characters go first: stripping them later can fuse bytes into new
// comment markers ("/\x07/" becoming "//"). The comment and fence removals
// then run to a fixpoint, since removing one span can expose or create
// another (a block comment hiding a line comment, fence backticks fusing
// into "//").
func stripNoise(s string) string {
	s = controlCharRe.ReplaceAllString(s, "")
	for {
		next := fenceRe.ReplaceAllString(s, "")
		next = inlineFenceRe.ReplaceAllString(next, "")
		next = lineCommentRe.ReplaceAllString(next, "")
		next = blockCommentRe.ReplaceAllString(next, "")
		if next == s {
			break
		}
		s = next
	}
	s = strings.TrimSpace(s)
	// Same fixpoint reasoning for stacked "return return {" wrappers.
	for {
		stripped := returnWrapRe.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = strings.TrimRight(s, "; \t\r\n")
	return strings.TrimSpace(s)
}

// quoteBareKeys wraps unquoted object keys in double quotes. Pass 2.
func quoteBareKeys(s string) string {
	return bareKeyRe.ReplaceAllString(s, `$1"$2"$3`)
}

// removeBadCommas drops duplicated commas and commas dangling before a
// closing brace or bracket. Pass 3.
func removeBadCommas(s string) string {
	s = dupCommaRe.ReplaceAllString(s, ",")
	// A removal can expose a new trailing comma ("1,,]" -> "1,]"), so run to
	// fixpoint; two rounds suffice for any single layer of damage.
	for {
		next := trailCommaRe.ReplaceAllString(s, "$1")
		if next == s {
			return s
		}
		s = next
	}
}

// normalizeQuotes converts single-quoted keys and values sitting at object or
// array boundaries to double-quoted, leaving quotes inside already
// double-quoted strings alone. Pass 4.
func normalizeQuotes(s string) string {
	// The match consumes its trailing boundary character, which may be the
	// leading boundary of the next quoted token ('a','b'), so iterate to a
	// fixpoint. The rewrite removes the matched single quotes, so this
	// terminates.
	for {
		next := singleQuoteRe.ReplaceAllStringFunc(s, func(m string) string {
			sub := singleQuoteRe.FindStringSubmatch(m)
			body := sub[2]
			body = strings.ReplaceAll(body, `\'`, `'`)
			body = strings.ReplaceAll(body, `"`, `\"`)
			return sub[1] + `"` + body + `"` + sub[3]
		})
		if next == s {
			return s
		}
		s = next
	}
}

// escapeRawStrings escapes raw newlines and stray inner quotes found inside
// double-quoted string values. A quote inside a string is considered stray
// when the next non-space character is not a structural delimiter. This is a
// boundary heuristic, not a tokenizer; it is lossy by design. Pass 5.
func escapeRawStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escape := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if escape {
			b.WriteByte(c)
			escape = false
			continue
		}

		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}

		switch c {
		case '\\':
			b.WriteByte(c)
			escape = true
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			// dropped; the paired \n becomes the escape
		case '\t':
			b.WriteString(`\t`)
		case '"':
			if closesString(s, i+1) {
				inString = false
				b.WriteByte(c)
			} else {
				b.WriteString(`\"`)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// closesString reports whether a quote at position i-1 plausibly terminates a
// string value, judged by the next non-space character.
func closesString(s string, i int) bool {
	for ; i < len(s); i++ {
		switch s[i] {
		case ' ':
			continue
		case ',', ':', '}', ']', '\n', '\r':
			return true
		default:
			return false
		}
	}
	return true // end of input
}

// coerceObject trims leading prose off the first object literal and closes
// any containers left open at the end of input. Pass 6, only reached when the
// chain's output still fails to parse.
func coerceObject(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexAny(s, "{["); idx > 0 {
		s = s[idx:]
	} else if idx < 0 {
		if s == "" {
			return s
		}
		raw, _ := json.Marshal(s)
		return `{"explanation":` + string(raw) + `}`
	}
	return closeOpen(s)
}

// closeOpen appends the closers for any unterminated strings, objects and
// arrays at the end of input.
func closeOpen(s string) string {
	var stack []byte
	inString := false
	escape := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escape {
			escape = false
			continue
		}
		if inString {
			if c == '\\' {
				escape = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}
	var b strings.Builder
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}

// RepairAggressive is the last-resort tier. On top of the standard passes it
// truncates the input back to the last structurally complete element before
// closing open containers, discarding whatever malformed tail remains. Callers
// must treat the output as a guess.
func RepairAggressive(text string) string {
	s := stripNoise(text)
	s = quoteBareKeys(s)
	s = removeBadCommas(s)
	s = normalizeQuotes(s)
	s = escapeRawStrings(s)
	if json.Valid([]byte(s)) {
		return s
	}
	s = strings.TrimSpace(s)
	if idx := strings.IndexAny(s, "{["); idx > 0 {
		s = s[idx:]
	}
	s = truncateToLastComplete(s)
	s = removeBadCommas(s)
	if json.Valid([]byte(s)) {
		return s
	}
	return coerceObject(s)
}

// truncateToLastComplete drops trailing elements, one structural comma at a
// time, until closing the open containers yields valid JSON. Whatever the
// model left half-written at the end is discarded.
func truncateToLastComplete(s string) string {
	cand := removeBadCommas(closeOpen(s))
	if json.Valid([]byte(cand)) {
		return cand
	}
	for {
		idx := lastStructuralComma(s)
		if idx < 0 {
			return closeOpen(s)
		}
		s = s[:idx]
		cand = removeBadCommas(closeOpen(s))
		if json.Valid([]byte(cand)) {
			return cand
		}
	}
}

// lastStructuralComma returns the index of the last comma outside any string,
// or -1.
func lastStructuralComma(s string) int {
	last := -1
	inString := false
	escape := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escape {
			escape = false
			continue
		}
		if inString {
			if c == '\\' {
				escape = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case ',':
			last = i
		}
	}
	return last
}
