package extract

// findJSONCandidates scans the input for top-level JSON value candidates:
// balanced {...} objects and, at top level only, [...] arrays (models
// sometimes answer with a bare rules array instead of the envelope object).
// Nesting and string escaping are tracked so braces inside string values do
// not end a candidate.
//
// Iterating bytes is safe for the ASCII delimiters involved because UTF-8
// guarantees ASCII bytes never appear inside a multi-byte sequence. Only
// double quotes toggle string state: single-quoted values are left for the
// repair chain, and treating apostrophes in surrounding prose as string
// delimiters would swallow whole responses.
//
// Closers are matched by depth, not by kind; a mismatched candidate simply
// fails the parse attempt downstream.
func findJSONCandidates(s string) []string {
	var candidates []string
	var depth int
	var start = -1
	var inString bool
	var escape bool

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}

		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{', '[':
			if depth == 0 {
				start = i
			}
			depth++
		case '}', ']':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}

	return candidates
}
