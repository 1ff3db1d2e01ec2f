package extract

import "testing"

func TestFindJSONCandidates(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "simple",
			input: `prefix {"key": "value"} suffix`,
			want:  []string{`{"key": "value"}`},
		},
		{
			name:  "nested",
			input: `start {"a": {"b": "c"}} end`,
			want:  []string{`{"a": {"b": "c"}}`},
		},
		{
			name:  "multiple",
			input: `obj1 {"id": 1} obj2 {"id": 2}`,
			want:  []string{`{"id": 1}`, `{"id": 2}`},
		},
		{
			name:  "string_with_braces",
			input: `{"key": "value with } inside"}`,
			want:  []string{`{"key": "value with } inside"}`},
		},
		{
			name:  "escaped_quote",
			input: `{"key": "value with \" inside"}`,
			want:  []string{`{"key": "value with \" inside"}`},
		},
		{
			name:  "incomplete",
			input: `prefix { incomplete`,
			want:  nil,
		},
		{
			name:  "top_level_array",
			input: `The rules are: [{"key": "Note"}, {"key": "Aura"}] as requested`,
			want:  []string{`[{"key": "Note"}, {"key": "Aura"}]`},
		},
		{
			name:  "nested_array_not_split_out",
			input: `{"rules": [{"key": "Note"}]}`,
			want:  []string{`{"rules": [{"key": "Note"}]}`},
		},
		{
			name:  "call_wrapper",
			input: `designFeat({name: 'X', level: 2})`,
			want:  []string{`{name: 'X', level: 2}`},
		},
		{
			name:  "prose_apostrophe_does_not_derail",
			input: `Here's the rule set: {"rules": []}`,
			want:  []string{`{"rules": []}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := findJSONCandidates(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d candidates %v, want %d", len(got), got, len(tt.want))
			}
			for i, cand := range got {
				if cand != tt.want[i] {
					t.Errorf("candidate[%d] = %q, want %q", i, cand, tt.want[i])
				}
			}
		})
	}
}
