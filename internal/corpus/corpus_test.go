package corpus

import (
	"strings"
	"testing"
)

func TestDefaultCorpusSections(t *testing.T) {
	c := Default()

	for _, kind := range []string{"FlatModifier", "DamageDice", "RollOption", "GrantItem", "Aura", "Note"} {
		if c.Section(kind) == "" {
			t.Errorf("missing section for %s", kind)
		}
		if !strings.Contains(c.FullText(), "## "+kind) {
			t.Errorf("FullText missing heading for %s", kind)
		}
	}

	if c.Section("NoSuchKind") != "" {
		t.Error("unknown kind should return empty section")
	}
}

func TestFullTextIsStable(t *testing.T) {
	c := NewStatic("preamble", map[string]string{"B": "b doc", "A": "a doc", "C": "c doc"})

	first := c.FullText()
	if first != c.FullText() {
		t.Fatal("FullText must be deterministic")
	}
	if strings.Index(first, "## A") > strings.Index(first, "## B") {
		t.Error("sections must appear in sorted order")
	}
}
