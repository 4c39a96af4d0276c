package schema

import "testing"

func TestNormalizeModelID(t *testing.T) {
	cases := []struct {
		name  string
		model string
		want  ModelID
		valid bool
	}{
		{"simple", "gpt-4o", "gpt-4o", true},
		{"dotted", "gpt-4.1", "gpt-4.1", true},
		{"underscore", "gpt_4o", "gpt_4o", true},
		{"trimmed", " gpt-4o ", "gpt-4o", true},
		{"empty", "", "", false},
		{"space-inside", "gpt 4o", "", false},
		{"symbol", "gpt-4o!", "", false},
	}

	for _, tc := range cases {
		got, err := NormalizeModelID(tc.model)
		if tc.valid && err != nil {
			t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
		}
		if !tc.valid && err == nil {
			t.Fatalf("case %q expected error, got nil", tc.name)
		}
		if tc.valid && got != tc.want {
			t.Fatalf("case %q got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestSlugifyPromptName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "fix-grammar", "fix-grammar"},
		{"spaces", "Fix Grammar", "fix-grammar"},
		{"punctuation", "Summarize (short)", "summarize-short"},
		{"collapsed-runs", "a  --  b", "a-b"},
		{"trimmed-dashes", "!important!", "important"},
		{"empty", "", ""},
		{"only-symbols", "!!!", ""},
	}

	for _, tc := range cases {
		if got := SlugifyPromptName(tc.in); got != tc.want {
			t.Fatalf("case %q got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestNormalizePromptListDedupes(t *testing.T) {
	list := PromptList{
		{Name: "Fix Grammar", Text: "Fix the grammar."},
		{Name: "fix grammar", Text: "Fix it harder."},
		{Name: "", Text: "Anonymous."},
		{Name: "Translate", Text: "Translate to English."},
	}

	got := NormalizePromptList(list)
	if len(got) != 4 {
		t.Fatalf("expected 4 prompts, got %d", len(got))
	}
	if got[0].ID != "fix-grammar" {
		t.Fatalf("first id: got %q", got[0].ID)
	}
	if got[1].ID != "fix-grammar-2" {
		t.Fatalf("duplicate id not suffixed: got %q", got[1].ID)
	}
	if got[2].ID != "" {
		t.Fatalf("unnameable prompt should keep empty id, got %q", got[2].ID)
	}
	if got[3].ID != "translate" {
		t.Fatalf("fourth id: got %q", got[3].ID)
	}
}

func TestNormalizePromptListKeepsExplicitIDs(t *testing.T) {
	list := PromptList{
		{ID: "custom", Name: "Custom", Text: "x"},
		{Name: "Custom", Text: "y"},
	}

	got := NormalizePromptList(list)
	if got[0].ID != "custom" {
		t.Fatalf("explicit id changed: got %q", got[0].ID)
	}
	if got[1].ID != "custom-2" {
		t.Fatalf("derived id should dedupe against explicit: got %q", got[1].ID)
	}
}
