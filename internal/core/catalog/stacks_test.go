package catalog

import (
	"strings"
	"testing"
)

func TestLoadStacks(t *testing.T) {
	data := `{
  "stacks": [
    {
      "id": "fullstack",
      "name": "Full Stack Starter",
      "description": "Everything for a web app",
      "templates": [
        {"name": "code-reviewer", "type": "agent"},
        {"name": "github", "type": "MCPs"},
        {"name": "frontend-design", "type": "skill"}
      ],
      "credits": [{"author": "someone"}]
    }
  ]
}`
	stacks, err := LoadStacks([]byte(data))
	if err != nil {
		t.Fatalf("LoadStacks() error: %v", err)
	}
	if len(stacks) != 1 {
		t.Fatalf("len(stacks) = %d, want 1", len(stacks))
	}
	s := stacks[0]
	if s.ID != "fullstack" || len(s.Templates) != 3 {
		t.Errorf("stack = %+v", s)
	}
	if s.Templates[1].Type != TypeMCP {
		t.Errorf("Templates[1].Type = %q, want mcp", s.Templates[1].Type)
	}
	if len(s.Credits) == 0 {
		t.Error("credits should be preserved")
	}
}

func TestLoadStacks_LegacyKitsKey(t *testing.T) {
	stacks, err := LoadStacks([]byte(`{"kits": [{"id": "k1", "name": "Kit One", "templates": []}]}`))
	if err != nil {
		t.Fatalf("LoadStacks() error: %v", err)
	}
	if len(stacks) != 1 || stacks[0].ID != "k1" {
		t.Errorf("stacks = %+v", stacks)
	}
}

func TestLoadStacks_UntypedRef(t *testing.T) {
	data := `{"stacks": [
  {"id": "a", "name": "A", "templates": [{"name": "debugger", "type": "agent"}]},
  {"id": "b", "name": "B", "templates": [{"name": "debugger"}]}
]}`
	stacks, err := LoadStacks([]byte(data))
	if err != nil {
		t.Fatalf("LoadStacks() error: %v", err)
	}
	if len(stacks) != 2 {
		t.Fatalf("len(stacks) = %d, want 2", len(stacks))
	}
	if ref := stacks[1].Templates[0]; ref.Name != "debugger" || ref.Type != "" {
		t.Errorf("untyped ref = %+v", ref)
	}
}

func TestLoadStacks_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"bad json", `{`, "invalid JSON"},
		{"no list", `{"other": []}`, "missing stacks list"},
		{"missing id", `{"stacks": [{"name": "x", "templates": []}]}`, "ID"},
		{"unknown type", `{"stacks": [{"id": "a", "name": "A", "templates": [{"name": "x", "type": "plugin"}]}]}`, "artifacttype"},
		{"ref without name", `{"stacks": [{"id": "a", "name": "A", "templates": [{"type": "agent"}]}]}`, "Name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadStacks([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadStacks() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestFindStack(t *testing.T) {
	stacks := []Stack{
		{ID: "fullstack", Name: "Full Stack Starter"},
		{ID: "docs", Name: "Docs Writer"},
	}

	if s, ok := FindStack(stacks, "docs"); !ok || s.Name != "Docs Writer" {
		t.Errorf("FindStack(docs) = %+v, %v", s, ok)
	}
	if s, ok := FindStack(stacks, "full stack STARTER"); !ok || s.ID != "fullstack" {
		t.Errorf("FindStack by name = %+v, %v", s, ok)
	}
	if _, ok := FindStack(stacks, "missing"); ok {
		t.Error("FindStack(missing) should fail")
	}
}
