package catalog

import (
	"bytes"
	"errors"
	"testing"
)

const flatCatalog = `{
  "version": "1.2.0",
  "templates": [
    {"name": "code-reviewer", "type": "agent", "description": "Reviews pull requests"},
    {"name": "commit.md", "type": "command", "description": "Write a commit message"},
    {"name": "github", "type": "mcp", "description": "GitHub MCP server"},
    {"name": "debugger", "type": "agent", "description": "Finds bugs"},
    {"name": "frontend-design", "type": "skill", "description": "Design systems"}
  ]
}`

// The same catalog, grouped, with buckets deliberately out of order.
const groupedCatalog = `{
  "version": "1.2.0",
  "templates": {
    "skills": [{"name": "frontend-design", "description": "Design systems"}],
    "mcps": [{"name": "github", "description": "GitHub MCP server"}],
    "agents": [
      {"name": "code-reviewer", "description": "Reviews pull requests"},
      {"name": "debugger", "description": "Finds bugs"}
    ],
    "commands": [{"name": "commit.md", "description": "Write a commit message"}]
  }
}`

func mustParse(t *testing.T, data string) *Catalog {
	t.Helper()
	c, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	return c
}

func TestParse_FlatAndGroupedMarshalIdentically(t *testing.T) {
	flat, err := Marshal(mustParse(t, flatCatalog))
	if err != nil {
		t.Fatalf("Marshal(flat) error: %v", err)
	}
	grouped, err := Marshal(mustParse(t, groupedCatalog))
	if err != nil {
		t.Fatalf("Marshal(grouped) error: %v", err)
	}
	if !bytes.Equal(flat, grouped) {
		t.Errorf("flat and grouped catalogs marshal differently:\nflat:\n%s\ngrouped:\n%s", flat, grouped)
	}

	// Feeding the grouped output back in is a fixed point.
	again, err := Marshal(mustParse(t, string(grouped)))
	if err != nil {
		t.Fatalf("Marshal(roundtrip) error: %v", err)
	}
	if !bytes.Equal(again, grouped) {
		t.Errorf("normalization is not idempotent:\n%s\nvs\n%s", again, grouped)
	}
}

func TestParse_BucketOrderFollowsTypePriority(t *testing.T) {
	c := mustParse(t, `{"templates": {"zebras": [{"name": "z"}], "skills": [{"name": "s"}], "extras": [{"name": "e"}], "agents": [{"name": "a"}]}}`)

	want := []string{"agents", "skills", "extras", "zebras"}
	got := c.Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParse_BucketKeyDecidesType(t *testing.T) {
	c := mustParse(t, `{"templates": {"hooks": [{"name": "lint", "type": "agent"}]}}`)

	items := c.Templates(TypeHook)
	if len(items) != 1 {
		t.Fatalf("hooks bucket has %d items, want 1", len(items))
	}
	if items[0].Type != TypeHook {
		t.Errorf("Type = %q, want %q", items[0].Type, TypeHook)
	}
	if got := c.Templates(TypeAgent); len(got) != 0 {
		t.Errorf("agents bucket = %v, want empty", got)
	}
}

func TestParse_FlatPluralTypeNormalized(t *testing.T) {
	c := mustParse(t, `{"templates": [{"name": "strict", "type": "settings"}]}`)
	items := c.Templates(TypeSetting)
	if len(items) != 1 || items[0].Type != TypeSetting {
		t.Errorf("settings bucket = %+v, want one setting", items)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{templates`},
		{"no templates", `{"version": "1"}`},
		{"templates is a string", `{"templates": "agents"}`},
		{"bucket is not a list", `{"templates": {"agents": {"name": "x"}}}`},
		{"flat item without type", `{"templates": [{"name": "x"}]}`},
		{"item without name", `{"templates": {"agents": [{"description": "no name"}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Parse() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestFind_AliasResolution(t *testing.T) {
	c := mustParse(t, `{"templates": {"agents": [{"name": "foo.md"}], "commands": [{"name": "foo"}], "mcps": [{"name": "bar.json"}]}}`)

	// Unqualified: agent wins over command by declared priority.
	d, ok := c.Find("foo", "")
	if !ok || d.Type != TypeAgent || d.Name != "foo.md" {
		t.Errorf("Find(foo) = %+v, %v; want agent foo.md", d, ok)
	}

	d, ok = c.Find("foo", TypeCommand)
	if !ok || d.Type != TypeCommand || d.Name != "foo" {
		t.Errorf("Find(foo, command) = %+v, %v; want command foo", d, ok)
	}

	d, ok = c.Find("bar", TypeMCP)
	if !ok || d.Name != "bar.json" {
		t.Errorf("Find(bar, mcp) = %+v, %v; want bar.json", d, ok)
	}

	if _, ok := c.Find("bar", TypeAgent); ok {
		t.Error("Find(bar, agent) should not search other buckets")
	}
	if _, ok := c.Find("missing", ""); ok {
		t.Error("Find(missing) should fail")
	}
}

func TestFind_TieBreakIndependentOfInputOrder(t *testing.T) {
	// skills listed first in the document; agents still win.
	c := mustParse(t, `{"templates": [{"name": "shared", "type": "skill"}, {"name": "shared", "type": "agent"}]}`)
	d, ok := c.Find("shared", "")
	if !ok || d.Type != TypeAgent {
		t.Errorf("Find(shared) = %+v, want agent", d)
	}
}

func TestSearch(t *testing.T) {
	c := mustParse(t, flatCatalog)

	results := c.Search("REVIEW", "")
	if len(results) != 1 || results[0].Name != "code-reviewer" {
		t.Errorf("Search(REVIEW) = %+v, want code-reviewer", results)
	}

	// Matches description across buckets, bucket order outer.
	results = c.Search("s", "")
	var names []string
	for _, r := range results {
		names = append(names, r.Name)
	}
	want := []string{"code-reviewer", "debugger", "commit.md", "github", "frontend-design"}
	if len(names) != len(want) {
		t.Fatalf("Search(s) = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Search(s)[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	if got := c.Search("bugs", TypeMCP); len(got) != 0 {
		t.Errorf("Search(bugs, mcp) = %+v, want none", got)
	}
}

func TestCounts(t *testing.T) {
	c := mustParse(t, flatCatalog)
	counts := c.Counts()

	want := []BucketCount{{"agents", 2}, {"commands", 1}, {"mcps", 1}, {"skills", 1}}
	if len(counts) != len(want) {
		t.Fatalf("Counts() = %v, want %v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("Counts()[%d] = %v, want %v", i, counts[i], want[i])
		}
	}
	if c.Len() != 5 {
		t.Errorf("Len() = %d, want 5", c.Len())
	}
}

func TestDescriptor_FileName(t *testing.T) {
	tests := []struct {
		d    Descriptor
		want string
	}{
		{Descriptor{Name: "reviewer", Type: TypeAgent}, "reviewer.md"},
		{Descriptor{Name: "commit", Type: TypeCommand}, "commit.md"},
		{Descriptor{Name: "github", Type: TypeMCP}, "github.json"},
		{Descriptor{Name: "strict", Type: TypeSetting}, "strict.json"},
		{Descriptor{Name: "lint", Type: TypeHook}, "lint.json"},
		{Descriptor{Name: "notes.md", Type: TypeHook}, "notes.md"},
		{Descriptor{Name: "cfg.json", Type: TypeAgent}, "cfg.json"},
	}
	for _, tt := range tests {
		if got := tt.d.FileName(); got != tt.want {
			t.Errorf("FileName(%s/%s) = %q, want %q", tt.d.Type, tt.d.Name, got, tt.want)
		}
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"agent", TypeAgent, false},
		{"Agents", TypeAgent, false},
		{"mcps", TypeMCP, false},
		{" skill ", TypeSkill, false},
		{"", "", false},
		{"plugin", "", true},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidatePayload(t *testing.T) {
	if err := ValidatePayload([]byte(flatCatalog)); err != nil {
		t.Errorf("flat catalog: %v", err)
	}
	if err := ValidatePayload([]byte(groupedCatalog)); err != nil {
		t.Errorf("grouped catalog: %v", err)
	}

	nullable := `{"templates": [{"name": "a", "type": "agent", "description": null, "path": null, "category": null, "tags": null}]}`
	if err := ValidatePayload([]byte(nullable)); err != nil {
		t.Errorf("null optional fields: %v", err)
	}
	if _, err := Parse([]byte(nullable)); err != nil {
		t.Errorf("Parse(null optional fields): %v", err)
	}

	bad := []string{
		`{"templates": [{"name": "x"}]}`,
		`{"templates": 3}`,
		`{"items": []}`,
		`<html>rate limited</html>`,
	}
	for _, data := range bad {
		if err := ValidatePayload([]byte(data)); !errors.Is(err, ErrMalformed) {
			t.Errorf("ValidatePayload(%s) = %v, want ErrMalformed", data, err)
		}
	}
}
