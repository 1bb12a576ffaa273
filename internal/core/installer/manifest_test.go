package installer

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/spf13/afero"

	"github.com/vibery-studio/vibery/internal/core/catalog"
)

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Manifest
		wantErr bool
	}{
		{
			name: "full templates manifest",
			data: `{"agents": ["a.md"], "skills": {"pdf": ["SKILL.md", "x/y.py"]}}`,
			want: Manifest{"pdf": {"SKILL.md", "x/y.py"}},
		},
		{
			name: "bare skill map",
			data: `{"pdf": ["SKILL.md"], "docx": []}`,
			want: Manifest{"pdf": {"SKILL.md"}, "docx": nil},
		},
		{name: "not json", data: `{`, wantErr: true},
		{name: "array", data: `["SKILL.md"]`, wantErr: true},
		{name: "bad list", data: `{"pdf": "SKILL.md"}`, wantErr: true},
		{name: "bad path", data: `{"pdf": [1]}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseManifest([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseManifest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidManifest) {
					t.Errorf("error %v is not ErrInvalidManifest", err)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseManifest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func writeTemplates(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"tpl/agents/reviewer.md":               "---\nname: reviewer\ndescription: Reviews code\ncategory: quality\n---\n# Reviewer\n",
		"tpl/agents/.hidden.md":                "hidden",
		"tpl/agents/debugger.md":               "# no frontmatter\n",
		"tpl/mcps/github.json":                 `{"description": "GitHub tools", "mcpServers": {}}`,
		"tpl/skills/pdf/SKILL.md":              "---\ndescription: PDF tools\n---\n",
		"tpl/skills/pdf/scripts/run.py":        "",
		"tpl/skills/pdf/scripts/__pycache__/x": "",
		"tpl/skills/pdf/.git/HEAD":             "",
		"tpl/skills/pdf/assets/a.png":          "",
	}
	for p, content := range files {
		if err := afero.WriteFile(fs, p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

func TestGenerateManifest(t *testing.T) {
	out, err := GenerateManifest(writeTemplates(t), "tpl")
	if err != nil {
		t.Fatalf("GenerateManifest() error: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if _, ok := doc["commands"]; ok {
		t.Error("missing type directory produced a key")
	}

	var agents []string
	_ = json.Unmarshal(doc["agents"], &agents)
	if !reflect.DeepEqual(agents, []string{"debugger.md", "reviewer.md"}) {
		t.Errorf("agents = %v", agents)
	}

	m, err := ParseManifest(out)
	if err != nil {
		t.Fatalf("generated manifest does not parse: %v", err)
	}
	want := []string{"SKILL.md", "assets/a.png", "scripts/run.py"}
	if !reflect.DeepEqual(m["pdf"], want) {
		t.Errorf("pdf files = %v, want %v", m["pdf"], want)
	}
}

func TestGenerateCatalog(t *testing.T) {
	c, err := GenerateCatalog(writeTemplates(t), "tpl", "2.0.0")
	if err != nil {
		t.Fatalf("GenerateCatalog() error: %v", err)
	}
	if c.Version != "2.0.0" || c.Len() != 4 {
		t.Fatalf("catalog version %q with %d templates", c.Version, c.Len())
	}

	got, ok := c.Find("reviewer", catalog.TypeAgent)
	if !ok || got.Description != "Reviews code" || got.Category != "quality" {
		t.Errorf("reviewer = %+v", got)
	}
	if got, _ := c.Find("github", catalog.TypeMCP); got.Description != "GitHub tools" {
		t.Errorf("github = %+v", got)
	}
	if got, _ := c.Find("pdf", catalog.TypeSkill); got.Description != "PDF tools" {
		t.Errorf("pdf = %+v", got)
	}

	// The generated catalog survives its own normalization.
	data, err := catalog.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := catalog.Parse(data); err != nil {
		t.Errorf("generated catalog does not parse: %v", err)
	}
}

func TestCleanRel(t *testing.T) {
	ok := map[string]string{"SKILL.md": "SKILL.md", "a/./b.md": "a/b.md", "a/../b.md": "b.md"}
	for in, want := range ok {
		if got, err := cleanRel(in); err != nil || got != want {
			t.Errorf("cleanRel(%q) = %q, %v", in, got, err)
		}
	}
	for _, in := range []string{"", ".", "..", "../x", "a/../../x", "/etc/passwd", `a\b`} {
		if _, err := cleanRel(in); err == nil {
			t.Errorf("cleanRel(%q) accepted", in)
		}
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	files := []file{
		{rel: "SKILL.md", data: []byte("# PDF")},
		{rel: "scripts/run.sh", data: []byte("#!/bin/sh"), mode: 0o755},
	}
	data, err := packFiles(files)
	if err != nil {
		t.Fatalf("packFiles() error: %v", err)
	}
	got, err := unpackFiles(data)
	if err != nil {
		t.Fatalf("unpackFiles() error: %v", err)
	}
	if len(got) != 2 || got[1].rel != "scripts/run.sh" || string(got[1].data) != "#!/bin/sh" {
		t.Fatalf("unpackFiles() = %+v", got)
	}
	if got[1].perm() != 0o755 || got[0].perm() != 0o644 {
		t.Errorf("modes = %v, %v", got[0].perm(), got[1].perm())
	}

	evil, _ := packFiles([]file{{rel: "../evil", data: []byte("x")}})
	if _, err := unpackFiles(evil); err == nil {
		t.Error("unpackFiles() accepted an escaping path")
	}
	if _, err := unpackFiles([]byte("not gzip")); err == nil {
		t.Error("unpackFiles() accepted garbage")
	}
}
