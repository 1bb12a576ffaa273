package installer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/vibery-studio/vibery/internal/core/bundle"
	"github.com/vibery-studio/vibery/internal/core/catalog"
	"github.com/vibery-studio/vibery/internal/core/remote"
)

// fakeRepo serves raw files under /raw/ and contents API listings under
// /api/, counting hits per path.
type fakeRepo struct {
	srv      *httptest.Server
	files    map[string]string
	listings map[string]string
	status   map[string]int

	mu    sync.Mutex
	hits  map[string]int
	paths []string
}

func newFakeRepo(t *testing.T) *fakeRepo {
	t.Helper()
	r := &fakeRepo{
		files:    make(map[string]string),
		listings: make(map[string]string),
		status:   make(map[string]int),
		hits:     make(map[string]int),
	}
	r.srv = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *fakeRepo) serve(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.hits[req.URL.Path]++
	r.paths = append(r.paths, req.URL.Path)
	r.mu.Unlock()

	if code, ok := r.status[req.URL.Path]; ok {
		w.WriteHeader(code)
		return
	}
	if body, ok := r.files[strings.TrimPrefix(req.URL.Path, "/raw/")]; ok && strings.HasPrefix(req.URL.Path, "/raw/") {
		_, _ = w.Write([]byte(body))
		return
	}
	if body, ok := r.listings[strings.TrimPrefix(req.URL.Path, "/api/repos/acme/templates/contents/")]; ok {
		_, _ = w.Write([]byte(strings.ReplaceAll(body, "{{host}}", r.srv.URL)))
		return
	}
	http.NotFound(w, req)
}

func (r *fakeRepo) hitCount(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[path]
}

// requested returns the request paths with prefix, in arrival order.
func (r *fakeRepo) requested(prefix string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, p := range r.paths {
		if strings.HasPrefix(p, prefix) {
			out = append(out, strings.TrimPrefix(p, prefix))
		}
	}
	return out
}

func (r *fakeRepo) client() *remote.Client {
	return remote.New(remote.Repo{Owner: "acme", Name: "templates", Branch: "dev"},
		remote.WithHTTPClient(r.srv.Client()),
		remote.WithBaseURL(r.srv.URL+"/raw"),
		remote.WithAPIURL(r.srv.URL+"/api"),
	)
}

// newBundle builds an in-memory bundle from bundle-relative paths.
func newBundle(t *testing.T, files map[string]string) *bundle.Source {
	t.Helper()
	fs := afero.NewMemMapFs()
	for p, content := range files {
		if err := afero.WriteFile(fs, p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return bundle.New(fs, "test")
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

var reviewer = catalog.Descriptor{Name: "reviewer", Type: catalog.TypeAgent}

func TestInstall_RemoteFirst(t *testing.T) {
	repo := newFakeRepo(t)
	repo.files["agents/reviewer.md"] = "# remote reviewer"
	b := newBundle(t, map[string]string{"templates/agents/reviewer.md": "# bundled reviewer"})
	root := t.TempDir()

	res := New(repo.client(), b).Install(context.Background(), reviewer, root, nil)
	if !res.Success {
		t.Fatalf("Install() failed: %v", res.Err)
	}
	if res.Source != SourceRemote {
		t.Errorf("Source = %q, want %q", res.Source, SourceRemote)
	}
	want := filepath.Join(root, ".claude", "agents", "reviewer.md")
	if res.Path != want {
		t.Errorf("Path = %q, want %q", res.Path, want)
	}
	if got := readFile(t, want); got != "# remote reviewer" {
		t.Errorf("content = %q", got)
	}
}

func TestInstall_FallsBackToBundled(t *testing.T) {
	repo := newFakeRepo(t)
	repo.status["/raw/agents/reviewer.md"] = http.StatusInternalServerError
	b := newBundle(t, map[string]string{"templates/agents/reviewer.md": "# bundled reviewer"})
	root := t.TempDir()

	res := New(repo.client(), b).Install(context.Background(), reviewer, root, nil)
	if !res.Success || res.Source != SourceBundled {
		t.Fatalf("Install() = %+v, want bundled success", res)
	}
	if got := readFile(t, res.Path); got != "# bundled reviewer" {
		t.Errorf("content = %q", got)
	}
}

func TestInstall_OfflineNeverTouchesRemote(t *testing.T) {
	repo := newFakeRepo(t)
	repo.files["agents/reviewer.md"] = "# remote reviewer"
	b := newBundle(t, map[string]string{"templates/agents/reviewer.md": "# bundled reviewer"})

	res := New(repo.client(), b, WithOffline(true)).Install(context.Background(), reviewer, t.TempDir(), nil)
	if !res.Success || res.Source != SourceBundled {
		t.Fatalf("Install() = %+v, want bundled success", res)
	}
	if n := repo.hitCount("/raw/agents/reviewer.md"); n != 0 {
		t.Errorf("remote hit %d times in offline mode", n)
	}
}

func TestInstall_AllTiersFail(t *testing.T) {
	repo := newFakeRepo(t)
	b := newBundle(t, nil)
	root := t.TempDir()

	res := New(repo.client(), b).Install(context.Background(), reviewer, root, nil)
	if res.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, ErrNotInBundle) {
		t.Errorf("Err = %v, want ErrNotInBundle", res.Err)
	}
	if !remote.IsNotFound(res.Err) {
		t.Errorf("Err = %v, want the remote 404 to stay inspectable", res.Err)
	}
	if _, err := os.Stat(filepath.Join(root, ".claude")); !os.IsNotExist(err) {
		t.Error("failed install created the target tree")
	}
}

func TestInstall_AliasNameAndOverwrite(t *testing.T) {
	repo := newFakeRepo(t)
	repo.files["mcps/github.json"] = `{"mcpServers": {}}`
	repo.files["settings/strict.json"] = `{"v": 2}`
	root := t.TempDir()
	in := New(repo.client(), newBundle(t, nil))

	target := filepath.Join(root, ".claude", "settings", "strict.json")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte(`{"v": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	res := in.Install(context.Background(), catalog.Descriptor{Name: "strict.json", Type: catalog.TypeSetting}, root, nil)
	if !res.Success {
		t.Fatalf("Install() failed: %v", res.Err)
	}
	if res.Path != target {
		t.Errorf("Path = %q, want %q", res.Path, target)
	}
	if got := readFile(t, target); got != `{"v": 2}` {
		t.Errorf("existing file not overwritten: %q", got)
	}
}

func TestInstall_ReportsProgress(t *testing.T) {
	repo := newFakeRepo(t)
	repo.files["commands/commit.md"] = "# commit"

	var done, total int64
	res := New(repo.client(), newBundle(t, nil)).Install(context.Background(),
		catalog.Descriptor{Name: "commit", Type: catalog.TypeCommand}, t.TempDir(),
		func(d, tt int64) { done, total = d, tt })
	if !res.Success {
		t.Fatalf("Install() failed: %v", res.Err)
	}
	if done != 1 || total != 1 {
		t.Errorf("progress = (%d, %d), want (1, 1)", done, total)
	}
}

func TestInstall_RejectsSkill(t *testing.T) {
	res := New(nil, newBundle(t, nil)).Install(context.Background(),
		catalog.Descriptor{Name: "pdf", Type: catalog.TypeSkill}, t.TempDir(), nil)
	if res.Success || res.Err == nil {
		t.Error("Install() accepted a skill")
	}
}

func TestRead_SkillEntry(t *testing.T) {
	b := newBundle(t, map[string]string{"templates/skills/pdf/SKILL.md": "# PDF"})

	data, source, err := New(nil, b).Read(context.Background(), catalog.Descriptor{Name: "pdf.md", Type: catalog.TypeSkill})
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if source != SourceBundled || string(data) != "# PDF" {
		t.Errorf("Read() = (%q, %q)", data, source)
	}
}

func TestTargetPath(t *testing.T) {
	tests := []struct {
		d    catalog.Descriptor
		want string
	}{
		{catalog.Descriptor{Name: "reviewer", Type: catalog.TypeAgent}, ".claude/agents/reviewer.md"},
		{catalog.Descriptor{Name: "reviewer.md", Type: catalog.TypeAgent}, ".claude/agents/reviewer.md"},
		{catalog.Descriptor{Name: "commit", Type: catalog.TypeCommand}, ".claude/commands/commit.md"},
		{catalog.Descriptor{Name: "github", Type: catalog.TypeMCP}, ".claude/mcps/github.json"},
		{catalog.Descriptor{Name: "strict", Type: catalog.TypeSetting}, ".claude/settings/strict.json"},
		{catalog.Descriptor{Name: "lint", Type: catalog.TypeHook}, ".claude/hooks/lint.json"},
		{catalog.Descriptor{Name: "pdf.md", Type: catalog.TypeSkill}, ".claude/skills/pdf"},
	}
	for _, tt := range tests {
		if got := TargetPath("/p", tt.d); got != filepath.Join("/p", tt.want) {
			t.Errorf("TargetPath(%s/%s) = %q, want %q", tt.d.Type, tt.d.Name, got, filepath.Join("/p", tt.want))
		}
	}
}

func TestInstallTemplate_Dispatch(t *testing.T) {
	b := newBundle(t, map[string]string{
		"templates/agents/reviewer.md":       "# reviewer",
		"templates/mcps/github.json":         `{"mcpServers": {"github": {"command": "gh-mcp"}}}`,
		"templates/skills/pdf/SKILL.md":      "# PDF",
		"templates/skills/pdf/scripts/do.sh": "echo",
	})
	root := t.TempDir()
	in := New(nil, b, WithOffline(true))
	ctx := context.Background()

	if res := in.InstallTemplate(ctx, reviewer, root, nil); res.Path != filepath.Join(root, ".claude", "agents", "reviewer.md") {
		t.Errorf("agent Path = %q (%v)", res.Path, res.Err)
	}
	if res := in.InstallTemplate(ctx, catalog.Descriptor{Name: "github", Type: catalog.TypeMCP}, root, nil); res.Path != filepath.Join(root, ".mcp.json") {
		t.Errorf("mcp Path = %q (%v)", res.Path, res.Err)
	}
	if res := in.InstallTemplate(ctx, catalog.Descriptor{Name: "pdf", Type: catalog.TypeSkill}, root, nil); res.Path != filepath.Join(root, ".claude", "skills", "pdf") {
		t.Errorf("skill Path = %q (%v)", res.Path, res.Err)
	}
}
