package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/tailscale/hujson"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/vibery-studio/vibery/internal/core/catalog"
)

const mcpServersKey = "mcpServers"

// ErrInvalidMCP is returned when an MCP template is not a JSON object of
// server configurations.
var ErrInvalidMCP = errors.New("invalid MCP template")

// server is one named entry of an MCP server map, kept as raw JSON.
type server struct {
	Name string
	Raw  string
}

// InstallMCP reads an MCP template and merges its servers into the
// project's .mcp.json. Template servers replace same-named entries; every
// other key and comment in the target is kept.
func (in *Installer) InstallMCP(ctx context.Context, d catalog.Descriptor, root string) Result {
	content, source, err := in.Read(ctx, d)
	if err != nil {
		return Result{Err: err}
	}

	servers, err := parseServers(d.CleanName(), content)
	if err != nil {
		return Result{Source: source, Err: err}
	}

	target := MCPConfigPath(root)
	if err := mergeServers(in.fs, target, servers); err != nil {
		return Result{Source: source, Err: err}
	}
	return Result{Success: true, Path: target, Source: source}
}

// parseServers accepts three template shapes: {"mcpServers": {...}}, a bare
// server map, or a single server config which is keyed by name.
func parseServers(name string, content []byte) ([]server, error) {
	if !gjson.ValidBytes(content) {
		return nil, fmt.Errorf("%w %s: not valid JSON", ErrInvalidMCP, name)
	}
	doc := gjson.ParseBytes(content)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w %s: expected a JSON object", ErrInvalidMCP, name)
	}

	servers := doc.Get(mcpServersKey)
	switch {
	case servers.Exists():
		if !servers.IsObject() {
			return nil, fmt.Errorf("%w %s: %s is not an object", ErrInvalidMCP, name, mcpServersKey)
		}
	case isServerConfig(doc):
		wrapped, err := sjson.SetRawBytes([]byte(`{}`), escapeJSONKey(name), bytes.TrimSpace(content))
		if err != nil {
			return nil, fmt.Errorf("%w %s: %v", ErrInvalidMCP, name, err)
		}
		servers = gjson.ParseBytes(wrapped)
	default:
		servers = doc
	}

	var out []server
	var bad string
	servers.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			bad = key.String()
			return false
		}
		out = append(out, server{Name: key.String(), Raw: value.Raw})
		return true
	})
	if bad != "" {
		return nil, fmt.Errorf("%w %s: server %q is not an object", ErrInvalidMCP, name, bad)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w %s: no servers defined", ErrInvalidMCP, name)
	}
	return out, nil
}

// isServerConfig reports whether doc looks like one server rather than a
// map of servers.
func isServerConfig(doc gjson.Result) bool {
	for _, key := range []string{"command", "url", "type"} {
		if v := doc.Get(key); v.Exists() && v.Type == gjson.String {
			return true
		}
	}
	return false
}

// mergeServers patches servers into the mcpServers object of the JSONC
// document at path, creating the file and the object when absent.
func mergeServers(fsys afero.Fs, path string, servers []server) error {
	content, err := afero.ReadFile(fsys, path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		content = []byte("{}")
	}

	root, err := hujson.Parse(content)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if _, ok := root.Value.(*hujson.Object); !ok {
		return fmt.Errorf("parsing %s: top level is not an object", path)
	}

	topPtr := "/" + jsonPointerEscape(mcpServersKey)
	if top := root.Find(topPtr); top == nil {
		patch := fmt.Sprintf(`[{"op":"add","path":%q,"value":{}}]`, topPtr)
		if err := root.Patch([]byte(patch)); err != nil {
			return fmt.Errorf("creating %s: %w", mcpServersKey, err)
		}
	} else if _, ok := top.Value.(*hujson.Object); !ok {
		return fmt.Errorf("%s in %s is not an object", mcpServersKey, path)
	}

	for _, s := range servers {
		entryPtr := topPtr + "/" + jsonPointerEscape(s.Name)
		op := "add"
		if root.Find(entryPtr) != nil {
			op = "replace"
		}
		patch := fmt.Sprintf(`[{"op":%q,"path":%q,"value":%s}]`, op, entryPtr, s.Raw)
		if err := root.Patch([]byte(patch)); err != nil {
			return fmt.Errorf("writing server %q: %w", s.Name, err)
		}
	}

	root.Format()
	removeTrailingCommas(&root)
	return writeFileAtomic(fsys, path, root.Pack(), 0o644)
}

// removeTrailingCommas keeps the output valid strict JSON when the input
// had no comments.
func removeTrailingCommas(v *hujson.Value) {
	switch vv := v.Value.(type) {
	case *hujson.Object:
		for i := range vv.Members {
			removeTrailingCommas(&vv.Members[i].Name)
			removeTrailingCommas(&vv.Members[i].Value)
		}
		if len(vv.Members) > 0 {
			vv.Members[len(vv.Members)-1].Value.AfterExtra = nil
		}
	case *hujson.Array:
		for i := range vv.Elements {
			removeTrailingCommas(&vv.Elements[i])
		}
		if len(vv.Elements) > 0 {
			vv.Elements[len(vv.Elements)-1].AfterExtra = nil
		}
	}
}

// jsonPointerEscape escapes a key for an RFC 6901 JSON pointer.
func jsonPointerEscape(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}

// escapeJSONKey escapes gjson/sjson path metacharacters in a single key.
func escapeJSONKey(key string) string {
	var b strings.Builder
	for _, c := range key {
		switch c {
		case '.', '*', '?', '#', '|', '@', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
