package catalog

import (
	"fmt"
	"strings"
)

// Type is an artifact kind in its singular form ("agent", "skill").
type Type string

const (
	TypeAgent   Type = "agent"
	TypeCommand Type = "command"
	TypeMCP     Type = "mcp"
	TypeSetting Type = "setting"
	TypeHook    Type = "hook"
	TypeSkill   Type = "skill"
)

// Types lists every known artifact type in priority order. Catalog buckets
// iterate in this order and unqualified lookups resolve ties with it.
var Types = []Type{TypeAgent, TypeCommand, TypeMCP, TypeSetting, TypeHook, TypeSkill}

// Plural returns the catalog bucket key and directory name for the type.
func (t Type) Plural() string {
	return pluralKey(string(t))
}

// Ext returns the single-file extension, including the dot.
func (t Type) Ext() string {
	switch t {
	case TypeMCP, TypeSetting, TypeHook:
		return ".json"
	default:
		return ".md"
	}
}

// Known reports whether t is one of the declared types.
func (t Type) Known() bool {
	return priority(string(t)) < len(Types)
}

// ParseType accepts a singular or plural type name, case-insensitively.
func ParseType(s string) (Type, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return "", nil
	}
	t := Type(singularKey(key))
	if !t.Known() {
		return "", fmt.Errorf("unknown template type %q (valid: %s)", s, typeNames())
	}
	return t, nil
}

func typeNames() string {
	names := make([]string, len(Types))
	for i, t := range Types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// pluralKey mirrors the catalog convention: types already ending in "s"
// are used as-is.
func pluralKey(t string) string {
	if strings.HasSuffix(t, "s") {
		return t
	}
	return t + "s"
}

func singularKey(key string) string {
	return strings.TrimSuffix(key, "s")
}

// priority returns the declared index of a singular type, or len(Types)
// for unknown types.
func priority(t string) int {
	for i, known := range Types {
		if string(known) == t {
			return i
		}
	}
	return len(Types)
}

// Descriptor describes one installable template.
type Descriptor struct {
	Name        string   `json:"name" validate:"required"`
	Type        Type     `json:"type" validate:"required"`
	Description string   `json:"description,omitempty"`
	Path        string   `json:"path,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// CleanName strips a trailing .md or .json from the descriptor name.
func (d Descriptor) CleanName() string {
	return CleanName(d.Name)
}

// FileName is the on-disk file name for single-file types: the name with
// the type's extension appended unless it already carries one.
func (d Descriptor) FileName() string {
	if strings.HasSuffix(d.Name, ".md") || strings.HasSuffix(d.Name, ".json") {
		return d.Name
	}
	return d.Name + d.Type.Ext()
}

// CleanName strips a trailing .md or .json suffix.
func CleanName(name string) string {
	if trimmed, ok := strings.CutSuffix(name, ".md"); ok {
		return trimmed
	}
	return strings.TrimSuffix(name, ".json")
}

// matches reports whether the descriptor answers to name, either exactly
// or through its .md/.json alias.
func (d Descriptor) matches(name string) bool {
	return d.Name == name || d.Name == name+".md" || d.Name == name+".json"
}

// BucketCount is the number of templates stored under one bucket key.
type BucketCount struct {
	Key   string
	Count int
}
