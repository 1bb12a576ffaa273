package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Ref points at a catalog template by name and, optionally, type. An empty
// type matches any bucket.
type Ref struct {
	Name string `json:"name" validate:"required"`
	Type Type   `json:"type,omitempty" validate:"omitempty,artifacttype"`
}

// Stack is a named, ordered group of templates installed together. Its
// references are not required to exist in the catalog.
type Stack struct {
	ID          string          `json:"id" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description,omitempty"`
	Templates   []Ref           `json:"templates" validate:"dive"`
	Tags        []string        `json:"tags,omitempty"`
	Credits     json.RawMessage `json:"credits,omitempty"`
}

// LoadStacks parses a stacks document. Both {"stacks": [...]} and the older
// {"kits": [...]} layouts are accepted.
func LoadStacks(data []byte) ([]Stack, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parsing stacks: invalid JSON")
	}

	list := gjson.GetBytes(data, "stacks")
	if !list.Exists() {
		list = gjson.GetBytes(data, "kits")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("parsing stacks: missing stacks list")
	}

	var stacks []Stack
	if err := json.Unmarshal([]byte(list.Raw), &stacks); err != nil {
		return nil, fmt.Errorf("parsing stacks: %w", err)
	}

	for i := range stacks {
		for j := range stacks[i].Templates {
			stacks[i].Templates[j].Type = Type(strings.ToLower(string(stacks[i].Templates[j].Type)))
		}
		if err := validate.Struct(stacks[i]); err != nil {
			return nil, fmt.Errorf("stack %d (%s): %w", i, stacks[i].ID, err)
		}
		for j, ref := range stacks[i].Templates {
			t, _ := ParseType(string(ref.Type))
			stacks[i].Templates[j].Type = t
		}
	}
	return stacks, nil
}

// FindStack matches a stack by exact ID or case-insensitive name.
func FindStack(stacks []Stack, name string) (Stack, bool) {
	for _, s := range stacks {
		if s.ID == name || strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Stack{}, false
}
