package catalog

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Frontmatter is the YAML header of a markdown template.
type Frontmatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	Tools       string   `yaml:"tools,omitempty"`
	Model       string   `yaml:"model,omitempty"`
}

// SplitFrontmatter separates the YAML header of a markdown document from
// its body. Documents without a closed "---" header return a zero
// Frontmatter and the full content as body.
func SplitFrontmatter(content []byte) (Frontmatter, []byte, error) {
	var fm Frontmatter

	nl := bytes.IndexByte(content, '\n')
	if nl < 0 || string(bytes.TrimSpace(content[:nl])) != "---" {
		return fm, content, nil
	}

	rest := content[nl+1:]
	for off := 0; off < len(rest); {
		end := bytes.IndexByte(rest[off:], '\n')
		line, next := rest[off:], len(rest)
		if end >= 0 {
			line, next = rest[off:off+end], off+end+1
		}
		if string(bytes.TrimSpace(line)) == "---" {
			if err := yaml.Unmarshal(rest[:off], &fm); err != nil {
				return Frontmatter{}, nil, fmt.Errorf("parsing frontmatter: %w", err)
			}
			return fm, bytes.TrimLeft(rest[next:], "\r\n"), nil
		}
		off = next
	}

	return fm, content, nil
}
