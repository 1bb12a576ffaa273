package remote

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/vibery-studio/vibery/internal/core/catalog"
)

const (
	defaultOwner  = "vibery-studio"
	defaultRepo   = "viberycli"
	defaultBranch = "main"

	defaultAPIURL = "https://api.github.com"
	rawHost       = "https://raw.githubusercontent.com"

	catalogFile  = "registry.json"
	manifestFile = "templates-manifest.json"
)

// Repo identifies the GitHub repository hosting the templates.
type Repo struct {
	Owner  string
	Name   string
	Branch string
}

func (r Repo) withDefaults() Repo {
	if r.Owner == "" {
		r.Owner = defaultOwner
	}
	if r.Name == "" {
		r.Name = defaultRepo
	}
	if r.Branch == "" {
		r.Branch = defaultBranch
	}
	return r
}

// RawBaseURL is the raw content root of the repository branch.
func (r Repo) RawBaseURL() string {
	r = r.withDefaults()
	return fmt.Sprintf("%s/%s/%s/%s", rawHost, r.Owner, r.Name, r.Branch)
}

// BaseURL returns the raw content root in use.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CatalogURL is the location of the remote catalog.
func (c *Client) CatalogURL() string {
	return c.baseURL + "/" + catalogFile
}

// ManifestURL is the location of the templates manifest.
func (c *Client) ManifestURL() string {
	return c.baseURL + "/" + manifestFile
}

// TemplateURL is the raw URL of a single-file template:
// <base>/<plural>/<name>.<ext>.
func (c *Client) TemplateURL(t catalog.Type, name string) string {
	file := catalog.CleanName(name) + t.Ext()
	return c.baseURL + "/" + escapePath(t.Plural()+"/"+file)
}

// SkillFileURL is the raw URL of one file inside a skill directory.
func (c *Client) SkillFileURL(skill, rel string) string {
	return c.baseURL + "/" + escapePath("skills/"+skill+"/"+rel)
}

// ContentsURL is the contents API URL listing a skill directory.
func (c *Client) ContentsURL(skill string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		c.apiURL,
		url.PathEscape(c.repo.Owner),
		url.PathEscape(c.repo.Name),
		escapePath("skills/"+skill),
		url.QueryEscape(c.repo.Branch),
	)
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func trimSlash(s string) string {
	return strings.TrimRight(s, "/")
}
