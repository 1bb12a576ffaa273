// Package catalog holds the template catalog model, the normalization of
// the catalog wire formats and the tiered resolver that loads it.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMalformed is returned for catalog payloads that are neither the flat
// nor the grouped shape.
var ErrMalformed = errors.New("malformed catalog")

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("template not found")

// Catalog maps plural type keys to ordered descriptor lists. Keys iterate
// in declared type order, then unknown keys alphabetically.
type Catalog struct {
	Version string
	buckets map[string][]Descriptor
	order   []string
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{buckets: make(map[string][]Descriptor)}
}

// Add appends a descriptor to the bucket for its type.
func (c *Catalog) Add(d Descriptor) {
	key := d.Type.Plural()
	d.Type = Type(singularKey(key))
	if _, ok := c.buckets[key]; !ok {
		c.order = append(c.order, key)
		sortKeys(c.order)
	}
	c.buckets[key] = append(c.buckets[key], d)
}

// Keys returns the bucket keys in iteration order.
func (c *Catalog) Keys() []string {
	return append([]string(nil), c.order...)
}

// Bucket returns a copy of the descriptors stored under a plural key.
func (c *Catalog) Bucket(key string) []Descriptor {
	return append([]Descriptor(nil), c.buckets[key]...)
}

// Templates returns the descriptors of one type.
func (c *Catalog) Templates(t Type) []Descriptor {
	return c.Bucket(t.Plural())
}

// Len is the total number of descriptors.
func (c *Catalog) Len() int {
	n := 0
	for _, items := range c.buckets {
		n += len(items)
	}
	return n
}

// Find returns the first descriptor answering to name. With a type it only
// searches that bucket; without, buckets are searched in iteration order so
// a name shared by two types resolves to the higher-priority type.
func (c *Catalog) Find(name string, t Type) (Descriptor, bool) {
	for _, key := range c.searchKeys(t) {
		for _, d := range c.buckets[key] {
			if d.matches(name) {
				return d, true
			}
		}
	}
	return Descriptor{}, false
}

// Search returns every descriptor whose name or description contains
// query, case-insensitively. Results keep bucket order, then item order.
func (c *Catalog) Search(query string, t Type) []Descriptor {
	q := strings.ToLower(query)
	var results []Descriptor
	for _, key := range c.searchKeys(t) {
		for _, d := range c.buckets[key] {
			if strings.Contains(strings.ToLower(d.Name), q) ||
				strings.Contains(strings.ToLower(d.Description), q) {
				results = append(results, d)
			}
		}
	}
	return results
}

// Counts returns the number of templates per bucket in iteration order.
func (c *Catalog) Counts() []BucketCount {
	counts := make([]BucketCount, 0, len(c.order))
	for _, key := range c.order {
		counts = append(counts, BucketCount{Key: key, Count: len(c.buckets[key])})
	}
	return counts
}

func (c *Catalog) searchKeys(t Type) []string {
	if t != "" {
		return []string{t.Plural()}
	}
	return c.order
}

// Parse decodes a catalog in either wire shape:
//
//	{"templates": [{"name": "x", "type": "agent"}, ...]}
//	{"templates": {"agents": [{"name": "x"}, ...], ...}}
//
// and returns it in grouped form.
func Parse(data []byte) (*Catalog, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}

	c := New()
	c.Version = gjson.GetBytes(data, "version").String()

	templates := gjson.GetBytes(data, "templates")
	switch {
	case templates.IsArray():
		for i, item := range templates.Array() {
			d, err := decodeDescriptor(item.Raw)
			if err != nil {
				return nil, fmt.Errorf("%w: templates[%d]: %v", ErrMalformed, i, err)
			}
			c.Add(d)
		}
	case templates.IsObject():
		var parseErr error
		templates.ForEach(func(key, bucket gjson.Result) bool {
			if !bucket.IsArray() {
				parseErr = fmt.Errorf("%w: templates.%s is not a list", ErrMalformed, key.String())
				return false
			}
			plural := pluralKey(key.String())
			if _, ok := c.buckets[plural]; !ok {
				c.buckets[plural] = []Descriptor{}
				c.order = append(c.order, plural)
			}
			for i, item := range bucket.Array() {
				// The bucket key decides the type; a stray "type" field
				// cannot move a descriptor into another bucket.
				d, err := decodeDescriptor(item.Raw, Type(singularKey(plural)))
				if err != nil {
					parseErr = fmt.Errorf("%w: templates.%s[%d]: %v", ErrMalformed, key.String(), i, err)
					return false
				}
				c.buckets[plural] = append(c.buckets[plural], d)
			}
			return true
		})
		if parseErr != nil {
			return nil, parseErr
		}
		sortKeys(c.order)
	default:
		return nil, fmt.Errorf("%w: missing templates", ErrMalformed)
	}

	return c, nil
}

func decodeDescriptor(raw string, forced ...Type) (Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return Descriptor{}, err
	}
	if len(forced) > 0 {
		d.Type = forced[0]
	}
	d.Type = Type(singularKey(strings.ToLower(string(d.Type))))
	if err := validate.Struct(d); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// MarshalJSON writes the grouped form with buckets in iteration order.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if c.Version != "" {
		v, _ := json.Marshal(c.Version)
		buf.WriteString(`"version":`)
		buf.Write(v)
		buf.WriteByte(',')
	}
	buf.WriteString(`"templates":{`)
	for i, key := range c.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		items, err := json.Marshal(c.buckets[key])
		if err != nil {
			return nil, fmt.Errorf("marshaling %s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(items)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts either wire shape.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*c = *parsed
	return nil
}

// Marshal returns the indented grouped form. Equivalent catalogs always
// marshal to identical bytes.
func Marshal(c *Catalog) ([]byte, error) {
	compact, err := c.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, fmt.Errorf("indenting catalog: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func sortKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		pi, pj := priority(singularKey(keys[i])), priority(singularKey(keys[j]))
		if pi != pj {
			return pi < pj
		}
		return keys[i] < keys[j]
	})
}
