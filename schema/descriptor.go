// Package schema describes the shape of employee records as announced by the API's profile link.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Descriptor is the ordered set of attribute names of a record.
// Attribute names come from the keys of the schema's "properties" object, in document order.
type Descriptor struct {
	Title      string
	Attributes []string

	index map[string]struct{}
}

// New creates a descriptor from attribute names. Duplicates are dropped.
func New(title string, attributes ...string) *Descriptor {
	d := &Descriptor{
		Title: title,
		index: make(map[string]struct{}, len(attributes)),
	}
	for _, name := range attributes {
		if _, dup := d.index[name]; dup {
			continue
		}
		d.index[name] = struct{}{}
		d.Attributes = append(d.Attributes, name)
	}
	return d
}

// Parse reads a JSON schema document.
func Parse(body []byte) (*Descriptor, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("schema is not valid JSON")
	}
	doc := gjson.ParseBytes(body)
	props := doc.Get("properties")
	if !props.IsObject() {
		return nil, fmt.Errorf("schema has no properties")
	}

	var names []string
	props.ForEach(func(key, _ gjson.Result) bool {
		names = append(names, key.String())
		return true
	})
	return New(doc.Get("title").String(), names...), nil
}

// Has reports whether name is a known attribute.
func (d *Descriptor) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Validate rejects values whose keys are not attributes of the record.
func (d *Descriptor) Validate(values map[string]string) error {
	var unknown []string
	for name := range values {
		if !d.Has(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown attributes %s (known: %s)",
			strings.Join(unknown, ", "), strings.Join(d.Attributes, ", "))
	}
	return nil
}
