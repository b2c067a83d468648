// Package pager loads pages of the employee collection and holds the page currently on display.
package pager

import (
	"github.com/st-keller/employee-client/hal"
)

// Employee is one record as fetched from its own resource.
// ETag is the concurrency token of the record at fetch time.
type Employee struct {
	Href       string
	ETag       string
	Attributes map[string]string
}

// Get returns the value of an attribute, or "" if the record has none.
func (e Employee) Get(name string) string {
	return e.Attributes[name]
}

// State is a complete, consistent page. A State is never modified once published.
type State struct {
	Page       hal.Page
	Employees  []Employee
	Attributes []string
	PageSize   int
	Links      hal.Links
	Generation uint64
}

// HasLink reports whether the page can navigate along rel.
func (s *State) HasLink(rel string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Links[rel]
	return ok
}

// Link returns the href for rel.
func (s *State) Link(rel string) (string, bool) {
	if s == nil {
		return "", false
	}
	link, ok := s.Links[rel]
	return link.Href, ok
}
