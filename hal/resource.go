// Package hal parses HAL responses and follows relation links between them.
package hal

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/yosida95/uritemplate/v3"
)

// Relation names used for collection paging.
const (
	RelSelf    = "self"
	RelFirst   = "first"
	RelPrev    = "prev"
	RelNext    = "next"
	RelLast    = "last"
	RelProfile = "profile"
)

// Link is a single HAL link object.
type Link struct {
	Href      string `json:"href"`
	Templated bool   `json:"templated,omitempty"`
}

// Expand substitutes params into the link's template slots. Params without
// a slot, or any params on a plain href, are set as query parameters.
func (l Link) Expand(params map[string]string) (string, error) {
	href := l.Href
	rest := make(map[string]string, len(params))
	for k, v := range params {
		rest[k] = v
	}

	if l.Templated {
		tmpl, err := uritemplate.New(l.Href)
		if err != nil {
			return "", fmt.Errorf("invalid link template %q: %w", l.Href, err)
		}
		values := uritemplate.Values{}
		for _, name := range tmpl.Varnames() {
			if v, ok := rest[name]; ok {
				values.Set(name, uritemplate.String(v))
				delete(rest, name)
			}
		}
		href, err = tmpl.Expand(values)
		if err != nil {
			return "", fmt.Errorf("expand link template %q: %w", l.Href, err)
		}
	}

	if len(rest) == 0 {
		return href, nil
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", href, err)
	}
	q := u.Query()
	for k, v := range rest {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Links maps relation names to links.
type Links map[string]Link

// Get returns the link for rel.
func (l Links) Get(rel string) (Link, bool) {
	link, ok := l[rel]
	return link, ok
}

// Rels returns the relation names in sorted order.
func (l Links) Rels() []string {
	rels := make([]string, 0, len(l))
	for rel := range l {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	return rels
}

// Page is the paging block of a collection resource.
type Page struct {
	Number        int `json:"number"`
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
}

// Resource is a parsed HAL representation.
type Resource struct {
	URL   string
	ETag  string
	Links Links
	Body  []byte

	doc gjson.Result
}

// Parse builds a Resource from a response body. url is the address the body was fetched from.
func Parse(url string, header http.Header, body []byte) (*Resource, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("response from %s is not valid JSON", url)
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, fmt.Errorf("response from %s is not a JSON object", url)
	}

	res := &Resource{
		URL:   url,
		Links: parseLinks(doc.Get("_links")),
		Body:  body,
		doc:   doc,
	}
	if header != nil {
		res.ETag = header.Get("ETag")
	}
	return res, nil
}

func parseLinks(raw gjson.Result) Links {
	links := Links{}
	raw.ForEach(func(rel, value gjson.Result) bool {
		// a relation may carry an array of links; the first one wins
		if value.IsArray() {
			value = value.Get("0")
		}
		href := value.Get("href")
		if href.Exists() {
			links[rel.String()] = Link{
				Href:      href.String(),
				Templated: value.Get("templated").Bool(),
			}
		}
		return true
	})
	return links
}

// Get returns the value at a gjson path of the body.
func (r *Resource) Get(path string) gjson.Result {
	return r.doc.Get(path)
}

// Page returns the paging block, if the resource has one.
func (r *Resource) Page() (Page, bool) {
	p := r.doc.Get("page")
	if !p.Exists() {
		return Page{}, false
	}
	return Page{
		Number:        int(p.Get("number").Int()),
		Size:          int(p.Get("size").Int()),
		TotalElements: int(p.Get("totalElements").Int()),
		TotalPages:    int(p.Get("totalPages").Int()),
	}, true
}

// Embedded returns the resources embedded under rel, in server order.
func (r *Resource) Embedded(rel string) []*Resource {
	items := r.doc.Get("_embedded").Get(gjson.Escape(rel))
	if !items.Exists() {
		return nil
	}
	if !items.IsArray() {
		return []*Resource{r.embedded(items)}
	}
	arr := items.Array()
	out := make([]*Resource, 0, len(arr))
	for _, item := range arr {
		out = append(out, r.embedded(item))
	}
	return out
}

func (r *Resource) embedded(item gjson.Result) *Resource {
	return &Resource{
		URL:   r.URL,
		Links: parseLinks(item.Get("_links")),
		Body:  []byte(item.Raw),
		doc:   item,
	}
}

// Properties returns the top-level scalar fields of the body as strings.
// Reserved HAL members (_links, _embedded) and nested objects are skipped.
func (r *Resource) Properties() map[string]string {
	props := make(map[string]string)
	r.doc.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if name == "_links" || name == "_embedded" {
			return true
		}
		if value.IsObject() || value.IsArray() {
			return true
		}
		if value.Type == gjson.Null {
			props[name] = ""
			return true
		}
		props[name] = value.String()
		return true
	})
	return props
}
