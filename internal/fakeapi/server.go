// Package fakeapi is an in-memory employee API for tests. It serves the same
// HAL documents, paging links, JSON schema profile, ETag/If-Match checks and
// STOMP notifications as the real payroll backend.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/st-keller/employee-client/update"
)

const defaultPageSize = 20

// Employee is a stored record.
type Employee struct {
	ID          int
	FirstName   string
	LastName    string
	Description string
	Version     int
}

// Server is a running fake API.
type Server struct {
	srv *httptest.Server

	mu          sync.Mutex
	employees   map[int]*Employee
	nextID      int
	failItems   map[int]int
	delayItems  map[int]time.Duration
	hits        map[string]int
	hideProfile bool

	broker *broker
}

// New starts a fake API on a loopback port.
func New() *Server {
	s := &Server{
		employees:  make(map[int]*Employee),
		nextID:     1,
		failItems:  make(map[int]int),
		delayItems: make(map[int]time.Duration),
		hits:       make(map[string]int),
		broker:     newBroker(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api", s.handleRoot)
	mux.HandleFunc("/api/employees", s.handleCollection)
	mux.HandleFunc("/api/employees/", s.handleItem)
	mux.HandleFunc("/api/profile/employees", s.handleProfile)
	mux.HandleFunc("/payroll/websocket", s.broker.serve)

	s.srv = httptest.NewServer(mux)
	return s
}

// Close stops the server and drops every broker connection.
func (s *Server) Close() {
	s.broker.closeAll()
	s.srv.Close()
}

// URL is the server's base address.
func (s *Server) URL() string { return s.srv.URL }

// APIRoot is the address of the API root resource.
func (s *Server) APIRoot() string { return s.srv.URL + "/api" }

// EventsURL is the WebSocket address of the STOMP broker.
func (s *Server) EventsURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/payroll/websocket"
}

// Client returns an HTTP client for the server.
func (s *Server) Client() *http.Client { return s.srv.Client() }

// Add stores an employee without publishing an event and returns its id.
func (s *Server) Add(firstName, lastName, description string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(firstName, lastName, description)
}

func (s *Server) addLocked(firstName, lastName, description string) int {
	id := s.nextID
	s.nextID++
	s.employees[id] = &Employee{ID: id, FirstName: firstName, LastName: lastName, Description: description}
	return id
}

// Seed stores n numbered employees.
func (s *Server) Seed(n int) {
	for i := 1; i <= n; i++ {
		s.Add(fmt.Sprintf("First%d", i), fmt.Sprintf("Last%d", i), fmt.Sprintf("Employee %d", i))
	}
}

// Get returns a copy of a stored employee.
func (s *Server) Get(id int) (Employee, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok {
		return Employee{}, false
	}
	return *e, true
}

// Count returns the number of stored employees.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.employees)
}

// Touch changes an employee behind the client's back, bumping its version.
func (s *Server) Touch(id int, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.employees[id]; ok {
		e.Description = description
		e.Version++
	}
}

// FailItem makes the next n GETs of an item answer 500.
func (s *Server) FailItem(id, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failItems[id] = n
}

// DelayItem delays every GET of an item.
func (s *Server) DelayItem(id int, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delayItems[id] = d
}

// HideProfile removes the profile link from collection pages.
func (s *Server) HideProfile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hideProfile = true
}

// Hits returns how many requests were made for "METHOD /path".
func (s *Server) Hits(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[key]
}

// Subscriptions returns the number of active STOMP subscriptions.
func (s *Server) Subscriptions() int {
	return s.broker.subscriptions()
}

// Connects returns how many WebSocket connections the broker has accepted.
func (s *Server) Connects() int {
	return int(s.broker.accepted.Load())
}

// DropConnections closes every broker connection abruptly.
func (s *Server) DropConnections() {
	s.broker.closeAll()
}

// Publish sends a notification to every subscriber of the kind's route.
func (s *Server) Publish(kind update.Kind, path string) {
	s.broker.publish(kind.Route(), path)
}

func (s *Server) record(r *http.Request) {
	s.mu.Lock()
	s.hits[r.Method+" "+r.URL.Path]++
	s.mu.Unlock()
}

func (s *Server) itemHref(id int) string {
	return fmt.Sprintf("%s/api/employees/%d", s.srv.URL, id)
}

func (s *Server) itemPath(id int) string {
	return fmt.Sprintf("/api/employees/%d", id)
}

func (s *Server) pageHref(page, size int) string {
	return fmt.Sprintf("%s/api/employees?page=%d&size=%d", s.srv.URL, page, size)
}

type link struct {
	Href      string `json:"href"`
	Templated bool   `json:"templated,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, "application/hal+json", map[string]any{
		"_links": map[string]link{
			"employees": {Href: s.srv.URL + "/api/employees{?page,size,sort}", Templated: true},
			"profile":   {Href: s.srv.URL + "/api/profile"},
		},
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	if r.Header.Get("Accept") != "application/schema+json" {
		http.Error(w, "only application/schema+json is served", http.StatusNotAcceptable)
		return
	}
	// properties is written by hand to keep its key order
	w.Header().Set("Content-Type", "application/schema+json")
	fmt.Fprint(w, `{"title":"Employee","properties":{`+
		`"firstName":{"title":"First name","readOnly":false,"type":"string"},`+
		`"lastName":{"title":"Last name","readOnly":false,"type":"string"},`+
		`"description":{"title":"Description","readOnly":false,"type":"string"}},`+
		`"definitions":{},"type":"object","$schema":"http://json-schema.org/draft-04/schema#"}`)
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	switch r.Method {
	case http.MethodGet:
		s.listPage(w, r)
	case http.MethodPost:
		s.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}

func (s *Server) listPage(w http.ResponseWriter, r *http.Request) {
	size, err := intParam(r, "size", defaultPageSize)
	if err == nil && size == 0 {
		size = defaultPageSize
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	page, err := intParam(r, "page", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	ids := make([]int, 0, len(s.employees))
	for id := range s.employees {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	total := len(ids)
	totalPages := (total + size - 1) / size
	from := page * size
	if from > total {
		from = total
	}
	to := from + size
	if to > total {
		to = total
	}

	items := make([]map[string]any, 0, to-from)
	for _, id := range ids[from:to] {
		items = append(items, s.itemBody(s.employees[id]))
	}
	hideProfile := s.hideProfile
	s.mu.Unlock()

	// paging relations follow the Spring HATEOAS rules: first/last whenever
	// there is more than one page, prev/next only where they exist
	links := map[string]link{
		"self": {Href: s.pageHref(page, size)},
	}
	hasPrev := page > 0
	hasNext := page+1 < totalPages
	if hasPrev || hasNext {
		links["first"] = link{Href: s.pageHref(0, size)}
		last := totalPages - 1
		if last < 0 {
			last = 0
		}
		links["last"] = link{Href: s.pageHref(last, size)}
	}
	if hasPrev {
		links["prev"] = link{Href: s.pageHref(page-1, size)}
	}
	if hasNext {
		links["next"] = link{Href: s.pageHref(page+1, size)}
	}
	if !hideProfile {
		links["profile"] = link{Href: s.srv.URL + "/api/profile/employees"}
	}

	writeJSON(w, http.StatusOK, "application/hal+json", map[string]any{
		"_embedded": map[string]any{"employees": items},
		"_links":    links,
		"page": map[string]int{
			"size":          size,
			"totalElements": total,
			"totalPages":    totalPages,
			"number":        page,
		},
	})
}

func (s *Server) itemBody(e *Employee) map[string]any {
	return map[string]any{
		"firstName":   e.FirstName,
		"lastName":    e.LastName,
		"description": e.Description,
		"_links": map[string]link{
			"self":     {Href: s.itemHref(e.ID)},
			"employee": {Href: s.itemHref(e.ID)},
		},
	}
}

func etag(e *Employee) string {
	return `"` + strconv.Itoa(e.Version) + `"`
}

type employeeInput struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Description string `json:"description"`
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		http.Error(w, "unsupported content type "+ct, http.StatusUnsupportedMediaType)
		return
	}
	var in employeeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	id := s.addLocked(in.FirstName, in.LastName, in.Description)
	e := *s.employees[id]
	s.mu.Unlock()

	w.Header().Set("Location", s.itemHref(id))
	w.Header().Set("ETag", etag(&e))
	writeJSON(w, http.StatusCreated, "application/hal+json", s.itemBody(&e))
	s.Publish(update.Created, s.itemPath(id))
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/api/employees/"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getItem(w, id)
	case http.MethodPut:
		s.putItem(w, r, id)
	case http.MethodDelete:
		s.deleteItem(w, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) getItem(w http.ResponseWriter, id int) {
	s.mu.Lock()
	delay := s.delayItems[id]
	fail := s.failItems[id] > 0
	if fail {
		s.failItems[id]--
	}
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		http.Error(w, "item unavailable", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	e, ok := s.employees[id]
	var snapshot Employee
	if ok {
		snapshot = *e
	}
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, nil)
		return
	}
	w.Header().Set("ETag", etag(&snapshot))
	writeJSON(w, http.StatusOK, "application/hal+json", s.itemBody(&snapshot))
}

func (s *Server) putItem(w http.ResponseWriter, r *http.Request, id int) {
	var in employeeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	e, ok := s.employees[id]
	if !ok {
		s.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	if match := r.Header.Get("If-Match"); match != "" && match != etag(e) {
		s.mu.Unlock()
		http.Error(w, "version mismatch", http.StatusPreconditionFailed)
		return
	}
	e.FirstName, e.LastName, e.Description = in.FirstName, in.LastName, in.Description
	e.Version++
	snapshot := *e
	s.mu.Unlock()

	w.Header().Set("ETag", etag(&snapshot))
	writeJSON(w, http.StatusOK, "application/hal+json", s.itemBody(&snapshot))
	s.Publish(update.Updated, s.itemPath(id))
}

func (s *Server) deleteItem(w http.ResponseWriter, id int) {
	s.mu.Lock()
	_, ok := s.employees[id]
	delete(s.employees, id)
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	s.Publish(update.Deleted, s.itemPath(id))
}
