package logging

import (
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

const defaultMaxEntries = 100

// Entry is one captured log line.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     zapcore.Level  `json:"level"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
}

// Stats counts the captured entries per level.
type Stats struct {
	Total      int `json:"total_count"`
	Errors     int `json:"errors_count"`
	Warnings   int `json:"warnings_count"`
	Info       int `json:"info_count"`
	Debug      int `json:"debug_count"`
	MaxEntries int `json:"max_entries"`
}

type ring struct {
	mu          sync.Mutex
	entries     []Entry
	maxEntries  int
	triggerFunc func(Entry)
}

// Recent is a zapcore.Core keeping the last entries in memory, so an
// interactive front end can show them instead of writing to the terminal.
type Recent struct {
	zapcore.LevelEnabler
	ring   *ring
	fields []zapcore.Field
}

var _ zapcore.Core = (*Recent)(nil)

// NewRecent creates a buffer for up to maxEntries entries at or above level.
func NewRecent(level zapcore.LevelEnabler, maxEntries int) *Recent {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Recent{
		LevelEnabler: level,
		ring: &ring{
			entries:    make([]Entry, 0, maxEntries),
			maxEntries: maxEntries,
		},
	}
}

// SetTriggerFunc sets the function called after every warning or error.
func (r *Recent) SetTriggerFunc(fn func(Entry)) {
	r.ring.mu.Lock()
	defer r.ring.mu.Unlock()
	r.ring.triggerFunc = fn
}

// With implements zapcore.Core.
func (r *Recent) With(fields []zapcore.Field) zapcore.Core {
	return &Recent{
		LevelEnabler: r.LevelEnabler,
		ring:         r.ring,
		fields:       append(append([]zapcore.Field(nil), r.fields...), fields...),
	}
}

// Check implements zapcore.Core.
func (r *Recent) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if r.Enabled(ent.Level) {
		return ce.AddCore(ent, r)
	}
	return ce
}

// Write implements zapcore.Core.
func (r *Recent) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range r.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	entry := Entry{
		Timestamp: ent.Time.UTC(),
		Level:     ent.Level,
		Message:   ent.Message,
	}
	if len(enc.Fields) > 0 {
		entry.Context = enc.Fields
	}

	r.ring.mu.Lock()
	r.ring.entries = append(r.ring.entries, entry)
	if len(r.ring.entries) > r.ring.maxEntries {
		r.ring.entries = r.ring.entries[len(r.ring.entries)-r.ring.maxEntries:]
	}
	trigger := r.ring.triggerFunc
	r.ring.mu.Unlock()

	if trigger != nil && ent.Level >= zapcore.WarnLevel {
		trigger(entry)
	}
	return nil
}

// Sync implements zapcore.Core.
func (r *Recent) Sync() error { return nil }

// Entries returns the captured entries, oldest first.
func (r *Recent) Entries() []Entry {
	r.ring.mu.Lock()
	defer r.ring.mu.Unlock()
	return append([]Entry(nil), r.ring.entries...)
}

// Last returns the newest entry at or above level.
func (r *Recent) Last(level zapcore.Level) (Entry, bool) {
	r.ring.mu.Lock()
	defer r.ring.mu.Unlock()
	for i := len(r.ring.entries) - 1; i >= 0; i-- {
		if r.ring.entries[i].Level >= level {
			return r.ring.entries[i], true
		}
	}
	return Entry{}, false
}

// Stats counts the captured entries.
func (r *Recent) Stats() Stats {
	r.ring.mu.Lock()
	defer r.ring.mu.Unlock()

	s := Stats{Total: len(r.ring.entries), MaxEntries: r.ring.maxEntries}
	for _, entry := range r.ring.entries {
		switch {
		case entry.Level >= zapcore.ErrorLevel:
			s.Errors++
		case entry.Level == zapcore.WarnLevel:
			s.Warnings++
		case entry.Level == zapcore.InfoLevel:
			s.Info++
		default:
			s.Debug++
		}
	}
	return s
}
