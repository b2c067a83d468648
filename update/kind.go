// Package update defines the change notifications pushed by the server.
package update

import (
	"fmt"
	"time"
)

// TopicPrefix is prepended to every broker destination.
const TopicPrefix = "/topic"

// Kind is the kind of change a notification announces.
type Kind int

const (
	Created Kind = iota + 1
	Updated
	Deleted
)

// Route returns the broker destination of the kind.
func (k Kind) Route() string {
	switch k {
	case Created:
		return TopicPrefix + "/newEmployee"
	case Updated:
		return TopicPrefix + "/updateEmployee"
	case Deleted:
		return TopicPrefix + "/deleteEmployee"
	default:
		panic(fmt.Sprintf("invalid update.Kind: %d", k))
	}
}

// String returns string representation.
func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("Invalid(%d)", int(k))
	}
}

// Kinds lists every kind in subscription order.
func Kinds() []Kind {
	return []Kind{Created, Updated, Deleted}
}

// KindForRoute maps a destination back to its kind.
func KindForRoute(route string) (Kind, bool) {
	for _, k := range Kinds() {
		if k.Route() == route {
			return k, true
		}
	}
	return 0, false
}

// Event is one notification as delivered by the event channel.
// Payload is the path of the affected item; it is informational only.
type Event struct {
	Kind       Kind
	Route      string
	Payload    string
	ReceivedAt time.Time
}

// NewEvent builds an event for a route, resolving its kind if known.
func NewEvent(route, payload string) Event {
	kind, _ := KindForRoute(route)
	return Event{
		Kind:       kind,
		Route:      route,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}
}
