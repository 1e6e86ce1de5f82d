// CLAUDE:SUMMARY Scan event variants (progress, match, complete, error) emitted to the caller in order.
package scan

import "github.com/hazyhaar/waybackscan/extract"

// EventType tags the variant of an Event.
type EventType string

const (
	EventProgress EventType = "progress"
	EventMatch    EventType = "match"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Terminal and progress messages.
const (
	MsgNoSnapshots = "No snapshots found for this criteria."
	MsgComplete    = "Scan complete."
	MsgNoMatches   = "Scan finished. No matches found."
)

// Event is one unit of the outbound stream. Only the fields of its variant
// are set.
type Event struct {
	Type            EventType      `json:"type"`
	Message         string         `json:"message,omitempty"`
	CurrentSnapshot *int           `json:"currentSnapshot,omitempty"`
	TotalSnapshots  *int           `json:"totalSnapshots,omitempty"`
	Match           *extract.Match `json:"match,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// Progress returns a progress event without counters.
func Progress(msg string) Event {
	return Event{Type: EventProgress, Message: msg}
}

// ProgressAt returns a progress event carrying current/total counters.
func ProgressAt(msg string, current, total int) Event {
	return Event{Type: EventProgress, Message: msg, CurrentSnapshot: &current, TotalSnapshots: &total}
}

// MatchFound wraps m in a match event.
func MatchFound(m extract.Match) Event {
	return Event{Type: EventMatch, Match: &m}
}

// Complete returns a terminal complete event.
func Complete(msg string) Event {
	return Event{Type: EventComplete, Message: msg}
}

// Failed returns a terminal error event.
func Failed(err error) Event {
	return Event{Type: EventError, Error: err.Error()}
}

// Terminal reports whether e ends a scan.
func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// Emitter receives events in order. An error means the caller can no longer
// be reached; the scan stops at the next snapshot boundary.
type Emitter interface {
	Emit(Event) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event) error

func (f EmitterFunc) Emit(e Event) error { return f(e) }

// Collector is an Emitter that keeps every event in memory.
type Collector struct {
	Events []Event
}

func (c *Collector) Emit(e Event) error {
	c.Events = append(c.Events, e)
	return nil
}

// Matches returns the matches collected so far.
func (c *Collector) Matches() []extract.Match {
	var out []extract.Match
	for _, e := range c.Events {
		if e.Type == EventMatch && e.Match != nil {
			out = append(out, *e.Match)
		}
	}
	return out
}

// Last returns the last collected event, or the zero Event.
func (c *Collector) Last() Event {
	if len(c.Events) == 0 {
		return Event{}
	}
	return c.Events[len(c.Events)-1]
}
