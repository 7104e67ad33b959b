package types

import (
	"github.com/pkg/errors"
)

var (
	ErrUnknownEvent = errors.New("unknown event")
)

// Event is the outcome of a finished round, used as the routing key of the
// transition table.
type Event string

const (
	EventDone         = Event("done")
	EventError        = Event("error")
	EventTransact     = Event("transact")
	EventNoMajority   = Event("no_majority")
	EventRoundTimeout = Event("round_timeout")
)

var allEvents = []Event{
	EventDone,
	EventError,
	EventTransact,
	EventNoMajority,
	EventRoundTimeout,
}

func (e Event) String() string {
	return string(e)
}

func (e Event) IsValid() bool {
	for _, known := range allEvents {
		if e == known {
			return true
		}
	}
	return false
}

// ParseEvent returns the event named s.
func ParseEvent(s string) (Event, error) {
	e := Event(s)
	if !e.IsValid() {
		return "", errors.Wrapf(ErrUnknownEvent, "%q", s)
	}
	return e, nil
}

// AllEvents returns every known event in declaration order.
func AllEvents() []Event {
	events := make([]Event, len(allEvents))
	copy(events, allEvents)
	return events
}
