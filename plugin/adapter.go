package plugin

/*

	The Adapter sits aside /ritornello/
	Contains core interfaces for Plugin

*/

import (
	"time"

	Mt "github.com/maroda/ritornello/types"
)

// EventJournal defines a place for ingested events to go, one at a
// time or in batches if supported by the journal type. The core never
// persists anything itself; a journal is the caller's durability,
// replayable into a fresh RhythmSet at startup.
type EventJournal interface {
	WriteEvent(ev *Mt.Event) error                        // Write singleton event data
	WriteBatch(evs []*Mt.Event) error                     // Write batches of events
	QueryRange(start, end time.Time) ([]*Mt.Event, error) // Time range query tool
	Replay(fn func(ev *Mt.Event) error) error             // Walk the journal oldest-first
	Flush() error                                         // Flush any buffered data
	Close() error                                         // Close the journal and release resources
	Type() string                                         // ID for the journal
}
