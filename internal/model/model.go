package model

import "time"

// Event is one calendar appointment derived from a single schedule row.
//
// Start and End are wall-clock values on the same calendar date. They carry
// time.UTC only as a container; no timezone conversion is ever applied.
// End before Start is passed through unchanged.
type Event struct {
	// Row is the 1-based data row (header excluded) the event came from.
	Row int

	Subject     string
	Description string
	Location    string
	Private     bool

	Start time.Time
	End   time.Time
}

// Skip records why a row did not produce an Event.
type Skip struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
	Column string `json:"column,omitempty"` // set for missing-column and unparseable-field skips
	Value  string `json:"value,omitempty"`  // raw cell value, if any
}

// Batch is the ordered result of one conversion run.
type Batch struct {
	Events  []Event
	Skipped int
	Skips   []Skip
}

// Len returns the number of converted events.
func (b Batch) Len() int {
	return len(b.Events)
}

// Empty reports whether no row survived conversion.
func (b Batch) Empty() bool {
	return len(b.Events) == 0
}
