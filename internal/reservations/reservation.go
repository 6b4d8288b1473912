// Package reservations implements the reservation reconciliation engine:
// date/slot canonicalization, availability resolution, registration with
// duplicate detection, and cancellation with archival.
package reservations

import "context"

// Status is the lifecycle state of a reservation row.
type Status string

const (
	StatusReserved  Status = "reserved"
	StatusCancelled Status = "cancelled"
)

// NoteNone is stored when the patron leaves the note empty.
const NoteNone = "none"

// Reservation is one row in the active table (or, with Status set to
// cancelled and CancelledAt populated, one row in the history log).
type Reservation struct {
	ID          string
	UserID      string
	Date        string
	TimeSlot    string
	Name        string
	Note        string
	CreatedAt   string
	Status      Status
	CancelledAt string
}

// Active reports whether the row still occupies its slot.
func (r Reservation) Active() bool {
	return r.Status == StatusReserved
}

// RowStore is the contract the engine requires from the external tabular
// store. Read-then-write is not atomic: callers must re-validate before
// writing. Registration appends rows; only cancellation rewrites the
// active set.
type RowStore interface {
	ReadAll(ctx context.Context) ([]Reservation, error)
	Append(ctx context.Context, records ...Reservation) error
	ReplaceAll(ctx context.Context, records []Reservation) error
	AppendHistory(ctx context.Context, record Reservation) error
}

// ScheduleSource yields the universe of bookable slots for a canonical
// date. The second return is false for closed days (no schedule entry at
// all), which is distinct from an open day with an empty slot list.
type ScheduleSource interface {
	SlotsForDate(date string) ([]string, bool)
}
