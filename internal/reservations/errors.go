package reservations

import "errors"

var (
	// ErrInvalidDate indicates date text that could not be canonicalized.
	ErrInvalidDate = errors.New("reservations: invalid date")
	// ErrInvalidSlot indicates text with no recognizable start/end time pair.
	ErrInvalidSlot = errors.New("reservations: invalid time slot")
	// ErrSlotUnavailable indicates the slot is not in the freshly computed
	// free set for the date (booked by someone else, outside the schedule,
	// or the clinic is closed that day).
	ErrSlotUnavailable = errors.New("reservations: slot unavailable")
	// ErrDuplicateBooking indicates the user already holds an active
	// reservation for the same date and slot.
	ErrDuplicateBooking = errors.New("reservations: duplicate booking")
	// ErrNotFound indicates no active row matched the cancellation target.
	ErrNotFound = errors.New("reservations: reservation not found")
	// ErrStoreRead wraps collaborator failures while reading rows.
	ErrStoreRead = errors.New("reservations: store read failed")
	// ErrStoreWrite wraps collaborator failures while writing rows.
	ErrStoreWrite = errors.New("reservations: store write failed")
)
