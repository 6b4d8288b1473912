package reservations

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/moritahq/clinic-reserve-bot/pkg/logging"
)

// reservationIDLength is the truncated hex length of the SHA-256 based
// reservation ID. At clinic booking volume the collision probability is
// negligible and is not actively checked.
const reservationIDLength = 12

// Service owns availability resolution and the register/cancel/list
// operations on top of the row store and schedule source. The store is
// not transactional: Register re-validates availability immediately
// before appending, and Cancel archives to history before rewriting the
// active set.
type Service struct {
	store    RowStore
	schedule ScheduleSource
	logger   *logging.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService constructs a reservation service.
func NewService(store RowStore, schedule ScheduleSource, logger *logging.Logger) *Service {
	if store == nil {
		panic("reservations: row store required")
	}
	if schedule == nil {
		panic("reservations: schedule source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:    store,
		schedule: schedule,
		logger:   logger,
		tracer:   otel.Tracer("clinic-reserve-bot/reservations"),
		now:      time.Now,
	}
}

// Availability is the free-slot outcome for one date. Open is false on
// closed days; an open day with no free slots is fully booked. The two
// must never be conflated.
type Availability struct {
	Date  string
	Open  bool
	Slots []string
}

// Availability computes the free slots for a date as the set difference
// between the scheduled universe and currently active bookings, in
// schedule order.
func (s *Service) Availability(ctx context.Context, date string) (Availability, error) {
	canonical, err := NormalizeDate(date)
	if err != nil {
		return Availability{}, err
	}

	universe, open := s.schedule.SlotsForDate(canonical)
	if !open {
		return Availability{Date: canonical, Open: false}, nil
	}

	rows, err := s.store.ReadAll(ctx)
	if err != nil {
		return Availability{}, fmt.Errorf("%w: %v", ErrStoreRead, err)
	}

	return Availability{
		Date:  canonical,
		Open:  true,
		Slots: freeSlots(universe, rows, canonical),
	}, nil
}

// Register validates, deduplicates and appends one reserved row. The
// availability re-check runs against a fresh read just before the write;
// it is the primary defense against two patrons racing for one slot.
func (s *Service) Register(ctx context.Context, userID, date, slot, name, note string) (*Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "reservations.register")
	defer span.End()

	canonicalDate, err := NormalizeDate(date)
	if err != nil {
		return nil, err
	}
	canonicalSlot := NormalizeSlot(slot)
	if !IsCanonicalSlot(canonicalSlot) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	span.SetAttributes(
		attribute.String("reserve.date", canonicalDate),
		attribute.String("reserve.slot", canonicalSlot),
	)

	rows, err := s.store.ReadAll(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrStoreRead, err)
	}

	// Duplicate check first: the user's own active booking would otherwise
	// surface as a generic unavailable-slot rejection.
	for _, r := range rows {
		if r.Active() && r.UserID == userID && r.Date == canonicalDate && NormalizeSlot(r.TimeSlot) == canonicalSlot {
			return nil, fmt.Errorf("%w: %s %s", ErrDuplicateBooking, canonicalDate, canonicalSlot)
		}
	}

	universe, open := s.schedule.SlotsForDate(canonicalDate)
	if !open || !containsSlot(freeSlots(universe, rows, canonicalDate), canonicalSlot) {
		return nil, fmt.Errorf("%w: %s %s", ErrSlotUnavailable, canonicalDate, canonicalSlot)
	}

	if note == "" {
		note = NoteNone
	}
	now := s.now()
	record := Reservation{
		ID:        newReservationID(userID, canonicalDate, canonicalSlot, now),
		UserID:    userID,
		Date:      canonicalDate,
		TimeSlot:  canonicalSlot,
		Name:      name,
		Note:      note,
		CreatedAt: now.Format(dateLayout),
		Status:    StatusReserved,
	}
	if err := s.store.Append(ctx, record); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	s.logger.Info("reservation registered",
		"reservation_id", record.ID,
		"user_id", userID,
		"date", canonicalDate,
		"slot", canonicalSlot,
	)
	return &record, nil
}

// Cancel locates the unique active row matching the (id, date, slot)
// triple exactly, archives a cancelled copy to the history log, and only
// then rewrites the active set without it. A crash between the two writes
// leaves the row archived and still active, never gone without a trace.
func (s *Service) Cancel(ctx context.Context, userID, reservationID, date, slot string) (*Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "reservations.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("reserve.reservation_id", reservationID))

	canonicalDate, err := NormalizeDate(date)
	if err != nil {
		return nil, err
	}
	canonicalSlot := NormalizeSlot(slot)

	rows, err := s.store.ReadAll(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrStoreRead, err)
	}

	matched := -1
	for i, r := range rows {
		if r.Active() && r.ID == reservationID && r.Date == canonicalDate && NormalizeSlot(r.TimeSlot) == canonicalSlot {
			matched = i
			break
		}
	}
	if matched < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, reservationID)
	}

	archived := rows[matched]
	archived.Status = StatusCancelled
	archived.CancelledAt = s.now().Format(dateTimeLayout)
	if err := s.store.AppendHistory(ctx, archived); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: history append: %v", ErrStoreWrite, err)
	}

	remaining := make([]Reservation, 0, len(rows)-1)
	remaining = append(remaining, rows[:matched]...)
	remaining = append(remaining, rows[matched+1:]...)
	if err := s.store.ReplaceAll(ctx, remaining); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: active rewrite: %v", ErrStoreWrite, err)
	}

	s.logger.Info("reservation cancelled",
		"reservation_id", archived.ID,
		"user_id", userID,
		"date", canonicalDate,
		"slot", archived.TimeSlot,
	)
	return &archived, nil
}

// ListByDate returns the active reservations for a date, canonical slot
// ascending.
func (s *Service) ListByDate(ctx context.Context, date string) ([]Reservation, error) {
	canonicalDate, err := NormalizeDate(date)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreRead, err)
	}

	var matches []Reservation
	for _, r := range rows {
		if r.Active() && r.Date == canonicalDate {
			matches = append(matches, r)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return NormalizeSlot(matches[i].TimeSlot) < NormalizeSlot(matches[j].TimeSlot)
	})
	return matches, nil
}

// freeSlots filters the scheduled universe down to slots with no active
// reservation, preserving schedule order.
func freeSlots(universe []string, rows []Reservation, date string) []string {
	reserved := make(map[string]struct{})
	for _, r := range rows {
		if r.Active() && r.Date == date {
			reserved[NormalizeSlot(r.TimeSlot)] = struct{}{}
		}
	}
	free := make([]string, 0, len(universe))
	for _, slot := range universe {
		if _, taken := reserved[NormalizeSlot(slot)]; !taken {
			free = append(free, NormalizeSlot(slot))
		}
	}
	return free
}

func containsSlot(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}

func newReservationID(userID, date, slot string, at time.Time) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%d", userID, date, slot, at.UnixNano()))
	return hex.EncodeToString(sum[:])[:reservationIDLength]
}
