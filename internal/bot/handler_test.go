package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/moritahq/clinic-reserve-bot/internal/reservations"
	"github.com/moritahq/clinic-reserve-bot/pkg/logging"
)

type registerCall struct {
	userID, date, slot, name, note string
}

type cancelCall struct {
	userID, reservationID, date, slot string
}

type stubRepo struct {
	availability func(date string) (reservations.Availability, error)
	register     func(userID, date, slot, name, note string) (*reservations.Reservation, error)
	cancel       func(userID, reservationID, date, slot string) (*reservations.Reservation, error)
	list         func(date string) ([]reservations.Reservation, error)

	registerCalls []registerCall
	cancelCalls   []cancelCall
}

func (s *stubRepo) Availability(_ context.Context, date string) (reservations.Availability, error) {
	if s.availability == nil {
		return reservations.Availability{}, reservations.ErrInvalidDate
	}
	return s.availability(date)
}

func (s *stubRepo) Register(_ context.Context, userID, date, slot, name, note string) (*reservations.Reservation, error) {
	s.registerCalls = append(s.registerCalls, registerCall{userID, date, slot, name, note})
	if s.register == nil {
		return &reservations.Reservation{ID: "abc123def456", UserID: userID, Date: date, TimeSlot: slot, Name: name, Note: note}, nil
	}
	return s.register(userID, date, slot, name, note)
}

func (s *stubRepo) Cancel(_ context.Context, userID, reservationID, date, slot string) (*reservations.Reservation, error) {
	s.cancelCalls = append(s.cancelCalls, cancelCall{userID, reservationID, date, slot})
	if s.cancel == nil {
		return &reservations.Reservation{ID: reservationID, UserID: userID, Date: date, TimeSlot: slot, Name: "Taro"}, nil
	}
	return s.cancel(userID, reservationID, date, slot)
}

func (s *stubRepo) ListByDate(_ context.Context, date string) ([]reservations.Reservation, error) {
	if s.list == nil {
		return nil, nil
	}
	return s.list(date)
}

func openDay(slots ...string) func(string) (reservations.Availability, error) {
	return func(date string) (reservations.Availability, error) {
		canonical, err := reservations.NormalizeDate(date)
		if err != nil {
			return reservations.Availability{}, err
		}
		return reservations.Availability{Date: canonical, Open: true, Slots: slots}, nil
	}
}

func newTestHandler(repo *stubRepo) *Handler {
	h := NewHandler(repo, NewSessionStore(30*time.Minute), logging.New("error"))
	h.now = func() time.Time { return time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC) }
	return h
}

func TestHandleMessageUnknownInput(t *testing.T) {
	h := newTestHandler(&stubRepo{})
	reply := h.HandleMessage(context.Background(), "u1", "hello there")
	if reply != replyHelp {
		t.Fatalf("reply = %q", reply)
	}
	if reply := h.HandleMessage(context.Background(), "u1", "  "); reply != replyHelp {
		t.Fatalf("blank input reply = %q", reply)
	}
}

func TestAvailableCommand(t *testing.T) {
	repo := &stubRepo{availability: openDay("10:00-10:30", "11:00-11:30")}
	h := newTestHandler(repo)

	reply := h.HandleMessage(context.Background(), "u1", "available 2025/9/11")
	if !strings.Contains(reply, "2025/09/11") || !strings.Contains(reply, "1. 10:00-10:30") || !strings.Contains(reply, "2. 11:00-11:30") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestAvailableCommandDefaultsToToday(t *testing.T) {
	var asked string
	repo := &stubRepo{availability: func(date string) (reservations.Availability, error) {
		asked = date
		return reservations.Availability{Date: date, Open: false}, nil
	}}
	h := newTestHandler(repo)

	reply := h.HandleMessage(context.Background(), "u1", "available")
	if asked != "2025/09/01" {
		t.Fatalf("asked = %q", asked)
	}
	if !strings.Contains(reply, "closed") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestAvailableCommandFullyBooked(t *testing.T) {
	repo := &stubRepo{availability: openDay()}
	h := newTestHandler(repo)

	reply := h.HandleMessage(context.Background(), "u1", "available 2025/09/11")
	if !strings.Contains(reply, "fully booked") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestListCommand(t *testing.T) {
	repo := &stubRepo{list: func(date string) ([]reservations.Reservation, error) {
		return []reservations.Reservation{
			{ID: "id1", Date: "2025/09/11", TimeSlot: "10:00-10:30", Name: "Taro", Note: "none"},
		}, nil
	}}
	h := newTestHandler(repo)

	reply := h.HandleMessage(context.Background(), "u1", "list 2025/09/11")
	if !strings.Contains(reply, "10:00-10:30 | Taro | none | ID: id1") {
		t.Fatalf("reply = %q", reply)
	}

	repo.list = func(string) ([]reservations.Reservation, error) { return nil, nil }
	reply = h.HandleMessage(context.Background(), "u1", "list 2025/09/11")
	if !strings.Contains(reply, "No reservations") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestBookingDialogWalkthrough(t *testing.T) {
	repo := &stubRepo{availability: openDay("10:00-10:30", "11:00-11:30")}
	h := newTestHandler(repo)
	ctx := context.Background()

	if reply := h.HandleMessage(ctx, "u1", "reserve"); reply != replyAskDate {
		t.Fatalf("start reply = %q", reply)
	}

	reply := h.HandleMessage(ctx, "u1", "2025-9-11")
	if !strings.Contains(reply, "1. 10:00-10:30") {
		t.Fatalf("slot list reply = %q", reply)
	}

	// Out-of-range ordinal re-prompts with the same list.
	reply = h.HandleMessage(ctx, "u1", "5")
	if !strings.Contains(reply, "between 1 and 2") || !strings.Contains(reply, "1. 10:00-10:30") {
		t.Fatalf("bad ordinal reply = %q", reply)
	}

	reply = h.HandleMessage(ctx, "u1", "2")
	if !strings.Contains(reply, "11:00-11:30") || !strings.Contains(reply, "2025/09/11") {
		t.Fatalf("ask name reply = %q", reply)
	}

	if reply := h.HandleMessage(ctx, "u1", "Taro Yamada"); reply != replyAskNote {
		t.Fatalf("ask note reply = %q", reply)
	}

	reply = h.HandleMessage(ctx, "u1", "-")
	if !strings.Contains(reply, "Booked:") {
		t.Fatalf("confirm reply = %q", reply)
	}

	if len(repo.registerCalls) != 1 {
		t.Fatalf("register calls = %d", len(repo.registerCalls))
	}
	call := repo.registerCalls[0]
	want := registerCall{userID: "u1", date: "2025/09/11", slot: "11:00-11:30", name: "Taro Yamada", note: ""}
	if call != want {
		t.Fatalf("register call = %+v, want %+v", call, want)
	}

	if h.Sessions().Len() != 0 {
		t.Fatal("session should be cleared after commit")
	}
}

func TestBookingDialogBadDateReprompts(t *testing.T) {
	repo := &stubRepo{availability: openDay("10:00-10:30")}
	h := newTestHandler(repo)
	ctx := context.Background()

	h.HandleMessage(ctx, "u1", "reserve")
	if reply := h.HandleMessage(ctx, "u1", "next tuesday"); reply != replyBadDate {
		t.Fatalf("reply = %q", reply)
	}

	// The dialog is still waiting for a date.
	reply := h.HandleMessage(ctx, "u1", "2025/09/11")
	if !strings.Contains(reply, "1. 10:00-10:30") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestBookingDialogClosedDateReprompts(t *testing.T) {
	repo := &stubRepo{availability: func(date string) (reservations.Availability, error) {
		canonical, err := reservations.NormalizeDate(date)
		if err != nil {
			return reservations.Availability{}, err
		}
		if canonical == "2025/09/14" {
			return reservations.Availability{Date: canonical, Open: false}, nil
		}
		return reservations.Availability{Date: canonical, Open: true, Slots: []string{"10:00-10:30"}}, nil
	}}
	h := newTestHandler(repo)
	ctx := context.Background()

	h.HandleMessage(ctx, "u1", "reserve")
	reply := h.HandleMessage(ctx, "u1", "2025/09/14")
	if !strings.Contains(reply, "closed") || !strings.Contains(reply, "another date") {
		t.Fatalf("reply = %q", reply)
	}

	reply = h.HandleMessage(ctx, "u1", "2025/09/15")
	if !strings.Contains(reply, "1. 10:00-10:30") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestSlotOptionsPinnedAgainstStoreChanges(t *testing.T) {
	repo := &stubRepo{availability: openDay("10:00-10:30", "11:00-11:30")}
	h := newTestHandler(repo)
	ctx := context.Background()

	h.HandleMessage(ctx, "u1", "reserve")
	h.HandleMessage(ctx, "u1", "2025/09/11")

	// The store changes after the list was shown; the ordinal must keep
	// resolving against what the user saw.
	repo.availability = openDay("11:00-11:30")

	h.HandleMessage(ctx, "u1", "2")
	h.HandleMessage(ctx, "u1", "Taro")
	h.HandleMessage(ctx, "u1", "-")

	if len(repo.registerCalls) != 1 || repo.registerCalls[0].slot != "11:00-11:30" {
		t.Fatalf("register calls = %+v", repo.registerCalls)
	}
}

func TestCommandMidFlowResetsSession(t *testing.T) {
	repo := &stubRepo{availability: openDay("10:00-10:30")}
	h := newTestHandler(repo)
	ctx := context.Background()

	h.HandleMessage(ctx, "u1", "reserve")
	h.HandleMessage(ctx, "u1", "2025/09/11")

	// A fresh command abandons the booking flow entirely.
	if reply := h.HandleMessage(ctx, "u1", "cancel"); reply != replyAskCancelDate {
		t.Fatalf("reply = %q", reply)
	}
	sess, ok := h.Sessions().Get("u1")
	if !ok || sess.Step != StepAwaitingCancelDate {
		t.Fatalf("session = %+v ok=%v", sess, ok)
	}
}

func TestCommitErrorEndsSession(t *testing.T) {
	repo := &stubRepo{
		availability: openDay("10:00-10:30"),
		register: func(_, _, _, _, _ string) (*reservations.Reservation, error) {
			return nil, reservations.ErrDuplicateBooking
		},
	}
	h := newTestHandler(repo)
	ctx := context.Background()

	h.HandleMessage(ctx, "u1", "reserve")
	h.HandleMessage(ctx, "u1", "2025/09/11")
	h.HandleMessage(ctx, "u1", "1")
	h.HandleMessage(ctx, "u1", "Taro")

	if reply := h.HandleMessage(ctx, "u1", "-"); reply != replyDuplicate {
		t.Fatalf("reply = %q", reply)
	}
	if h.Sessions().Len() != 0 {
		t.Fatal("failed commit should still clear the session")
	}
	// Follow-up text gets the help reply, not a dialog step.
	if reply := h.HandleMessage(ctx, "u1", "1"); reply != replyHelp {
		t.Fatalf("reply = %q", reply)
	}
}

func TestCancelDialogWalkthrough(t *testing.T) {
	records := []reservations.Reservation{
		{ID: "idA", UserID: "u1", Date: "2025/09/11", TimeSlot: "10:00-10:30", Name: "Taro", Note: "none"},
		{ID: "idB", UserID: "u1", Date: "2025/09/11", TimeSlot: "11:00-11:30", Name: "Taro", Note: "checkup"},
	}
	repo := &stubRepo{list: func(date string) ([]reservations.Reservation, error) {
		if _, err := reservations.NormalizeDate(date); err != nil {
			return nil, err
		}
		return records, nil
	}}
	h := newTestHandler(repo)
	ctx := context.Background()

	h.HandleMessage(ctx, "u1", "cancel")

	reply := h.HandleMessage(ctx, "u1", "2025/09/11")
	if !strings.Contains(reply, "1. 10:00-10:30") || !strings.Contains(reply, "2. 11:00-11:30") {
		t.Fatalf("candidate list reply = %q", reply)
	}

	reply = h.HandleMessage(ctx, "u1", "2")
	if !strings.Contains(reply, "Cancelled:") {
		t.Fatalf("reply = %q", reply)
	}

	if len(repo.cancelCalls) != 1 {
		t.Fatalf("cancel calls = %d", len(repo.cancelCalls))
	}
	call := repo.cancelCalls[0]
	want := cancelCall{userID: "u1", reservationID: "idB", date: "2025/09/11", slot: "11:00-11:30"}
	if call != want {
		t.Fatalf("cancel call = %+v, want %+v", call, want)
	}
	if h.Sessions().Len() != 0 {
		t.Fatal("session should be cleared after cancellation")
	}
}

func TestCancelDialogNoReservations(t *testing.T) {
	repo := &stubRepo{list: func(date string) ([]reservations.Reservation, error) {
		if _, err := reservations.NormalizeDate(date); err != nil {
			return nil, err
		}
		return nil, nil
	}}
	h := newTestHandler(repo)
	ctx := context.Background()

	h.HandleMessage(ctx, "u1", "cancel")
	reply := h.HandleMessage(ctx, "u1", "2025/09/11")
	if !strings.Contains(reply, "No reservations") {
		t.Fatalf("reply = %q", reply)
	}
	if h.Sessions().Len() != 0 {
		t.Fatal("empty candidate list should end the dialog")
	}
}

func TestInlineReserve(t *testing.T) {
	repo := &stubRepo{}
	h := newTestHandler(repo)
	ctx := context.Background()

	reply := h.HandleMessage(ctx, "u1", "reserve 2025/09/11 10:00-10:30 Taro first visit")
	if !strings.Contains(reply, "Booked:") {
		t.Fatalf("reply = %q", reply)
	}
	call := repo.registerCalls[0]
	if call.date != "2025/09/11" || call.slot != "10:00-10:30" || call.name != "Taro" || call.note != "first visit" {
		t.Fatalf("register call = %+v", call)
	}
	if h.Sessions().Len() != 0 {
		t.Fatal("inline reserve should not leave a session")
	}
}

func TestInlineReserveUsage(t *testing.T) {
	h := newTestHandler(&stubRepo{})
	reply := h.HandleMessage(context.Background(), "u1", "reserve 2025/09/11")
	if reply != replyReserveUsage {
		t.Fatalf("reply = %q", reply)
	}
}
