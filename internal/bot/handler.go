// Package bot drives the multi-turn booking and cancellation dialogs as
// an explicit per-user state machine on top of the reservation engine.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/moritahq/clinic-reserve-bot/internal/reservations"
	"github.com/moritahq/clinic-reserve-bot/pkg/logging"
)

// Command vocabulary. Numeric strings are interpreted as ordinals only
// while a session is awaiting a selection.
const (
	cmdReserve   = "reserve"
	cmdCancel    = "cancel"
	cmdList      = "list"
	cmdAvailable = "available"
)

const dateLayout = "2006/01/02"

// Repository is the slice of the reservation engine the dialogs need.
type Repository interface {
	Availability(ctx context.Context, date string) (reservations.Availability, error)
	Register(ctx context.Context, userID, date, slot, name, note string) (*reservations.Reservation, error)
	Cancel(ctx context.Context, userID, reservationID, date, slot string) (*reservations.Reservation, error)
	ListByDate(ctx context.Context, date string) ([]reservations.Reservation, error)
}

// Handler converts one inbound message into one reply, advancing or
// tearing down the user's session as a side effect. All engine errors
// are converted to reply text here; none escape to the transport.
type Handler struct {
	repo     Repository
	sessions *SessionStore
	logger   *logging.Logger
	now      func() time.Time
}

// NewHandler constructs a dialog handler.
func NewHandler(repo Repository, sessions *SessionStore, logger *logging.Logger) *Handler {
	if repo == nil {
		panic("bot: repository required")
	}
	if sessions == nil {
		panic("bot: session store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, sessions: sessions, logger: logger, now: time.Now}
}

// Sessions exposes the session store for sweeping and metrics.
func (h *Handler) Sessions() *SessionStore {
	return h.sessions
}

// HandleMessage processes one inbound text message from a user and
// returns the reply. A command word always wins: received mid-dialog it
// resets the session and starts the new flow.
func (h *Handler) HandleMessage(ctx context.Context, userID, text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return replyHelp
	}
	tokens := strings.Fields(trimmed)
	command := strings.ToLower(tokens[0])

	if isCommand(command) {
		h.sessions.Delete(userID)
		return h.dispatchCommand(ctx, userID, command, tokens)
	}

	if sess, ok := h.sessions.Get(userID); ok {
		return h.advanceDialog(ctx, userID, sess, trimmed)
	}

	return replyHelp
}

func isCommand(word string) bool {
	switch word {
	case cmdReserve, cmdCancel, cmdList, cmdAvailable:
		return true
	}
	return false
}

func (h *Handler) dispatchCommand(ctx context.Context, userID, command string, tokens []string) string {
	switch command {
	case cmdReserve:
		return h.startReserve(ctx, userID, tokens)
	case cmdCancel:
		h.sessions.Put(userID, &Session{Step: StepAwaitingCancelDate})
		return replyAskCancelDate
	case cmdList:
		return h.listCommand(ctx, tokens)
	case cmdAvailable:
		return h.availableCommand(ctx, tokens)
	}
	return replyHelp
}

// startReserve either begins the multi-turn booking dialog or, when the
// user supplied everything inline ("reserve DATE SLOT NAME [NOTE]"),
// registers in one shot.
func (h *Handler) startReserve(ctx context.Context, userID string, tokens []string) string {
	switch {
	case len(tokens) == 1:
		h.sessions.Put(userID, &Session{Step: StepAwaitingDate})
		return replyAskDate
	case len(tokens) >= 4:
		note := ""
		if len(tokens) > 4 {
			note = strings.Join(tokens[4:], " ")
		}
		record, err := h.repo.Register(ctx, userID, tokens[1], tokens[2], tokens[3], note)
		if err != nil {
			h.logger.Warn("inline registration rejected", "user_id", userID, "error", err)
			return errorReply(err)
		}
		return confirmBooking(record)
	default:
		return replyReserveUsage
	}
}

func (h *Handler) listCommand(ctx context.Context, tokens []string) string {
	date := h.today()
	if len(tokens) > 1 {
		date = tokens[1]
	}
	records, err := h.repo.ListByDate(ctx, date)
	if err != nil {
		return errorReply(err)
	}
	canonical, _ := reservations.NormalizeDate(date)
	if len(records) == 0 {
		return fmt.Sprintf(replyNoReservations, canonical)
	}
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, fmt.Sprintf("Reservations on %s:", canonical))
	for _, r := range records {
		lines = append(lines, describeReservation(r))
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) availableCommand(ctx context.Context, tokens []string) string {
	date := h.today()
	if len(tokens) > 1 {
		date = tokens[1]
	}
	avail, err := h.repo.Availability(ctx, date)
	if err != nil {
		return errorReply(err)
	}
	if !avail.Open {
		return fmt.Sprintf(replyClosedDay, avail.Date)
	}
	if len(avail.Slots) == 0 {
		return fmt.Sprintf(replyFullyBooked, avail.Date)
	}
	return fmt.Sprintf("Open slots on %s:\n%s", avail.Date, numberedList(avail.Slots))
}

func (h *Handler) advanceDialog(ctx context.Context, userID string, sess *Session, input string) string {
	switch sess.Step {
	case StepAwaitingDate:
		return h.stepBookingDate(ctx, userID, sess, input)
	case StepAwaitingSlotSelection:
		return h.stepSlotSelection(userID, sess, input)
	case StepAwaitingName:
		sess.Name = input
		sess.Step = StepAwaitingNote
		h.sessions.Put(userID, sess)
		return replyAskNote
	case StepAwaitingNote:
		return h.stepCommitBooking(ctx, userID, sess, input)
	case StepAwaitingCancelDate:
		return h.stepCancelDate(ctx, userID, sess, input)
	case StepAwaitingCancelSelection:
		return h.stepCancelSelection(ctx, userID, sess, input)
	}
	// Unknown step means the session is corrupt; force a restart.
	h.logger.Error("session in unknown step", "user_id", userID, "step", sess.Step)
	h.sessions.Delete(userID)
	return replyHelp
}

// stepBookingDate re-validates the date on every attempt: unparseable
// input re-prompts without advancing or resetting the dialog.
func (h *Handler) stepBookingDate(ctx context.Context, userID string, sess *Session, input string) string {
	avail, err := h.repo.Availability(ctx, input)
	if err != nil {
		if errors.Is(err, reservations.ErrInvalidDate) {
			return replyBadDate
		}
		h.sessions.Delete(userID)
		return errorReply(err)
	}
	if !avail.Open {
		return fmt.Sprintf(replyClosedDay, avail.Date) + " " + replyTryAnotherDate
	}
	if len(avail.Slots) == 0 {
		return fmt.Sprintf(replyFullyBooked, avail.Date) + " " + replyTryAnotherDate
	}

	sess.Date = avail.Date
	sess.SlotOptions = avail.Slots
	sess.Step = StepAwaitingSlotSelection
	h.sessions.Put(userID, sess)
	return fmt.Sprintf("Open slots on %s. Reply with a number:\n%s", avail.Date, numberedList(avail.Slots))
}

// stepSlotSelection resolves the ordinal against the pinned option list.
func (h *Handler) stepSlotSelection(userID string, sess *Session, input string) string {
	idx, ok := parseOrdinal(input, len(sess.SlotOptions))
	if !ok {
		return fmt.Sprintf(replyBadOrdinal, len(sess.SlotOptions)) + "\n" + numberedList(sess.SlotOptions)
	}
	sess.Slot = sess.SlotOptions[idx]
	sess.Step = StepAwaitingName
	h.sessions.Put(userID, sess)
	return fmt.Sprintf(replyAskName, sess.Slot, sess.Date)
}

// stepCommitBooking is the terminal booking step: whatever the outcome,
// the session ends here. A failed write is never retried from the dialog
// since an ambiguous append could double-book.
func (h *Handler) stepCommitBooking(ctx context.Context, userID string, sess *Session, input string) string {
	note := input
	if note == "-" {
		note = ""
	}
	h.sessions.Delete(userID)

	record, err := h.repo.Register(ctx, userID, sess.Date, sess.Slot, sess.Name, note)
	if err != nil {
		h.logger.Warn("booking commit failed", "user_id", userID, "date", sess.Date, "slot", sess.Slot, "error", err)
		return errorReply(err)
	}
	return confirmBooking(record)
}

func (h *Handler) stepCancelDate(ctx context.Context, userID string, sess *Session, input string) string {
	records, err := h.repo.ListByDate(ctx, input)
	if err != nil {
		if errors.Is(err, reservations.ErrInvalidDate) {
			return replyBadDate
		}
		h.sessions.Delete(userID)
		return errorReply(err)
	}
	canonical, _ := reservations.NormalizeDate(input)
	if len(records) == 0 {
		h.sessions.Delete(userID)
		return fmt.Sprintf(replyNoReservations, canonical)
	}

	sess.Date = canonical
	sess.Candidates = records
	sess.Step = StepAwaitingCancelSelection
	h.sessions.Put(userID, sess)

	lines := make([]string, 0, len(records)+1)
	lines = append(lines, fmt.Sprintf("Reservations on %s. Reply with the number to cancel:", canonical))
	for i, r := range records {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, describeReservation(r)))
	}
	return strings.Join(lines, "\n")
}

// stepCancelSelection resolves the ordinal against the candidate list
// pinned when it was shown, then commits the cancellation.
func (h *Handler) stepCancelSelection(ctx context.Context, userID string, sess *Session, input string) string {
	idx, ok := parseOrdinal(input, len(sess.Candidates))
	if !ok {
		lines := make([]string, 0, len(sess.Candidates)+1)
		lines = append(lines, fmt.Sprintf(replyBadOrdinal, len(sess.Candidates)))
		for i, r := range sess.Candidates {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, describeReservation(r)))
		}
		return strings.Join(lines, "\n")
	}

	target := sess.Candidates[idx]
	h.sessions.Delete(userID)

	record, err := h.repo.Cancel(ctx, userID, target.ID, target.Date, target.TimeSlot)
	if err != nil {
		h.logger.Warn("cancellation failed", "user_id", userID, "reservation_id", target.ID, "error", err)
		return errorReply(err)
	}
	return fmt.Sprintf(replyCancelled, record.TimeSlot, record.Date, record.Name)
}

func (h *Handler) today() string {
	return h.now().Format(dateLayout)
}

func parseOrdinal(input string, n int) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || v < 1 || v > n {
		return 0, false
	}
	return v - 1, true
}

func numberedList(items []string) string {
	lines := make([]string, 0, len(items))
	for i, item := range items {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, item))
	}
	return strings.Join(lines, "\n")
}

func describeReservation(r reservations.Reservation) string {
	return fmt.Sprintf("%s | %s | %s | ID: %s", r.TimeSlot, r.Name, r.Note, r.ID)
}

func confirmBooking(r *reservations.Reservation) string {
	return fmt.Sprintf(replyBooked, r.TimeSlot, r.Date, r.Name, r.Note, r.ID)
}

// errorReply maps engine errors to user-facing text. Every branch keeps
// the process serving other users.
func errorReply(err error) string {
	switch {
	case errors.Is(err, reservations.ErrInvalidDate):
		return replyBadDate
	case errors.Is(err, reservations.ErrInvalidSlot):
		return replyBadSlot
	case errors.Is(err, reservations.ErrDuplicateBooking):
		return replyDuplicate
	case errors.Is(err, reservations.ErrSlotUnavailable):
		return replySlotTaken
	case errors.Is(err, reservations.ErrNotFound):
		return replyNotFound
	default:
		return replyStoreTrouble
	}
}
