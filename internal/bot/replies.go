package bot

// User-facing reply text. Kept in one place so the dialog logic reads as
// control flow and the wording can change without touching it.
const (
	replyHelp = "Commands:\n" +
		"reserve - book an appointment\n" +
		"cancel - cancel an appointment\n" +
		"list [date] - show reservations for a date\n" +
		"available [date] - show open slots for a date"

	replyAskDate       = "What date would you like to book? (e.g. 2025/09/10)"
	replyAskCancelDate = "What date is the booking you want to cancel? (e.g. 2025/09/10)"
	replyAskName       = "Got it: %s on %s. What name should the booking be under?"
	replyAskNote       = "Any notes for the clinic? Reply with - to skip."

	replyBooked    = "Booked: %s on %s for %s (note: %s). Reservation ID %s."
	replyCancelled = "Cancelled: %s on %s for %s."

	replyReserveUsage = "To book in one message: reserve DATE SLOT NAME [NOTE]\n" +
		"Or send just \"reserve\" and I will walk you through it."

	replyBadDate = "That doesn't look like a date. Please use YYYY/MM/DD (e.g. 2025/09/10)."
	replyBadSlot = "That doesn't look like a time slot. Please use HH:MM-HH:MM (e.g. 10:00-10:30)."

	replyBadOrdinal     = "Please reply with a number between 1 and %d."
	replyClosedDay      = "The clinic is closed on %s."
	replyFullyBooked    = "Sorry, %s is fully booked."
	replyTryAnotherDate = "Please enter another date."
	replyNoReservations = "No reservations found on %s."

	replyDuplicate    = "You already have an active booking for that slot."
	replySlotTaken    = "Sorry, that slot is no longer available. Please try another."
	replyNotFound     = "That reservation could not be found. It may have already been cancelled."
	replyStoreTrouble = "Something went wrong on our side. Please try again in a moment."
)
