package sheets

import (
	"fmt"
	"strings"

	"github.com/moritahq/clinic-reserve-bot/internal/reservations"
)

// Column layout of both sheets. This mapping is the only place in the
// codebase that knows about positional row access.
const (
	colID = iota
	colUserID
	colDate
	colTimeSlot
	colName
	colNote
	colCreatedAt
	colStatus
	colCancelledAt
	columnCount
)

func encodeRow(r reservations.Reservation) []interface{} {
	return []interface{}{
		r.ID,
		r.UserID,
		r.Date,
		r.TimeSlot,
		r.Name,
		r.Note,
		r.CreatedAt,
		string(r.Status),
		r.CancelledAt,
	}
}

// decodeRow converts one sheet row back into a Reservation. Rows written
// by hand or by older revisions may be short or carry a serial-number
// date cell; both are tolerated. Rows without an ID or with an
// uncanonicalizable date are rejected.
func decodeRow(row []interface{}) (reservations.Reservation, bool) {
	padded := make([]interface{}, columnCount)
	copy(padded, row)

	id := cellString(padded[colID])
	if id == "" {
		return reservations.Reservation{}, false
	}
	date, err := reservations.NormalizeDateValue(padded[colDate])
	if err != nil {
		return reservations.Reservation{}, false
	}

	status := reservations.Status(cellString(padded[colStatus]))
	if status == "" {
		// Early sheet revisions predate the status column.
		status = reservations.StatusReserved
	}

	return reservations.Reservation{
		ID:          id,
		UserID:      cellString(padded[colUserID]),
		Date:        date,
		TimeSlot:    reservations.NormalizeSlot(cellString(padded[colTimeSlot])),
		Name:        cellString(padded[colName]),
		Note:        cellString(padded[colNote]),
		CreatedAt:   cellString(padded[colCreatedAt]),
		Status:      status,
		CancelledAt: cellString(padded[colCancelledAt]),
	}, true
}

func cellString(v interface{}) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(c)
	default:
		return strings.TrimSpace(fmt.Sprint(c))
	}
}
