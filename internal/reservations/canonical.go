package reservations

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Canonical forms used for every date/slot comparison in the engine:
// dates are "YYYY/MM/DD", slots are "HH:MM-HH:MM" with the earlier time
// first. Both normalizers are idempotent on their own output.

const (
	dateLayout     = "2006/01/02"
	dateTimeLayout = "2006/01/02 15:04:05"
)

var (
	dateSplitPattern = regexp.MustCompile(`[-/]`)
	slotPairPattern  = regexp.MustCompile(`^(\d{1,2}):(\d{2})-(\d{1,2}):(\d{2})$`)
	slotSeparators   = strings.NewReplacer("〜", "-", "～", "-", "~", "-")
)

// Sheets serial day numbers count from December 30, 1899.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// NormalizeDate canonicalizes date text to "YYYY/MM/DD". Accepted inputs
// are full dates with "/" or "-" separators and short "M/D" dates, which
// assume the current calendar year. Anything with fewer than two
// components fails with ErrInvalidDate.
func NormalizeDate(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidDate)
	}

	parts := dateSplitPattern.Split(trimmed, -1)
	var year, month, day int
	var err error
	switch len(parts) {
	case 3:
		if year, err = atoiField(parts[0]); err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidDate, input)
		}
		if month, day, err = monthDay(parts[1], parts[2]); err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidDate, input)
		}
	case 2:
		year = time.Now().Year()
		if month, day, err = monthDay(parts[0], parts[1]); err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidDate, input)
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, input)
	}

	if year < 1 || year > 9999 {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, input)
	}
	return fmt.Sprintf("%04d/%02d/%02d", year, month, day), nil
}

// NormalizeDateValue canonicalizes a value a collaborator may pass
// through instead of date text: a spreadsheet serial day number, a native
// time value, or a plain string.
func NormalizeDateValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return NormalizeDate(v)
	case time.Time:
		return v.Format(dateLayout), nil
	case float64:
		return serialDate(int(v))
	case int:
		return serialDate(v)
	case int64:
		return serialDate(int(v))
	default:
		return "", fmt.Errorf("%w: unsupported value %T", ErrInvalidDate, value)
	}
}

// NormalizeSlot unifies the separator glyphs between the start and end
// times, zero-pads hours, and orders the pair start-first. Input with no
// recognizable time pair is returned trimmed with separators unified;
// callers must treat such output as "not a slot" via IsCanonicalSlot.
func NormalizeSlot(input string) string {
	cleaned := strings.TrimSpace(slotSeparators.Replace(input))
	m := slotPairPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return cleaned
	}
	start := padHour(m[1]) + ":" + m[2]
	end := padHour(m[3]) + ":" + m[4]
	if start > end {
		start, end = end, start
	}
	return start + "-" + end
}

// IsCanonicalSlot reports whether s is a canonical "HH:MM-HH:MM" slot.
func IsCanonicalSlot(s string) bool {
	m := slotPairPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	return len(m[1]) == 2 && len(m[3]) == 2 && m[1]+":"+m[2] <= m[3]+":"+m[4]
}

func padHour(h string) string {
	if len(h) == 1 {
		return "0" + h
	}
	return h
}

func serialDate(days int) (string, error) {
	if days <= 0 {
		return "", fmt.Errorf("%w: serial day %d", ErrInvalidDate, days)
	}
	return serialEpoch.AddDate(0, 0, days).Format(dateLayout), nil
}

func atoiField(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func monthDay(rawMonth, rawDay string) (int, int, error) {
	month, err := atoiField(rawMonth)
	if err != nil {
		return 0, 0, err
	}
	day, err := atoiField(rawDay)
	if err != nil {
		return 0, 0, err
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, fmt.Errorf("month/day out of range")
	}
	return month, day, nil
}
