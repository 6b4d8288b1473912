// Package schedule provides the clinic's bookable-slot universe per date.
package schedule

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/moritahq/clinic-reserve-bot/internal/reservations"
)

// StaticSource is a fixed in-memory schedule, mainly for tests and
// fixtures. A nil slot list marks a closed day, same as a missing key.
type StaticSource map[string][]string

// SlotsForDate implements reservations.ScheduleSource.
func (s StaticSource) SlotsForDate(date string) ([]string, bool) {
	slots, ok := s[date]
	if !ok || slots == nil {
		return nil, false
	}
	return slots, true
}

// FileSource loads the schedule from a JSON file mapping canonical dates
// to slot arrays. An explicit null value and a missing key both mean the
// clinic is closed that day; an empty array is an open day with nothing
// bookable. Dates and slots are canonicalized at load time.
type FileSource struct {
	path string

	mu   sync.RWMutex
	days map[string][]string
}

// NewFileSource reads and parses the schedule file.
func NewFileSource(path string) (*FileSource, error) {
	s := &FileSource{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the schedule file, replacing the in-memory table. Safe
// to call while lookups are in flight.
func (s *FileSource) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("schedule: read %s: %w", s.path, err)
	}

	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("schedule: parse %s: %w", s.path, err)
	}

	days := make(map[string][]string, len(raw))
	for rawDate, rawSlots := range raw {
		date, err := reservations.NormalizeDate(rawDate)
		if err != nil {
			return fmt.Errorf("schedule: bad date key %q: %w", rawDate, err)
		}
		if rawSlots == nil {
			days[date] = nil
			continue
		}
		slots := make([]string, 0, len(rawSlots))
		for _, rawSlot := range rawSlots {
			slot := reservations.NormalizeSlot(rawSlot)
			if !reservations.IsCanonicalSlot(slot) {
				return fmt.Errorf("schedule: bad slot %q for %s", rawSlot, date)
			}
			slots = append(slots, slot)
		}
		days[date] = slots
	}

	s.mu.Lock()
	s.days = days
	s.mu.Unlock()
	return nil
}

// SlotsForDate implements reservations.ScheduleSource.
func (s *FileSource) SlotsForDate(date string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slots, ok := s.days[date]
	if !ok || slots == nil {
		return nil, false
	}
	return slots, true
}
