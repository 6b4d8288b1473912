package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/moritahq/clinic-reserve-bot/internal/reservations"
)

type fakeSheetsAPI struct {
	calls     []string
	getValues [][]interface{}
	failAll   bool
}

func (f *fakeSheetsAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls = append(f.calls, r.Method+" "+r.URL.Path)
		if f.failAll {
			http.Error(w, `{"error": {"code": 500, "message": "boom"}}`, http.StatusInternalServerError)
			return
		}
		switch {
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{"values": f.getValues})
		default:
			w.Write([]byte(`{}`))
		}
	})
}

func newTestStore(t *testing.T, fake *fakeSheetsAPI) *Store {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	svc, err := sheetsapi.NewService(context.Background(),
		option.WithoutAuthentication(),
		option.WithEndpoint(server.URL),
	)
	if err != nil {
		t.Fatalf("create sheets service: %v", err)
	}
	return NewWithService(svc, Config{SpreadsheetID: "sheet-123"})
}

func TestReadAllDecodesRows(t *testing.T) {
	fake := &fakeSheetsAPI{getValues: [][]interface{}{
		{"abc123def456", "u1", "2025/09/11", "09:00〜09:15", "Taro", "none", "2025/09/01", "reserved", ""},
		{"", "junk"}, // undecodable, skipped
	}}
	store := newTestStore(t, fake)

	records, err := store.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].TimeSlot != "09:00-09:15" {
		t.Errorf("TimeSlot = %q, want canonical form", records[0].TimeSlot)
	}
	if len(fake.calls) != 1 || !strings.Contains(fake.calls[0], "Reservations!A2:I") {
		t.Errorf("calls = %v, want one get over the data range", fake.calls)
	}
}

func TestReadAllWrapsFailures(t *testing.T) {
	store := newTestStore(t, &fakeSheetsAPI{failAll: true})
	_, err := store.ReadAll(context.Background())
	if !errors.Is(err, reservations.ErrStoreRead) {
		t.Errorf("error = %v, want ErrStoreRead", err)
	}
}

func TestAppendTargetsActiveSheet(t *testing.T) {
	fake := &fakeSheetsAPI{}
	store := newTestStore(t, fake)

	err := store.Append(context.Background(), reservations.Reservation{
		ID: "abc123def456", UserID: "u1", Date: "2025/09/11",
		TimeSlot: "09:00-09:15", Status: reservations.StatusReserved,
	})
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if len(fake.calls) != 1 || !strings.Contains(fake.calls[0], "Reservations!A1:append") {
		t.Errorf("calls = %v, want one append to the active sheet", fake.calls)
	}
}

func TestAppendNothingIsNoop(t *testing.T) {
	fake := &fakeSheetsAPI{}
	store := newTestStore(t, fake)
	if err := store.Append(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("calls = %v, want none", fake.calls)
	}
}

func TestReplaceAllClearsThenUpdates(t *testing.T) {
	fake := &fakeSheetsAPI{}
	store := newTestStore(t, fake)

	err := store.ReplaceAll(context.Background(), []reservations.Reservation{
		{ID: "abc123def456", UserID: "u1", Date: "2025/09/11", TimeSlot: "09:00-09:15", Status: reservations.StatusReserved},
	})
	if err != nil {
		t.Fatalf("ReplaceAll error: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("calls = %v, want clear then update", fake.calls)
	}
	if !strings.Contains(fake.calls[0], ":clear") {
		t.Errorf("first call = %q, want clear", fake.calls[0])
	}
	if !strings.HasPrefix(fake.calls[1], "PUT ") {
		t.Errorf("second call = %q, want values update", fake.calls[1])
	}
}

func TestReplaceAllEmptyOnlyClears(t *testing.T) {
	fake := &fakeSheetsAPI{}
	store := newTestStore(t, fake)

	if err := store.ReplaceAll(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if len(fake.calls) != 1 || !strings.Contains(fake.calls[0], ":clear") {
		t.Errorf("calls = %v, want a single clear", fake.calls)
	}
}

func TestAppendHistoryTargetsHistorySheet(t *testing.T) {
	fake := &fakeSheetsAPI{}
	store := newTestStore(t, fake)

	err := store.AppendHistory(context.Background(), reservations.Reservation{
		ID: "abc123def456", UserID: "u1", Date: "2025/09/11", TimeSlot: "09:00-09:15",
		Status: reservations.StatusCancelled, CancelledAt: "2025/09/02 10:30:00",
	})
	if err != nil {
		t.Fatalf("AppendHistory error: %v", err)
	}
	if len(fake.calls) != 1 || !strings.Contains(fake.calls[0], "History!A1:append") {
		t.Errorf("calls = %v, want one append to the history sheet", fake.calls)
	}
}
