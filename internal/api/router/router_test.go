package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/moritahq/clinic-reserve-bot/internal/http/handlers"
	"github.com/moritahq/clinic-reserve-bot/pkg/logging"
)

type noopEngine struct{}

func (noopEngine) HandleMessage(context.Context, string, string) string { return "" }

func newTestRouter(metricsHandler http.Handler) http.Handler {
	callback := handlers.NewCallbackHandler(handlers.CallbackConfig{
		Bot:       noopEngine{},
		BotSecret: "secret",
		Logger:    logging.New("error"),
	})
	return New(&Config{
		Logger:         logging.New("error"),
		Callback:       callback,
		MetricsHandler: metricsHandler,
	})
}

func TestRouterHealth(t *testing.T) {
	r := newTestRouter(nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRouterCallbackRouteExists(t *testing.T) {
	r := newTestRouter(nil)
	rec := httptest.NewRecorder()
	// Unsigned request: the route must exist and the handler must reject
	// it, rather than chi returning 404/405.
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/callback/lineworks", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRouterMetricsOptional(t *testing.T) {
	r := newTestRouter(nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status without metrics handler = %d", rec.Code)
	}

	r = newTestRouter(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status with metrics handler = %d", rec.Code)
	}
}
