// Package handlers contains the HTTP-facing glue between the messaging
// provider's webhook and the dialog engine.
package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/moritahq/clinic-reserve-bot/internal/lineworks"
	observemetrics "github.com/moritahq/clinic-reserve-bot/internal/observability/metrics"
	"github.com/moritahq/clinic-reserve-bot/pkg/logging"
)

const providerLineWorks = "lineworks"

type dialogEngine interface {
	HandleMessage(ctx context.Context, userID, text string) string
}

type replySender interface {
	SendText(ctx context.Context, userID, text string) error
}

type processedTracker interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

// callbackEvent is the subset of the bot callback payload we act on.
type callbackEvent struct {
	Type   string `json:"type"`
	Source struct {
		UserID string `json:"userId"`
	} `json:"source"`
	Content struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// CallbackHandler receives LINE WORKS bot callbacks, routes text messages
// through the dialog engine and pushes the reply back to the user.
type CallbackHandler struct {
	bot       dialogEngine
	sender    replySender
	processed processedTracker
	botSecret string
	logger    *logging.Logger
	metrics   *observemetrics.WebhookMetrics
}

type CallbackConfig struct {
	Bot       dialogEngine
	Sender    replySender
	Processed processedTracker
	BotSecret string
	Logger    *logging.Logger
	Metrics   *observemetrics.WebhookMetrics
}

func NewCallbackHandler(cfg CallbackConfig) *CallbackHandler {
	if cfg.Bot == nil {
		panic("handlers: dialog engine required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &CallbackHandler{
		bot:       cfg.Bot,
		sender:    cfg.Sender,
		processed: cfg.Processed,
		botSecret: cfg.BotSecret,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// Handle processes one callback delivery. The provider retries on
// non-2xx, so every outcome past signature and payload validation acks
// with 200 even when downstream pieces fail.
func (h *CallbackHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if !lineworks.VerifySignature(h.botSecret, body, r.Header.Get("X-WORKS-Signature")) {
		h.logger.Warn("invalid callback signature", "remote_ip", r.RemoteAddr)
		h.metrics.ObserveInbound("unknown", "bad_signature")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var evt callbackEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if evt.Type != "message" || evt.Content.Type != "text" || evt.Source.UserID == "" {
		h.metrics.ObserveInbound(evt.Type, "ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	// Deliveries carry no event id; a retry resends the identical body,
	// so its hash serves as one.
	eventID := eventFingerprint(body)
	if h.processed != nil {
		seen, err := h.processed.AlreadyProcessed(r.Context(), providerLineWorks, eventID)
		if err != nil {
			h.logger.Error("processed lookup failed", "error", err)
		} else if seen {
			h.metrics.ObserveInbound(evt.Type, "duplicate")
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	reply := h.bot.HandleMessage(r.Context(), evt.Source.UserID, evt.Content.Text)

	if h.sender != nil && reply != "" {
		if err := h.sender.SendText(r.Context(), evt.Source.UserID, reply); err != nil {
			// The dialog already advanced; dropping the push is better
			// than provoking a retry that would re-run the step.
			h.logger.Error("reply push failed", "user_id", evt.Source.UserID, "error", err)
			h.metrics.ObserveReply("error")
		} else {
			h.metrics.ObserveReply("ok")
		}
	}

	if h.processed != nil {
		if _, err := h.processed.MarkProcessed(r.Context(), providerLineWorks, eventID); err != nil {
			h.logger.Error("mark processed failed", "error", err)
		}
	}

	h.metrics.ObserveInbound(evt.Type, "ok")
	h.metrics.ObserveHandleLatency(evt.Type, time.Since(start).Seconds())
	w.WriteHeader(http.StatusOK)
}

// HealthCheck reports process liveness.
func (h *CallbackHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func eventFingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
