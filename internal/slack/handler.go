package slack

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/scienta/skjera/internal/interaction"
)

// MessageSink receives chat messages addressed to a (team, channel).
type MessageSink interface {
	OnMessage(ctx context.Context, team, channel, user, text string)
}

// ActionDispatcher receives the UI actions carried by an interaction
// callback.
type ActionDispatcher interface {
	DispatchActions(actions []interaction.RawAction)
}

// WebhookHandler terminates Slack's outbound HTTP deliveries: the Events API
// on one endpoint and interactivity (block actions) on another. Dropped or
// unroutable events are acknowledged with 200 so Slack does not retry them.
type WebhookHandler struct {
	signingSecret string
	sink          MessageSink
	dispatcher    ActionDispatcher
	logger        *slog.Logger
	now           func() time.Time
}

func NewWebhookHandler(signingSecret string, sink MessageSink, dispatcher ActionDispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		signingSecret: signingSecret,
		sink:          sink,
		dispatcher:    dispatcher,
		logger:        logger,
		now:           time.Now,
	}
}

type eventEnvelope struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge,omitempty"`
	TeamID    string `json:"team_id,omitempty"`
	Event     struct {
		Type    string `json:"type"`
		Channel string `json:"channel"`
		User    string `json:"user"`
		Text    string `json:"text"`
		BotID   string `json:"bot_id,omitempty"`
	} `json:"event"`
}

// HandleEvents serves the Events API endpoint.
func (h *WebhookHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readVerified(w, r)
	if !ok {
		return
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		h.logger.Warn("unparseable event payload", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch envelope.Type {
	case "url_verification":
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, envelope.Challenge)

	case "event_callback":
		event := envelope.Event
		// Ignore everything except human-authored channel messages.
		if event.Type == "message" && event.BotID == "" && event.User != "" {
			h.sink.OnMessage(r.Context(), envelope.TeamID, event.Channel, event.User, event.Text)
		}
		w.WriteHeader(http.StatusOK)

	default:
		h.logger.Debug("ignoring push event", slog.String("type", envelope.Type))
		w.WriteHeader(http.StatusOK)
	}
}

type interactionPayload struct {
	Type string `json:"type"`
	Team struct {
		ID string `json:"id"`
	} `json:"team"`
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
	Actions []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
	} `json:"actions"`
}

// HandleInteractions serves the interactivity endpoint. Slack posts a
// form-encoded body whose payload field holds the JSON callback; one delivery
// may carry several actions and each is dispatched independently.
func (h *WebhookHandler) HandleInteractions(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readVerified(w, r)
	if !ok {
		return
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	raw := values.Get("payload")
	if raw == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var payload interactionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		h.logger.Warn("unparseable interaction payload", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if payload.Type != "block_actions" || len(payload.Actions) == 0 {
		w.WriteHeader(http.StatusOK)
		return
	}

	actions := make([]interaction.RawAction, 0, len(payload.Actions))
	for _, a := range payload.Actions {
		actions = append(actions, interaction.RawAction{ActionID: a.ActionID, Value: a.Value})
	}
	h.dispatcher.DispatchActions(actions)

	w.WriteHeader(http.StatusOK)
}

// readVerified reads the body and checks the request signature. A missing
// signing secret disables verification (local development).
func (h *WebhookHandler) readVerified(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return nil, false
	}

	if h.signingSecret != "" {
		signature := r.Header.Get("X-Slack-Signature")
		timestamp := r.Header.Get("X-Slack-Request-Timestamp")
		if err := VerifySignature(h.signingSecret, signature, timestamp, body, h.now()); err != nil {
			h.logger.Warn("rejecting webhook delivery", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusUnauthorized)
			return nil, false
		}
	}

	return body, true
}
