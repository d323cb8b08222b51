// Package interaction correlates asynchronous Slack UI callbacks with the
// conversations that produced the corresponding buttons.
package interaction

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrUnknownToken indicates a syntactically valid token with no live
// subscription: it was already consumed, revoked, or belonged to a
// conversation that has since terminated.
var ErrUnknownToken = errors.New("unknown interaction token")

// Action is a single resolved UI action from a webhook delivery.
type Action struct {
	Token Token
	Value string
}

// RawAction is an action as it arrives on the wire, before token parsing.
type RawAction struct {
	ActionID string
	Value    string
}

// Handler consumes a resolved action. Handlers are invoked at most once and
// must not block: they are expected to enqueue into the owning conversation's
// inbox and return.
type Handler func(Action)

// Registry maps live interaction tokens to their one-shot handlers. It is
// safe for concurrent use; the lock is only held for map access, never while
// a handler runs.
type Registry struct {
	logger *slog.Logger

	mu       sync.Mutex
	handlers map[Token]Handler
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logger,
		handlers: make(map[Token]Handler),
	}
}

// Register stores handler under a freshly minted token and returns the token.
func (r *Registry) Register(handler Handler) Token {
	token := NewToken()

	r.mu.Lock()
	r.handlers[token] = handler
	r.mu.Unlock()

	return token
}

// Resolve consumes the subscription for action.Token and invokes its handler.
// Each token resolves at most once; later calls return ErrUnknownToken.
func (r *Registry) Resolve(action Action) error {
	r.mu.Lock()
	handler, ok := r.handlers[action.Token]
	if ok {
		delete(r.handlers, action.Token)
	}
	r.mu.Unlock()

	if !ok {
		return ErrUnknownToken
	}

	handler(action)
	return nil
}

// Revoke removes a subscription without invoking its handler. It is a no-op
// for tokens that are not registered.
func (r *Registry) Revoke(token Token) {
	r.mu.Lock()
	delete(r.handlers, token)
	r.mu.Unlock()
}

// DispatchActions resolves every action in a webhook delivery independently.
// Malformed and unknown tokens are logged and dropped; they never fail the
// rest of the batch and never surface to the delivering webhook.
func (r *Registry) DispatchActions(actions []RawAction) {
	for _, raw := range actions {
		token, err := ParseToken(raw.ActionID)
		if err != nil {
			r.logger.Warn("dropping action with malformed token",
				slog.String("action_id", raw.ActionID))
			continue
		}

		if err := r.Resolve(Action{Token: token, Value: raw.Value}); err != nil {
			r.logger.Warn("no handler registered for interaction action",
				slog.String("token", token.String()),
				slog.String("value", raw.Value))
		}
	}
}

// Len returns the number of live subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}
