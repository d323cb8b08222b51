// Package birthday runs the birthday-greeting workflow: one conversation per
// (team, channel), driven by chat messages, button callbacks and watchdog
// timeouts.
package birthday

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/scienta/skjera/internal/conversation"
	"github.com/scienta/skjera/internal/directory"
	"github.com/scienta/skjera/internal/interaction"
	"github.com/scienta/skjera/internal/slack"
	"github.com/scienta/skjera/internal/watchdog"
)

// collaboratorTimeout bounds every outbound call a conversation makes.
const collaboratorTimeout = 30 * time.Second

type phase int

const (
	phaseNew phase = iota
	phaseAwaiting
	phaseCompleted
	phaseFailed
)

// timerUnit identifies one arming of the conversation deadline. The epoch
// distinguishes a stale firing, already superseded by a re-arm, from the
// currently armed deadline.
type timerUnit struct {
	conv  *Conversation
	epoch uint64
}

// Conversation is one live birthday workflow. All state below the inbox is
// owned by the run goroutine; other goroutines interact only through Deliver.
type Conversation struct {
	key          conversation.Key
	cfg          Config
	directory    Directory
	assistant    Assistant
	gateway      Gateway
	interactions *interaction.Registry
	dog          *watchdog.Watchdog[timerUnit]
	logger       *slog.Logger
	onDone       func(conversation.Key)

	inbox chan Event
	done  chan struct{}

	phase     phase
	employee  *directory.Employee
	mention   string
	msg       slack.MessageRef
	generated string
	token     interaction.Token
	hasToken  bool
	epoch     uint64
}

func newConversation(
	key conversation.Key,
	cfg Config,
	dir Directory,
	assist Assistant,
	gateway Gateway,
	interactions *interaction.Registry,
	dog *watchdog.Watchdog[timerUnit],
	logger *slog.Logger,
	onDone func(conversation.Key),
) *Conversation {
	return &Conversation{
		key:          key,
		cfg:          cfg,
		directory:    dir,
		assistant:    assist,
		gateway:      gateway,
		interactions: interactions,
		dog:          dog,
		logger: logger.With(
			slog.String("team", key.Team),
			slog.String("channel", key.Channel)),
		onDone: onDone,
		inbox:  make(chan Event, 16),
		done:   make(chan struct{}),
	}
}

// Deliver enqueues an event. Events arriving after the conversation reached a
// terminal state are dropped.
func (c *Conversation) Deliver(event Event) {
	select {
	case <-c.done:
		c.logger.Debug("conversation terminal, dropping event")
	case c.inbox <- event:
	}
}

// Stop asks the conversation to terminate. Asynchronous; cleanup happens on
// the conversation's own goroutine.
func (c *Conversation) Stop(reason string) {
	c.Deliver(stopEvent{reason: reason})
}

// run drains the inbox until a terminal state is reached. Processing is
// single-threaded, so gateway calls for the message are never concurrent.
func (c *Conversation) run() {
	defer close(c.done)

	for event := range c.inbox {
		c.handle(event)
		if c.phase == phaseCompleted || c.phase == phaseFailed {
			if c.onDone != nil {
				c.onDone(c.key)
			}
			return
		}
	}
}

func (c *Conversation) handle(event Event) {
	switch event := event.(type) {
	case StartEvent:
		c.handleStart(event)
	case ActionEvent:
		c.handleAction(event)
	case timeoutEvent:
		c.handleTimeout(event)
	case stopEvent:
		c.handleStop(event)
	}
}

func (c *Conversation) handleStart(event StartEvent) {
	if c.phase != phaseNew {
		c.logger.Debug("conversation already started, ignoring", slog.String("subject", event.Subject))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
	defer cancel()

	employee, err := c.directory.EmployeeByName(ctx, event.Subject)
	if errors.Is(err, directory.ErrNotFound) {
		c.logger.Info("no employee matching name", slog.String("name", event.Subject))
		c.phase = phaseFailed
		return
	}
	if err != nil {
		c.logger.Warn("unable to query employee", slog.String("error", err.Error()))
		c.phase = phaseFailed
		return
	}
	c.employee = &employee

	account, err := c.directory.AccountForNetwork(ctx, employee.ID, directory.NetworkSlack, c.cfg.NetworkInstance)
	switch {
	case err == nil && account.Subject != nil:
		c.mention = *account.Subject
	case err != nil && !errors.Is(err, directory.ErrNotFound):
		c.logger.Warn("account lookup failed, falling back to plain name",
			slog.String("error", err.Error()))
	}

	token := c.interactions.Register(c.enqueueAction)
	c.token, c.hasToken = token, true

	ref, err := c.gateway.PostMessage(ctx, c.key.Channel, fallbackText, initialMessage(c.display(), token))
	if err != nil {
		c.logger.Warn("could not post message", slog.String("error", err.Error()))
		c.revokeToken()
		c.phase = phaseFailed
		return
	}
	c.msg = ref

	c.armTimer()
	c.phase = phaseAwaiting
}

func (c *Conversation) handleAction(event ActionEvent) {
	if c.phase != phaseAwaiting {
		c.logger.Debug("unexpected interaction event", slog.String("value", event.Value))
		return
	}

	c.disarmTimer()
	// The registry consumed the subscription before dispatching.
	c.hasToken = false

	if c.employee == nil {
		c.logger.Warn("interaction for unresolved employee")
		c.phase = phaseFailed
		return
	}

	switch event.Value {
	case actionGenerate:
		c.generate()
	case actionSend:
		c.send()
	default:
		c.logger.Warn("unexpected interaction action value", slog.String("value", event.Value))
		c.phase = phaseFailed
	}
}

// generate asks the assistant for a greeting and offers it with a Send
// button, re-arming the deadline for the next decision.
func (c *Conversation) generate() {
	ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
	defer cancel()

	text, err := c.assistant.GenerateMessage(ctx, *c.employee)
	if err != nil {
		c.logger.Warn("could not generate message", slog.String("error", err.Error()))
		c.phase = phaseFailed
		return
	}
	c.generated = text

	token := c.interactions.Register(c.enqueueAction)
	if err := c.gateway.UpdateMessage(ctx, c.msg, fallbackText, generatedMessage(c.display(), text, token)); err != nil {
		c.logger.Warn("could not update message", slog.String("error", err.Error()))
		c.interactions.Revoke(token)
		c.phase = phaseFailed
		return
	}
	c.token, c.hasToken = token, true

	c.armTimer()
}

// send finalizes the message in its sent form.
func (c *Conversation) send() {
	ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
	defer cancel()

	if err := c.gateway.UpdateMessage(ctx, c.msg, c.generated, sentMessage(c.display(), c.generated)); err != nil {
		c.logger.Warn("could not update message", slog.String("error", err.Error()))
		c.phase = phaseFailed
		return
	}

	c.logger.Info("birthday message sent")
	c.phase = phaseCompleted
}

func (c *Conversation) handleTimeout(event timeoutEvent) {
	if c.phase != phaseAwaiting || event.epoch != c.epoch {
		c.logger.Debug("stale timeout, ignoring")
		return
	}

	c.logger.Info("conversation timed out")
	c.revokeToken()
	c.editTerminal()
	c.phase = phaseCompleted
}

func (c *Conversation) handleStop(event stopEvent) {
	c.logger.Info("stopping conversation", slog.String("reason", event.reason))

	c.disarmTimer()
	c.revokeToken()
	if c.phase == phaseAwaiting {
		c.editTerminal()
	}
	c.phase = phaseCompleted
}

// editTerminal moves the channel message into its timed-out form, preserving
// any generated text. Best effort: the conversation terminates either way.
func (c *Conversation) editTerminal() {
	if c.msg.Timestamp == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
	defer cancel()

	if err := c.gateway.UpdateMessage(ctx, c.msg, fallbackText, timedOutMessage(c.display(), c.generated)); err != nil {
		c.logger.Warn("could not update message to terminal form",
			slog.String("error", err.Error()))
	}
}

// enqueueAction routes a resolved button click into the inbox. Invoked by the
// interaction registry on a webhook goroutine; it must only enqueue.
func (c *Conversation) enqueueAction(action interaction.Action) {
	c.Deliver(ActionEvent{Token: action.Token, Value: action.Value})
}

func (c *Conversation) armTimer() {
	c.epoch++
	c.dog.Register(timerUnit{conv: c, epoch: c.epoch}, c.cfg.Timeout)
}

func (c *Conversation) disarmTimer() {
	c.dog.Unregister(timerUnit{conv: c, epoch: c.epoch})
}

func (c *Conversation) revokeToken() {
	if c.hasToken {
		c.interactions.Revoke(c.token)
		c.hasToken = false
	}
}

// display returns the Slack mention when the employee's account is linked,
// otherwise their plain name.
func (c *Conversation) display() string {
	if c.mention != "" {
		return slack.Mention(c.mention)
	}
	return c.employee.Name
}
