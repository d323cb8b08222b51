package birthday

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/scienta/skjera/internal/conversation"
	"github.com/scienta/skjera/internal/directory"
	"github.com/scienta/skjera/internal/interaction"
	"github.com/scienta/skjera/internal/slack"
	"github.com/scienta/skjera/internal/watchdog"
)

// Directory resolves employees and their linked accounts.
type Directory interface {
	EmployeeByName(ctx context.Context, name string) (directory.Employee, error)
	AccountForNetwork(ctx context.Context, employeeID, network, networkInstance string) (directory.Account, error)
}

// Assistant generates the personalized greeting.
type Assistant interface {
	GenerateMessage(ctx context.Context, employee directory.Employee) (string, error)
}

// Gateway posts and edits channel messages.
type Gateway interface {
	PostMessage(ctx context.Context, channel, text string, blocks []slack.Block) (slack.MessageRef, error)
	UpdateMessage(ctx context.Context, ref slack.MessageRef, text string, blocks []slack.Block) error
}

// Config tunes the birthday service.
type Config struct {
	// Timeout is how long a conversation waits for a button click before the
	// watchdog finalizes it.
	Timeout time.Duration

	// NetworkInstance is the Slack workspace ID used to look up linked
	// accounts for mention rendering.
	NetworkInstance string
}

const defaultTimeout = 10 * time.Second

// Service owns the conversation router and the watchdog, and interprets
// inbound chat messages. It implements slack.MessageSink.
type Service struct {
	cfg          Config
	logger       *slog.Logger
	directory    Directory
	assistant    Assistant
	gateway      Gateway
	interactions *interaction.Registry

	dog    *watchdog.Watchdog[timerUnit]
	router *conversation.Router[Event]
	wg     sync.WaitGroup
}

func NewService(
	cfg Config,
	dir Directory,
	assist Assistant,
	gateway Gateway,
	interactions *interaction.Registry,
	logger *slog.Logger,
) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	s := &Service{
		cfg:          cfg,
		logger:       logger,
		directory:    dir,
		assistant:    assist,
		gateway:      gateway,
		interactions: interactions,
	}
	s.dog = watchdog.New(func(unit timerUnit) error {
		unit.conv.Deliver(timeoutEvent{epoch: unit.epoch})
		return nil
	}, logger)
	s.router = conversation.NewRouter(s.spawn, logger)

	return s
}

func (s *Service) spawn(key conversation.Key) conversation.Instance[Event] {
	c := newConversation(key, s.cfg, s.directory, s.assistant, s.gateway,
		s.interactions, s.dog, s.logger, s.router.Remove)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c.run()
	}()

	return c
}

// OnMessage interprets a chat message. "fake birthday <name>" starts a
// birthday conversation in the originating channel; "hey <anything>" gets a
// plain greeting back.
func (s *Service) OnMessage(ctx context.Context, team, channel, user, text string) {
	words := strings.Fields(text)

	switch {
	case len(words) >= 3 && words[0] == "fake" && words[1] == "birthday":
		subject := strings.Join(words[2:], " ")
		key := conversation.Key{Team: team, Channel: channel}
		s.router.Route(key, StartEvent{Subject: subject})

	case len(words) >= 2 && words[0] == "hey":
		s.hey(ctx, channel, user)
	}
}

func (s *Service) hey(ctx context.Context, channel, user string) {
	text := fmt.Sprintf("Hey %s", slack.Mention(user))
	if _, err := s.gateway.PostMessage(ctx, channel, text, []slack.Block{slack.SectionBlock(text)}); err != nil {
		s.logger.Warn("could not post message", slog.String("error", err.Error()))
	}
}

// Conversations returns the number of live conversations.
func (s *Service) Conversations() int {
	return s.router.Len()
}

// Stats reports watchdog activity for the service's conversations.
func (s *Service) Stats() watchdog.Stats {
	return s.dog.Stats()
}

// Shutdown stops every live conversation and waits for their cleanup edits,
// bounded by ctx.
func (s *Service) Shutdown(ctx context.Context) error {
	s.router.StopAll("shutdown")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
