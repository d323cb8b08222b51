package birthday

import "github.com/scienta/skjera/internal/interaction"

// Event is an item in a conversation's inbox. Events for one conversation are
// processed strictly in delivery order.
type Event interface {
	isEvent()
}

// StartEvent begins the workflow for a named employee.
type StartEvent struct {
	Subject string
}

// ActionEvent is a resolved button click routed back from the interaction
// registry.
type ActionEvent struct {
	Token interaction.Token
	Value string
}

// timeoutEvent is injected by the watchdog when the deadline expires. The
// epoch names the arming that scheduled it; a conversation ignores firings
// from superseded armings.
type timeoutEvent struct {
	epoch uint64
}

// stopEvent asks the conversation to terminate, cleaning up the channel
// message if the workflow is still live.
type stopEvent struct {
	reason string
}

func (StartEvent) isEvent()   {}
func (ActionEvent) isEvent()  {}
func (timeoutEvent) isEvent() {}
func (stopEvent) isEvent()    {}
