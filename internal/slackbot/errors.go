package slackbot

import (
	"errors"
	"fmt"
)

// ErrUnroutedEvent is returned by Router.Dispatch for event kinds without a handler.
var ErrUnroutedEvent = errors.New("slackbot: no handler registered for event")

// MalformedEventError reports an inbound event payload that lacks a field the
// handler depends on. It is logged by the connection loop, never propagated.
type MalformedEventError struct {
	Kind  string
	Field string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed %s event: missing %q", e.Kind, e.Field)
}

type ErrorReporter interface {
	Report(err error, context map[string]string)
}

type noopReporter struct{}

func (n *noopReporter) Report(err error, context map[string]string) {}
