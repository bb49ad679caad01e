package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"shipmate/internal/domain"
)

// EventPublisher delivers domain events to interested parties. Services
// buffer events while a transaction is open and publish them only after
// the transaction commits, so subscribers never observe state that was
// rolled back.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event)
}

// LogPublisher is an EventPublisher that writes events to the structured
// log. It stands in for push, SMS and email channels.
type LogPublisher struct {
	log *logrus.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(log *logrus.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish logs the event with its payload fields.
func (p *LogPublisher) Publish(ctx context.Context, event domain.Event) {
	p.log.WithFields(logrus.Fields{
		"event":   event.EventName(),
		"payload": event,
	}).Info("domain event")
}

// eventBuffer accumulates events during an operation. drain publishes
// everything buffered so far; call it strictly after commit.
type eventBuffer struct {
	events []domain.Event
}

func (b *eventBuffer) add(event domain.Event) {
	b.events = append(b.events, event)
}

func (b *eventBuffer) drain(ctx context.Context, publisher EventPublisher) {
	if publisher == nil {
		return
	}
	for _, event := range b.events {
		publisher.Publish(ctx, event)
	}
	b.events = nil
}
