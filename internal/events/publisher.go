// Package events publishes ledger domain events for downstream consumers
// such as notification and analytics workers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Event types
const (
	TypeSwapCommitted = "swap.committed"
	TypeSwapRejected  = "swap.rejected"
	TypeItemModerated = "item.moderated"
	TypeItemSubmitted = "item.submitted"
	TypeBalanceAdjust = "account.adjusted"
)

// Event is the message body written to the queue
type Event struct {
	Type       string            `json:"type"`
	ItemID     string            `json:"itemId,omitempty"`
	SwapID     string            `json:"swapId,omitempty"`
	AccountIDs []string          `json:"accountIds,omitempty"`
	Points     int64             `json:"points,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// Publisher delivers events. Publishing happens after the ledger has
// committed, so a failed publish never affects the ledger state.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// RabbitPublisher writes events to a durable RabbitMQ queue
type RabbitPublisher struct {
	conn  *amqp.Connection
	queue string
}

// NewRabbitPublisher dials url and declares the queue
func NewRabbitPublisher(url, queue string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &RabbitPublisher{conn: conn, queue: queue}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// channels are not safe for concurrent publishing, so each call gets its own
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.PublishWithContext(
		ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         event.Type,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
}

func (p *RabbitPublisher) Close() error {
	return p.conn.Close()
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }

// MemoryPublisher keeps published events in memory
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *MemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *MemoryPublisher) Close() error { return nil }

// Events returns a copy of everything published so far
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// OfType returns the published events with the given type
func (p *MemoryPublisher) OfType(eventType string) []Event {
	var out []Event
	for _, e := range p.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
