// Package events forwards controller events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/fruitsort-simulator/internal/controller"
)

// queueSize bounds the events waiting for the publish goroutine
const queueSize = 256

// Message is the JSON payload published for each event
type Message struct {
	RunID     string               `json:"runId"`
	Kind      controller.EventKind `json:"kind"`
	SimTime   float64              `json:"simTime"`
	Stage     int                  `json:"stage"`
	Fruit     string               `json:"fruit,omitempty"`
	Bin       string               `json:"bin,omitempty"`
	Reason    string               `json:"reason,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// published lists the event kinds sent to NATS
var published = map[controller.EventKind]bool{
	controller.EventStageEntered: true,
	controller.EventDelayArmed:   true,
	controller.EventDeposit:      true,
	controller.EventReject:       true,
	controller.EventHalted:       true,
	controller.EventReloadFailed: true,
}

// Conn is the part of a NATS connection the publisher uses
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher implements controller.Observer. Events are queued on the tick
// goroutine and published from a background goroutine.
type Publisher struct {
	conn    Conn
	subject string
	runID   string
	queue   chan Message
	dropped int

	mu       sync.Mutex
	done     chan struct{}
	stopOnce sync.Once
}

// Connect dials NATS and returns a publisher for subject
func Connect(url, subject, runID string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("fruitsort-"+runID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info().Str("url", url).Str("subject", subject).Msg("NATS event publisher connected")
	return NewPublisher(conn, subject, runID), nil
}

// NewPublisher wraps an existing connection
func NewPublisher(conn Conn, subject, runID string) *Publisher {
	return &Publisher{
		conn:    conn,
		subject: subject,
		runID:   runID,
		queue:   make(chan Message, queueSize),
		done:    make(chan struct{}),
	}
}

// Observe queues an event for publication. It never blocks; events are
// dropped when the queue is full.
func (p *Publisher) Observe(ev controller.Event) {
	if !published[ev.Kind] {
		return
	}
	msg := Message{
		RunID:     p.runID,
		Kind:      ev.Kind,
		SimTime:   ev.At.Seconds(),
		Stage:     ev.Stage,
		Bin:       string(ev.Bin),
		Reason:    ev.Reason,
		Timestamp: time.Now(),
	}
	if ev.Kind == controller.EventDeposit || ev.Kind == controller.EventReject {
		msg.Fruit = ev.Fruit.String()
	}

	select {
	case p.queue <- msg:
	default:
		p.mu.Lock()
		p.dropped++
		n := p.dropped
		p.mu.Unlock()
		log.Warn().Str("kind", string(ev.Kind)).Int("dropped", n).Msg("Event queue full, dropping event")
	}
}

// Dropped returns the number of events lost to a full queue
func (p *Publisher) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Subject returns the subject an event kind is published on
func (p *Publisher) Subject(kind controller.EventKind) string {
	return p.subject + "." + string(kind)
}

// Run publishes queued events until ctx is cancelled, then flushes what is
// left in the queue
func (p *Publisher) Run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case msg := <-p.queue:
					p.publish(msg)
				default:
					return
				}
			}
		case msg := <-p.queue:
			p.publish(msg)
		}
	}
}

func (p *Publisher) publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal event")
		return
	}
	if err := p.conn.Publish(p.Subject(msg.Kind), data); err != nil {
		log.Error().Err(err).Str("kind", string(msg.Kind)).Msg("Failed to publish event")
		return
	}
	log.Debug().Str("kind", string(msg.Kind)).Int("stage", msg.Stage).Msg("Published event")
}

// Close waits for Run to flush and drains the connection
func (p *Publisher) Close() error {
	var err error
	p.stopOnce.Do(func() {
		select {
		case <-p.done:
		case <-time.After(5 * time.Second):
			log.Warn().Msg("Timed out waiting for event publisher to flush")
		}
		err = p.conn.Drain()
	})
	return err
}
