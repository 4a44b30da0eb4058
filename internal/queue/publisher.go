package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	dialTimeout    = 2 * time.Second
	redialCooldown = 10 * time.Second
)

// ErrBrokerCooldown is returned without dialling while a failed dial is
// still recent.
var ErrBrokerCooldown = errors.New("rabbitmq unavailable, redial pending")

// Publisher sends persistent JSON messages to durable queues on the default
// exchange. The connection is opened lazily and re-dialled after a failure,
// at most once per cooldown so a dead broker never stalls callers.
type Publisher struct {
	url string
	log *logrus.Entry

	dial func(url string) (*amqp.Connection, error)
	now  func() time.Time

	mu        sync.Mutex
	conn      *amqp.Connection
	ch        *amqp.Channel
	declared  map[string]bool
	nextDial  time.Time
	lastError error
}

func NewPublisher(url string, log *logrus.Logger) *Publisher {
	return &Publisher{
		url:      url,
		log:      log.WithField("component", "publisher"),
		dial:     dialBroker,
		now:      time.Now,
		declared: map[string]bool{},
	}
}

func dialBroker(url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
}

// Publish marshals payload and sends it to queue. Errors are logged and
// returned; callers are expected to carry on regardless.
func (p *Publisher) Publish(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.WithError(err).Error("marshal event failed")
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq unavailable")
		return err
	}
	if !p.declared[queue] {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			p.log.WithError(err).WithField("queue", queue).Error("queue declare failed")
			p.resetLocked()
			return err
		}
		p.declared[queue] = true
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.log.WithError(err).WithField("queue", queue).Error("publish failed")
		p.resetLocked()
		return err
	}
	return nil
}

func (p *Publisher) channelLocked() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.resetLocked()
	if p.url == "" {
		return nil, errors.New("rabbitmq url not configured")
	}
	if p.now().Before(p.nextDial) {
		return nil, fmt.Errorf("%w: %v", ErrBrokerCooldown, p.lastError)
	}
	conn, err := p.dial(p.url)
	if err != nil {
		p.nextDial, p.lastError = p.now().Add(redialCooldown), err
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
	p.declared = map[string]bool{}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}
