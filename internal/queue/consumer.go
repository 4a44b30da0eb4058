package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// ConsumerConfig controls the event log consumer.
type ConsumerConfig struct {
	URL    string
	Queues []string
	LogDir string
}

// StartConsumer declares the queues, consumes them and appends one line per
// event to <LogDir>/events.log. It reconnects with exponential backoff
// (capped at 30s) and returns only when ctx is cancelled. Malformed messages
// are rejected without requeue so they cannot loop.
func StartConsumer(ctx context.Context, cfg ConsumerConfig, log *logrus.Logger) error {
	l := log.WithField("component", "event-consumer")
	if len(cfg.Queues) == 0 {
		cfg.Queues = AllQueues
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "logs"
	}

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			l.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
				if backoff > 30*time.Second {
					backoff = 30 * time.Second
				}
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, cfg, l)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type delivery struct {
	queue string
	d     amqp.Delivery
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg ConsumerConfig, l *logrus.Entry) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		l.WithError(err).Warn("set QoS failed")
	}

	merged := make(chan delivery)
	var wg sync.WaitGroup
	for _, q := range cfg.Queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		wg.Add(1)
		go func(q string, msgs <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range msgs {
				select {
				case merged <- delivery{queue: q, d: d}:
				case <-ctx.Done():
					return
				}
			}
		}(q, msgs)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-merged:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(cfg.LogDir, m.queue, m.d.Body); err != nil {
				l.WithError(err).WithField("queue", m.queue).Error("handle message failed")
				_ = m.d.Nack(false, false)
				continue
			}
			_ = m.d.Ack(false)
		}
	}
}

// FormatEvent renders the log line for a message body from queue.
func FormatEvent(queue string, body []byte) (string, error) {
	var ev interface{ describe() string }
	switch queue {
	case QueueOrderPlaced:
		var e OrderPlacedEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		ev = e
	case QueueOrderStatusChanged:
		var e OrderStatusChangedEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		ev = e
	case QueuePharmacyStatusChanged:
		var e PharmacyStatusChangedEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		ev = e
	default:
		return "", fmt.Errorf("unknown queue %q", queue)
	}
	return ev.describe(), nil
}

func handleMessage(dir, queue string, body []byte) error {
	line, err := FormatEvent(queue, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "events.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
