package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPQueue publishes to and consumes from a durable RabbitMQ queue.
// Deliveries are acked once handed to the consumer channel.
type AMQPQueue struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewAMQPQueue dials the broker and declares the queue.
func NewAMQPQueue(rawURL, queueName string) (*AMQPQueue, error) {
	cleanURL, err := sanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}
	if queueName == "" {
		queueName = "attendance.enrollments"
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp declare %s: %w", queueName, err)
	}
	return &AMQPQueue{conn: conn, ch: ch, queue: queueName}, nil
}

// Publish sends a persistent JSON message, reopening the channel once on failure.
func (q *AMQPQueue) Publish(ctx context.Context, msg Message) error {
	body, err := serialize(msg)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         msg.Type,
		Timestamp:    time.Now(),
		Body:         body,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, pub)
	if err == nil {
		return nil
	}
	log.Printf("queue: amqp publish failed, reopening channel: %v", err)
	ch, chErr := q.conn.Channel()
	if chErr != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	q.ch = ch
	return q.ch.PublishWithContext(ctx, "", q.queue, false, false, pub)
}

// Consume streams deliveries until ctx ends or the channel closes.
func (q *AMQPQueue) Consume(ctx context.Context) (<-chan Message, error) {
	q.mu.Lock()
	deliveries, err := q.ch.ConsumeWithContext(ctx, q.queue, "", false, false, false, false, nil)
	q.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("amqp consume: %w", err)
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				msg, err := deserialize(d.Body)
				if err != nil {
					log.Printf("queue: rejecting delivery %s: %v", d.MessageId, err)
					_ = d.Reject(false)
					continue
				}
				select {
				case out <- msg:
					_ = d.Ack(false)
				case <-ctx.Done():
					_ = d.Nack(false, true)
					return
				}
			}
		}
	}()
	return out, nil
}

// Close closes the channel and connection.
func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
