package notify

import (
	"bidbot/utils"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Topology names a direct exchange bound to a durable queue. Messages are
// routed by their kind.
type Topology struct {
	Exchange string
	Queue    string
}

var routingKeys = []string{KindNewHighBid, KindWelcome, KindPasswordReset, KindAuctionWon}

// Declare creates the exchange and queue and binds every message kind
func (t Topology) Declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(t.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp: declare exchange %s: %w", t.Exchange, err)
	}
	if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp: declare queue %s: %w", t.Queue, err)
	}
	for _, key := range routingKeys {
		if err := ch.QueueBind(t.Queue, key, t.Exchange, false, nil); err != nil {
			return fmt.Errorf("amqp: bind queue %s to %s: %w", t.Queue, key, err)
		}
	}
	return nil
}

// AMQPSender publishes messages to RabbitMQ for an out-of-process mailer
type AMQPSender struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
}

// NewAMQPSender declares the topology on ch and returns a publishing sender.
// The channel is owned by the caller.
func NewAMQPSender(ch *amqp.Channel, topology Topology) (*AMQPSender, error) {
	if err := topology.Declare(ch); err != nil {
		return nil, err
	}
	return &AMQPSender{ch: ch, exchange: topology.Exchange}, nil
}

// Send publishes msg as a persistent JSON message
func (s *AMQPSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("amqp: encode message: %w", err)
	}

	// amqp channels are not safe for concurrent publishing
	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.ch.PublishWithContext(ctx, s.exchange, msg.Kind, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp: publish to exchange %s: %w", s.exchange, err)
	}
	return nil
}

// Consumer drains the notification queue into a Sender
type Consumer struct {
	ch     *amqp.Channel
	queue  string
	sender Sender
}

// NewConsumer declares the topology on ch and prepares to deliver through sender
func NewConsumer(ch *amqp.Channel, topology Topology, sender Sender) (*Consumer, error) {
	if err := topology.Declare(ch); err != nil {
		return nil, err
	}
	return &Consumer{ch: ch, queue: topology.Queue, sender: sender}, nil
}

// Run consumes until ctx is cancelled or the channel closes. Undecodable
// messages are dropped; delivery failures are requeued once.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp: consume %s: %w", c.queue, err)
	}

	utils.Info("Consuming notifications", map[string]any{"queue": c.queue})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("amqp: delivery channel for %s closed", c.queue)
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		utils.Error("Dropping undecodable notification", map[string]any{"error": err.Error()})
		d.Nack(false, false)
		return
	}

	if err := c.sender.Send(ctx, msg); err != nil {
		utils.Error("Failed to deliver notification", map[string]any{
			"kind":        msg.Kind,
			"to":          msg.To,
			"redelivered": d.Redelivered,
			"error":       err.Error(),
		})
		d.Nack(false, !d.Redelivered)
		return
	}
	d.Ack(false)
}
