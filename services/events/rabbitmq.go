// Package eventsvc publishes the domain events to a RabbitMQ topic exchange.
package eventsvc

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/notify"
)

// Publisher is a notify.Sink; the routing key of each message is the event type, eg. "user.certified".
type Publisher struct {
	url      string
	exchange string
	logger   core.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

var _ notify.Sink = (*Publisher)(nil) // interface compliance check

// NewPublisher connects to the broker and declares the exchange.
func NewPublisher(conf core.RabbitMQConfig, logger core.Logger) (*Publisher, error) {
	p := &Publisher{url: conf.URL, exchange: conf.Exchange, logger: logger}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect must be called with mu held (or before the publisher is shared).
func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return errors.Wrap(err, "connecting to RabbitMQ")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "opening channel")
	}
	err = ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return errors.Wrapf(err, "declaring exchange %s", p.exchange)
	}
	p.conn, p.channel = conn, ch
	return nil
}

func (p *Publisher) Name() string { return "rabbitmq" }

// message encodes `ev` as a persistent JSON message.
func message(ev notify.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, errors.Wrap(err, "encoding event")
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	}, nil
}

func (p *Publisher) Handle(ctx context.Context, ev notify.Event) error {
	msg, err := message(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() || p.channel.IsClosed() {
		p.logger.Warn("rabbitmq: connection lost, reconnecting")
		p.close()
		if err = p.connect(); err != nil {
			return err
		}
	}
	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		ev.Type,    // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	)
	return errors.Wrapf(err, "publishing %s", ev.Type)
}

func (p *Publisher) close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.channel = nil, nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.close()
}
