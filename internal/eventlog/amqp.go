package eventlog

import (
	"context"
	"encoding/json"
	"fmt"

	"propertyhub/internal/modules/notification"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPJournal publishes records to a durable fanout exchange, routed by wire type.
type AMQPJournal struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func DialAMQP(url, exchange string) (*AMQPJournal, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPJournal{conn: conn, ch: ch, exchange: exchange}, nil
}

func (j *AMQPJournal) Record(ctx context.Context, rec notification.Record) error {
	msg, err := publishing(rec)
	if err != nil {
		return err
	}
	return j.ch.PublishWithContext(ctx, j.exchange, rec.WireType, false, false, msg)
}

func publishing(rec notification.Record) (amqp.Publishing, error) {
	body, err := json.Marshal(newEntry(rec))
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal record: %w", err)
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    rec.At,
		ContentType:  "application/json",
		Type:         string(rec.Kind),
		Body:         body,
	}, nil
}

func (j *AMQPJournal) Close() error {
	if j == nil {
		return nil
	}
	if j.ch != nil {
		_ = j.ch.Close()
	}
	if j.conn != nil {
		return j.conn.Close()
	}
	return nil
}
