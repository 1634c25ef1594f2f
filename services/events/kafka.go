package eventsvc

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/ledger"
)

var ErrNoBrokers = errors.New("kafka publisher requires at least one broker")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher forwards ledger blocks to a kafka topic, keyed by the record they are about.
type Publisher struct {
	writer messageWriter
	logger core.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger core.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.WithStack(ErrNoBrokers)
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		logger: logger,
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, b ledger.Block) error {
	value, err := json.Marshal(b)
	if err != nil {
		return errors.Wrap(err, "encoding block")
	}
	key := b.Ref
	if key == "" {
		key = b.Type
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  b.Time,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(b.Type)},
			{Key: "hash", Value: []byte(b.Hash)},
		},
	})
	return errors.Wrapf(err, "publishing block %d", b.Height)
}

// Run publishes every block broadcast on hub until ctx is done or the hub is closed.
// Failed publications are logged and skipped.
func (p *Publisher) Run(ctx context.Context, hub *ledger.Hub) {
	blocks, cancel := hub.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-blocks:
			if !ok {
				return
			}
			if err := p.Publish(ctx, b); err != nil {
				p.logger.Error("kafka publisher", err, map[string]interface{}{"height": b.Height})
			}
		}
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
