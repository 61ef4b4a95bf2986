package invalidation

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// Publisher sends boundary-update events to the invalidation topic. It is
// the producing side of the consumer in kafkaconsumer, used by whatever
// process ingests new boundary datasets.
type Publisher struct {
	topic  string
	prod   sarama.SyncProducer
	logger *zerolog.Logger
}

func NewPublisher(brokers []string, topic string, logger *zerolog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll

	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("invalidation: create producer: %w", err)
	}
	return &Publisher{topic: topic, prod: prod, logger: logger}, nil
}

// newPublisherWith injects a producer for tests.
func newPublisherWith(topic string, prod sarama.SyncProducer, logger *zerolog.Logger) *Publisher {
	return &Publisher{topic: topic, prod: prod, logger: logger}
}

// Publish validates and sends one event. Delivery is synchronous; a
// boundary update that cannot be announced must fail loudly, not vanish.
func (p *Publisher) Publish(ev Event) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("invalidation: refusing to publish invalid event: %w", err)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("invalidation: marshal event: %w", err)
	}

	partition, offset, err := p.prod.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return fmt.Errorf("invalidation: send event: %w", err)
	}

	p.logger.Info().
		Str("op", ev.Op).
		Int("codes", len(ev.Codes)).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("boundary update published")
	return nil
}

func (p *Publisher) Close() error {
	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("invalidation: close producer: %w", err)
	}
	return nil
}
