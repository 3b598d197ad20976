package audit

import (
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Publisher mirrors audit records to a Kafka topic for out-of-process
// analytics. Sends are asynchronous so a slow broker never blocks a tick.
type Publisher struct {
	producer sarama.AsyncProducer
	topic    string
	l        *zap.Logger
	done     chan struct{}
}

// NewPublisher connects an async producer to the given brokers.
func NewPublisher(brokers []string, topic string, l *zap.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	if l == nil {
		l = zap.NewNop()
	}

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Return.Errors = true
	config.Version = sarama.V2_8_0_0

	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, errors.Wrap(err, "create kafka producer")
	}

	p := &Publisher{
		producer: producer,
		topic:    topic,
		l:        l,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(p.done)
		for err := range producer.Errors() {
			l.Warn("audit record publish failed", zap.Error(err))
		}
	}()

	return p, nil
}

// Publish enqueues one record, keyed by instrument so per-instrument ordering
// survives partitioning.
func (p *Publisher) Publish(record Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal audit record")
	}

	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(record.Instrument),
		Value: sarama.ByteEncoder(payload),
	}
	return nil
}

// Close drains pending sends and shuts the producer down.
func (p *Publisher) Close() error {
	p.producer.AsyncClose()
	<-p.done
	return nil
}
