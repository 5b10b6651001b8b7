package services

import (
	"encoding/json"
	"time"

	"fido2_rp_ms/config"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

const (
	EventRegistrationCompleted   = "RegistrationCompleted"
	EventRegistrationFailed      = "RegistrationFailed"
	EventAuthenticationCompleted = "AuthenticationCompleted"
	EventAuthenticationFailed    = "AuthenticationFailed"
)

// CeremonyEvent is the audit record published after each result call.
type CeremonyEvent struct {
	Event        string    `json:"event"`
	RequestID    string    `json:"requestId"`
	UserID       string    `json:"userId,omitempty"`
	Username     string    `json:"username,omitempty"`
	CredentialID string    `json:"credentialId,omitempty"`
	ErrorKind    string    `json:"errorKind,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

type IEventPublisher interface {
	Publish(event *CeremonyEvent)
	Close() error
}

// KafkaEventPublisher pushes ceremony audit events through a shared sync
// producer. Publishing is best effort, a broker outage must never fail a
// ceremony that already committed.
type KafkaEventPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewKafkaEventPublisher(conf config.Kafka, logger *zap.Logger) (IEventPublisher, error) {
	if !conf.Enabled {
		return &noopEventPublisher{}, nil
	}
	saramaConf := sarama.NewConfig()
	saramaConf.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(conf.Brokers, saramaConf)
	if err != nil {
		return nil, err
	}
	return &KafkaEventPublisher{producer: producer, topic: conf.Topic, logger: logger}, nil
}

func (p *KafkaEventPublisher) Publish(event *CeremonyEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("encode ceremony event", zap.Error(err))
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.RequestID),
		Value: sarama.ByteEncoder(data),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error("publish ceremony event",
			zap.String("event", event.Event),
			zap.String("requestId", event.RequestID),
			zap.Error(err))
		return
	}
	p.logger.Debug("ceremony event published",
		zap.String("event", event.Event),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}

type noopEventPublisher struct{}

func (*noopEventPublisher) Publish(*CeremonyEvent) {}
func (*noopEventPublisher) Close() error           { return nil }
