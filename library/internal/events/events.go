// Package events publishes loan and reservation lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Astemirdum/school-library/pkg/circuit_breaker"
	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Type string

const (
	LoanCreated         Type = "loan.created"
	LoanReturned        Type = "loan.returned"
	LoanCancelled       Type = "loan.cancelled"
	ReservationCreated  Type = "reservation.created"
	ReservationApproved Type = "reservation.approved"
	ReservationRejected Type = "reservation.rejected"
)

type Event struct {
	Type      Type       `json:"type"`
	LoanID    *uuid.UUID `json:"loanId,omitempty"`
	OrderID   *uuid.UUID `json:"orderId,omitempty"`
	BookID    uuid.UUID  `json:"bookId"`
	StudentID uuid.UUID  `json:"studentId"`
	// Available is the book's available count after the change.
	Available int       `json:"available"`
	At        time.Time `json:"at"`
}

// Publisher never fails the caller: delivery problems are logged and the
// event is dropped.
type Publisher interface {
	Publish(ctx context.Context, e Event)
	Close() error
}

type noop struct{}

func NewNoop() Publisher { return noop{} }

func (noop) Publish(context.Context, Event) {}
func (noop) Close() error                   { return nil }

type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	cb       circuit_breaker.CircuitBreaker
	log      *zap.Logger
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string, log *zap.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		topic:    topic,
		cb: circuit_breaker.New(circuit_breaker.Config{
			RecordLength:     20,
			Timeout:          10 * time.Second,
			Percentile:       0.5,
			RecoveryRequests: 2,
		}),
		log: log.Named("events"),
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, e Event) {
	if err := ctx.Err(); err != nil {
		p.log.Warn("publish skipped", zap.String("type", string(e.Type)), zap.Error(err))
		return
	}
	err := p.cb.Call(func() error {
		return p.send(e)
	})
	if err != nil {
		p.log.Warn("event dropped",
			zap.String("type", string(e.Type)),
			zap.Stringer("book", e.BookID),
			zap.Stringer("breaker", p.cb.State()),
			zap.Error(err))
		return
	}
	p.log.Debug("event published", zap.String("type", string(e.Type)), zap.Stringer("book", e.BookID))
}

func (p *kafkaPublisher) send(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "json.Marshal")
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(e.BookID.String()),
		Value: sarama.ByteEncoder(data),
	}
	if _, _, err = p.producer.SendMessage(msg); err != nil {
		return errors.Wrap(err, "SendMessage")
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}
