// Package kafka streams recorded audit events to a Kafka topic as JSON
// records keyed by user id, so one user's events stay ordered in a partition.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "pedcare/pkg/platform/audit"
	"pedcare/pkg/platform/sentinel"
)

const (
	HeaderRunID     = "run_id"
	HeaderViolation = "violation"
)

type Producer struct {
	client *kgo.Client
	topic  string
	runID  []byte
	closed atomic.Bool
}

// NewProducer connects to brokers. The client is owned by the producer and
// released by Close.
func NewProducer(brokers []string, topic string, runID uuid.UUID, opts ...kgo.Opt) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka: topic is required")
	}
	opts = append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}, opts...)
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}
	return &Producer{client: client, topic: topic, runID: []byte(runID.String())}, nil
}

func (p *Producer) Name() string { return "kafka" }

// Write produces the batch and waits for every record to be acknowledged.
func (p *Producer) Write(ctx context.Context, events []audit.Event) error {
	if p.closed.Load() {
		return fmt.Errorf("kafka producer: %w", sentinel.ErrClosed)
	}
	if len(events) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(audit.NewRecord(e))
		if err != nil {
			return fmt.Errorf("marshal audit record %s: %w", e.ID, err)
		}
		violation := "false"
		if e.IsViolation {
			violation = "true"
		}
		records = append(records, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(e.UserID),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: HeaderRunID, Value: p.runID},
				{Key: HeaderViolation, Value: []byte(violation)},
			},
		})
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit records: %w", err)
	}
	return nil
}

// Ping checks broker connectivity.
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close releases the client. Later writes fail with sentinel.ErrClosed.
func (p *Producer) Close() {
	if p.closed.CompareAndSwap(false, true) {
		p.client.Close()
	}
}

// Decode parses a record value produced by Write.
func Decode(value []byte) (audit.Event, error) {
	var r audit.Record
	if err := json.Unmarshal(value, &r); err != nil {
		return audit.Event{}, fmt.Errorf("decode audit record: %w", err)
	}
	return r.Event()
}
