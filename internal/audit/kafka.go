package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink mirrors audit entries to a Kafka topic for downstream consumers
// (SIEM, warehousing). It is strictly best-effort: produce failures are
// logged and forgotten, and the relational store remains the system of
// record.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// kafkaEntry is the wire form of an entry on the mirror topic.
type kafkaEntry struct {
	ID             string    `json:"id"`
	PartnerID      string    `json:"partnerId,omitempty"`
	RequesterID    string    `json:"requesterId,omitempty"`
	RequesterEmail string    `json:"requesterEmail,omitempty"`
	RequesterRole  string    `json:"requesterRole,omitempty"`
	IPAddress      string    `json:"ipAddress,omitempty"`
	UserAgent      string    `json:"userAgent,omitempty"`
	Endpoint       string    `json:"endpoint"`
	StatusCode     int       `json:"statusCode"`
	MatchedFields  []string  `json:"matchedFields,omitempty"`
	NIDFieldsUsed  []string  `json:"nidFieldsUsed,omitempty"`
	Verified       bool      `json:"verified"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewKafkaSink connects to the brokers and ensures the topic exists. An
// already-existing topic is not an error.
func NewKafkaSink(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 3, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic %q: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic %q: %w", topic, resp.Err)
	}

	return &KafkaSink{client: client, topic: topic, logger: logger}, nil
}

// Publish produces the entry asynchronously, keyed by partner id so one
// partner's trail stays ordered within a partition. Bodies are deliberately
// not mirrored; they may hold national identity data and stay in Postgres
// only.
func (s *KafkaSink) Publish(ctx context.Context, e Entry) {
	payload := kafkaEntry{
		ID:             e.ID.String(),
		RequesterEmail: e.RequesterEmail,
		RequesterRole:  e.RequesterRole,
		IPAddress:      e.IPAddress,
		UserAgent:      e.UserAgent,
		Endpoint:       e.Endpoint,
		StatusCode:     e.StatusCode,
		MatchedFields:  e.MatchedFields,
		NIDFieldsUsed:  e.NIDFieldsUsed,
		Verified:       e.Verified,
		CreatedAt:      e.CreatedAt,
	}
	if e.PartnerID != uuid.Nil {
		payload.PartnerID = e.PartnerID.String()
	}
	if e.RequesterID != uuid.Nil {
		payload.RequesterID = e.RequesterID.String()
	}

	value, err := json.Marshal(payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode audit entry for kafka", "error", err)
		return
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(payload.PartnerID),
		Value: value,
	}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.Error("failed to mirror audit entry to kafka",
				"error", err,
				"topic", s.topic,
			)
		}
	})
}

// Close flushes in-flight records and releases the client.
func (s *KafkaSink) Close(ctx context.Context) error {
	if err := s.client.Flush(ctx); err != nil {
		s.client.Close()
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	s.client.Close()
	return nil
}
