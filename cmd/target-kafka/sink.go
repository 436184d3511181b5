package main

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	kafka "github.com/segmentio/kafka-go"
)

// kafkaSink buffers one batch of messages for a single topic.
type kafkaSink struct {
	writer   *kafka.Writer
	topic    string
	keyProps []string
	pending  []kafka.Message
}

func newKafkaSink(writer *kafka.Writer, topic string, keyProps []string) *kafkaSink {
	return &kafkaSink{writer: writer, topic: topic, keyProps: keyProps}
}

// ProcessRecord implements target.Sink.
func (s *kafkaSink) ProcessRecord(record map[string]any, _ map[string]any) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record for topic %s: %w", s.topic, err)
	}
	s.pending = append(s.pending, kafka.Message{
		Topic: s.topic,
		Key:   []byte(s.recordKey(record)),
		Value: value,
	})
	return nil
}

// ProcessBatch implements target.Sink.
func (s *kafkaSink) ProcessBatch(_ map[string]any) error {
	if len(s.pending) == 0 {
		return nil
	}
	if err := s.writer.WriteMessages(context.Background(), s.pending...); err != nil {
		return fmt.Errorf("produce to topic %s: %w", s.topic, err)
	}
	s.pending = nil
	return nil
}

// recordKey joins the key-property values so records for one entity land
// in one partition. Keyless streams get a random key.
func (s *kafkaSink) recordKey(record map[string]any) string {
	if len(s.keyProps) == 0 {
		return uuid.NewString()
	}
	parts := make([]string, len(s.keyProps))
	for i, k := range s.keyProps {
		parts[i] = fmt.Sprintf("%v", record[k])
	}
	return strings.Join(parts, "/")
}
