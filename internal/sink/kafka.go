package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/ppiankov/broadsheet/internal/model"
)

// DefaultKafkaTopic is used when no topic is configured
const DefaultKafkaTopic = "broadsheet.stories"

// StoryMessage is the payload published for every story
type StoryMessage struct {
	RunID      string      `json:"run_id"`
	DocumentID string      `json:"document_id"`
	Story      model.Story `json:"story"`
}

// RunSummary is the final message of a run
type RunSummary struct {
	RunID       string    `json:"run_id"`
	DocumentID  string    `json:"document_id"`
	ProcessedAt time.Time `json:"processed_at"`
	Pages       int       `json:"pages"`
	FailedPages []int     `json:"failed_pages,omitempty"`
	Stories     int       `json:"stories"`
	Jumps       int       `json:"jumps"`
	Warnings    []string  `json:"warnings,omitempty"`
}

// KafkaSink publishes one message per story followed by a run summary.
// Messages are keyed by document id so a document stays on one partition.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaSink connects a synchronous producer to brokers
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create producer: %w", err)
	}
	return NewKafkaSinkWithProducer(producer, topic), nil
}

// NewKafkaSinkWithProducer wraps an existing producer
func NewKafkaSinkWithProducer(producer sarama.SyncProducer, topic string) *KafkaSink {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return &KafkaSink{producer: producer, topic: topic}
}

// Name implements Sink
func (s *KafkaSink) Name() string {
	return "kafka"
}

// Write implements Sink
func (s *KafkaSink) Write(ctx context.Context, report *model.Report) error {
	msgs := make([]*sarama.ProducerMessage, 0, len(report.Stories)+1)

	for _, story := range report.Stories {
		payload, err := json.Marshal(StoryMessage{
			RunID:      report.RunID,
			DocumentID: report.DocumentID,
			Story:      story,
		})
		if err != nil {
			return fmt.Errorf("marshal story %s: %w", story.ID, err)
		}
		msgs = append(msgs, s.message("story", report.DocumentID, payload))
	}

	summary, err := json.Marshal(RunSummary{
		RunID:       report.RunID,
		DocumentID:  report.DocumentID,
		ProcessedAt: report.ProcessedAt,
		Pages:       len(report.Pages),
		FailedPages: report.FailedPages(),
		Stories:     len(report.Stories),
		Jumps:       report.JumpCount(),
		Warnings:    report.Warnings,
	})
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	msgs = append(msgs, s.message("summary", report.DocumentID, summary))

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("publish %d messages: %w", len(msgs), err)
	}
	return nil
}

func (s *KafkaSink) message(kind, key string, payload []byte) *sarama.ProducerMessage {
	return &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(kind)},
		},
	}
}

// Close implements Sink
func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
