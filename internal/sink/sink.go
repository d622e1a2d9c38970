// Package sink hands finished reports to downstream storage: a local
// directory, an S3 bucket or a Kafka topic.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/broadsheet/internal/model"
)

// Sink persists one report
type Sink interface {
	Name() string
	Write(ctx context.Context, report *model.Report) error
	Close() error
}

// Multi fans a report out to several sinks. Every sink is attempted; the
// errors are joined.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a fan-out sink
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

// Name implements Sink
func (m *Multi) Name() string {
	return "multi"
}

// Len returns the number of wrapped sinks
func (m *Multi) Len() int {
	return len(m.sinks)
}

// Write implements Sink
func (m *Multi) Write(ctx context.Context, report *model.Report) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close implements Sink
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// NewFromConfig builds the sinks configured in cfg. It returns nil when no
// sink is configured.
func NewFromConfig(ctx context.Context, cfg model.SinkConfig) (Sink, error) {
	var sinks []Sink

	if cfg.Dir != "" {
		sinks = append(sinks, NewFileSink(cfg.Dir))
	}

	if cfg.S3Bucket != "" {
		s, err := NewS3Sink(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region)
		if err != nil {
			closeAll(sinks)
			return nil, fmt.Errorf("create s3 sink: %w", err)
		}
		sinks = append(sinks, s)
	}

	if len(cfg.KafkaBrokers) > 0 {
		s, err := NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			closeAll(sinks)
			return nil, fmt.Errorf("create kafka sink: %w", err)
		}
		sinks = append(sinks, s)
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return NewMulti(sinks...), nil
	}
}

func closeAll(sinks []Sink) {
	for _, s := range sinks {
		_ = s.Close()
	}
}

// reportKey is the object name of a report: <document>/<run>.json
func reportKey(report *model.Report) string {
	doc := report.DocumentID
	if doc == "" {
		doc = "document"
	}
	return doc + "/" + report.RunID + ".json"
}
