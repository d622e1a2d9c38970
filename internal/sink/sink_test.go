package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ppiankov/broadsheet/internal/model"
)

func testReport() *model.Report {
	return &model.Report{
		RunID:       "run-1",
		DocumentID:  "gazette",
		ProcessedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Pages:       []model.PageReport{{Number: 1}, {Number: 2, Error: "boom"}},
		Stories: []model.Story{
			{ID: "s1", Headline: "Council approves budget", Pages: []int{1, 2}},
			{ID: "s2", Headline: "Harbour reopens", Pages: []int{1}},
		},
	}
}

// mockSink records writes and can fail on demand
type mockSink struct {
	name   string
	err    error
	writes int
	closed bool
}

func (m *mockSink) Name() string { return m.name }

func (m *mockSink) Write(ctx context.Context, report *model.Report) error {
	m.writes++
	return m.err
}

func (m *mockSink) Close() error {
	m.closed = true
	return nil
}

func TestMulti_WriteJoinsErrors(t *testing.T) {
	errA := errors.New("disk full")
	a := &mockSink{name: "a", err: errA}
	b := &mockSink{name: "b"}
	c := &mockSink{name: "c", err: errors.New("timeout")}

	m := NewMulti(a, b, c)
	err := m.Write(context.Background(), testReport())
	if err == nil {
		t.Fatal("expected joined error")
	}
	if !errors.Is(err, errA) {
		t.Errorf("expected joined error to wrap %v, got %v", errA, err)
	}
	for _, s := range []*mockSink{a, b, c} {
		if s.writes != 1 {
			t.Errorf("sink %s: expected 1 write, got %d", s.name, s.writes)
		}
	}

	if err := m.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
	if !a.closed || !b.closed || !c.closed {
		t.Error("expected every sink to be closed")
	}
}

func TestNewFromConfig_NoSinks(t *testing.T) {
	s, err := NewFromConfig(context.Background(), model.SinkConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Errorf("expected nil sink, got %T", s)
	}
}

func TestNewFromConfig_Dir(t *testing.T) {
	s, err := NewFromConfig(context.Background(), model.SinkConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*FileSink); !ok {
		t.Errorf("expected *FileSink, got %T", s)
	}
}

func TestFileSink_Write(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSink(dir)

	if err := s.Write(context.Background(), testReport()); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "gazette", "run-1.json"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var got model.Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if got.RunID != "run-1" || len(got.Stories) != 2 {
		t.Errorf("unexpected report: %+v", got)
	}

	if _, err := os.Stat(filepath.Join(dir, "gazette", "run-1.json.tmp")); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestFileSink_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewFileSink(t.TempDir()).Write(ctx, testReport()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// mockPutter captures PutObject calls
type mockPutter struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (m *mockPutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	body, _ := io.ReadAll(params.Body)
	m.inputs = append(m.inputs, params)
	m.bodies = append(m.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink_Write(t *testing.T) {
	putter := &mockPutter{}
	s := newS3SinkWithClient(putter, "papers", "reports")

	if err := s.Write(context.Background(), testReport()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(putter.inputs) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(putter.inputs))
	}

	in := putter.inputs[0]
	if *in.Bucket != "papers" {
		t.Errorf("expected bucket papers, got %s", *in.Bucket)
	}
	if *in.Key != "reports/gazette/run-1.json" {
		t.Errorf("unexpected key %s", *in.Key)
	}
	if *in.ContentType != "application/json" {
		t.Errorf("unexpected content type %s", *in.ContentType)
	}
	if in.Metadata["run-id"] != "run-1" {
		t.Errorf("expected run-id metadata, got %v", in.Metadata)
	}

	var got model.Report
	if err := json.Unmarshal(putter.bodies[0], &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.DocumentID != "gazette" {
		t.Errorf("unexpected body document %q", got.DocumentID)
	}
}

func TestS3Sink_WriteError(t *testing.T) {
	s := newS3SinkWithClient(&mockPutter{err: errors.New("access denied")}, "papers", "")
	if err := s.Write(context.Background(), testReport()); err == nil {
		t.Error("expected upload error")
	}
}

func TestKafkaSink_Write(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)

	var kinds []string
	checker := func(val []byte) error {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(val, &probe); err != nil {
			return err
		}
		if _, ok := probe["story"]; ok {
			kinds = append(kinds, "story")
		} else {
			kinds = append(kinds, "summary")
		}
		return nil
	}
	for i := 0; i < 3; i++ {
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(checker)
	}

	s := NewKafkaSinkWithProducer(producer, "")
	if s.topic != DefaultKafkaTopic {
		t.Errorf("expected default topic, got %s", s.topic)
	}

	if err := s.Write(context.Background(), testReport()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(kinds) != 3 || kinds[0] != "story" || kinds[1] != "story" || kinds[2] != "summary" {
		t.Errorf("unexpected message order: %v", kinds)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestKafkaSink_WriteError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	s := NewKafkaSinkWithProducer(producer, "stories")
	if err := s.Write(context.Background(), testReport()); err == nil {
		t.Error("expected publish error")
	}
	_ = s.Close()
}
