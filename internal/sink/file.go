package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/broadsheet/internal/model"
)

// FileSink writes reports as JSON files below a directory
type FileSink struct {
	dir string
}

// NewFileSink creates a directory sink
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Name implements Sink
func (s *FileSink) Name() string {
	return "file"
}

// Write implements Sink. The file is written to a temporary name first and
// renamed so readers never see a partial report.
func (s *FileSink) Write(ctx context.Context, report *model.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	path := filepath.Join(s.dir, filepath.FromSlash(reportKey(report)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create sink dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Close implements Sink
func (s *FileSink) Close() error {
	return nil
}
