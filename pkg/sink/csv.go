package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
	"github.com/QuantGov/regcensus-api-go/pkg/regerr"
)

// EncodeCSV writes t as UTF-8 comma separated values with a header row of
// the table's columns. Absent optional cells are empty.
func EncodeCSV(w io.Writer, t *regdata.ResultTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return err
	}
	for i := range t.Rows {
		if err := cw.Write(t.Cells(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvBytes(t *regdata.ResultTable) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileSink writes a CSV file. The file is written to a temporary sibling
// and renamed into place, so a failed write leaves no partial file.
type FileSink struct {
	path   string
	logger *slog.Logger
}

// NewFileSink returns a CSV sink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path, logger: slog.Default().With("component", "sink")}
}

func (s *FileSink) Write(ctx context.Context, t *regdata.ResultTable) (string, error) {
	data, err := csvBytes(t)
	if err != nil {
		return "", &regerr.WriteError{Dest: s.path, Err: err}
	}

	tmpPath := s.path + ".tmp"
	//nolint:gosec // G306: downloads are meant to be readable
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return "", &regerr.WriteError{Dest: s.path, Err: fmt.Errorf("write csv: %w", err)}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return "", &regerr.WriteError{Dest: s.path, Err: fmt.Errorf("commit csv: %w", err)}
	}

	s.logger.InfoContext(ctx, "table written", "dest", s.path, "rows", t.Len())
	return s.path, nil
}

func (s *FileSink) Close() error { return nil }
