package recorder

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
)

// streamWriter appends rows to one append-only CSV stream. The header is
// written once, when the file is first created; every later row conforms to
// the same column set, with empty cells for inapplicable fields.
type streamWriter struct {
	file    *os.File
	columns []string
}

func newStreamWriter(path string, columns []string) (*streamWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	w := &streamWriter{file: file, columns: columns}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if info.Size() == 0 {
		cw := csv.NewWriter(file)
		if err := cw.Write(columns); err != nil {
			_ = file.Close()
			return nil, err
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			_ = file.Close()
			return nil, err
		}
	}
	return w, nil
}

// Append writes a batch of rows. On failure the file is truncated back to its
// pre-batch size so a retry of the same batch never duplicates rows.
func (w *streamWriter) Append(rows []map[string]string) error {
	offset, err := w.file.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w.file)
	record := make([]string, len(w.columns))
	for _, row := range rows {
		for i, col := range w.columns {
			record[i] = row[col]
		}
		if err := cw.Write(record); err != nil {
			_ = w.file.Truncate(offset)
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = w.file.Truncate(offset)
		return err
	}
	return nil
}

func (w *streamWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
