// Package loader reads a persisted observation stream back in bounded pages,
// so analytics passes work on streams larger than memory.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"

	"backtest-reporter/internal/observation"
)

// Loader pages one stream kind in append order. A missing stream file is "no
// data", not an error. Exactly one loader reads a run's streams per pass, and
// only after the recorder has shut down.
type Loader struct {
	ctx      *observation.RunContext
	kind     observation.Kind
	pageSize int
	logger   zerolog.Logger
}

// New constructs a loader with the given page size.
func New(ctx *observation.RunContext, kind observation.Kind, pageSize int, logger zerolog.Logger) *Loader {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Loader{
		ctx:      ctx,
		kind:     kind,
		pageSize: pageSize,
		logger:   logger.With().Str("component", "loader").Str("kind", string(kind)).Logger(),
	}
}

// RecordCount reads the stream's metadata side-record. When the metadata is
// missing it recovers the true count with a one-time full scan.
func (l *Loader) RecordCount() (int, error) {
	meta, err := observation.LoadMetadata(l.ctx.MetaPath(l.kind))
	if err == nil {
		return meta.NumRecords, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return 0, err
	}

	l.logger.Warn().Msg("stream metadata missing; counting records with a full scan")
	count := 0
	scanErr := l.ForEachPage(func(page *observation.Page) error {
		count += len(page.Rows)
		return nil
	})
	if scanErr != nil {
		return 0, scanErr
	}
	return count, nil
}

// ForEachPage streams the file once in append order, invoking fn with pages
// of at most the configured size. Only one page is held in memory at a time.
// Returning an error from fn aborts the scan.
func (l *Loader) ForEachPage(fn func(page *observation.Page) error) error {
	file, err := os.Open(l.ctx.StreamPath(l.kind))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s stream: %w", l.kind, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("read %s stream header: %w", l.kind, err)
	}

	page := &observation.Page{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read %s stream row: %w", l.kind, err)
		}

		row, err := parseRow(header, record)
		if err != nil {
			return fmt.Errorf("parse %s stream row: %w", l.kind, err)
		}
		page.Rows = append(page.Rows, row)

		if len(page.Rows) == l.pageSize {
			if err := fn(page); err != nil {
				return err
			}
			page = &observation.Page{}
		}
	}

	if len(page.Rows) > 0 {
		return fn(page)
	}
	return nil
}

func parseRow(header, record []string) (observation.Row, error) {
	values := make(map[string]string, len(header))
	for i, col := range header {
		if i < len(record) {
			values[col] = record[i]
		}
	}

	var dt time.Time
	if raw := values[observation.FieldTimestamp]; raw != "" {
		parsed, err := time.Parse(observation.TimeLayout, raw)
		if err != nil {
			return observation.Row{}, fmt.Errorf("timestamp %q: %w", raw, err)
		}
		dt = parsed
	}
	return observation.NewRow(dt, values[observation.FieldTicker], values), nil
}
