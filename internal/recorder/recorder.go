package recorder

import (
	"fmt"

	"github.com/rs/zerolog"

	"backtest-reporter/internal/observation"
)

// Recorder pools observations produced during one simulation tick, merges
// them into per-ticker rows, and appends them to the run's persisted streams.
// Exactly one Recorder writes a given run's streams.
type Recorder struct {
	ctx    *observation.RunContext
	logger zerolog.Logger

	flushThreshold int

	pools       map[observation.Kind]map[string][]observation.Observable
	prefixOrder map[observation.Kind][]string
	buffers     map[observation.Kind][]map[string]string
	flushed     map[observation.Kind]int
	writers     map[observation.Kind]*streamWriter
}

// New constructs a recorder for one run. flushThreshold is the buffered row
// count that triggers a stream append.
func New(ctx *observation.RunContext, flushThreshold int, logger zerolog.Logger) *Recorder {
	if flushThreshold <= 0 {
		flushThreshold = 1000
	}
	r := &Recorder{
		ctx:            ctx,
		logger:         logger.With().Str("component", "recorder").Logger(),
		flushThreshold: flushThreshold,
		pools:          make(map[observation.Kind]map[string][]observation.Observable),
		prefixOrder:    make(map[observation.Kind][]string),
		buffers:        make(map[observation.Kind][]map[string]string),
		flushed:        make(map[observation.Kind]int),
		writers:        make(map[observation.Kind]*streamWriter),
	}
	for _, kind := range observation.Kinds {
		r.pools[kind] = make(map[string][]observation.Observable)
	}
	return r
}

// Observe appends one observation to the current tick's pool. No I/O happens
// here; rows materialise at Pack and persist at Flush.
func (r *Recorder) Observe(obs observation.Observable) {
	kind := obs.Kind()
	pool, ok := r.pools[kind]
	if !ok {
		r.logger.Warn().Str("kind", string(kind)).Msg("dropping observation of unknown kind")
		return
	}
	prefix := obs.Prefix()
	if _, seen := pool[prefix]; !seen {
		r.prefixOrder[kind] = append(r.prefixOrder[kind], prefix)
	}
	pool[prefix] = append(pool[prefix], obs)
}

// Pack merges the pooled observations of the tick into one row per ticker and
// clears the pools. Ticker-bound fields land in that ticker's row; unbound
// fields are broadcast into every known ticker's row. Within a tick the last
// write to a field wins. When a buffer reaches the flush threshold it is
// appended to its stream; append failures are logged and the buffer retained.
func (r *Recorder) Pack() {
	for _, kind := range observation.Kinds {
		rows := r.packKind(kind)
		if len(rows) == 0 {
			continue
		}
		r.buffers[kind] = append(r.buffers[kind], rows...)
		if len(r.buffers[kind]) >= r.flushThreshold {
			if err := r.Flush(kind); err != nil {
				r.logger.Error().Err(err).Str("kind", string(kind)).Msg("flush failed; rows retained for retry")
			}
		}
	}
}

func (r *Recorder) packKind(kind observation.Kind) []map[string]string {
	pool := r.pools[kind]
	if len(pool) == 0 {
		return nil
	}

	merged := make(map[string]map[string]string)
	row := func(ticker string) map[string]string {
		if m, ok := merged[ticker]; ok {
			return m
		}
		m := map[string]string{observation.FieldTicker: ticker}
		merged[ticker] = m
		return m
	}

	for _, prefix := range r.prefixOrder[kind] {
		for _, obs := range pool[prefix] {
			targets := []map[string]string{}
			if t := obs.Ticker(); t != "" {
				targets = append(targets, row(t))
			} else {
				for _, t := range r.ctx.Tickers {
					targets = append(targets, row(t))
				}
			}
			dt := obs.Timestamp().Format(observation.TimeLayout)
			values := obs.Values()
			for _, target := range targets {
				target[observation.FieldTimestamp] = dt
				for _, field := range obs.Fields() {
					target[observation.PrefixedField(prefix, field)] = values[field]
				}
			}
		}
	}

	rows := make([]map[string]string, 0, len(merged))
	for _, ticker := range r.ctx.Tickers {
		if m, ok := merged[ticker]; ok {
			rows = append(rows, m)
		}
	}

	r.pools[kind] = make(map[string][]observation.Observable)
	r.prefixOrder[kind] = nil
	return rows
}

// Flush appends the kind's buffered rows to its stream. The stream is created
// lazily with its header on the first ever append. On failure the partial
// append is rolled back and the buffer retained, so a later retry writes each
// row exactly once.
func (r *Recorder) Flush(kind observation.Kind) error {
	buf := r.buffers[kind]
	if len(buf) == 0 {
		return nil
	}

	w, err := r.writer(kind)
	if err != nil {
		return err
	}
	if err := w.Append(buf); err != nil {
		return err
	}

	r.flushed[kind] += len(buf)
	r.buffers[kind] = nil
	r.logger.Debug().Str("kind", string(kind)).Int("rows", len(buf)).Msg("flushed observation rows")
	return nil
}

func (r *Recorder) writer(kind observation.Kind) (*streamWriter, error) {
	if w, ok := r.writers[kind]; ok {
		return w, nil
	}
	w, err := newStreamWriter(r.ctx.StreamPath(kind), r.ctx.Columns(kind))
	if err != nil {
		return nil, fmt.Errorf("open %s stream: %w", kind, err)
	}
	r.writers[kind] = w
	return w, nil
}

// Shutdown force-flushes both streams and persists their final metadata.
func (r *Recorder) Shutdown() error {
	var firstErr error
	for _, kind := range observation.Kinds {
		if err := r.Flush(kind); err != nil && firstErr == nil {
			firstErr = err
		}
		if w, ok := r.writers[kind]; ok {
			if err := w.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("close %s stream: %w", kind, err)
			}
			meta := &observation.Metadata{
				NumRecords: r.flushed[kind],
				Tickers:    r.ctx.Tickers,
				NumTickers: len(r.ctx.Tickers),
			}
			if err := meta.Write(r.ctx.MetaPath(kind)); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// FlushedRows reports how many rows have been appended to a stream so far.
func (r *Recorder) FlushedRows(kind observation.Kind) int { return r.flushed[kind] }
