// Package plot reduces a state observation stream to a bounded, visually
// faithful series for the renderer, without ever loading the full stream.
package plot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"backtest-reporter/internal/loader"
	"backtest-reporter/internal/observation"
)

// Columns written to plot_data.csv.
var outputColumns = []string{observation.FieldTimestamp, observation.FieldTicker, "s_close"}

// Downsampler streams the state stream in fixed-size chunks and applies
// trade-preserving LTTB: the first and last rows of the whole series and
// every row whose timestamp coincides with a trade are always retained; the
// remaining point budget is spread across chunks proportionally.
type Downsampler struct {
	ctx        *observation.RunContext
	targetSize int
	chunkSize  int
	logger     zerolog.Logger
}

// New constructs a downsampler. targetSize is clamped to at least 2.
func New(ctx *observation.RunContext, targetSize, chunkSize int, logger zerolog.Logger) *Downsampler {
	if targetSize < 2 {
		targetSize = 2
	}
	if chunkSize < 1 {
		chunkSize = 50000
	}
	return &Downsampler{
		ctx:        ctx,
		targetSize: targetSize,
		chunkSize:  chunkSize,
		logger:     logger.With().Str("component", "downsampler").Logger(),
	}
}

// Run writes the reduced series to plot_data.csv and returns its path. A
// missing state stream produces an empty output file, not an error.
func (d *Downsampler) Run() (string, error) {
	outPath := d.ctx.PlotPath()
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("create plot dir: %w", err)
	}

	if _, err := os.Stat(d.ctx.StreamPath(observation.KindState)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if werr := os.WriteFile(outPath, nil, 0o644); werr != nil {
				return "", fmt.Errorf("write empty plot data: %w", werr)
			}
			return outPath, nil
		}
		return "", fmt.Errorf("stat state stream: %w", err)
	}

	// The trade stream is far smaller than the state stream; read it fully
	// once to build the must-keep timestamp set.
	tradeTimes, err := d.collectTradeTimestamps()
	if err != nil {
		return "", err
	}

	stateLoader := loader.New(d.ctx, observation.KindState, d.chunkSize, d.logger)
	totalRows, err := stateLoader.RecordCount()
	if err != nil {
		return "", err
	}

	out, err := newOutputWriter(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if totalRows <= 0 {
		return outPath, out.Finish()
	}

	totalChunks := (totalRows + d.chunkSize - 1) / d.chunkSize
	interiorBudget := d.targetSize - 2 - len(tradeTimes)
	if interiorBudget < 0 {
		interiorBudget = 0
	}

	chunkIdx := 0
	kept := 0
	err = stateLoader.ForEachPage(func(page *observation.Page) error {
		first := chunkIdx == 0
		last := chunkIdx == totalChunks-1
		chunkIdx++

		selected := d.selectChunk(page, tradeTimes, totalRows, interiorBudget, first, last)
		kept += len(selected)
		return out.WriteRows(selected)
	})
	if err != nil {
		return "", err
	}
	if err := out.Finish(); err != nil {
		return "", err
	}

	d.logger.Info().Int("total", totalRows).Int("kept", kept).Str("path", outPath).Msg("downsampled state stream")
	return outPath, nil
}

// selectChunk marks mandatory rows, assigns the chunk its proportional share
// of the interior budget, and runs LTTB over the non-mandatory subset.
func (d *Downsampler) selectChunk(page *observation.Page, tradeTimes map[time.Time]struct{}, totalRows, interiorBudget int, first, last bool) []observation.Row {
	n := len(page.Rows)
	if n == 0 {
		return nil
	}

	mustKeep := make([]bool, n)
	if first {
		mustKeep[0] = true
	}
	if last {
		mustKeep[n-1] = true
	}
	for i, row := range page.Rows {
		if _, ok := tradeTimes[row.DT]; ok {
			mustKeep[i] = true
		}
	}

	var others []int
	for i := range page.Rows {
		if !mustKeep[i] {
			others = append(others, i)
		}
	}

	budget := int(float64(n) / float64(totalRows) * float64(interiorBudget))
	if budget > len(others) {
		budget = len(others)
	}

	keep := mustKeep
	switch {
	case len(others) == 0 || budget <= 0:
		// Mandatory rows only.
	case budget <= 2:
		keep[others[0]] = true
		keep[others[len(others)-1]] = true
	default:
		values := make([]float64, len(others))
		for i, idx := range others {
			values[i] = portfolioValue(page.Rows[idx])
		}
		for _, sel := range lttbIndices(values, budget) {
			keep[others[sel]] = true
		}
	}

	var selected []observation.Row
	for i, row := range page.Rows {
		if keep[i] {
			selected = append(selected, row)
		}
	}
	return selected
}

func (d *Downsampler) collectTradeTimestamps() (map[time.Time]struct{}, error) {
	out := make(map[time.Time]struct{})
	tradeLoader := loader.New(d.ctx, observation.KindTrade, d.chunkSize, d.logger)
	err := tradeLoader.ForEachPage(func(page *observation.Page) error {
		for _, row := range page.Rows {
			if !row.DT.IsZero() {
				out[row.DT] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func portfolioValue(row observation.Row) float64 {
	return row.FloatOrZero("cap_cash") + row.FloatOrZero("h_num_shares")*row.FloatOrZero("s_close")
}

// outputWriter appends selected rows chunk-by-chunk so peak memory stays
// bounded by chunk size.
type outputWriter struct {
	file *os.File
	w    *csv.Writer
}

func newOutputWriter(path string) (*outputWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create plot data: %w", err)
	}
	w := csv.NewWriter(file)
	if err := w.Write(outputColumns); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("write plot header: %w", err)
	}
	return &outputWriter{file: file, w: w}, nil
}

func (o *outputWriter) WriteRows(rows []observation.Row) error {
	record := make([]string, len(outputColumns))
	for _, row := range rows {
		record[0] = row.DT.Format(observation.TimeLayout)
		record[1] = row.Ticker
		record[2] = row.Value("s_close")
		if err := o.w.Write(record); err != nil {
			return fmt.Errorf("write plot row: %w", err)
		}
	}
	return nil
}

func (o *outputWriter) Finish() error {
	o.w.Flush()
	if err := o.w.Error(); err != nil {
		return fmt.Errorf("flush plot data: %w", err)
	}
	return nil
}

func (o *outputWriter) Close() error {
	if o.file == nil {
		return nil
	}
	err := o.file.Close()
	o.file = nil
	return err
}
