package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Show pretty-prints the headline metrics of an existing report.json.
func (a *App) Show(ctx context.Context) error {
	runCtx := a.runContext()
	path := runCtx.ReportPath()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	var doc struct {
		Metrics struct {
			Cumulative map[string]any            `json:"cumulative"`
			ByTicker   map[string]map[string]any `json:"by_ticker"`
		} `json:"metrics"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse report: %w", err)
	}

	fmt.Printf("report: %s\n\ncumulative:\n", path)
	printMetrics(doc.Metrics.Cumulative)

	tickers := make([]string, 0, len(doc.Metrics.ByTicker))
	for ticker := range doc.Metrics.ByTicker {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	for _, ticker := range tickers {
		fmt.Printf("\n%s:\n", ticker)
		printMetrics(doc.Metrics.ByTicker[ticker])
	}
	return nil
}

func printMetrics(metrics map[string]any) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := metrics[name]
		if value == nil {
			fmt.Printf("  %-28s -\n", name)
			continue
		}
		fmt.Printf("  %-28s %v\n", name, value)
	}
}
