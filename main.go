package main

import "backtest-reporter/internal/cli"

func main() {
	cli.Execute()
}
