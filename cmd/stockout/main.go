package main

import (
	"os"

	"github.com/wonny/stockout/cmd/stockout/commands"
)

// main is the entry point for the stockout CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/stockout [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
