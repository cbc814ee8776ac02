// Command raven is a source-based package manager for Linux. It loads
// declarative TOML recipes, resolves their dependency graphs under SemVer
// constraints, builds each package from source inside a hermetic sandbox,
// and commits the resulting installed files to a transactional catalog.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"raven/internal/sandbox"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == sandbox.SentinelArg {
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "missing sandbox plan path")
			os.Exit(1)
		}
		os.Exit(sandbox.RunInit(os.Args[2]))
	}

	verbose := false
	args := os.Args[1:]
	filtered := args[:0:0]
	for _, a := range args {
		if a == "--verbose" || a == "-v" {
			verbose = true
			continue
		}
		filtered = append(filtered, a)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	code := Dispatch(context.Background(), filtered)
	os.Exit(code)
}
