// Ghdash is a GitHub dashboard service: it serves repository, author,
// contributor, and search views assembled from the GitHub REST API and
// memoized in a persistent expiring cache.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "configs/ghdash.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("ghdash", version)
		os.Exit(0)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
