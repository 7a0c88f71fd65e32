// Command peerctl drives the peer-evaluation pipeline's batch stages —
// ingest, assign, mint, consensus — and the long-running HTTP server,
// grounded on wingthing's cobra root-plus-subcommands shape.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	devLog     bool
)

func main() {
	root := &cobra.Command{
		Use:   "peerctl",
		Short: "Peer-evaluation pipeline control",
		Long:  "Runs the bipartite assignment, token minting, evaluation server, and Vancouver consensus stages.",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML configuration file (defaults baked in if omitted)")
	root.PersistentFlags().BoolVar(&devLog, "dev", false, "use text log format instead of JSON")

	root.AddCommand(newIngestCmd())
	root.AddCommand(newAssignCmd())
	root.AddCommand(newMintCmd())
	root.AddCommand(newConsensusCmd())
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if devLog {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
