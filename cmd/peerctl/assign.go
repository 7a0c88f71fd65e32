package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"peereval/internal/assigner"
	"peereval/internal/config"
	"peereval/internal/ingest"
)

func newAssignCmd() *cobra.Command {
	var dataPath, outPath string

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Build the reviewer->paper assignment relation and print its balance diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			doc, err := ingest.LoadFile(dataPath)
			if err != nil {
				return err
			}

			a := assigner.New()
			set, err := a.Assign(doc.StudentIDs(), doc.Questions, assigner.Options{
				AssignmentsPerStudent: cfg.Assignment.AssignmentsPerStudent,
				AllowSelfEvaluation:   cfg.Assignment.AllowSelfEvaluation,
				Mode:                  assigner.BalanceMode(cfg.Assignment.BalanceMode),
				RandomSeed:            cfg.Assignment.RandomSeed,
			})
			if err != nil {
				return err
			}

			logger.Info("assignment complete",
				"pairs", len(set.Pairs),
				"balance_index", set.Balance.BalanceIndex,
				"min_in_degree", set.Balance.MinInDegree,
				"max_in_degree", set.Balance.MaxInDegree,
			)

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(set)
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "path to the processed exam data JSON document")
	cmd.Flags().StringVar(&outPath, "out", "", "write the assignment set as JSON here (defaults to stdout)")
	cmd.MarkFlagRequired("data")
	return cmd
}
