package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"peereval/internal/config"
	"peereval/internal/consensus"
	"peereval/internal/store"
)

func newConsensusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consensus",
		Short: "Run the Vancouver estimator over every accepted submission and print the final-grade artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.System.DBPath, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			subs, err := st.AllSubmissions(ctx)
			if err != nil {
				return err
			}

			edges := consensus.EdgesFromSubmissions(subs)
			vCfg := consensus.Config{
				RMax:              cfg.Vancouver.RMax,
				VG:                cfg.Vancouver.VG,
				Alpha:             cfg.Vancouver.Alpha,
				N:                 cfg.Vancouver.N,
				NIterations:       cfg.Vancouver.NIterations,
				BasicPrecision:    cfg.Vancouver.BasicPrecision,
				UseAllData:        cfg.Vancouver.UseAllData,
				Debias:            cfg.Vancouver.Debias,
				AggregateByMedian: cfg.Vancouver.AggregateByMedian,
			}

			results := consensus.Run(edges, vCfg)
			artifact := consensus.BuildArtifact(results, vCfg)

			logger.Info("consensus complete", "students", len(artifact.FinalGrades))

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(artifact)
		},
	}
	return cmd
}
