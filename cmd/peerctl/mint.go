package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"peereval/internal/config"
	"peereval/internal/models"
	"peereval/internal/store"
	"peereval/internal/tokenminter"
)

func newMintCmd() *cobra.Command {
	var assignmentPath string

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint and persist one single-use evaluation token per assignment pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			f, err := os.Open(assignmentPath)
			if err != nil {
				return err
			}
			defer f.Close()

			var set models.AssignmentSet
			if err := json.NewDecoder(f).Decode(&set); err != nil {
				return err
			}

			questionIDs := make([]string, len(set.Questions))
			for i, q := range set.Questions {
				questionIDs[i] = q.ID
			}

			m := tokenminter.New()
			tokens, err := m.Mint(set.Pairs, tokenminter.Options{
				Questions:   questionIDs,
				TTLDays:     cfg.Token.ExpiryDays,
				TokenLength: cfg.Token.Length,
			})
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.System.DBPath, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.SaveTokensBatch(context.Background(), tokens); err != nil {
				return err
			}

			logger.Info("mint complete", "tokens", len(tokens))
			return nil
		},
	}
	cmd.Flags().StringVar(&assignmentPath, "assignment", "", "path to the JSON assignment set produced by \"peerctl assign\"")
	cmd.MarkFlagRequired("assignment")
	return cmd
}
