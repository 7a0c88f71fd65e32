package main

import (
	"context"

	"github.com/spf13/cobra"

	"peereval/internal/config"
	"peereval/internal/ingest"
	"peereval/internal/store"
)

func newIngestCmd() *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load a processed-exam-data document and persist the student roster",
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

			st, err := store.Open(cfg.System.DBPath, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.SaveStudentsBatch(context.Background(), doc.Students); err != nil {
				return err
			}

			logger.Info("ingest complete", "students", len(doc.Students), "questions", len(doc.Questions))
			return nil
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "path to the processed exam data JSON document")
	cmd.MarkFlagRequired("data")
	return cmd
}
