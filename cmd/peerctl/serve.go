package main

import (
	"github.com/spf13/cobra"

	"peereval/internal/app"
	"peereval/internal/config"
)

func newServeCmd() *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP evaluation surface and admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return app.Serve(cfg, dataPath, logger)
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "path to the processed exam data JSON document (drives GET /evaluate)")
	return cmd
}
