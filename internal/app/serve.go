// Package app wires the concrete dependency graph for the HTTP
// evaluation surface: store, authenticator, evaluation service,
// assigner, minter, metrics, and the router built from them. Shared by
// both cmd/peerctl's "serve" subcommand and cmd/server's thin
// entrypoint so the two never drift.
package app

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"peereval/internal/api"
	"peereval/internal/api/handlers"
	"peereval/internal/assigner"
	"peereval/internal/auth"
	"peereval/internal/config"
	"peereval/internal/evaluation"
	"peereval/internal/ingest"
	"peereval/internal/metrics"
	"peereval/internal/store"
	"peereval/internal/tokenminter"
)

// Serve opens the store, loads the optional processed-exam-data
// document, builds the full handler graph, and runs the HTTP server
// until it exits or errors.
func Serve(cfg config.Config, dataPath string, logger *slog.Logger) error {
	st, err := store.Open(cfg.System.DBPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	doc := ingest.Document{}
	if dataPath != "" {
		doc, err = ingest.LoadFile(dataPath)
		if err != nil {
			return err
		}
	}
	idx := doc.Index()

	authenticator := auth.New(cfg.Server.JWTSecret, 0)
	evalSvc := evaluation.New(st, idx, idx)
	reg := metrics.New(prometheus.DefaultRegisterer)

	h := handlers.New(st, authenticator, evalSvc, assigner.New(), tokenminter.New(), reg, cfg, logger, doc)
	router := api.SetupRouter(h)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("starting server", "addr", addr)
	return router.Run(addr)
}
