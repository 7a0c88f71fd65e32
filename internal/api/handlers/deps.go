// Package handlers implements the gin handler functions for both the
// student-facing evaluation surface and the professor/head-TA
// administration API. Grounded on the teacher's handlers package
// shape (one file per resource, package-level functions) but every
// function here is a method on Handlers instead of reaching for
// package-level database/auth globals — there is no singleton to
// initialize before the router can serve a request.
package handlers

import (
	"log/slog"

	"peereval/internal/assigner"
	"peereval/internal/auth"
	"peereval/internal/config"
	"peereval/internal/evaluation"
	"peereval/internal/ingest"
	"peereval/internal/metrics"
	"peereval/internal/store"
	"peereval/internal/tokenminter"
)

// Handlers bundles every dependency the HTTP surface needs. Constructed
// once at startup (cmd/peerctl's "serve" / cmd/server) and passed into
// the router; there is no package-level *Store or *Authenticator.
type Handlers struct {
	Store    *store.Store
	Auth     *auth.Authenticator
	Eval     *evaluation.Service
	Assigner *assigner.Assigner
	Minter   *tokenminter.Minter
	Metrics  *metrics.Registry
	Config   config.Config
	Logger   *slog.Logger
	Doc      ingest.Document
}

// New constructs a Handlers value from its dependencies.
func New(
	s *store.Store,
	a *auth.Authenticator,
	eval *evaluation.Service,
	asn *assigner.Assigner,
	minter *tokenminter.Minter,
	m *metrics.Registry,
	cfg config.Config,
	logger *slog.Logger,
	doc ingest.Document,
) *Handlers {
	return &Handlers{
		Store: s, Auth: a, Eval: eval, Assigner: asn, Minter: minter,
		Metrics: m, Config: cfg, Logger: logger, Doc: doc,
	}
}
