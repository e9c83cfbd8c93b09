// Copyright 2026 Confidential VM Agent Contributors
//
// Licensed under the Functional Source License, Version 1.1,
// ALv2 Future License, the terms and conditions of which are
// set forth in the "LICENSE" file included in the root directory
// of this code repository (the "License"); you may not use this
// file except in compliance with the License. You may obtain
// a copy of the License at
//
// https://fsl.software/FSL-1.1-ALv2.template.md
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package endpoints wires the agent's core components to the HTTP
// surface described in the agent's external interface contract. It
// is a thin adapter: request parsing and response shaping only, with
// every substantive operation delegated to ima, snapshot, attestation,
// lifecycle, and provision.
package endpoints

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cvmagent/agent/agentconfig"
	"github.com/cvmagent/agent/agenterrors"
	"github.com/cvmagent/agent/attestation"
	"github.com/cvmagent/agent/snapshot"
	"github.com/cvmagent/agent/tlsgate"
)

// Dependencies are the collaborators the HTTP surface delegates to.
type Dependencies struct {
	Config      *agentconfig.Config
	Snapshot    *snapshot.Worker
	Identity    *tlsgate.Identity
	VersionGate *tlsgate.VersionGate
	TEE         *attestation.TeeFacade
	// TPM is nil when the agent has no TPM configured.
	TPM *attestation.TPMFacade
}

// Server adapts Dependencies to the agent's HTTP contract.
type Server struct {
	deps Dependencies
	mux  *http.ServeMux
}

// New builds a Server and registers every route on its mux.
func New(deps Dependencies) *Server {
	s := &Server{deps: deps, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /ima/ascii", s.getIMAAscii)
	s.mux.HandleFunc("GET /ima/binary", s.getIMABinary)
	s.mux.HandleFunc("GET /snapshot", s.getSnapshot)
	s.mux.HandleFunc("DELETE /snapshot", s.deleteSnapshot)
	s.mux.HandleFunc("GET /quote/tee", s.getTeeQuote)
	s.mux.HandleFunc("GET /quote/tpm", s.getTpmQuote)
	s.mux.HandleFunc("POST /app/init", s.postAppInit)
	s.mux.HandleFunc("POST /app/restart", s.postAppRestart)

	return s
}

// Handler returns the http.Handler to pass to an http.Server,
// wrapping every route with the client-version gate.
func (s *Server) Handler() http.Handler {
	return s.withVersionGate(s.mux)
}

// withVersionGate rejects requests from a client whose declared
// version is below the configured floor before any route handler
// runs. A nil gate (no minimum configured) passes every request
// through unchecked.
func (s *Server) withVersionGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.VersionGate != nil && !s.deps.VersionGate.Allow(r.Header.Get("User-Agent")) {
			agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindBadUserAgent,
				errUpdateClient{minimum: s.deps.VersionGate.Minimum()}))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errUpdateClient struct{ minimum string }

func (e errUpdateClient) Error() string {
	return "client version too old, minimum required is " + e.minimum
}

// writeJSON writes v as the response body with a 200 status unless a
// different status has already been set by the caller.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response body", "error", err)
	}
}
