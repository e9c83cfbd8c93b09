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

package endpoints

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"net/http"

	"github.com/cvmagent/agent/agenterrors"
	"github.com/cvmagent/agent/lifecycle"
)

// appConfFilename is the name the supervised application's decoded
// configuration is written under within its storage directory.
const appConfFilename = "app.conf"

var errNoAppConfigured = errors.New("no app section provided in agent configuration file")

type initAppRequest struct {
	Content string `json:"content"`
}

// postAppInit writes the supplied configuration to the supervised
// application's storage directory and starts it. It is an error to
// call this when the agent has no application configured.
func (s *Server) postAppInit(w http.ResponseWriter, r *http.Request) {
	storagePath := s.deps.Config.AppStoragePath()
	if s.deps.Config.App == nil || storagePath == "" {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindBadRequest, errNoAppConfigured))
		return
	}

	var req initAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindBadRequest,
			fmt.Errorf("decode request body: %w", err)))
		return
	}
	content, err := base64.RawStdEncoding.DecodeString(req.Content)
	if err != nil {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindBadRequest,
			fmt.Errorf("content must be base64 encoded: %w", err)))
		return
	}

	if err := os.MkdirAll(storagePath, 0o700); err != nil {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindIO, err))
		return
	}
	if err := os.WriteFile(filepath.Join(storagePath, appConfFilename), content, 0o600); err != nil {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindIO, err))
		return
	}

	if err := lifecycle.Start(r.Context(), s.deps.Config.AppSpec()); err != nil {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindCommand, err))
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// postAppRestart stops and starts the supervised application. When no
// application is configured this is a silent no-op success, since a
// verifier polling an agent with no managed payload should not be
// treated as having made a mistake.
func (s *Server) postAppRestart(w http.ResponseWriter, r *http.Request) {
	if s.deps.Config.App == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	spec := s.deps.Config.AppSpec()
	if err := lifecycle.Stop(r.Context(), spec); err != nil {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindCommand, err))
		return
	}
	if err := lifecycle.Start(r.Context(), spec); err != nil {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindCommand, err))
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
