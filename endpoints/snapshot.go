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
	"errors"
	"net/http"

	"github.com/cvmagent/agent/agenterrors"
	"github.com/cvmagent/agent/snapshot"
)

// getSnapshot returns the cached snapshot if one has completed. If
// none has ever been ordered it orders one and reports 202; if one is
// already in flight it also reports 202, since either way the caller
// is being told to poll again rather than that its request conflicted
// with anything.
func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Snapshot.Get()
	switch {
	case err == nil && snap != nil:
		writeJSON(w, http.StatusOK, snap)
	case errors.Is(err, snapshot.ErrSnapshotInProgress):
		writeJSON(w, http.StatusAccepted, nil)
	case err != nil:
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindUnexpected, err))
	default:
		// No snapshot has completed yet: kick one off and tell the
		// caller to poll again.
		if orderErr := s.deps.Snapshot.Order(); orderErr != nil && !errors.Is(orderErr, snapshot.ErrSnapshotInProgress) {
			agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindUnexpected, orderErr))
			return
		}
		writeJSON(w, http.StatusAccepted, nil)
	}
}

// deleteSnapshot clears the cached snapshot, refusing with 409 if a
// computation is in progress or about to start.
func (s *Server) deleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Snapshot.Reset(); err != nil {
		if errors.Is(err, snapshot.ErrSnapshotInProgress) {
			agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindSnapshotInProgress, err))
			return
		}
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindUnexpected, err))
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
