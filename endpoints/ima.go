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
	"net/http"
	"os"

	"github.com/cvmagent/agent/agenterrors"
	"github.com/cvmagent/agent/ima"
)

// getIMAAscii returns the raw ASCII IMA measurement log as a JSON
// string.
func (s *Server) getIMAAscii(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(ima.AsciiLogPath)
	if err != nil {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindIO, err))
		return
	}
	writeJSON(w, http.StatusOK, string(data))
}

// getIMABinary returns the raw binary IMA measurement log as a
// base64-encoded JSON string.
func (s *Server) getIMABinary(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(ima.BinaryLogPath)
	if err != nil {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindIO, err))
		return
	}
	writeJSON(w, http.StatusOK, base64.RawStdEncoding.EncodeToString(data))
}
