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
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// The real IMA log lives under /sys/kernel/security/ima, which is
// absent in a test sandbox, so these handlers can only be exercised
// for their I/O-failure path here.
func TestGetIMAAscii_FailsWhenLogAbsent(t *testing.T) {
	server := newTestServer(t, nil)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/ima/ascii", nil)

	server.getIMAAscii(w, r)
	require.Equal(t, 500, w.Code)
}

func TestGetIMABinary_FailsWhenLogAbsent(t *testing.T) {
	server := newTestServer(t, nil)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/ima/binary", nil)

	server.getIMABinary(w, r)
	require.Equal(t, 500, w.Code)
}
