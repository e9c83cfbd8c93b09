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

func TestGetSnapshot_OrdersAndReturns202WhenNoneCached(t *testing.T) {
	server := newTestServer(t, nil)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/snapshot", nil)

	server.getSnapshot(w, r)
	require.Equal(t, 202, w.Code)
	require.Equal(t, "null\n", w.Body.String())
}

func TestGetSnapshot_ReturnsSameAccepted202WhenAlreadyOrdered(t *testing.T) {
	server := newTestServer(t, nil)
	require.NoError(t, server.deps.Snapshot.Order())

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/snapshot", nil)
	server.getSnapshot(w, r)
	require.Equal(t, 202, w.Code)
}

func TestDeleteSnapshot_Returns409WhenComputeAboutToStart(t *testing.T) {
	server := newTestServer(t, nil)
	require.NoError(t, server.deps.Snapshot.Order())

	w := httptest.NewRecorder()
	r := httptest.NewRequest("DELETE", "/snapshot", nil)
	server.deleteSnapshot(w, r)
	require.Equal(t, 409, w.Code)
}

func TestDeleteSnapshot_SucceedsWhenIdle(t *testing.T) {
	server := newTestServer(t, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("DELETE", "/snapshot", nil)
	server.deleteSnapshot(w, r)
	require.Equal(t, 200, w.Code)
}
