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
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cvmagent/agent/attestation"
)

func TestGetTeeQuote_RejectsMalformedNonceEncoding(t *testing.T) {
	server := newTestServer(t, func(d *Dependencies) {
		d.TEE = attestation.NewTeeFacade(attestation.VendorSevSnp, &fakeQuoteProvider{})
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/quote/tee?nonce=not-base64!!", nil)
	server.getTeeQuote(w, r)
	require.Equal(t, 400, w.Code)
}

func TestGetTeeQuote_RejectsWrongLengthNonce(t *testing.T) {
	server := newTestServer(t, func(d *Dependencies) {
		d.TEE = attestation.NewTeeFacade(attestation.VendorSevSnp, &fakeQuoteProvider{})
	})

	shortNonce := base64.RawStdEncoding.EncodeToString(make([]byte, 10))
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/quote/tee?nonce="+shortNonce, nil)
	server.getTeeQuote(w, r)
	require.Equal(t, 400, w.Code)
}

func TestGetTeeQuote_ReturnsBase64EncodedQuoteOnSuccess(t *testing.T) {
	provider := &fakeQuoteProvider{}
	server := newTestServer(t, func(d *Dependencies) {
		d.TEE = attestation.NewTeeFacade(attestation.VendorSevSnp, provider)
	})

	nonce := base64.RawStdEncoding.EncodeToString(make([]byte, attestation.NonceSize))
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/quote/tee?nonce="+nonce, nil)
	server.getTeeQuote(w, r)

	require.Equal(t, 200, w.Code)
	var body string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	decoded, err := base64.RawStdEncoding.DecodeString(body)
	require.NoError(t, err)
	require.Contains(t, string(decoded), "quote:")
}

func TestGetTeeQuote_SurfacesProviderFailureAs500(t *testing.T) {
	provider := &fakeQuoteProvider{err: errProviderUnavailable}
	server := newTestServer(t, func(d *Dependencies) {
		d.TEE = attestation.NewTeeFacade(attestation.VendorSevSnp, provider)
	})

	nonce := base64.RawStdEncoding.EncodeToString(make([]byte, attestation.NonceSize))
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/quote/tee?nonce="+nonce, nil)
	server.getTeeQuote(w, r)
	require.Equal(t, 500, w.Code)
}

func TestGetTpmQuote_ReturnsConfigurationErrorWhenNoTPM(t *testing.T) {
	server := newTestServer(t, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/quote/tpm", nil)
	server.getTpmQuote(w, r)
	require.Equal(t, 500, w.Code)
}

func TestGetTpmQuote_RejectsOverLongNonceAsAttestationError(t *testing.T) {
	server := newTestServer(t, func(d *Dependencies) {
		d.TPM = newProvisionedTPMFacade(t)
	})

	// An over-length nonce is an attestation-layer failure, not a
	// malformed request: TPMFacade.Quote itself rejects it as a
	// TpmError, which maps to 500, not 400.
	longNonce := base64.RawStdEncoding.EncodeToString(make([]byte, attestation.MaxTpmNonceSize+1))
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/quote/tpm?nonce="+longNonce, nil)
	server.getTpmQuote(w, r)
	require.Equal(t, 500, w.Code)
}

type errString string

func (e errString) Error() string { return string(e) }

const errProviderUnavailable = errString("provider unavailable")
