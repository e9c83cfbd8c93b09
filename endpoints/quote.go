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
	"errors"
	"fmt"
	"net/http"

	"github.com/cvmagent/agent/agenterrors"
	"github.com/cvmagent/agent/attestation"
	"github.com/cvmagent/agent/ima"
)

// errNoTPMConfigured is returned when /quote/tpm is requested on an
// agent started with no TPM facade.
var errNoTPMConfigured = errors.New("the agent is not configured to support TPM")

// getTeeQuote forges the report-data value binding the nonce to the
// agent's TLS identity and returns the raw vendor quote as a
// base64-encoded JSON string.
func (s *Server) getTeeQuote(w http.ResponseWriter, r *http.Request) {
	nonce, err := base64.RawStdEncoding.DecodeString(r.URL.Query().Get("nonce"))
	if err != nil {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindBadRequest,
			fmt.Errorf("nonce must be base64 encoded: %w", err)))
		return
	}
	if len(nonce) != attestation.NonceSize {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindBadRequest,
			fmt.Errorf("nonce must be %d bytes, got %d", attestation.NonceSize, len(nonce))))
		return
	}

	reportData, err := attestation.ForgeReportData(nonce, s.deps.Identity.LeafCertDER)
	if err != nil {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindBadRequest, err))
		return
	}

	_, quote, err := s.deps.TEE.Quote(r.Context(), reportData[:])
	if err != nil {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindTeeAttestation, err))
		return
	}
	writeJSON(w, http.StatusOK, base64.RawStdEncoding.EncodeToString(quote))
}

type tpmQuoteResponse struct {
	Quote       string `json:"quote"`
	Signature   string `json:"signature"`
	PublicKey   string `json:"public_key"`
	PCRHashAlgo string `json:"pcr_hash_algo"`
}

// getTpmQuote resolves the PCR the kernel extends IMA measurements
// into and returns a TPM quote over it, signed by the agent's
// attestation key.
func (s *Server) getTpmQuote(w http.ResponseWriter, r *http.Request) {
	if s.deps.TPM == nil {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindConfiguration, errNoTPMConfigured))
		return
	}

	nonce, err := base64.RawStdEncoding.DecodeString(r.URL.Query().Get("nonce"))
	if err != nil {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindBadRequest,
			fmt.Errorf("nonce must be base64 encoded: %w", err)))
		return
	}

	firstLine, err := ima.ReadAsciiFirstLine()
	if err != nil {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindIO, err))
		return
	}
	pcr := attestation.ResolvePCRSlot(firstLine)

	quote, sig, pub, err := s.deps.TPM.Quote(r.Context(), []int{int(pcr)}, nonce)
	if err != nil {
		agenterrors.LogAndRespond(w, r, agenterrors.New(agenterrors.KindTpm, err))
		return
	}

	writeJSON(w, http.StatusOK, tpmQuoteResponse{
		Quote:       base64.RawStdEncoding.EncodeToString(quote),
		Signature:   base64.RawStdEncoding.EncodeToString(sig),
		PublicKey:   base64.RawStdEncoding.EncodeToString(pub),
		PCRHashAlgo: "sha256",
	})
}
