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

package attestation

import (
	"crypto/sha256"
	"fmt"
)

// ReportDataSize is the width of the TEE quote report-data field.
const ReportDataSize = 64

// NonceSize is the required length of the caller-supplied TEE nonce.
const NonceSize = 32

// ForgeReportData builds the 64-byte report-data value that binds a
// TEE quote to both a verifier's challenge and this agent's TLS
// identity: the nonce occupies the first half verbatim, and a SHA-256
// digest of the agent's DER-encoded leaf certificate occupies the
// second half. A verifier holding the same nonce and leaf certificate
// can recompute this value and compare it against the quote's
// report-data slot.
func ForgeReportData(nonce, leafCertDER []byte) ([ReportDataSize]byte, error) {
	var out [ReportDataSize]byte
	if len(nonce) != NonceSize {
		return out, fmt.Errorf("attestation: nonce must be %d bytes, got %d", NonceSize, len(nonce))
	}
	digest := sha256.Sum256(leafCertDER)
	copy(out[:NonceSize], nonce)
	copy(out[NonceSize:], digest[:])
	return out, nil
}
