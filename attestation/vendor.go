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

// Package attestation binds the agent's TLS identity and the caller's
// nonce into TEE report-data, and obtains TEE and TPM quotes from
// whichever vendor providers the guest exposes.
package attestation

// Vendor identifies which hardware TEE produced a quote.
type Vendor int

const (
	VendorSevSnp Vendor = iota
	VendorTdx
	VendorSgx
)

func (v Vendor) String() string {
	switch v {
	case VendorSevSnp:
		return "sev-snp"
	case VendorTdx:
		return "tdx"
	case VendorSgx:
		return "sgx"
	default:
		return "unknown"
	}
}

// HasFilesystemMeasurement reports whether this vendor's attestation
// model is augmented by a TPM-backed integrity snapshot. SGX's enclave
// measurement is taken to be sufficient on its own: a Snapshot for an
// SGX-attested agent carries no TPM policy or file hashes.
func (v Vendor) HasFilesystemMeasurement() bool {
	return v != VendorSgx
}
