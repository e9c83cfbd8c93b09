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

// Package snapshot walks the guest filesystem, merges the result with the
// kernel IMA measurement log, and maintains a single-flight cached
// Snapshot record produced by a cancellable background worker.
package snapshot

// Files is a set of (path, file hash) pairs with duplicates collapsed.
type Files map[string][]byte

// Add inserts or overwrites the hash recorded for path.
func (f Files) Add(path string, hash []byte) {
	f[path] = hash
}

// TeePolicy is the vendor-opaque verification policy extracted from a
// fresh zero-nonce TEE quote at snapshot time.
type TeePolicy struct {
	Vendor string
	Quote  []byte
}

// TpmPolicy is the vendor-opaque verification policy extracted from a
// zero-nonce, empty-PCR TPM quote.
type TpmPolicy struct {
	Quote     []byte
	Signature []byte
	PublicKey []byte
}

// Snapshot is the top-level record produced by the snapshot worker. When
// the TEE is SGX-class, TpmPolicy and Files are both nil: the enclave
// measurement alone suffices as the verifier's baseline.
type Snapshot struct {
	TeePolicy TeePolicy
	TpmPolicy *TpmPolicy
	Files     Files
}
