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

package snapshot

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"os"

	"github.com/cvmagent/agent/ima"
)

// wireTeePolicy, wireTpmPolicy, and wireSnapshot describe the
// verifier-facing JSON persisted snapshot format: policy blobs are
// base64-without-padding, file hashes are lowercase hex.
type wireTeePolicy struct {
	Vendor string `json:"vendor"`
	Quote  string `json:"quote"`
}

type wireTpmPolicy struct {
	Quote     string `json:"quote"`
	Signature string `json:"signature"`
	PublicKey string `json:"public_key"`
}

type wireSnapshot struct {
	TeePolicy wireTeePolicy  `json:"tee_policy"`
	TpmPolicy *wireTpmPolicy `json:"tpm_policy"`
	Files     [][2]string    `json:"file_hashes"`
}

var rawEncoding = base64.RawStdEncoding

// MarshalJSON renders the snapshot into the verifier-facing persisted
// format described in the agent's external interface contract.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	w := wireSnapshot{
		TeePolicy: wireTeePolicy{
			Vendor: s.TeePolicy.Vendor,
			Quote:  rawEncoding.EncodeToString(s.TeePolicy.Quote),
		},
	}
	if s.TpmPolicy != nil {
		w.TpmPolicy = &wireTpmPolicy{
			Quote:     rawEncoding.EncodeToString(s.TpmPolicy.Quote),
			Signature: rawEncoding.EncodeToString(s.TpmPolicy.Signature),
			PublicKey: rawEncoding.EncodeToString(s.TpmPolicy.PublicKey),
		}
	}
	if s.Files != nil {
		w.Files = make([][2]string, 0, len(s.Files))
		for path, hash := range s.Files {
			w.Files = append(w.Files, [2]string{path, hex.EncodeToString(hash)})
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the verifier-facing persisted format back into a
// Snapshot.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	quote, err := rawEncoding.DecodeString(w.TeePolicy.Quote)
	if err != nil {
		return err
	}
	s.TeePolicy = TeePolicy{Vendor: w.TeePolicy.Vendor, Quote: quote}

	if w.TpmPolicy != nil {
		q, err := rawEncoding.DecodeString(w.TpmPolicy.Quote)
		if err != nil {
			return err
		}
		sig, err := rawEncoding.DecodeString(w.TpmPolicy.Signature)
		if err != nil {
			return err
		}
		pub, err := rawEncoding.DecodeString(w.TpmPolicy.PublicKey)
		if err != nil {
			return err
		}
		s.TpmPolicy = &TpmPolicy{Quote: q, Signature: sig, PublicKey: pub}
	}

	if w.Files != nil {
		s.Files = make(Files, len(w.Files))
		for _, pair := range w.Files {
			h, err := hex.DecodeString(pair[1])
			if err != nil {
				return err
			}
			s.Files.Add(pair[0], h)
		}
	}

	return nil
}

// Save writes the snapshot to path in the persisted JSON format.
func Save(path string, s Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Load reads a persisted snapshot from path.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// ReferenceEntries converts the snapshot's file hashes into the
// comparison shape the ima package's Diff operation expects.
func (s Snapshot) ReferenceEntries() []ima.ReferenceEntry {
	if s.Files == nil {
		return nil
	}
	entries := make([]ima.ReferenceEntry, 0, len(s.Files))
	for path, hash := range s.Files {
		entries = append(entries, ima.ReferenceEntry{Path: path, Hash: hash})
	}
	return entries
}
