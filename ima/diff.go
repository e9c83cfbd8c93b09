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

package ima

import (
	"bytes"
	"strings"
)

// ReferenceEntry is one (path, file hash) pair from a reference snapshot,
// used as the baseline to diff a live IMA log against.
type ReferenceEntry struct {
	Path string
	Hash []byte
}

const bootAggregate = "boot_aggregate"

// Diff returns the sub-log of entries present in log but absent from
// reference: the synthetic boot_aggregate entry is always excluded,
// entries the kernel invalidated (all-zero file hash) are excluded, and a
// reference path's spaces are normalized to '_' before comparison, since
// the kernel itself performs that substitution when writing filename
// hints into the log.
func Diff(log *Log, reference []ReferenceEntry) *Log {
	type key struct {
		path string
		hash string
	}

	normalized := make(map[key]struct{}, len(reference))
	for _, r := range reference {
		normalized[key{path: strings.ReplaceAll(r.Path, " ", "_"), hash: string(r.Hash)}] = struct{}{}
	}

	out := &Log{}
	for _, e := range log.Entries {
		if e.FilenameHint == bootAggregate {
			continue
		}
		if isAllZero(e.FiledataHash) {
			continue
		}
		if _, found := normalized[key{path: e.FilenameHint, hash: string(e.FiledataHash)}]; found {
			continue
		}
		out.Entries = append(out.Entries, e)
	}
	return out
}

func isAllZero(b []byte) bool {
	return bytes.Equal(b, make([]byte, len(b)))
}
