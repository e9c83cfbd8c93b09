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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiff_TamperedHashSurfaces(t *testing.T) {
	line := "10 479a8012721c06d45aedba1791ffab7d995ad30f ima-sig sha1:4f509d391aa126829f746cc3961dc39ffbef21ab /usr/bin/aa-exec"
	log, err := ParseASCII([]byte(line))
	require.NoError(t, err)

	reference := []ReferenceEntry{
		{Path: "/usr/bin/aa-exec", Hash: mustHex(t, "4f509d391aa126829f746cc3961dc39ffbef21aa")},
	}

	diff := Diff(log, reference)
	require.Len(t, diff.Entries, 1)
	require.Equal(t, "/usr/bin/aa-exec", diff.Entries[0].FilenameHint)
}

func TestDiff_MatchingEntryExcluded(t *testing.T) {
	line := "10 479a8012721c06d45aedba1791ffab7d995ad30f ima-sig sha1:4f509d391aa126829f746cc3961dc39ffbef21ab /usr/bin/aa-exec"
	log, err := ParseASCII([]byte(line))
	require.NoError(t, err)

	reference := []ReferenceEntry{
		{Path: "/usr/bin/aa-exec", Hash: mustHex(t, "4f509d391aa126829f746cc3961dc39ffbef21ab")},
	}

	diff := Diff(log, reference)
	require.Empty(t, diff.Entries)
}

func TestDiff_SelfDiffIsEmpty(t *testing.T) {
	lines := "10 479a8012721c06d45aedba1791ffab7d995ad30f ima-ng sha1:4f509d391aa126829f746cc3961dc39ffbef21ab /a\n" +
		"10 a84ff12e903a050abff2f336292d8318e7430a89 ima-ng sha1:f4107171a62db56e4949c30fca97d09f7550aac5 /b\n"
	log, err := ParseASCII([]byte(lines))
	require.NoError(t, err)

	reference := make([]ReferenceEntry, len(log.Entries))
	for i, e := range log.Entries {
		reference[i] = ReferenceEntry{Path: e.FilenameHint, Hash: e.FiledataHash}
	}

	require.Empty(t, Diff(log, reference).Entries)
}

func TestDiff_BootAggregateAlwaysExcluded(t *testing.T) {
	line := "10 ab6cd51adcff9f5ca04ff9e23f35099125073bae ima-ng sha256:0e340b558513b76fbe6e5a6b2a03f3e8f42257b95e6ed980697baf4680e8eeeb boot_aggregate"
	log, err := ParseASCII([]byte(line))
	require.NoError(t, err)

	require.Empty(t, Diff(log, nil).Entries)
}

func TestDiff_InvalidatedMeasurementExcluded(t *testing.T) {
	var zero [20]byte
	e, err := NewEntry(10, zero, TemplateImaNg, SHA1, make([]byte, 20), "/etc/passwd", nil, nil)
	require.NoError(t, err)

	log := &Log{Entries: []Entry{e}}
	require.Empty(t, Diff(log, nil).Entries)
}

func TestDiff_WhitespaceNormalizedOnReferenceSide(t *testing.T) {
	line := "10 479a8012721c06d45aedba1791ffab7d995ad30f ima-sig sha1:4f509d391aa126829f746cc3961dc39ffbef21ab /home/user/cosmian_vm_agent_"
	log, err := ParseASCII([]byte(line))
	require.NoError(t, err)

	reference := []ReferenceEntry{
		{Path: "/home/user/cosmian_vm agent ", Hash: mustHex(t, "4f509d391aa126829f746cc3961dc39ffbef21ab")},
	}

	require.Empty(t, Diff(log, reference).Entries)
}
