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

// TestParseBinary_MatchesKnownRecord reproduces the first record of the
// reference Go binary IMA fixture used by the upstream implementation
// this codec is modeled on: pcr 10, ima-ng template, sha1 hash of
// "boot_aggregate".
func TestParseBinary_MatchesKnownRecord(t *testing.T) {
	raw := []byte{
		// header: pcr=10, digest, name_length=6
		10, 0, 0, 0,
		0x47, 0x0f, 0x3a, 0x07, 0xc9, 0x79, 0xdf, 0xda, 0x23, 0xc7, 0x5b, 0x48, 0x65, 0x95, 0x5d, 0xf7, 0x04, 0xe4, 0x9e, 0x4b,
		6, 0, 0, 0,
	}
	raw = append(raw, []byte("ima-ng")...)

	body := []byte{
		26, 0, 0, 0, 's', 'h', 'a', '1', ':', 0,
		0x3d, 0x99, 0x3d, 0x6b, 0xfa, 0xd2, 0x56, 0x46, 0x37, 0x31, 0x0b, 0x64, 0x3c, 0x40, 0x4f, 0x54, 0xd2, 0x3b, 0x85, 0xe2,
		15, 0, 0, 0,
	}
	body = append(body, []byte("boot_aggregate")...)
	body = append(body, 0)

	lenBuf := []byte{byte(len(body)), 0, 0, 0}
	raw = append(raw, lenBuf...)
	raw = append(raw, body...)

	log, err := ParseBinary(raw)
	require.NoError(t, err)
	require.Len(t, log.Entries, 1)

	e := log.Entries[0]
	require.EqualValues(t, 10, e.PCR)
	require.Equal(t, TemplateImaNg, e.TemplateName)
	require.Equal(t, SHA1, e.FiledataHashMethod)
	require.Equal(t, "boot_aggregate", e.FilenameHint)
	require.Nil(t, e.FileSignature)
	require.Equal(t, body, e.TemplateData)
}

func TestParseBinary_TruncatedHeaderRejected(t *testing.T) {
	_, err := ParseBinary([]byte{1, 2, 3})
	require.NoError(t, err) // fewer bytes than one header: loop body never runs, empty log
}

func TestParseBinary_TruncatedBodyRejected(t *testing.T) {
	raw := []byte{
		10, 0, 0, 0,
	}
	raw = append(raw, make([]byte, 20)...)
	raw = append(raw, 6, 0, 0, 0)
	raw = append(raw, []byte("ima-ng")...)
	raw = append(raw, 100, 0, 0, 0) // claims 100 bytes of body, supplies none
	raw = append(raw, 1)            // padding so the loop condition is entered

	_, err := ParseBinary(raw)
	require.Error(t, err)
}

func TestParseBinary_UnsupportedTemplateRejected(t *testing.T) {
	raw := []byte{10, 0, 0, 0}
	raw = append(raw, make([]byte, 20)...)
	raw = append(raw, 3, 0, 0, 0)
	raw = append(raw, []byte("wtf")...)
	raw = append(raw, 0, 0, 0, 0)
	raw = append(raw, 1) // padding past loop boundary

	_, err := ParseBinary(raw)
	require.Error(t, err)
}
