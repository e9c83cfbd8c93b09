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
	"crypto/sha1" //nolint:gosec
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustEntry(t *testing.T, templateHash [20]byte, templateData []byte) Entry {
	t.Helper()
	e, err := NewEntry(10, templateHash, TemplateImaNg, SHA256, []byte{1, 2, 3}, "/bin/true", nil, templateData)
	require.NoError(t, err)
	return e
}

func TestReplay_SHA1UsesStoredDigestDirectly(t *testing.T) {
	var templateHash [20]byte
	copy(templateHash[:], []byte("01234567890123456789"))
	e := mustEntry(t, templateHash, []byte("whatever template body"))
	log := &Log{Entries: []Entry{e}}

	got := Replay(log, BankSHA1)

	h := sha1.New() //nolint:gosec
	h.Write(make([]byte, 20))
	h.Write(templateHash[:])
	require.Equal(t, h.Sum(nil), got)
}

func TestReplay_SHA256RehashesTemplateBody(t *testing.T) {
	var templateHash [20]byte
	copy(templateHash[:], []byte("01234567890123456789"))
	body := []byte("the full serialized template body")
	e := mustEntry(t, templateHash, body)
	log := &Log{Entries: []Entry{e}}

	got := Replay(log, BankSHA256)

	inner := sha256.Sum256(body)
	h := sha256.New()
	h.Write(make([]byte, 32))
	h.Write(inner[:])
	require.Equal(t, h.Sum(nil), got)
}

func TestReplay_InvalidatedMeasurementUsesAllFFRegardlessOfHash(t *testing.T) {
	var zero [20]byte
	e1 := mustEntry(t, zero, []byte("body one"))
	e2 := mustEntry(t, zero, []byte("a totally different body"))

	got1 := Replay(&Log{Entries: []Entry{e1}}, BankSHA256)
	got2 := Replay(&Log{Entries: []Entry{e2}}, BankSHA256)

	require.Equal(t, got1, got2, "extension contribution must be independent of the entry's hash when invalidated")

	ff := make([]byte, 32)
	for i := range ff {
		ff[i] = 0xFF
	}
	h := sha256.New()
	h.Write(make([]byte, 32))
	h.Write(ff)
	require.Equal(t, h.Sum(nil), got1)
}

func TestReplay_EmptyLogIsAllZero(t *testing.T) {
	got := Replay(&Log{}, BankSHA256)
	require.Equal(t, make([]byte, 32), got)
}

func TestReplay_RoundTripThroughASCIISerialization(t *testing.T) {
	line := "10 a84ff12e903a050abff2f336292d8318e7430a89 ima-ng sha1:f4107171a62db56e4949c30fca97d09f7550aac5 /usr/lib/modules/x/autofs4.ko"
	log, err := ParseASCII([]byte(line))
	require.NoError(t, err)

	reparsed, err := ParseASCII(SerializeASCII(log))
	require.NoError(t, err)

	for _, bank := range []PCRBank{BankSHA1, BankSHA256, BankSHA384, BankSHA512} {
		require.Equal(t, Replay(log, bank), Replay(reparsed, bank))
	}
}

func TestReplay_RoundTripThroughBinarySerialization(t *testing.T) {
	line := "10 a84ff12e903a050abff2f336292d8318e7430a89 ima-ng sha256:0e340b558513b76fbe6e5a6b2a03f3e8f42257b95e6ed980697baf4680e8eeeb /usr/bin/true"
	log, err := ParseASCII([]byte(line))
	require.NoError(t, err)

	reparsed, err := ParseBinary(SerializeBinary(log))
	require.NoError(t, err)
	require.Len(t, reparsed.Entries, 1)

	for _, bank := range []PCRBank{BankSHA1, BankSHA256, BankSHA384, BankSHA512} {
		require.Equal(t, Replay(log, bank), Replay(reparsed, bank))
	}
}
