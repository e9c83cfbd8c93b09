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

// Package ima parses the Linux Integrity Measurement Architecture runtime
// measurement log (ASCII and binary forms), replays its PCR extension
// chain, and diffs a live log against a reference snapshot.
package ima

import "encoding/binary"

// Default filesystem locations of the kernel's IMA measurement lists.
const (
	AsciiLogPath  = "/sys/kernel/security/ima/ascii_runtime_measurements"
	BinaryLogPath = "/sys/kernel/security/ima/binary_runtime_measurements"
)

// eventEntrySize is the fixed-size binary header preceding every record:
// u32 pcr, [20]byte digest, u32 name_length, little-endian.
const eventEntrySize = 4 + 20 + 4

// DefaultPCR is the PCR index assumed for an empty log.
const DefaultPCR uint32 = 10

// HashMethod identifies the algorithm used to hash a measured file's
// contents.
type HashMethod int

const (
	SHA1 HashMethod = iota
	SHA256
	SHA512
)

// DefaultHashMethod is the algorithm assumed for an empty log.
const DefaultHashMethod = SHA1

// Size returns the digest width of the hash method in bytes.
func (m HashMethod) Size() int {
	switch m {
	case SHA1:
		return 20
	case SHA256:
		return 32
	case SHA512:
		return 64
	default:
		return 0
	}
}

func (m HashMethod) String() string {
	switch m {
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	case SHA512:
		return "sha512"
	default:
		return "unknown"
	}
}

func hashMethodFromPrefix(s string) (HashMethod, bool) {
	switch s {
	case "sha1":
		return SHA1, true
	case "sha256":
		return SHA256, true
	case "sha512":
		return SHA512, true
	default:
		return 0, false
	}
}

// Template identifies the IMA template a measurement entry was recorded
// under. The legacy "ima" template carries a bare SHA-1 file hash with no
// algorithm prefix; "ima-ng" and "ima-sig" carry a prefixed hash, and
// "ima-sig" may additionally carry a file signature.
type Template int

const (
	TemplateIma Template = iota
	TemplateImaNg
	TemplateImaSig
)

func (t Template) String() string {
	switch t {
	case TemplateIma:
		return "ima"
	case TemplateImaNg:
		return "ima-ng"
	case TemplateImaSig:
		return "ima-sig"
	default:
		return "unknown"
	}
}

func templateFromString(s string) (Template, error) {
	switch s {
	case "ima":
		return TemplateIma, nil
	case "ima-ng":
		return TemplateImaNg, nil
	case "ima-sig":
		return TemplateImaSig, nil
	default:
		return 0, newParseError(ReasonUnsupportedTemplate, "unsupported ima template %q", s)
	}
}

// Entry is one measured-file record from the IMA log.
//
// TemplateData is the raw serialized template body. For entries parsed
// from a binary log it is copied verbatim from the kernel; for entries
// parsed from the ASCII log it is reconstructed deterministically, because
// only the binary log carries it directly and PCR replay under SHA-2 banks
// needs it (the kernel only stores a SHA-1 template digest).
type Entry struct {
	PCR                uint32
	TemplateData       []byte
	TemplateHash       [20]byte
	TemplateName       Template
	FiledataHashMethod HashMethod
	FiledataHash       []byte
	FilenameHint       string
	FileSignature      []byte
}

// invalidHash is the kernel's "invalidated measurement" marker: a
// time-of-measure/time-of-use race left the real hash unavailable.
var invalidHash = [20]byte{}

// IsInvalidated reports whether the kernel marked this measurement
// unusable (a ToMToU race at measurement time).
func (e Entry) IsInvalidated() bool {
	return e.TemplateHash == invalidHash
}

// NewEntry builds an Entry, reconstructing TemplateData when the caller
// does not already have the kernel's raw bytes (the ASCII parser's case).
func NewEntry(pcr uint32, templateHash [20]byte, name Template, hashMethod HashMethod, fileHash []byte, filenameHint string, signature []byte, templateData []byte) (Entry, error) {
	e := Entry{
		PCR:                pcr,
		TemplateHash:       templateHash,
		TemplateName:       name,
		FiledataHashMethod: hashMethod,
		FiledataHash:       fileHash,
		FilenameHint:       filenameHint,
		FileSignature:      signature,
	}
	if templateData != nil {
		e.TemplateData = templateData
		return e, nil
	}
	data, err := buildTemplateData(name, fileHash, hashMethod, filenameHint, signature)
	if err != nil {
		return Entry{}, err
	}
	e.TemplateData = data
	return e, nil
}

// buildTemplateData reconstructs the serialized template body for an entry
// whose raw bytes were not available (i.e. it came from the ASCII log).
// The layout mirrors what the kernel writes to the binary log: a
// length-prefixed hash field (prefixed by "<algo>:\0" for ima-ng/ima-sig),
// a length-prefixed NUL-terminated path, and for ima-sig an optional
// length-prefixed signature.
func buildTemplateData(name Template, fileHash []byte, hashMethod HashMethod, filenameHint string, signature []byte) ([]byte, error) {
	var hash []byte
	if name == TemplateIma {
		hash = append([]byte{}, fileHash...)
	} else {
		prefix := hashMethod.String() + ":\x00"
		hash = append([]byte(prefix), fileHash...)
	}

	buf := make([]byte, 0, 8+len(hash)+len(filenameHint)+1+8+len(signature))
	buf = appendUint32LE(buf, uint32(len(hash)))
	buf = append(buf, hash...)
	buf = appendUint32LE(buf, uint32(len(filenameHint)+1))
	buf = append(buf, []byte(filenameHint)...)
	buf = append(buf, 0)

	if name == TemplateImaSig {
		buf = appendUint32LE(buf, uint32(len(signature)))
		buf = append(buf, signature...)
	}

	return buf, nil
}

func appendUint32LE(buf []byte, v uint32) []byte {
	tmp := make([]byte, 4)
	binary.LittleEndian.PutUint32(tmp, v)
	return append(buf, tmp...)
}

// Log is an ordered sequence of IMA entries, as read from either the
// ASCII or binary kernel measurement list.
type Log struct {
	Entries []Entry
}

// PCRIndex returns the PCR the log's entries are extended into, defaulting
// to DefaultPCR when the log is empty.
func (l *Log) PCRIndex() uint32 {
	if len(l.Entries) == 0 {
		return DefaultPCR
	}
	return l.Entries[0].PCR
}

// FileHashMethod returns the hash algorithm used to hash measured files,
// defaulting to DefaultHashMethod when the log is empty.
func (l *Log) FileHashMethod() HashMethod {
	if len(l.Entries) == 0 {
		return DefaultHashMethod
	}
	return l.Entries[0].FiledataHashMethod
}
