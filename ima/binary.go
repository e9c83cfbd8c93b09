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
	"encoding/binary"
	"unicode/utf8"
)

// ParseBinary parses the kernel's packed runtime measurement list: a
// sequence of 28-byte headers {pcr u32, digest [20]byte, name_length u32},
// each followed by the template name, a u32 template-body length, and the
// template body itself. Only "ima-ng" and "ima-sig" bodies are recognized
// in binary form; the legacy "ima" template's binary layout is not
// exercised by any known producer and is rejected here.
func ParseBinary(data []byte) (*Log, error) {
	log := &Log{}
	cursor := 0

	for cursor+eventEntrySize < len(data) {
		pcr := binary.LittleEndian.Uint32(data[cursor : cursor+4])
		var digest [20]byte
		copy(digest[:], data[cursor+4:cursor+24])
		nameLength := int(binary.LittleEndian.Uint32(data[cursor+24 : cursor+28]))
		cursor += eventEntrySize

		if cursor+nameLength > len(data) {
			return nil, newParseError(ReasonTruncated, "not enough bytes to parse ima entry template name")
		}
		templateName, err := templateFromString(string(bytes.TrimRight(data[cursor:cursor+nameLength], "\x00")))
		if err != nil {
			return nil, err
		}
		cursor += nameLength

		if cursor+4 > len(data) {
			return nil, newParseError(ReasonTruncated, "not enough bytes to parse ima entry length")
		}
		length := int(binary.LittleEndian.Uint32(data[cursor : cursor+4]))
		cursor += 4

		if cursor+length > len(data) {
			return nil, newParseError(ReasonTruncated, "not enough bytes to parse ima entry template: %d > %d", cursor+length, len(data))
		}
		templateData := data[cursor : cursor+length]
		cursor += length

		entry, err := parseBinaryTemplateBody(pcr, digest, templateName, templateData)
		if err != nil {
			return nil, err
		}
		log.Entries = append(log.Entries, entry)
	}

	return log, nil
}

func parseBinaryTemplateBody(pcr uint32, digest [20]byte, templateName Template, templateData []byte) (Entry, error) {
	tc := 0

	readU32 := func() (uint32, error) {
		if tc+4 > len(templateData) {
			return 0, newParseError(ReasonTruncated, "not enough bytes to parse ima entry field")
		}
		v := binary.LittleEndian.Uint32(templateData[tc : tc+4])
		tc += 4
		return v, nil
	}

	hashLength, err := readU32()
	if err != nil {
		return Entry{}, err
	}
	if tc+int(hashLength) > len(templateData) {
		return Entry{}, newParseError(ReasonTruncated, "not enough bytes to parse ima entry hash field")
	}
	hash := templateData[tc : tc+int(hashLength)]
	tc += int(hashLength)

	hintLength, err := readU32()
	if err != nil {
		return Entry{}, err
	}
	if hintLength == 0 || tc+int(hintLength) > len(templateData) {
		return Entry{}, newParseError(ReasonTruncated, "not enough bytes to parse ima entry path field")
	}
	hint := templateData[tc : tc+int(hintLength)-1]
	tc += int(hintLength)

	var signature []byte
	if templateName == TemplateImaSig {
		sigLength, err := readU32()
		if err != nil {
			return Entry{}, err
		}
		if sigLength != 0 {
			if tc+int(sigLength) > len(templateData) {
				return Entry{}, newParseError(ReasonTruncated, "not enough bytes to parse ima entry signature field")
			}
			signature = append([]byte{}, templateData[tc:tc+int(sigLength)]...)
			tc += int(sigLength)
		}
	}

	if tc != len(templateData) {
		return Entry{}, newParseError(ReasonTrailingBytes, "extra bytes %d unparsed in buffer", len(templateData)-tc)
	}

	var method HashMethod
	var fileHash []byte
	if templateName == TemplateIma {
		method = SHA1
		fileHash = hash
	} else {
		switch {
		case bytes.HasPrefix(hash, []byte("sha1:")):
			method = SHA1
		case bytes.HasPrefix(hash, []byte("sha256:")):
			method = SHA256
		case bytes.HasPrefix(hash, []byte("sha512:")):
			method = SHA512
		default:
			return Entry{}, newParseError(ReasonUnsupportedHashAlgo, "file hash not supported")
		}
		width := method.Size()
		if len(hash) < width {
			return Entry{}, newParseError(ReasonMalformedField, "hash field too short")
		}
		fileHash = hash[len(hash)-width:]
	}

	filenameHint := string(hint)
	if !utf8.Valid(hint) {
		filenameHint = string(bytes.ToValidUTF8(hint, []byte("�")))
	}

	return NewEntry(pcr, digest, templateName, method, append([]byte{}, fileHash...), filenameHint, signature, append([]byte{}, templateData...))
}
