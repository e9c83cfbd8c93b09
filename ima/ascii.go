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
	"encoding/hex"
	"strconv"
	"strings"
)

// ParseASCII parses the kernel's textual runtime measurement list: one
// whitespace-separated record per line,
// "<pcr> <template_digest_hex> <template_name> <hash_field> <path> [<sig_hex>]".
// The path never contains whitespace: the kernel substitutes '_' for any
// space in the source filename before writing the log.
func ParseASCII(data []byte) (*Log, error) {
	log := &Log{}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := parseASCIILine(line)
		if err != nil {
			return nil, err
		}
		log.Entries = append(log.Entries, entry)
	}
	return log, nil
}

func parseASCIILine(line string) (Entry, error) {
	fields := strings.Fields(line)

	field := func(i int) (string, error) {
		if i >= len(fields) {
			return "", newParseError(ReasonMalformedField, "ima entry line malformed (index: %d)", i)
		}
		return fields[i], nil
	}

	pcrStr, err := field(0)
	if err != nil {
		return Entry{}, err
	}
	pcr, err := strconv.ParseUint(pcrStr, 10, 32)
	if err != nil {
		return Entry{}, newParseError(ReasonMalformedField, "invalid pcr index %q: %v", pcrStr, err)
	}

	templateHashHex, err := field(1)
	if err != nil {
		return Entry{}, err
	}
	templateHashBytes, err := hex.DecodeString(templateHashHex)
	if err != nil || len(templateHashBytes) != 20 {
		return Entry{}, newParseError(ReasonMalformedField, "invalid template digest %q", templateHashHex)
	}
	var templateHash [20]byte
	copy(templateHash[:], templateHashBytes)

	templateNameStr, err := field(2)
	if err != nil {
		return Entry{}, err
	}
	templateName, err := templateFromString(templateNameStr)
	if err != nil {
		return Entry{}, err
	}

	rawFiledataHash, err := field(3)
	if err != nil {
		return Entry{}, err
	}

	var hashMethod HashMethod
	var hashHex string
	if templateName == TemplateIma {
		hashMethod = SHA1
		hashHex = rawFiledataHash
	} else {
		hashMethod, hashHex, err = splitPrefixedHash(rawFiledataHash)
		if err != nil {
			return Entry{}, err
		}
	}
	fileHash, err := hex.DecodeString(hashHex)
	if err != nil {
		return Entry{}, newParseError(ReasonMalformedField, "invalid filedata hash %q", rawFiledataHash)
	}

	filenameHint, err := field(4)
	if err != nil {
		return Entry{}, err
	}

	var signature []byte
	if templateName == TemplateImaSig && len(fields) == 6 {
		sigHex, _ := field(5)
		signature, err = hex.DecodeString(sigHex)
		if err != nil {
			return Entry{}, newParseError(ReasonMalformedField, "invalid file signature %q", sigHex)
		}
	}

	maxFields := 5
	if templateName == TemplateImaSig {
		maxFields = 6
	}
	if len(fields) > maxFields {
		return Entry{}, newParseError(ReasonTrailingBytes, "extra field detected: %d", len(fields))
	}

	return NewEntry(uint32(pcr), templateHash, templateName, hashMethod, fileHash, filenameHint, signature, nil)
}

// splitPrefixedHash recognizes the "<algo>:" prefix on a hash field and
// returns the algorithm plus the trailing hex digits matching that
// algorithm's digest width. The original string's length, not just the
// suffix after the prefix, governs how many hex characters are taken, to
// match the kernel's own "sha1:\0<hex>" encoding.
func splitPrefixedHash(raw string) (HashMethod, string, error) {
	for _, prefix := range []string{"sha1:", "sha256:", "sha512:"} {
		if !strings.HasPrefix(raw, prefix) {
			continue
		}
		method, _ := hashMethodFromPrefix(strings.TrimSuffix(prefix, ":"))
		width := method.Size() * 2
		if len(raw) < width {
			return 0, "", newParseError(ReasonMalformedField, "hash field too short for %s: %q", prefix, raw)
		}
		return method, raw[len(raw)-width:], nil
	}
	return 0, "", newParseError(ReasonUnsupportedHashAlgo, "file hash not supported: %q", raw)
}
