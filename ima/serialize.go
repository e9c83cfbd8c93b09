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
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// SerializeBinary re-serializes a log into the kernel's packed binary
// format. It is the inverse of ParseBinary and exists primarily so the
// round-trip property (ASCII parse -> binary serialize -> binary parse
// yields the same entries) is directly testable.
func SerializeBinary(log *Log) []byte {
	var out []byte
	for _, e := range log.Entries {
		header := make([]byte, eventEntrySize)
		binary.LittleEndian.PutUint32(header[0:4], e.PCR)
		copy(header[4:24], e.TemplateHash[:])
		name := []byte(e.TemplateName.String())
		binary.LittleEndian.PutUint32(header[24:28], uint32(len(name)))

		out = append(out, header...)
		out = append(out, name...)

		lenBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBuf, uint32(len(e.TemplateData)))
		out = append(out, lenBuf...)
		out = append(out, e.TemplateData...)
	}
	return out
}

// SerializeASCII re-serializes a log into the kernel's textual format.
func SerializeASCII(log *Log) []byte {
	var b strings.Builder
	for _, e := range log.Entries {
		hashField := hex.EncodeToString(e.FiledataHash)
		if e.TemplateName != TemplateIma {
			hashField = fmt.Sprintf("%s:%s", e.FiledataHashMethod, hashField)
		}
		fmt.Fprintf(&b, "%d %s %s %s %s", e.PCR, hex.EncodeToString(e.TemplateHash[:]), e.TemplateName, hashField, e.FilenameHint)
		if e.TemplateName == TemplateImaSig && len(e.FileSignature) > 0 {
			fmt.Fprintf(&b, " %s", hex.EncodeToString(e.FileSignature))
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
