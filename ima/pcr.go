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
	"crypto/sha1" //nolint:gosec // SHA-1 is the PCR bank IMA itself uses, not a choice made here
	"crypto/sha256"
	"crypto/sha512"
	"hash"
)

// PCRBank identifies the hash algorithm backing a TPM PCR register.
type PCRBank int

const (
	BankSHA1 PCRBank = iota
	BankSHA256
	BankSHA384
	BankSHA512
)

// Width returns the PCR bank's digest width in bytes.
func (b PCRBank) Width() int {
	switch b {
	case BankSHA1:
		return 20
	case BankSHA256:
		return 32
	case BankSHA384:
		return 48
	case BankSHA512:
		return 64
	default:
		return 0
	}
}

func (b PCRBank) newHash() hash.Hash {
	switch b {
	case BankSHA1:
		return sha1.New() //nolint:gosec
	case BankSHA256:
		return sha256.New()
	case BankSHA384:
		return sha512.New384()
	case BankSHA512:
		return sha512.New()
	default:
		return nil
	}
}

// Replay recomputes the PCR extension chain a log of IMA entries would
// have produced under the given bank, starting from an all-zero register:
// pcr ← H(pcr || extend_payload(e)) for every entry in order.
//
// The extension payload is the all-0xFF escape when the kernel marked the
// measurement invalidated (a time-of-measure/time-of-use race); otherwise,
// for the SHA-1 bank it is the kernel-stored 20-byte template digest
// directly, and for every other bank it is H(template_data), because the
// kernel only ever stores a SHA-1 template digest.
func Replay(log *Log, bank PCRBank) []byte {
	width := bank.Width()
	pcr := make([]byte, width)

	for _, e := range log.Entries {
		h := bank.newHash()
		h.Write(pcr)

		if e.IsInvalidated() {
			ff := make([]byte, width)
			for i := range ff {
				ff[i] = 0xFF
			}
			h.Write(ff)
		} else if bank == BankSHA1 {
			h.Write(e.TemplateHash[:])
		} else {
			th := bank.newHash()
			th.Write(e.TemplateData)
			h.Write(th.Sum(nil))
		}

		pcr = h.Sum(nil)
	}

	return pcr
}
