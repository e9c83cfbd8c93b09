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

package attestation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/go-tpm/tpm2"
)

// ErrTPMInUse is returned when a Quote call loses the TPM facade's
// exclusive-access race against another in-flight quote.
var ErrTPMInUse = errors.New("TPM already in use")

// DefaultAttestationKeyHandle is the persistent handle the provisioner
// creates the agent's AK under, mirroring the fixed handle the
// original fstool-based provisioning flow probes with tpm2_readpublic.
const DefaultAttestationKeyHandle = tpm2.TPMHandle(0x81000000)

// MaxTpmNonceSize is the largest nonce the TPM quote path accepts.
// Longer values don't fit TPM2B_DATA's qualifying-data field.
const MaxTpmNonceSize = 64

// TPMFacade obtains TPM quotes over caller-chosen PCR sets using the
// agent's provisioned attestation key. It implements snapshot.TpmQuoter.
// Access to the underlying TPM context is exclusive: a Quote call that
// loses the try-lock race against another in-flight call fails
// immediately with ErrTPMInUse rather than queueing behind it.
type TPMFacade struct {
	device   TPMDevice
	akHandle tpm2.TPMHandle

	mu sync.Mutex
}

// NewTPMFacade wraps a device and the handle its AK was persisted
// under during provisioning.
func NewTPMFacade(device TPMDevice, akHandle tpm2.TPMHandle) *TPMFacade {
	return &TPMFacade{device: device, akHandle: akHandle}
}

// Quote signs the given PCR set (SHA-256 bank) with the agent's AK,
// binding nonce into the quote's qualifying data. An empty pcrs slice
// quotes no PCRs at all, matching the snapshot worker's policy-extraction
// quote. Returns the marshaled TPMS_ATTEST, the marshaled TPMT_SIGNATURE,
// and the AK's marshaled public area.
func (f *TPMFacade) Quote(_ context.Context, pcrs []int, nonce []byte) (quote, signature, publicKey []byte, err error) {
	if len(nonce) > MaxTpmNonceSize {
		return nil, nil, nil, &TpmError{Err: fmt.Errorf("nonce too long (%d > %d bytes)", len(nonce), MaxTpmNonceSize)}
	}

	if !f.mu.TryLock() {
		return nil, nil, nil, &TpmError{Err: ErrTPMInUse}
	}
	defer f.mu.Unlock()

	tpm, err := f.device.Open()
	if err != nil {
		return nil, nil, nil, &TpmError{Err: fmt.Errorf("open device: %w", err)}
	}

	readPublic, err := (tpm2.ReadPublic{ObjectHandle: f.akHandle}).Execute(tpm)
	if err != nil {
		return nil, nil, nil, &TpmError{Err: fmt.Errorf("read ak public: %w", err)}
	}

	quoteCmd := tpm2.Quote{
		SignHandle: tpm2.AuthHandle{
			Handle: f.akHandle,
			Auth:   tpm2.PasswordAuth(nil),
		},
		QualifyingData: tpm2.TPM2BData{Buffer: nonce},
		InScheme: tpm2.TPMTSigScheme{
			Scheme: tpm2.TPMAlgNull,
		},
		PCRSelect: tpm2.TPMLPCRSelection{
			PCRSelections: []tpm2.TPMSPCRSelection{
				{
					Hash:      tpm2.TPMAlgSHA256,
					PCRSelect: pcrSelectBitmap(pcrs),
				},
			},
		},
	}
	quoteRsp, err := quoteCmd.Execute(tpm)
	if err != nil {
		return nil, nil, nil, &TpmError{Err: fmt.Errorf("quote: %w", err)}
	}

	sigBytes, err := tpm2.Marshal(quoteRsp.Signature)
	if err != nil {
		return nil, nil, nil, &TpmError{Err: fmt.Errorf("marshal signature: %w", err)}
	}

	return quoteRsp.Quoted.Bytes(), sigBytes, readPublic.OutPublic.Bytes(), nil
}

// pcrSelectBitmap builds the TPMS_PCR_SELECTION bitmap for a
// SHA-256-bank, 24-PCR-wide (sizeofSelect = 3) platform, the width
// every TPM 2.0 PC Client device implements.
func pcrSelectBitmap(pcrs []int) []byte {
	const sizeofSelect = 3
	bitmap := make([]byte, sizeofSelect)
	for _, pcr := range pcrs {
		if pcr < 0 || pcr >= sizeofSelect*8 {
			continue
		}
		bitmap[pcr/8] |= 1 << uint(pcr%8)
	}
	return bitmap
}
