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

package provision

import (
	"fmt"
	"log/slog"

	"github.com/cvmagent/agent/attestation"
	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"
)

// endorsementKeyHandle is the persistent handle the EK is evicted to.
// attestation.DefaultAttestationKeyHandle is the corresponding AK handle
// the original fstool-based provisioner probes with tpm2_readpublic.
const endorsementKeyHandle = tpm2.TPMHandle(0x81010001)

// TPMConfig names the device the provisioner opens to create the EK/AK
// pair, mirroring the original's tpm_device_path.
type TPMConfig struct {
	Device attestation.TPMDevice
}

// ellipticP256EKTemplate is the TCG-specified ECC NIST P-256
// endorsement key template: a restricted, non-signing, decrypt-only
// primary key under the storage hierarchy's symmetric policy.
var ellipticP256EKTemplate = tpm2.TPMTPublic{
	Type:    tpm2.TPMAlgECC,
	NameAlg: tpm2.TPMAlgSHA256,
	ObjectAttributes: tpm2.TPMAObject{
		FixedTPM:            true,
		FixedParent:         true,
		SensitiveDataOrigin: true,
		AdminWithPolicy:     true,
		Restricted:          true,
		Decrypt:             true,
	},
	AuthPolicy: tpm2.TPM2BDigest{
		// TPM2_PolicySecret(TPM_RH_ENDORSEMENT) digest, fixed by the TCG
		// EK credential profile for the null symmetric/hash combination
		// used here; verifiers recompute this independently, so the
		// agent need not carry a copy of the policy language itself.
		Buffer: []byte{
			0x83, 0x71, 0x97, 0x67, 0x44, 0x84, 0xb3, 0xf8, 0x1a, 0x90, 0xcc, 0x8d, 0x46, 0xa5, 0xd7, 0x24,
			0xfd, 0x52, 0xd7, 0x6e, 0x06, 0x52, 0x0b, 0x64, 0xf2, 0xa1, 0xda, 0x1b, 0x33, 0x14, 0x69, 0xaa,
		},
	},
	Parameters: tpm2.NewTPMUPublicParms(tpm2.TPMAlgECC, &tpm2.TPMSECCParms{
		Symmetric: tpm2.TPMTSymDefObject{
			Algorithm: tpm2.TPMAlgAES,
			KeyBits:   tpm2.NewTPMUSymKeyBits(tpm2.TPMAlgAES, tpm2.TPMKeyBits(128)),
			Mode:      tpm2.NewTPMUSymMode(tpm2.TPMAlgAES, tpm2.TPMAlgCFB),
		},
		CurveID: tpm2.TPMECCNistP256,
	}),
	Unique: tpm2.NewTPMUPublicID(tpm2.TPMAlgECC, &tpm2.TPMSECCPoint{}),
}

// attestationKeyTemplate is a restricted ECC P-256 signing key, SHA-256
// scheme, used only to sign quotes.
var attestationKeyTemplate = tpm2.TPMTPublic{
	Type:    tpm2.TPMAlgECC,
	NameAlg: tpm2.TPMAlgSHA256,
	ObjectAttributes: tpm2.TPMAObject{
		FixedTPM:            true,
		FixedParent:         true,
		SensitiveDataOrigin: true,
		UserWithAuth:        true,
		Restricted:          true,
		Sign:                true,
	},
	Parameters: tpm2.NewTPMUPublicParms(tpm2.TPMAlgECC, &tpm2.TPMSECCParms{
		Scheme: tpm2.TPMTECCScheme{
			Scheme: tpm2.TPMAlgECDSA,
			Details: tpm2.NewTPMUAsymScheme(tpm2.TPMAlgECDSA, &tpm2.TPMSSigSchemeECDSA{
				HashAlg: tpm2.TPMAlgSHA256,
			}),
		},
		CurveID: tpm2.TPMECCNistP256,
	}),
	Unique: tpm2.NewTPMUPublicID(tpm2.TPMAlgECC, &tpm2.TPMSECCPoint{}),
}

// ensureAttestationKey implements first-boot provisioner step 1:
// probe the fixed AK handle, and if absent, create and persist a fresh
// EK/AK pair. A present AK handle means this step has already run
// (possibly in a prior, pre-agent provisioning flow), so it is a
// silent no-op rather than re-creating keys.
func ensureAttestationKey(cfg TPMConfig) error {
	tpm, err := cfg.Device.Open()
	if err != nil {
		return fmt.Errorf("open tpm: %w", err)
	}

	_, err = (tpm2.ReadPublic{ObjectHandle: attestation.DefaultAttestationKeyHandle}).Execute(tpm)
	if err == nil {
		slog.Debug("provision: attestation key already present")
		return nil
	}

	slog.Info("provision: generating tpm ek and ak")

	ekRsp, err := (tpm2.CreatePrimary{
		PrimaryHandle: tpm2.TPMRHEndorsement,
		InPublic:      tpm2.New2B(ellipticP256EKTemplate),
	}).Execute(tpm)
	if err != nil {
		return fmt.Errorf("create ek: %w", err)
	}
	defer flush(tpm, ekRsp.ObjectHandle)

	if err := evict(tpm, ekRsp.ObjectHandle, endorsementKeyHandle); err != nil {
		return fmt.Errorf("persist ek: %w", err)
	}

	akParent := tpm2.AuthHandle{Handle: endorsementKeyHandle, Auth: tpm2.PasswordAuth(nil)}

	createRsp, err := (tpm2.Create{
		ParentHandle: akParent,
		InPublic:     tpm2.New2B(attestationKeyTemplate),
	}).Execute(tpm)
	if err != nil {
		return fmt.Errorf("create ak: %w", err)
	}

	loadRsp, err := (tpm2.Load{
		ParentHandle: akParent,
		InPrivate:    createRsp.OutPrivate,
		InPublic:     createRsp.OutPublic,
	}).Execute(tpm)
	if err != nil {
		return fmt.Errorf("load ak: %w", err)
	}
	defer flush(tpm, loadRsp.ObjectHandle)

	if err := evict(tpm, loadRsp.ObjectHandle, attestation.DefaultAttestationKeyHandle); err != nil {
		return fmt.Errorf("persist ak: %w", err)
	}

	return nil
}

func flush(tpm transport.TPM, handle tpm2.TPMHandle) {
	if _, err := (tpm2.FlushContext{FlushHandle: handle}).Execute(tpm); err != nil {
		slog.Warn("provision: failed to flush tpm transient handle", "error", err)
	}
}

func evict(tpm transport.TPM, transient, persistent tpm2.TPMHandle) error {
	_, err := (tpm2.EvictControl{
		Auth:             tpm2.TPMRHOwner,
		ObjectHandle:     &tpm2.NamedHandle{Handle: transient},
		PersistentHandle: persistent,
	}).Execute(tpm)
	return err
}
