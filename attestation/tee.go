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

	"github.com/google/go-configfs-tsm/configfs/linuxtsm"
	"github.com/google/go-configfs-tsm/report"
	sevclient "github.com/google/go-sev-guest/client"
	tdxclient "github.com/google/go-tdx-guest/client"
)

// QuoteProvider is the narrow contract every vendor TEE quote library
// in this module's dependency set exposes: confirm the guest is
// running under that vendor's TEE, and produce a raw quote bound to a
// 64-byte report-data value. go-sev-guest and go-tdx-guest both
// implement this shape already; it is reused verbatim rather than
// introducing a module-local abstraction the libraries don't need.
type QuoteProvider interface {
	IsSupported() error
	GetRawQuote(reportData [ReportDataSize]byte) ([]byte, error)
}

// ErrNoTeeDetected means the guest exposes none of the supported TEE
// vendor interfaces (SEV-SNP via /dev/sev-guest, TDX via /dev/tdx-guest
// or /dev/tdx_guest). It is returned by DetectTeeProvider, never by a
// Quote call once a provider has already been selected.
var ErrNoTeeDetected = errors.New("attestation: no supported TEE device present")

// DetectTeeProvider probes the guest for a supported TEE in a fixed
// order: SEV-SNP's dedicated ioctl device, then TDX's, then the
// kernel's vendor-neutral configfs-tsm report interface, which both
// of those ioctl paths are themselves built on and which some guests
// expose without the vendor-specific device node present. SGX has no
// dedicated provider in this module's dependency set (see DESIGN.md);
// a guest that is SGX-class and exposes none of the above surfaces
// ErrNoTeeDetected here, and its enclave measurement must instead be
// obtained by whatever out-of-band DCAP tooling the deployment
// already uses.
func DetectTeeProvider() (Vendor, QuoteProvider, error) {
	if p, err := sevclient.GetQuoteProvider(); err == nil {
		if supportErr := p.IsSupported(); supportErr == nil {
			return VendorSevSnp, sevQuoteProvider{p}, nil
		}
	}
	if p, err := tdxclient.GetQuoteProvider(); err == nil {
		if supportErr := p.IsSupported(); supportErr == nil {
			return VendorTdx, tdxQuoteProvider{p}, nil
		}
	}
	if vendor, err := configfsTsmVendor(); err == nil {
		return vendor, configfsTsmQuoteProvider{}, nil
	}
	return 0, nil, ErrNoTeeDetected
}

// configfsTsmVendor fetches a throwaway report over the configfs-tsm
// interface purely to read back which vendor backs it, since the
// interface itself is vendor-agnostic.
func configfsTsmVendor() (Vendor, error) {
	resp, err := linuxtsm.GetReport(&report.Request{InBlob: make([]byte, ReportDataSize)})
	if err != nil {
		return 0, err
	}
	switch resp.Provider {
	case "sev_guest":
		return VendorSevSnp, nil
	case "tdx_guest":
		return VendorTdx, nil
	default:
		return 0, fmt.Errorf("attestation: unrecognized configfs-tsm provider %q", resp.Provider)
	}
}

// configfsTsmQuoteProvider is the fallback QuoteProvider backed by the
// kernel's generic /sys/kernel/config/tsm/report interface, used when
// neither go-sev-guest's nor go-tdx-guest's own ioctl-based detection
// finds its vendor-specific device node.
type configfsTsmQuoteProvider struct{}

func (configfsTsmQuoteProvider) IsSupported() error {
	_, err := linuxtsm.MakeClient()
	return err
}

func (configfsTsmQuoteProvider) GetRawQuote(reportData [ReportDataSize]byte) ([]byte, error) {
	resp, err := linuxtsm.GetReport(&report.Request{InBlob: reportData[:]})
	if err != nil {
		return nil, err
	}
	return resp.OutBlob, nil
}

// sevQuoteProvider and tdxQuoteProvider adapt each vendor library's
// own QuoteProvider type to this package's QuoteProvider so DetectTeeProvider
// can return a single interface value regardless of vendor.
type sevQuoteProvider struct{ p sevclient.QuoteProvider }

func (s sevQuoteProvider) IsSupported() error { return s.p.IsSupported() }

func (s sevQuoteProvider) GetRawQuote(reportData [ReportDataSize]byte) ([]byte, error) {
	return s.p.GetRawQuote(reportData)
}

type tdxQuoteProvider struct{ p tdxclient.QuoteProvider }

func (t tdxQuoteProvider) IsSupported() error { return t.p.IsSupported() }

func (t tdxQuoteProvider) GetRawQuote(reportData [ReportDataSize]byte) ([]byte, error) {
	return t.p.GetRawQuote(reportData)
}

// TeeFacade obtains TEE quotes from a single already-detected vendor
// provider. It implements snapshot.TeeQuoter.
type TeeFacade struct {
	Vendor   Vendor
	provider QuoteProvider
}

// NewTeeFacade wraps an already-detected provider. Use DetectTeeProvider
// to obtain one at startup.
func NewTeeFacade(vendor Vendor, provider QuoteProvider) *TeeFacade {
	return &TeeFacade{Vendor: vendor, provider: provider}
}

// HasFilesystemMeasurement reports whether this facade's detected
// vendor is augmented by a TPM-backed integrity snapshot. It
// implements snapshot.TeeQuoter.
func (f *TeeFacade) HasFilesystemMeasurement() bool {
	return f.Vendor.HasFilesystemMeasurement()
}

// Quote obtains a raw TEE quote over reportData. A nil or short
// reportData is zero-padded, matching the snapshot worker's
// zero-length report-data convention for its policy-extraction quote.
func (f *TeeFacade) Quote(_ context.Context, reportData []byte) (string, []byte, error) {
	var rd [ReportDataSize]byte
	copy(rd[:], reportData)

	quote, err := f.provider.GetRawQuote(rd)
	if err != nil {
		return "", nil, &TeeError{Vendor: f.Vendor, Err: err}
	}
	return f.Vendor.String(), quote, nil
}
