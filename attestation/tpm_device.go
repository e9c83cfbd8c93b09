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
	"log/slog"

	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"
	"github.com/google/go-tpm/tpm2/transport/simulator"
	"github.com/google/go-tpm/tpmutil"
)

// TPMDevice opens a transport to a TPM. Real and simulated devices
// share this contract so the rest of the package never branches on
// which kind it holds.
type TPMDevice interface {
	Open() (transport.TPMCloser, error)
	Close() error
}

// RealTPMDevice talks to the platform's resource-managed TPM character
// device.
type RealTPMDevice struct {
	path   string
	handle *transport.TPMCloser
}

// NewRealTPMDevice opens the TPM at path, defaulting to /dev/tpmrm0.
func NewRealTPMDevice(path string) *RealTPMDevice {
	if path == "" {
		path = "/dev/tpmrm0"
	}
	return &RealTPMDevice{path: path}
}

func (d *RealTPMDevice) Open() (transport.TPMCloser, error) {
	if d.handle != nil {
		return *d.handle, nil
	}
	rwc, err := tpmutil.OpenTPM(d.path)
	if err != nil {
		return nil, err
	}
	tpm := transport.FromReadWriteCloser(rwc)
	d.handle = &tpm
	return tpm, nil
}

func (d *RealTPMDevice) Close() error {
	if d.handle != nil {
		return (*d.handle).Close()
	}
	return nil
}

// SimulatedTPMDevice runs an in-memory software TPM, used in
// development and by the end-to-end test scenarios where no hardware
// TPM is present.
type SimulatedTPMDevice struct {
	handle *transport.TPMCloser
}

// NewSimulatedTPMDevice constructs an unopened in-memory TPM.
func NewSimulatedTPMDevice() *SimulatedTPMDevice {
	return &SimulatedTPMDevice{}
}

func (d *SimulatedTPMDevice) Open() (transport.TPMCloser, error) {
	if d.handle != nil {
		return *d.handle, nil
	}
	tpm, err := simulator.OpenSimulator()
	if err != nil {
		return nil, err
	}
	slog.Info("attestation: using in-memory TPM simulator")

	if _, err := (tpm2.Startup{StartupType: tpm2.TPMSUClear}).Execute(tpm); err != nil {
		_ = tpm.Close()
		return nil, err
	}

	d.handle = &tpm
	return tpm, nil
}

func (d *SimulatedTPMDevice) Close() error {
	if d.handle != nil {
		return (*d.handle).Close()
	}
	return nil
}
