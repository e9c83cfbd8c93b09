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

package endpoints

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-tpm/tpm2"
	"github.com/stretchr/testify/require"

	"github.com/cvmagent/agent/agentconfig"
	"github.com/cvmagent/agent/attestation"
	"github.com/cvmagent/agent/ima"
	"github.com/cvmagent/agent/snapshot"
	"github.com/cvmagent/agent/tlsgate"
)

// fakeQuoteProvider implements attestation.QuoteProvider for tests.
type fakeQuoteProvider struct {
	reportData [attestation.ReportDataSize]byte
	err        error
}

func (f *fakeQuoteProvider) IsSupported() error { return nil }

func (f *fakeQuoteProvider) GetRawQuote(reportData [attestation.ReportDataSize]byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.reportData = reportData
	return append([]byte("quote:"), reportData[:]...), nil
}

func newTestIdentity(t *testing.T) *tlsgate.Identity {
	t.Helper()
	dir := t.TempDir()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "agent-test"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, writePEM(certPath, "CERTIFICATE", der))
	keyBytes, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	require.NoError(t, writePEM(keyPath, "EC PRIVATE KEY", keyBytes))

	id, err := tlsgate.LoadIdentity(certPath, keyPath)
	require.NoError(t, err)
	return id
}

func writePEM(path, blockType string, der []byte) error {
	block := &pem.Block{Type: blockType, Bytes: der}
	return os.WriteFile(path, pem.EncodeToMemory(block), 0o600)
}

func newProvisionedTPMFacade(t *testing.T) *attestation.TPMFacade {
	t.Helper()
	device := attestation.NewSimulatedTPMDevice()
	t.Cleanup(func() { device.Close() })

	tpm, err := device.Open()
	require.NoError(t, err)

	primary, err := (tpm2.CreatePrimary{
		PrimaryHandle: tpm2.TPMRHOwner,
		InPublic: tpm2.New2B(tpm2.TPMTPublic{
			Type:    tpm2.TPMAlgECC,
			NameAlg: tpm2.TPMAlgSHA256,
			ObjectAttributes: tpm2.TPMAObject{
				FixedTPM:            true,
				FixedParent:         true,
				SensitiveDataOrigin: true,
				UserWithAuth:        true,
				SignEncrypt:         true,
				Restricted:          true,
			},
			Parameters: tpm2.NewTPMUPublicParms(tpm2.TPMAlgECC, &tpm2.TPMSECCParms{
				CurveID: tpm2.TPMECCNistP256,
				Scheme: tpm2.TPMTECCScheme{
					Scheme: tpm2.TPMAlgECDSA,
					Details: tpm2.NewTPMUAsymScheme(tpm2.TPMAlgECDSA, &tpm2.TPMSSigSchemeECDSA{
						HashAlg: tpm2.TPMAlgSHA256,
					}),
				},
			}),
		}),
	}).Execute(tpm)
	require.NoError(t, err)

	akHandle := tpm2.TPMHandle(0x81000011)
	_, err = (tpm2.EvictControl{
		Auth:             tpm2.TPMRHOwner,
		ObjectHandle:     &tpm2.NamedHandle{Handle: primary.ObjectHandle, Name: primary.Name},
		PersistentHandle: akHandle,
	}).Execute(tpm)
	require.NoError(t, err)
	_, _ = (tpm2.FlushContext{FlushHandle: primary.ObjectHandle}).Execute(tpm)

	return attestation.NewTPMFacade(device, akHandle)
}

func newTestServer(t *testing.T, configure func(*Dependencies)) *Server {
	t.Helper()
	cfg := agentconfig.DefaultConfig()
	cfg.DataStorageRoot = t.TempDir()

	worker := snapshot.New(snapshot.Dependencies{
		FilesystemRoot: snapshot.DefaultFilesystemRoot,
		TEE:            stubTeeQuoter{},
		ReadIMA:        func() (*ima.Log, error) { return &ima.Log{}, nil },
	})

	deps := Dependencies{
		Config:   cfg,
		Snapshot: worker,
		Identity: newTestIdentity(t),
	}
	if configure != nil {
		configure(&deps)
	}
	return New(deps)
}

type stubTeeQuoter struct{}

func (stubTeeQuoter) Quote(_ context.Context, _ []byte) (string, []byte, error) {
	return "stub", []byte("quote"), nil
}

func (stubTeeQuoter) HasFilesystemMeasurement() bool { return true }

func newRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}
