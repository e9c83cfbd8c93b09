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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"
)

const tlsIdentityValidity = 10 * 365 * 24 * time.Hour

// TLSConfig names where the agent's self-signed TLS identity lives and
// the subject/SAN material it is issued for.
type TLSConfig struct {
	KeyPath  string
	CertPath string

	CommonName string
	ListenHost string
}

// ensureTLSIdentity implements first-boot provisioner step 3: if
// neither the key nor the certificate exists, generate a self-signed
// P-256 ECDSA identity. If exactly one of the two exists, that is a
// Certificate-class error: a half-provisioned identity is not
// something this step can safely repair.
func ensureTLSIdentity(cfg TLSConfig) error {
	_, keyErr := os.Stat(cfg.KeyPath)
	_, certErr := os.Stat(cfg.CertPath)
	keyExists := keyErr == nil
	certExists := certErr == nil

	if keyExists && certExists {
		return nil
	}
	if keyExists != certExists {
		return fmt.Errorf("tls identity: key and certificate must both exist or both be absent (key=%v cert=%v)", keyExists, certExists)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("generate serial: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   cfg.CommonName,
			Organization: []string{"Confidential VM Agent"},
			Country:      []string{"FR"},
			Locality:     []string{"Paris"},
			Province:     []string{"Ile-de-France"},
		},
		NotBefore:             now,
		NotAfter:              now.Add(tlsIdentityValidity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	if ip := net.ParseIP(cfg.ListenHost); ip != nil {
		template.IPAddresses = []net.IP{ip}
	} else if cfg.ListenHost != "" {
		template.DNSNames = []string{cfg.ListenHost}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}

	if err := writePEM(cfg.KeyPath, "EC PRIVATE KEY", keyDER, 0o600); err != nil {
		return fmt.Errorf("write key: %w", err)
	}
	if err := writePEM(cfg.CertPath, "CERTIFICATE", der, 0o644); err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}
	return nil
}

func writePEM(path, blockType string, der []byte, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer f.Close()
	return pem.Encode(f, &pem.Block{Type: blockType, Bytes: der})
}
