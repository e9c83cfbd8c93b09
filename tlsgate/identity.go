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

// Package tlsgate loads the agent's provisioned TLS identity into a
// listener configuration and enforces the minimum client version
// carried in inbound requests.
package tlsgate

import (
	"crypto/tls"
	"fmt"
)

// Identity is the agent's provisioned TLS leaf certificate and key,
// loaded once at startup and shared read-only thereafter.
type Identity struct {
	// LeafCertDER is the DER encoding of the leaf certificate, the
	// value the attestation facade hashes into TEE report-data.
	LeafCertDER []byte

	tlsCert tls.Certificate
}

// LoadIdentity reads the agent's provisioned certificate and key and
// extracts the leaf certificate's DER bytes for report-data binding.
func LoadIdentity(certPath, keyPath string) (*Identity, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("tlsgate: load identity: %w", err)
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("tlsgate: certificate file %s contains no certificates", certPath)
	}
	return &Identity{LeafCertDER: cert.Certificate[0], tlsCert: cert}, nil
}

// ServerTLSConfig builds the mutually-verifiable TLS listener
// configuration: the agent presents its provisioned leaf certificate
// and requests (but per the spec's narrow contract, does not itself
// validate beyond presence of) a client certificate, leaving
// certificate-chain trust decisions to the verifier's own tooling
// layered above this transport.
func (id *Identity) ServerTLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{id.tlsCert},
		ClientAuth:   tls.RequireAnyClientCert,
		MinVersion:   tls.VersionTLS12,
	}
}
