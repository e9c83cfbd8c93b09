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

// Package agenterrors classifies the agent's failures into kinds
// with a fixed HTTP mapping, so every endpoint responds with a
// consistent, non-leaky error body while the full error chain is
// still logged server-side.
package agenterrors

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// Kind categorizes an AgentError for HTTP status mapping and
// operator triage.
type Kind int

const (
	// KindBadRequest covers malformed request parameters: an
	// unparsable nonce, an out-of-range PCR index, invalid hex.
	KindBadRequest Kind = iota
	// KindBadUserAgent covers a client rejected by the version gate.
	KindBadUserAgent
	// KindSnapshotInProgress covers a snapshot request made while
	// one is already running.
	KindSnapshotInProgress
	// KindCertificate covers TLS identity generation or parsing
	// failures.
	KindCertificate
	// KindCryptography covers hashing, signing, or key-handling
	// failures outside of the TEE/TPM facades themselves.
	KindCryptography
	// KindCommand covers failures of a shelled-out subprocess
	// (the encrypted-volume tool, a lifecycle backend).
	KindCommand
	// KindConfiguration covers malformed or missing configuration.
	KindConfiguration
	// KindHexParsing covers malformed hexadecimal input.
	KindHexParsing
	// KindIma covers IMA log parse or PCR replay failures.
	KindIma
	// KindIO covers filesystem and network I/O failures.
	KindIO
	// KindWalkDir covers filesystem-walk failures during a
	// snapshot.
	KindWalkDir
	// KindSerialization covers JSON/YAML encode-decode failures.
	KindSerialization
	// KindTeeAttestation covers TEE quote generation failures.
	KindTeeAttestation
	// KindTpm covers TPM command failures.
	KindTpm
	// KindUnexpected covers anything that does not fit another
	// kind; always treated as an internal error.
	KindUnexpected
)

// String returns a lowercase, stable name for the kind, suitable for
// logging and for the "kind" field of an error response body.
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindBadUserAgent:
		return "bad_user_agent"
	case KindSnapshotInProgress:
		return "snapshot_in_progress"
	case KindCertificate:
		return "certificate"
	case KindCryptography:
		return "cryptography"
	case KindCommand:
		return "command"
	case KindConfiguration:
		return "configuration"
	case KindHexParsing:
		return "hex_parsing"
	case KindIma:
		return "ima"
	case KindIO:
		return "io"
	case KindWalkDir:
		return "walk_dir"
	case KindSerialization:
		return "serialization"
	case KindTeeAttestation:
		return "tee_attestation"
	case KindTpm:
		return "tpm"
	default:
		return "unexpected"
	}
}

// HTTPStatus maps a kind to the status code its endpoint returns to
// the client. Kinds naming a client mistake map to 4xx; everything
// else is treated as an internal failure and maps to 500, regardless
// of what actually went wrong internally.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest, KindHexParsing, KindBadUserAgent:
		return http.StatusBadRequest
	case KindSnapshotInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// AgentError is the agent's internal error type: a kind, an
// underlying cause, and, for internal-error kinds, a reference ID a
// client can quote back to an operator without the response ever
// exposing the cause itself.
type AgentError struct {
	Kind Kind
	Err  error

	// ref is assigned lazily on first access, only for kinds whose
	// HTTP status is 500, since 4xx kinds describe the client's own
	// mistake and need no operator cross-reference.
	ref string
}

// New wraps err as an AgentError of the given kind.
func New(kind Kind, err error) *AgentError {
	return &AgentError{Kind: kind, Err: err}
}

// Error implements the error interface, returning the full chain for
// server-side logs. It is never written directly to an HTTP
// response body.
func (e *AgentError) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *AgentError) Unwrap() error {
	return e.Err
}

// Reference returns a stable, random reference ID for internal-error
// kinds, generating it on first call. 4xx kinds return the empty
// string since their cause is the client's own request.
func (e *AgentError) Reference() string {
	if e.Kind.HTTPStatus() != http.StatusInternalServerError {
		return ""
	}
	if e.ref == "" {
		e.ref = uuid.NewString()
	}
	return e.ref
}

// LogAndRespond logs the full error chain (kind, cause, and, for
// internal errors, the reference ID) and writes a response body that
// exposes only the kind and, for internal errors, the reference ID —
// never the underlying cause.
func LogAndRespond(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := err.(*AgentError)
	if !ok {
		ae = New(KindUnexpected, err)
	}

	status := ae.Kind.HTTPStatus()
	if status == http.StatusInternalServerError {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"kind", ae.Kind.String(),
			"reference", ae.Reference(),
			"error", ae.Err,
		)
	} else {
		slog.Warn("request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"kind", ae.Kind.String(),
			"error", ae.Err,
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]string{"kind": ae.Kind.String()}
	if ref := ae.Reference(); ref != "" {
		body["reference"] = ref
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode error response body", "error", err)
	}
}
