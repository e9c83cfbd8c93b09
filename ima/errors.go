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

import "fmt"

// Reason classifies why an IMA log failed to parse. The codec never
// panics on adversarial input; every failure surfaces as one of these.
type Reason int

const (
	ReasonUnsupportedTemplate Reason = iota
	ReasonUnsupportedHashAlgo
	ReasonTruncated
	ReasonTrailingBytes
	ReasonMalformedField
)

func (r Reason) String() string {
	switch r {
	case ReasonUnsupportedTemplate:
		return "unsupported_template"
	case ReasonUnsupportedHashAlgo:
		return "unsupported_hash_algo"
	case ReasonTruncated:
		return "truncated"
	case ReasonTrailingBytes:
		return "trailing_bytes"
	case ReasonMalformedField:
		return "malformed_field"
	default:
		return "unknown"
	}
}

// ParseError is returned for any IMA log that fails to parse.
type ParseError struct {
	Reason  Reason
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ima parsing (%s): %s", e.Reason, e.Message)
}

func newParseError(reason Reason, format string, args ...any) *ParseError {
	return &ParseError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}
