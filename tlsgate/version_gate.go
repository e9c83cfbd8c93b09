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

package tlsgate

import (
	"fmt"
	"strconv"
	"strings"
)

// userAgentPrefix is the expected prefix of the verifier CLI's
// User-Agent header, e.g. "cli-version/1.4.0".
const userAgentPrefix = "cli-version/"

// version is a parsed release segment of a PEP 440-lite version
// string: the dotted numeric release identifier with any
// pre-release, post-release, dev, or local segment discarded.
type version struct {
	release []int
}

// parseVersion extracts the leading dotted numeric release segment
// from s, stopping at the first character that does not belong to it
// (any of '.', digits are kept; anything else, including
// pre-release/post-release/dev/local markers such as "a1", ".post1",
// ".dev0", or "+local", ends the release segment).
func parseVersion(s string) (version, error) {
	end := len(s)
loop:
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.':
		default:
			end = i
			break loop
		}
	}
	release := strings.TrimRight(s[:end], ".")
	if release == "" {
		return version{}, fmt.Errorf("tlsgate: no numeric release segment in version %q", s)
	}
	parts := strings.Split(release, ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return version{}, fmt.Errorf("tlsgate: invalid release segment %q in version %q: %w", p, s, err)
		}
		nums[i] = n
	}
	return version{release: nums}, nil
}

// compare returns -1, 0, or 1 as v is less than, equal to, or
// greater than other, padding the shorter release with zeros.
func (v version) compare(other version) int {
	n := len(v.release)
	if len(other.release) > n {
		n = len(other.release)
	}
	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(v.release) {
			a = v.release[i]
		}
		if i < len(other.release) {
			b = other.release[i]
		}
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	return 0
}

// VersionGate rejects requests from clients whose declared version
// is older than a configured minimum. The minimum is supplied by the
// caller at construction time rather than fixed in code, since it
// tracks the agent's own release cadence.
type VersionGate struct {
	minimum version
	minStr  string
}

// NewVersionGate builds a gate enforcing minVersion, a PEP 440-lite
// dotted release string such as "1.4.0".
func NewVersionGate(minVersion string) (*VersionGate, error) {
	v, err := parseVersion(minVersion)
	if err != nil {
		return nil, err
	}
	return &VersionGate{minimum: v, minStr: minVersion}, nil
}

// Allow reports whether the User-Agent header value satisfies the
// gate's minimum version. An absent, empty, unrecognized, or
// unparseable version is accepted: only a header that parses to a
// release below the configured minimum is rejected.
func (g *VersionGate) Allow(userAgent string) bool {
	if userAgent == "" || !strings.HasPrefix(userAgent, userAgentPrefix) {
		return true
	}
	clientVersion, err := parseVersion(strings.TrimPrefix(userAgent, userAgentPrefix))
	if err != nil {
		return true
	}
	return clientVersion.compare(g.minimum) >= 0
}

// Minimum returns the configured minimum version string, for
// inclusion in rejection responses.
func (g *VersionGate) Minimum() string {
	return g.minStr
}
