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

import "github.com/cvmagent/agent/ima"

// ResolvePCRSlot determines which PCR the kernel extends IMA
// measurements into by parsing the first line of the ASCII
// measurement log. It falls back to ima.DefaultPCR if the log is
// empty or unreadable, since a fresh guest may not have accumulated
// any measurements yet.
func ResolvePCRSlot(firstLine string) uint32 {
	if firstLine == "" {
		return ima.DefaultPCR
	}
	log, err := ima.ParseASCII([]byte(firstLine))
	if err != nil || len(log.Entries) == 0 {
		return ima.DefaultPCR
	}
	return log.Entries[0].PCR
}
