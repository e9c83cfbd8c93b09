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

import (
	"bufio"
	"errors"
	"os"
)

// ReadAsciiLog reads and parses the kernel's ASCII runtime measurement
// list from its well-known securityfs path.
func ReadAsciiLog() (*Log, error) {
	data, err := os.ReadFile(AsciiLogPath)
	if err != nil {
		return nil, err
	}
	return ParseASCII(data)
}

// ReadBinaryLog reads and parses the kernel's binary runtime measurement
// list from its well-known securityfs path.
func ReadBinaryLog() (*Log, error) {
	data, err := os.ReadFile(BinaryLogPath)
	if err != nil {
		return nil, err
	}
	return ParseBinary(data)
}

// ReadAsciiFirstLine returns the first record of the ASCII log, typically
// boot_aggregate, used to discover which PCR the kernel is extending
// without parsing the whole log.
func ReadAsciiFirstLine() (string, error) {
	f, err := os.Open(AsciiLogPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", errors.New("ima event log is empty")
	}
	return scanner.Text(), nil
}
