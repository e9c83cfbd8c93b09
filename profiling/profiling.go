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

package profiling

import (
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // #nosec G108 -- Profiling endpoints intentionally exposed for debugging
	"os"
	"time"

	"github.com/felixge/fgprof"
)

type Service string

const (
	Agent Service = "agent"
)

// ServiceFromString returns the Service for the given string.
func ServiceFromString(s string) (Service, error) {
	switch s {
	case string(Agent):
		return Agent, nil
	default:
		return "", fmt.Errorf("unknown service: %s", s)
	}
}

// ProfilerConfig contains the profiler configuration for a given service.
type ProfilerConfig struct {
	// EnvVar is the name of the environment variable that must be set to true/1 for
	// profiling to be enabled for a given service.
	EnvVar string

	// Port is the port on which the profiler will listen.
	Port string
}

// GetProfilerConfig returns the profiler configuration for the given service.
func (s Service) GetProfilerConfig() ProfilerConfig {
	switch s {
	case Agent:
		return ProfilerConfig{
			EnvVar: "PROFILE_AGENT",
			Port:   "6060",
		}
	default:
		return ProfilerConfig{}
	}
}

// InitProfilerIfEnabled initializes the profiler for the given service, if profiling
// is enabled via the corresponding environment variable.
func (s Service) InitProfilerIfEnabled() {
	config := s.GetProfilerConfig()
	enabledStr := os.Getenv(config.EnvVar)
	enabled := enabledStr == "1" || enabledStr == "true"
	if !enabled {
		return
	}
	http.DefaultServeMux.Handle("/debug/fgprof", fgprof.Handler())
	go func() {
		server := &http.Server{
			Addr:         "localhost:" + config.Port,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		log.Println(server.ListenAndServe())
	}()
}
