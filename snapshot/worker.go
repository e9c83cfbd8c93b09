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

package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cvmagent/agent/ima"
)

// DefaultFilesystemRoot is the root of the filesystem walk a snapshot
// hashes: the whole guest root, not the agent's own data directory.
const DefaultFilesystemRoot = "/"

// ErrSnapshotInProgress is returned whenever a caller loses the try-lock
// race against the worker's own compute or flag transitions. Contention
// only ever delays a caller; it never blocks one.
var ErrSnapshotInProgress = errors.New("snapshot is processing")

// TeeQuoter obtains a TEE quote bound to report-data, returning the
// vendor name and the opaque quote bytes.
type TeeQuoter interface {
	Quote(ctx context.Context, reportData []byte) (vendor string, quote []byte, err error)

	// HasFilesystemMeasurement reports whether the detected vendor's
	// attestation model is augmented by a TPM-backed integrity
	// snapshot. False for an SGX-class TEE, whose enclave measurement
	// stands on its own.
	HasFilesystemMeasurement() bool
}

// TpmQuoter obtains a TPM quote over a PCR set.
type TpmQuoter interface {
	Quote(ctx context.Context, pcrs []int, nonce []byte) (quote, signature, publicKey []byte, err error)
}

// Dependencies are the collaborators the worker's compute step needs.
// TPM and ReadIMA are both nil when the agent has no TPM configured.
type Dependencies struct {
	FilesystemRoot string
	TEE            TeeQuoter
	TPM            TpmQuoter
	ReadIMA        func() (*ima.Log, error)
}

type result struct {
	snapshot Snapshot
	err      error
}

// Worker maintains a single cached Snapshot, computed by a dedicated
// background tick loop so that the expensive filesystem walk never blocks
// a request handler.
type Worker struct {
	deps Dependencies

	mu        sync.Mutex
	triggered bool
	done      *result
}

// New constructs a Worker. Call Run in its own goroutine to start the
// background tick loop.
func New(deps Dependencies) *Worker {
	return &Worker{deps: deps}
}

// Run ticks every interval; on each tick it try-locks, and if a snapshot
// has been ordered, clears the flag, releases the lock, computes without
// holding it, then re-acquires the lock to store the result. It exits at
// the next tick boundary after ctx is canceled, never mid-compute.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if !w.mu.TryLock() {
		return
	}
	triggered := w.triggered
	if triggered {
		w.triggered = false
	}
	w.mu.Unlock()

	if !triggered {
		return
	}

	snap, err := w.compute(ctx)

	w.mu.Lock()
	w.done = &result{snapshot: snap, err: err}
	w.mu.Unlock()

	if err != nil {
		slog.ErrorContext(ctx, "snapshot compute failed", "error", err)
	}
}

// Order requests a snapshot computation on the worker's next tick.
func (w *Worker) Order() error {
	if !w.mu.TryLock() {
		return ErrSnapshotInProgress
	}
	defer w.mu.Unlock()
	w.triggered = true
	return nil
}

// Get returns the cached snapshot. A nil Snapshot with a nil error means
// no snapshot has completed yet (Idle or Pending/Running).
func (w *Worker) Get() (*Snapshot, error) {
	if !w.mu.TryLock() {
		return nil, ErrSnapshotInProgress
	}
	defer w.mu.Unlock()

	if w.done == nil {
		return nil, nil
	}
	if w.done.err != nil {
		return nil, w.done.err
	}
	snap := w.done.snapshot
	return &snap, nil
}

// Reset clears the cached result, refusing if a compute is about to
// start (triggered but not yet picked up by the worker).
func (w *Worker) Reset() error {
	if !w.mu.TryLock() {
		return ErrSnapshotInProgress
	}
	defer w.mu.Unlock()

	if w.triggered {
		return ErrSnapshotInProgress
	}
	w.done = nil
	return nil
}

// compute runs the full snapshot algorithm. It never holds the worker's
// state lock.
func (w *Worker) compute(ctx context.Context) (Snapshot, error) {
	vendor, teeQuote, err := w.deps.TEE.Quote(ctx, nil)
	if err != nil {
		return Snapshot{}, err
	}
	teePolicy := TeePolicy{Vendor: vendor, Quote: teeQuote}

	if w.deps.TPM == nil || !w.deps.TEE.HasFilesystemMeasurement() {
		return Snapshot{TeePolicy: teePolicy}, nil
	}

	quote, sig, pub, err := w.deps.TPM.Quote(ctx, nil, nil)
	if err != nil {
		return Snapshot{}, err
	}
	tpmPolicy := &TpmPolicy{Quote: quote, Signature: sig, PublicKey: pub}

	log, err := w.deps.ReadIMA()
	if err != nil {
		return Snapshot{}, err
	}

	files := make(Files)
	for _, e := range log.Entries {
		files.Add(e.FilenameHint, e.FiledataHash)
	}

	walked, err := HashFilesystem(ctx, w.deps.FilesystemRoot, log.FileHashMethod())
	if err != nil {
		return Snapshot{}, err
	}
	for path, hash := range walked {
		files.Add(path, hash)
	}

	return Snapshot{TeePolicy: teePolicy, TpmPolicy: tpmPolicy, Files: files}, nil
}
