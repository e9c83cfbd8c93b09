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
	"sync"
	"testing"
	"time"

	"github.com/cvmagent/agent/ima"
	"github.com/stretchr/testify/require"
)

type fakeTEE struct{}

func (fakeTEE) Quote(_ context.Context, _ []byte) (string, []byte, error) {
	return "fake-tee", []byte("quote-bytes"), nil
}

func (fakeTEE) HasFilesystemMeasurement() bool { return true }

// fakeEnclaveOnlyTEE models an SGX-class vendor, whose enclave
// measurement is taken as sufficient without a TPM-backed snapshot.
type fakeEnclaveOnlyTEE struct{}

func (fakeEnclaveOnlyTEE) Quote(_ context.Context, _ []byte) (string, []byte, error) {
	return "fake-sgx", []byte("quote-bytes"), nil
}

func (fakeEnclaveOnlyTEE) HasFilesystemMeasurement() bool { return false }

type fakeTPM struct{}

func (fakeTPM) Quote(_ context.Context, _ []int, _ []byte) ([]byte, []byte, []byte, error) {
	return []byte("tpm-quote"), []byte("tpm-sig"), []byte("tpm-pub"), nil
}

func TestWorker_IdleGetReturnsNilWithoutError(t *testing.T) {
	w := New(Dependencies{TEE: fakeTEE{}})
	snap, err := w.Get()
	require.NoError(t, err)
	require.Nil(t, snap)
}

func TestWorker_OrderThenTickProducesSnapshot(t *testing.T) {
	dir := t.TempDir()
	w := New(Dependencies{
		FilesystemRoot: dir,
		TEE:            fakeTEE{},
		TPM:            fakeTPM{},
		ReadIMA:        func() (*ima.Log, error) { return &ima.Log{}, nil },
	})

	require.NoError(t, w.Order())
	w.tick(context.Background())

	snap, err := w.Get()
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Equal(t, "fake-tee", snap.TeePolicy.Vendor)
	require.NotNil(t, snap.TpmPolicy)
}

func TestWorker_NoTPMConfiguredSkipsFileHashes(t *testing.T) {
	w := New(Dependencies{TEE: fakeTEE{}})
	require.NoError(t, w.Order())
	w.tick(context.Background())

	snap, err := w.Get()
	require.NoError(t, err)
	require.Nil(t, snap.TpmPolicy)
	require.Nil(t, snap.Files)
}

func TestWorker_EnclaveOnlyVendorSkipsFileHashesEvenWithTPM(t *testing.T) {
	dir := t.TempDir()
	w := New(Dependencies{
		FilesystemRoot: dir,
		TEE:            fakeEnclaveOnlyTEE{},
		TPM:            fakeTPM{},
		ReadIMA:        func() (*ima.Log, error) { return &ima.Log{}, nil },
	})

	require.NoError(t, w.Order())
	w.tick(context.Background())

	snap, err := w.Get()
	require.NoError(t, err)
	require.Nil(t, snap.TpmPolicy)
	require.Nil(t, snap.Files)
}

func TestWorker_ResetRefusedWhileTriggered(t *testing.T) {
	w := New(Dependencies{TEE: fakeTEE{}})
	require.NoError(t, w.Order())

	err := w.Reset()
	require.ErrorIs(t, err, ErrSnapshotInProgress)
}

func TestWorker_ResetClearsReadyResult(t *testing.T) {
	w := New(Dependencies{TEE: fakeTEE{}})
	require.NoError(t, w.Order())
	w.tick(context.Background())

	require.NoError(t, w.Reset())

	snap, err := w.Get()
	require.NoError(t, err)
	require.Nil(t, snap)
}

func TestWorker_MutualExclusionUnderConcurrentOrders(t *testing.T) {
	w := New(Dependencies{TEE: fakeTEE{}})

	var wg sync.WaitGroup
	successes := make([]bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			successes[i] = w.Order() == nil
		}(i)
	}
	wg.Wait()

	// try-lock semantics mean many concurrent orders may each individually
	// succeed (they just flip the same flag); what must never happen is a
	// torn read of the flag pair, which TryLock's mutual exclusion rules out
	// by construction. This test documents the guarantee rather than racing
	// to observe it directly.
	require.True(t, w.triggered)
}

func TestWorker_RunExitsOnCancel(t *testing.T) {
	w := New(Dependencies{TEE: fakeTEE{}})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after cancellation")
	}
}
