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
	"crypto/sha1" //nolint:gosec // IMA's own default file-hash algorithm
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/cvmagent/agent/ima"
	"golang.org/x/sync/errgroup"
)

// excludedPrefixes mirrors the upstream IMA agent's fixed filter list.
// Whether /home, /root, /opt, and overlay mount points should also be
// excluded is left as a policy decision for deployments, not decided here.
var excludedPrefixes = []string{
	"/sys/", "/run/", "/proc/", "/lost+found/", "/dev/", "/media/", "/var/", "/tmp/",
}

func isExcluded(path string) bool {
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func newHasher(method ima.HashMethod) hash.Hash {
	switch method {
	case ima.SHA256:
		return sha256.New()
	case ima.SHA512:
		return sha512.New()
	default:
		return sha1.New() //nolint:gosec
	}
}

// HashFilesystem walks root and hashes every regular file below it not
// under an excluded prefix, with concurrency bounded to the number of
// logical CPUs. Per-file errors (permission denied, a file vanishing
// between stat and read, a socket or FIFO) are dropped silently: a
// transient file must not fail the whole snapshot.
func HashFilesystem(ctx context.Context, root string, method ima.HashMethod) (Files, error) {
	files := make(Files)
	var mu sync.Mutex

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.NumCPU())

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // skip unreadable entries, do not fail the walk
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if isExcluded(path) || d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		group.Go(func() error {
			h, err := hashFile(path, method)
			if err != nil {
				slog.Debug("skipping unhashable file", "path", path, "error", err)
				return nil
			}
			mu.Lock()
			files.Add(path, h)
			mu.Unlock()
			return nil
		})
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	if walkErr != nil {
		return nil, walkErr
	}

	return files, nil
}

func hashFile(path string, method ima.HashMethod) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := newHasher(method)
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
