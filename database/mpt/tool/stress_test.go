// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/panoptisDev/triehost/go/backend/host"
	"github.com/panoptisDev/triehost/go/backend/host/memory"
	"github.com/panoptisDev/triehost/go/common"
	"github.com/panoptisDev/triehost/go/database/mpt/io"
	"github.com/panoptisDev/triehost/go/guest"
	"github.com/stretchr/testify/require"
)

func newStressClient(t *testing.T) *guest.Client {
	env := host.NewEnvironment(memory.NewStore(), nil)
	t.Cleanup(func() { require.NoError(t, env.Close()) })
	return guest.NewClient(guest.NewUnit(env, guest.DefaultConfig), env)
}

func TestStress_BasicRun(t *testing.T) {
	mustRun(t, "--db", t.TempDir(), "stress", "--num-ops=200", "--key-space=20", "--report-period=10ms")
}

func TestStress_InvalidParameters(t *testing.T) {
	tests := map[string][]string{
		"negative ops":   {"stress", "--num-ops=-1"},
		"zero key space": {"stress", "--key-space=0"},
		"zero period":    {"stress", "--report-period=0s"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, args...)
			require.Error(t, err)
		})
	}
}

func TestStress_IsDeterministicForSeed(t *testing.T) {
	require := require.New(t)
	config := stressConfig{numOps: 300, keySpace: 25, seed: 7}
	progress := io.NewLogTo(os.Stderr).NewProgressTracker("%d %.0f", 1_000)

	a, err := runStress(context.Background(), newStressClient(t), config, progress)
	require.NoError(err)
	b, err := runStress(context.Background(), newStressClient(t), config, progress)
	require.NoError(err)
	require.Equal(a, b)
	require.Equal(300, a.inserts+a.removes)
	require.NotEqual(common.EmptyTrieHash.String(), a.root)
}

func TestStress_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	progress := io.NewLogTo(os.Stderr).NewProgressTracker("%d %.0f", 1_000)
	stats, err := runStress(ctx, newStressClient(t), stressConfig{numOps: 10, keySpace: 5}, progress)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, stats.inserts+stats.removes)
}

func TestGetMemoryUsage(t *testing.T) {
	require.Greater(t, getMemoryUsage(), uint64(0))
}

func TestGetDirectorySize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("hello world"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b"), []byte("data"), 0644))
	require.Equal(t, int64(15), getDirectorySize(dir))
}

func TestGetDirectorySize_NonExistentDirectory(t *testing.T) {
	require.Equal(t, int64(0), getDirectorySize("/path/does/not/exist"))
}

func TestGetDirectorySize_FilePath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("data"), 0644))
	require.Equal(t, int64(4), getDirectorySize(file))
}
