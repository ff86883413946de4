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
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/panoptisDev/triehost/go/common/diagnostics"
	"github.com/panoptisDev/triehost/go/common/future"
	"github.com/panoptisDev/triehost/go/common/result"
	"github.com/panoptisDev/triehost/go/database/mpt/io"
	"github.com/panoptisDev/triehost/go/guest"
	"github.com/urfave/cli/v2"
)

var StressCmd = cli.Command{
	Action: diagnostics.WrapAction(doStress),
	Name:   "stress",
	Usage:  "runs a random sequence of inserts and removes against the trie",
	Flags: []cli.Flag{
		&numOpsFlag,
		&keySpaceFlag,
		&reportPeriodFlag,
		&seedFlag,
	},
}

var (
	numOpsFlag = cli.IntFlag{
		Name:  "num-ops",
		Usage: "number of operations to perform",
		Value: 10_000,
	}
	keySpaceFlag = cli.IntFlag{
		Name:  "key-space",
		Usage: "number of distinct keys operations are drawn from",
		Value: 1_000,
	}
	reportPeriodFlag = cli.DurationFlag{
		Name:  "report-period",
		Usage: "time between reports of memory and disk usage",
		Value: 10 * time.Second,
	}
	seedFlag = cli.Int64Flag{
		Name:  "seed",
		Usage: "seed of the random operation sequence",
		Value: 0,
	}
)

type stressConfig struct {
	numOps   int
	keySpace int
	seed     int64
}

type stressStats struct {
	inserts int
	removes int
	root    string
}

func doStress(c *cli.Context) error {
	numOps := c.Int(numOpsFlag.Name)
	keySpace := c.Int(keySpaceFlag.Name)
	period := c.Duration(reportPeriodFlag.Name)
	if numOps < 0 {
		return fmt.Errorf("number of operations must not be negative, got %d", numOps)
	}
	if keySpace <= 0 {
		return fmt.Errorf("key space must be positive, got %d", keySpace)
	}
	if period <= 0 {
		return fmt.Errorf("report period must be positive, got %v", period)
	}
	config := stressConfig{
		numOps:   numOps,
		keySpace: keySpace,
		seed:     c.Int64(seedFlag.Name),
	}
	dir := c.String(dbFlag.Name)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runWithClient(c, func(client *guest.Client, log *io.Log) error {
		log.Printf("Running %d operations on %d keys ...", config.numOps, config.keySpace)
		progress := log.NewProgressTracker("performed %d operations, %.2f operations/s", 1_000)

		done := future.Go(func() result.Result[stressStats] {
			return result.Of(runStress(ctx, client, config, progress))
		})

		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case res := <-done.C:
				stats, err := res.Get()
				if errors.Is(err, context.Canceled) {
					log.Printf("Interrupted")
					return nil
				}
				if err != nil {
					return err
				}
				log.Printf("Done: %d inserts, %d removes, root %s", stats.inserts, stats.removes, stats.root)
				return nil
			case <-ticker.C:
				log.Printf("memory: %d MiB, disk: %d MiB", getMemoryUsage()>>20, getDirectorySize(dir)>>20)
			}
		}
	})
}

// runStress performs the configured operations. It is the only user of the
// client while running.
func runStress(ctx context.Context, client *guest.Client, config stressConfig, progress *io.ProgressLogger) (stressStats, error) {
	var stats stressStats
	random := rand.New(rand.NewSource(config.seed))
	present := make(map[int]bool, config.keySpace)
	var key [8]byte
	for range config.numOps {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		k := random.Intn(config.keySpace)
		binary.BigEndian.PutUint64(key[:], uint64(k))
		if present[k] && random.Intn(2) == 0 {
			if err := client.Remove(key[:]); err != nil {
				return stats, err
			}
			delete(present, k)
			stats.removes++
		} else {
			value := make([]byte, 1+random.Intn(64))
			random.Read(value)
			if err := client.Insert(key[:], value); err != nil {
				return stats, err
			}
			present[k] = true
			stats.inserts++
		}
		progress.Step(1)
	}
	root, err := client.Root()
	if err != nil {
		return stats, err
	}
	stats.root = root.String()
	return stats, nil
}

func getMemoryUsage() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// getDirectorySize sums the sizes of all files below the given path. Missing
// paths have size zero.
func getDirectorySize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.Type().IsRegular() {
			if info, err := entry.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size
}
