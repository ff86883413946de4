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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/panoptisDev/triehost/go/backend/host"
	"github.com/panoptisDev/triehost/go/backend/host/ldb"
	"github.com/panoptisDev/triehost/go/backend/host/memory"
	"github.com/panoptisDev/triehost/go/backend/host/sqlite"
	"github.com/panoptisDev/triehost/go/database/mpt/io"
	"github.com/panoptisDev/triehost/go/guest"
	"github.com/urfave/cli/v2"
)

const sqliteFile = "storage.sqlite"

// openStore opens the host storage selected on the command line.
func openStore(context *cli.Context) (host.KeyValueStore, error) {
	dir := context.String(dbFlag.Name)
	if dir == "" {
		return memory.NewStore(), nil
	}
	switch backend := context.String(backendFlag.Name); backend {
	case "leveldb":
		return ldb.Open(dir, ldb.Config{Compress: context.Bool(compressFlag.Name)})
	case "sqlite":
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		return sqlite.Open(filepath.Join(dir, sqliteFile))
	default:
		return nil, fmt.Errorf("unknown backend %q, expected leveldb or sqlite", backend)
	}
}

// runWithClient runs the given function on a client of an execution unit
// operating on the host storage selected on the command line.
func runWithClient(context *cli.Context, run func(*guest.Client, *io.Log) error) (err error) {
	store, err := openStore(context)
	if err != nil {
		return err
	}
	log := io.NewLogTo(context.App.ErrWriter)
	env := host.NewEnvironment(store, log.Logger())
	defer func() {
		err = errors.Join(err, env.Close())
	}()

	config := guest.DefaultConfig
	config.Debug = context.Bool(debugFlag.Name)
	return run(guest.NewClient(guest.NewUnit(env, config), env), log)
}

// parseArg interprets arguments starting with 0x as hex, others as raw bytes.
func parseArg(arg string) ([]byte, error) {
	if strings.HasPrefix(arg, "0x") || strings.HasPrefix(arg, "0X") {
		data, err := hexutil.Decode("0x" + arg[2:])
		if err != nil {
			return nil, fmt.Errorf("invalid hex argument %q: %w", arg, err)
		}
		return data, nil
	}
	return []byte(arg), nil
}

func parseArgs(context *cli.Context, names ...string) ([][]byte, error) {
	if context.Args().Len() != len(names) {
		return nil, fmt.Errorf("expected arguments: %s", strings.Join(names, " "))
	}
	res := make([][]byte, 0, len(names))
	for _, arg := range context.Args().Slice() {
		data, err := parseArg(arg)
		if err != nil {
			return nil, err
		}
		res = append(res, data)
	}
	return res, nil
}
