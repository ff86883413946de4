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
	"fmt"
	"os"

	"github.com/panoptisDev/triehost/go/common/diagnostics"
	"github.com/urfave/cli/v2"
)

// Run using
//  go run ./database/mpt/tool <command> <flags>

var (
	dbFlag = cli.StringFlag{
		Name:  "db",
		Usage: "directory of the host storage, an in-memory storage is used if empty",
		Value: "",
	}
	backendFlag = cli.StringFlag{
		Name:  "backend",
		Usage: "storage backend of the host, one of leveldb or sqlite",
		Value: "leveldb",
	}
	compressFlag = cli.BoolFlag{
		Name:  "compress",
		Usage: "compress values stored by the leveldb backend",
	}
	debugFlag = cli.BoolFlag{
		Name:  "debug",
		Usage: "log every call of the execution unit",
	}
)

var commands = []*cli.Command{
	&InsertCmd,
	&RemoveCmd,
	&GetCmd,
	&ExistsCmd,
	&RootCmd,
	&ExportCmd,
	&RefCountCmd,
	&StressCmd,
}

func newApp() *cli.App {
	flags := []cli.Flag{&dbFlag, &backendFlag, &compressFlag, &debugFlag}
	return &cli.App{
		Name:      "tool",
		Usage:     "stateless trie toolbox",
		Copyright: "(c) 2025 Sonic Operations Ltd",
		Flags:     append(flags, diagnostics.Flags...),
		Commands:  commands,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
