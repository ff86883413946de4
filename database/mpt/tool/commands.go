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
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/panoptisDev/triehost/go/common"
	"github.com/panoptisDev/triehost/go/common/diagnostics"
	"github.com/panoptisDev/triehost/go/database/mpt/io"
	"github.com/panoptisDev/triehost/go/guest"
	"github.com/urfave/cli/v2"
)

var (
	InsertCmd = cli.Command{
		Action:    diagnostics.WrapAction(doInsert),
		Name:      "insert",
		Usage:     "stores a value under a key, an empty value removes the key",
		ArgsUsage: "<key> <value>",
	}
	RemoveCmd = cli.Command{
		Action:    diagnostics.WrapAction(doRemove),
		Name:      "remove",
		Usage:     "removes a key",
		ArgsUsage: "<key>",
	}
	GetCmd = cli.Command{
		Action:    diagnostics.WrapAction(doGet),
		Name:      "get",
		Usage:     "prints the value stored under a key",
		ArgsUsage: "<key>",
	}
	ExistsCmd = cli.Command{
		Action:    diagnostics.WrapAction(doExists),
		Name:      "exists",
		Usage:     "checks whether a value is stored under a key",
		ArgsUsage: "<key>",
	}
	RootCmd = cli.Command{
		Action: diagnostics.WrapAction(doRoot),
		Name:   "root",
		Usage:  "prints the root hash of the trie",
	}
	ExportCmd = cli.Command{
		Action: diagnostics.WrapAction(doExport),
		Name:   "export",
		Usage:  "exports the node graph of the trie as JSON",
		Flags: []cli.Flag{
			&outFlag,
		},
	}
	RefCountCmd = cli.Command{
		Action:    diagnostics.WrapAction(doRefCount),
		Name:      "refcount",
		Usage:     "prints the reference count of a stored node or value",
		ArgsUsage: "<hash>",
	}
)

var outFlag = cli.StringFlag{
	Name:  "out",
	Usage: "target file of the export, stdout if empty",
	Value: "",
}

func doInsert(context *cli.Context) error {
	args, err := parseArgs(context, "<key>", "<value>")
	if err != nil {
		return err
	}
	return runWithClient(context, func(client *guest.Client, log *io.Log) error {
		if err := client.Insert(args[0], args[1]); err != nil {
			return err
		}
		return printRoot(context, client)
	})
}

func doRemove(context *cli.Context) error {
	args, err := parseArgs(context, "<key>")
	if err != nil {
		return err
	}
	return runWithClient(context, func(client *guest.Client, log *io.Log) error {
		if err := client.Remove(args[0]); err != nil {
			return err
		}
		return printRoot(context, client)
	})
}

func doGet(context *cli.Context) error {
	args, err := parseArgs(context, "<key>")
	if err != nil {
		return err
	}
	return runWithClient(context, func(client *guest.Client, log *io.Log) error {
		value, found, err := client.Get(args[0])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("key %s not found", hexutil.Encode(args[0]))
		}
		_, err = fmt.Fprintln(context.App.Writer, hexutil.Encode(value))
		return err
	})
}

func doExists(context *cli.Context) error {
	args, err := parseArgs(context, "<key>")
	if err != nil {
		return err
	}
	return runWithClient(context, func(client *guest.Client, log *io.Log) error {
		exists, err := client.Exists(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(context.App.Writer, exists)
		return err
	})
}

func doRoot(context *cli.Context) error {
	if context.Args().Len() != 0 {
		return errors.New("root takes no arguments")
	}
	return runWithClient(context, func(client *guest.Client, log *io.Log) error {
		return printRoot(context, client)
	})
}

func printRoot(context *cli.Context, client *guest.Client) error {
	root, err := client.Root()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(context.App.Writer, root)
	return err
}

func doExport(context *cli.Context) error {
	return runWithClient(context, func(client *guest.Client, log *io.Log) (err error) {
		nodes, err := client.Nodes()
		if err != nil {
			return err
		}

		out := context.App.Writer
		if file := context.String(outFlag.Name); file != "" {
			f, err := os.Create(file)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer func() {
				err = errors.Join(err, f.Close())
			}()
			out = f
			log.Printf("Exporting node graph to %s ...", file)
		}

		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(nodes)
	})
}

func doRefCount(context *cli.Context) error {
	args, err := parseArgs(context, "<hash>")
	if err != nil {
		return err
	}
	hash, err := common.HashFromBytes(args[0])
	if err != nil {
		return err
	}
	return runWithClient(context, func(client *guest.Client, log *io.Log) error {
		count, err := client.RefCount(hash)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(context.App.Writer, count)
		return err
	})
}
