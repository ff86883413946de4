// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package diagnostics adds profiling and tracing facilities to command line
// tools.
package diagnostics

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"strings"

	"github.com/urfave/cli/v2"
)

var (
	PortFlag = cli.IntFlag{
		Name:  "diagnostic-port",
		Usage: "enable hosting of a realtime diagnostic server by providing a port",
		Value: 0,
	}
	CpuProfileFlag = cli.StringFlag{
		Name:  "cpuprofile",
		Usage: "sets the target file for storing CPU profiles to, disabled if empty",
		Value: "",
	}
	TraceFlag = cli.StringFlag{
		Name:  "tracefile",
		Usage: "sets the target file for traces to, disabled if empty",
		Value: "",
	}
)

// Flags lists the flags consumed by WrapAction.
var Flags = []cli.Flag{&PortFlag, &CpuProfileFlag, &TraceFlag}

// Config selects the diagnostics enabled for a run.
type Config struct {
	Port       int
	CpuProfile string
	TraceFile  string
}

// ConfigFromContext reads the diagnostic flags of a command line invocation.
func ConfigFromContext(context *cli.Context) Config {
	return Config{
		Port:       context.Int(PortFlag.Name),
		CpuProfile: strings.TrimSpace(context.String(CpuProfileFlag.Name)),
		TraceFile:  strings.TrimSpace(context.String(TraceFlag.Name)),
	}
}

// WrapAction runs the given action with the diagnostics requested on the
// command line.
func WrapAction(action cli.ActionFunc) cli.ActionFunc {
	return func(context *cli.Context) (err error) {
		stop, err := Start(ConfigFromContext(context))
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, stop())
		}()
		return action(context)
	}
}

// Start enables the configured diagnostics. The returned function stops
// profiling and tracing; the diagnostic server keeps running until the
// process ends.
func Start(config Config) (stop func() error, err error) {
	startServer(config.Port)

	var stops []func() error
	stop = func() error {
		var errs []error
		for i := len(stops) - 1; i >= 0; i-- {
			errs = append(errs, stops[i]())
		}
		return errors.Join(errs...)
	}

	if config.CpuProfile != "" {
		stopProfiler, err := startCpuProfiler(config.CpuProfile)
		if err != nil {
			return nil, err
		}
		stops = append(stops, stopProfiler)
	}

	if config.TraceFile != "" {
		stopTracer, err := startTracer(config.TraceFile)
		if err != nil {
			return nil, errors.Join(err, stop())
		}
		stops = append(stops, stopTracer)
	}
	return stop, nil
}

func startServer(port int) {
	if port <= 0 || port >= (1<<16) {
		return
	}
	fmt.Printf("Starting diagnostic server at port http://localhost:%d\n", port)
	fmt.Printf("(see https://pkg.go.dev/net/http/pprof#hdr-Usage_examples for usage examples)\n")
	go func() {
		addr := fmt.Sprintf("localhost:%d", port)
		log.Println(http.ListenAndServe(addr, nil))
	}()
	runtime.SetBlockProfileRate(1)
	runtime.SetMutexProfileFraction(1)
}

func startCpuProfiler(filename string) (func() error, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		return nil, errors.Join(fmt.Errorf("could not start CPU profile: %w", err), f.Close())
	}
	return func() error {
		pprof.StopCPUProfile()
		return f.Close()
	}, nil
}

func startTracer(filename string) (func() error, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}
	if err := trace.Start(f); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to start trace: %w", err), f.Close())
	}
	return func() error {
		trace.Stop()
		return f.Close()
	}, nil
}
