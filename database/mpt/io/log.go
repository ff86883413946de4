// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package io provides the console logging used by the trie tooling.
package io

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Log prints messages prefixed by the time elapsed since its creation.
type Log struct {
	logger *log.Logger
	start  time.Time
	now    func() time.Time
}

// NewLog creates a log writing to stdout.
func NewLog() *Log {
	return NewLogTo(os.Stdout)
}

// NewLogTo creates a log writing to the given writer.
func NewLogTo(out io.Writer) *Log {
	return &Log{
		logger: log.New(out, "", log.Ldate|log.Ltime),
		start:  time.Now(),
		now:    time.Now,
	}
}

// Printf prints a formatted message with the elapsed time.
func (l *Log) Printf(format string, args ...any) {
	elapsed := l.now().Sub(l.start).Round(time.Millisecond)
	l.logger.Printf("[t=%v] %s", elapsed, fmt.Sprintf(format, args...))
}

// Logger exposes the underlying logger, e.g. for forwarding messages of an
// execution unit.
func (l *Log) Logger() *log.Logger {
	return l.logger
}

// ProgressLogger reports the progress of long running operations once every
// period steps. The format receives the number of steps and the rate in
// steps per second.
type ProgressLogger struct {
	log     *Log
	format  string
	period  int
	counter int
	pending int
	last    time.Time
}

// NewProgressTracker creates a progress logger printing through this log.
func (l *Log) NewProgressTracker(format string, period int) *ProgressLogger {
	if period <= 0 {
		period = 1
	}
	return &ProgressLogger{
		log:    l,
		format: format,
		period: period,
		last:   l.now(),
	}
}

// Step records n steps, printing whenever a period boundary is crossed.
func (p *ProgressLogger) Step(n int) {
	before := p.counter / p.period
	p.counter += n
	p.pending += n
	if p.counter/p.period == before {
		return
	}
	now := p.log.now()
	rate := 0.0
	if elapsed := now.Sub(p.last).Seconds(); elapsed > 0 {
		rate = float64(p.pending) / elapsed
	}
	p.last = now
	p.pending = 0
	p.log.Printf(p.format, p.counter, rate)
}

// Count returns the number of steps recorded so far.
func (p *ProgressLogger) Count() int {
	return p.counter
}
