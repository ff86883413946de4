// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package fault implements the abort policy of the execution unit. Structural
// violations and unexpected host responses are not recoverable inside a call:
// they unwind the whole call through Abort and are turned into an error only
// at the call boundary by Recover.
package fault

import (
	"errors"
	"fmt"
)

// ErrAborted is wrapped by every Fault.
var ErrAborted = errors.New("execution aborted")

// Fault is the panic value raised by Abort.
type Fault struct {
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%v: %s", ErrAborted, f.Message)
}

func (f *Fault) Unwrap() error {
	return ErrAborted
}

// Abort terminates the current call with a formatted diagnostic.
func Abort(format string, args ...any) {
	panic(&Fault{Message: fmt.Sprintf(format, args...)})
}

// Recover converts a Fault raised in the calling function into an error
// stored in errp. Any other panic is propagated. It must be called directly
// by a deferred statement.
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	f, ok := r.(*Fault)
	if !ok {
		panic(r)
	}
	*errp = f
}

// Catch runs fn and returns the Fault it raised, if any.
func Catch(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		f, ok := r.(*Fault)
		if !ok {
			panic(r)
		}
		err = f
	}()
	fn()
	return nil
}
