// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package host

import (
	"bytes"
	"fmt"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEnvironment_Input_CopiesAndReportsFullLength(t *testing.T) {
	require := require.New(t)
	env := NewEnvironment(NewMockKeyValueStore(gomock.NewController(t)), nil)
	env.SetInput([]byte{1, 2, 3, 4})

	buf := make([]byte, 4)
	require.Equal(4, env.Input(buf))
	require.Equal([]byte{1, 2, 3, 4}, buf)

	short := make([]byte, 2)
	require.Equal(4, env.Input(short))
	require.Equal([]byte{1, 2}, short)
}

func TestEnvironment_EmptyKeyIsMappedToRootSlot(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockKeyValueStore(ctrl)
	store.EXPECT().Put(RootSlotKey, []byte{1}).Return(nil)
	store.EXPECT().Get(RootSlotKey).Return([]byte{1}, nil)
	store.EXPECT().Delete(RootSlotKey).Return(nil)

	env := NewEnvironment(store, nil)
	require.Equal(t, StatusSuccess, env.SetStorage([]byte{}, []byte{1}))
	n, status := env.GetStorage(nil, make([]byte, 1))
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, 1, n)
	require.Equal(t, StatusSuccess, env.ClearStorage(nil))
}

func TestEnvironment_GetStorage_ReportsFullLengthOfTruncatedValues(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	store := NewMockKeyValueStore(ctrl)
	store.EXPECT().Get([]byte{1}).Return([]byte{1, 2, 3, 4, 5}, nil)

	env := NewEnvironment(store, nil)
	out := make([]byte, 2)
	n, status := env.GetStorage([]byte{1}, out)
	require.Equal(StatusSuccess, status)
	require.Equal(5, n)
	require.Equal([]byte{1, 2}, out)
}

func TestEnvironment_StoreErrorsAreReportedAsFailures(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	store := NewMockKeyValueStore(ctrl)
	injectedErr := fmt.Errorf("injected error")
	store.EXPECT().Get(gomock.Any()).Return(nil, injectedErr)
	store.EXPECT().Put(gomock.Any(), gomock.Any()).Return(injectedErr)
	store.EXPECT().Delete(gomock.Any()).Return(injectedErr)

	var out bytes.Buffer
	env := NewEnvironment(store, log.New(&out, "", 0))

	_, status := env.GetStorage([]byte{1}, nil)
	require.Equal(StatusFailure, status)
	require.Equal(StatusFailure, env.SetStorage([]byte{1}, []byte{2}))
	require.Equal(StatusFailure, env.ClearStorage([]byte{1}))
	require.Contains(out.String(), "injected error")
}

func TestEnvironment_NotFoundIsReportedAsStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockKeyValueStore(ctrl)
	store.EXPECT().Get([]byte{1}).Return(nil, fmt.Errorf("wrapped: %w", ErrNotFound))

	env := NewEnvironment(store, nil)
	_, status := env.GetStorage([]byte{1}, nil)
	require.Equal(t, StatusNotFound, status)
}

func TestEnvironment_LogIsForwardedToLogger(t *testing.T) {
	var out bytes.Buffer
	env := NewEnvironment(nil, log.New(&out, "guest: ", 0))
	env.Log("hello")
	require.Equal(t, "guest: hello\n", out.String())

	// without a logger messages are dropped
	NewEnvironment(nil, nil).Log("dropped")
}

func TestStatus_String(t *testing.T) {
	require := require.New(t)
	require.Equal("success", StatusSuccess.String())
	require.Equal("failure", StatusFailure.String())
	require.Equal("not found", StatusNotFound.String())
	require.Equal("unknown", Status(7).String())
}
