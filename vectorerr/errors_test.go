// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package vectorerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfAndContextOf(t *testing.T) {
	cause := errors.New("boom")
	err := New(KindBadSignatures, cause, map[string]interface{}{"channelAddress": "0xabc"})

	require.Equal(t, KindBadSignatures, KindOf(err))
	require.Equal(t, "0xabc", ContextOf(err)["channelAddress"])
	require.True(t, errors.Is(err, err))
}

func TestKindOfUnwrapsPlainError(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(errors.New("not ours")))
	require.Nil(t, ContextOf(errors.New("not ours")))
}

func TestIsRetryableOnlyBadSignatures(t *testing.T) {
	require.True(t, IsRetryable(New(KindBadSignatures, nil, nil)))
	require.False(t, IsRetryable(New(KindTimeout, nil, nil)))
}

func TestIsTimeout(t *testing.T) {
	require.True(t, IsTimeout(New(KindTimeout, nil, nil)))
	require.False(t, IsTimeout(New(KindBadSignatures, nil, nil)))
}

func TestWrapSetsExternalKind(t *testing.T) {
	err := Wrap(errors.New("db down"), nil)
	require.Equal(t, KindExternal, err.Kind)
}
