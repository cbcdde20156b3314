package ctxerr

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	ctx := context.Background()
	base := errors.New("boom")

	assert.Nil(t, Wrap(ctx, nil))
	assert.Nil(t, Wrap(ctx, nil, "ignored"))

	// without a message the error keeps its text but gains a stack
	wrapped := Wrap(ctx, base)
	require.Error(t, wrapped)
	assert.Equal(t, "boom", wrapped.Error())
	assert.Equal(t, base, Cause(wrapped))

	wrapped = Wrap(ctx, base, "reading job")
	require.Error(t, wrapped)
	assert.Equal(t, "reading job: boom", wrapped.Error())
	assert.Equal(t, base, Cause(wrapped))
}

func TestWrapf(t *testing.T) {
	ctx := context.Background()
	base := errors.New("boom")

	wrapped := Wrapf(ctx, base, "job %s", "j1")
	require.Error(t, wrapped)
	assert.Equal(t, "job j1: boom", wrapped.Error())
	assert.Nil(t, Wrapf(ctx, nil, "job %s", "j1"))
}
