package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseWaiter_FirstResultWins(t *testing.T) {
	w := NewResponseWaiter()

	w.Succeed("first", map[string]interface{}{"qr": "abc"})
	w.Fail("second")

	result, err := w.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, "first", result.Message)
}

func TestResponseWaiter_PendingFlips(t *testing.T) {
	w := NewResponseWaiter()

	assert.True(t, w.Pending())
	w.Fail("done")
	assert.False(t, w.Pending())
}

func TestResponseWaiter_WaitTimeout(t *testing.T) {
	w := NewResponseWaiter()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := w.Wait(ctx)
	assert.Error(t, err)
}

func TestResponseWaiter_NilIsSafe(t *testing.T) {
	var w *ResponseWaiter

	assert.False(t, w.Pending())
	w.Succeed("ignored", nil)
	w.Fail("ignored")
}

func TestResponseWaiter_DeliverBeforeWait(t *testing.T) {
	w := NewResponseWaiter()
	w.Fail("no dice")

	result, err := w.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, "no dice", result.Message)
}
