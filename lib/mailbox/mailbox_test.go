package mailbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxFIFO(t *testing.T) {
	mb := New[int]("test", 4)
	for i := 0; i < 4; i++ {
		require.NoError(t, mb.TrySend(i))
	}
	assert.Equal(t, 4, mb.Len())

	for i := 0; i < 4; i++ {
		assert.Equal(t, i, <-mb.C())
	}
}

func TestMailboxFullDropsNewest(t *testing.T) {
	mb := New[string]("full", 1)
	require.NoError(t, mb.TrySend("first"))
	assert.ErrorIs(t, mb.TrySend("second"), ErrMailboxFull)

	assert.Equal(t, "first", <-mb.C())
	assert.Equal(t, 0, mb.Len())
}

func TestMailboxClose(t *testing.T) {
	mb := New[int]("close", 2)
	require.NoError(t, mb.TrySend(7))
	mb.Close()
	mb.Close()

	assert.ErrorIs(t, mb.TrySend(8), ErrMailboxClosed)

	v, ok := <-mb.C()
	assert.True(t, ok)
	assert.Equal(t, 7, v)
	_, ok = <-mb.C()
	assert.False(t, ok)
}

func TestMailboxDefaultCapacity(t *testing.T) {
	mb := New[int]("default", 0)
	assert.Equal(t, DefaultCapacity, mb.Cap())
	assert.Equal(t, "default", mb.Name())
}

func TestForwardSharesOneInbox(t *testing.T) {
	inbox := New[any]("inbox", 8)
	ints := Forward[int](inbox)
	strs := Forward[string](inbox)

	require.NoError(t, ints.TrySend(1))
	require.NoError(t, strs.TrySend("two"))
	require.NoError(t, ints.TrySend(3))

	assert.Equal(t, any(1), <-inbox.C())
	assert.Equal(t, any("two"), <-inbox.C())
	assert.Equal(t, any(3), <-inbox.C())
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard[int]().TrySend(1))
}
