package debounce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const delay = 20 * time.Millisecond

func TestBurstYieldsOnlyLastValue(t *testing.T) {
	d := New[int](delay)
	defer d.Close()

	for i := 1; i <= 10; i++ {
		d.Push(i)
		time.Sleep(time.Millisecond)
	}

	select {
	case v := <-d.C():
		assert.Equal(t, 10, v)
	case <-time.After(time.Second):
		t.Fatal("debouncer never yielded")
	}

	// nothing else may be pending
	select {
	case v := <-d.C():
		t.Fatalf("unexpected extra value %v", v)
	case <-time.After(3 * delay):
	}
}

func TestRearmsAfterYield(t *testing.T) {
	d := New[string](delay)
	defer d.Close()

	d.Push("first")
	require.Equal(t, "first", <-d.C())

	d.Push("second")
	require.Equal(t, "second", <-d.C())
}

func TestQuietBeforeFirstPush(t *testing.T) {
	d := New[int](delay)
	defer d.Close()

	select {
	case v := <-d.C():
		t.Fatalf("yielded %v without any push", v)
	case <-time.After(3 * delay):
	}
}

func TestCloseFlushesPendingValue(t *testing.T) {
	d := New[int](time.Minute)
	d.Push(7)
	time.Sleep(5 * time.Millisecond)
	d.Close()

	v, ok := <-d.C()
	require.True(t, ok)
	assert.Equal(t, 7, v)

	_, ok = <-d.C()
	assert.False(t, ok, "output channel should be closed")
}

func TestCloseWithoutPushClosesOutput(t *testing.T) {
	d := New[int](delay)
	d.Close()

	select {
	case _, ok := <-d.C():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("output channel never closed")
	}
}
