package sse

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_FanOut(t *testing.T) {
	b := NewBroker[string]()
	a, cancelA := b.Subscribe(4)
	defer cancelA()
	c, cancelC := b.Subscribe(4)
	defer cancelC()

	assert.Equal(t, 2, b.Subscribers())
	assert.Equal(t, 2, b.Publish("RESPONSE_TIME_HIGH"))

	assert.Equal(t, "RESPONSE_TIME_HIGH", <-a)
	assert.Equal(t, "RESPONSE_TIME_HIGH", <-c)
}

func TestBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroker[int]()
	slow, cancel := b.Subscribe(1)
	defer cancel()

	assert.Equal(t, 1, b.Publish(1))
	assert.Equal(t, 0, b.Publish(2), "full buffer skips the value")
	assert.Equal(t, uint64(1), b.Dropped())

	assert.Equal(t, 1, <-slow)
}

func TestBroker_Cancel(t *testing.T) {
	b := NewBroker[int]()
	ch, cancel := b.Subscribe(0)

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, b.Subscribers())
	assert.Zero(t, b.Publish(1))
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker[int]()
	ch, cancel := b.Subscribe(1)

	b.Close()
	b.Close()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	late, lateCancel := b.Subscribe(1)
	defer lateCancel()
	_, open = <-late
	assert.False(t, open, "subscribing after close yields a closed channel")
}

func TestBroker_ConcurrentPublishAndCancel(t *testing.T) {
	b := NewBroker[int]()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		ch, cancel := b.Subscribe(8)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Publish(j)
			}
		}()
		go func() {
			defer wg.Done()
			for range ch {
			}
		}()
		cancel()
	}
	wg.Wait()

	require.Zero(t, b.Subscribers())
}
