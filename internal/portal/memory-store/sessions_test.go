package store

import (
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newId() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

func TestSessionStore_AddGetRemove(t *testing.T) {
	s := NewSessionStore[string](time.Hour, nil)
	id := newId()
	s.Add(id, "doc")

	v, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "doc", v)
	assert.Equal(t, 1, s.Len())

	v, ok = s.Remove(id)
	require.True(t, ok)
	assert.Equal(t, "doc", v)

	_, ok = s.Get(id)
	assert.False(t, ok)
	_, ok = s.Remove(id)
	assert.False(t, ok)
	_, ok = s.Get(newId())
	assert.False(t, ok)
}

func TestSessionStore_Expire(t *testing.T) {
	var mu sync.Mutex
	var expired []string
	s := NewSessionStore(50*time.Millisecond, func(_ uuid.UUID, v string) {
		mu.Lock()
		expired = append(expired, v)
		mu.Unlock()
	})

	id := newId()
	s.Add(id, "idle")
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(expired) == 1
	}, time.Second, 10*time.Millisecond)
	_, ok := s.Get(id)
	assert.False(t, ok)
}

func TestSessionStore_TouchExtends(t *testing.T) {
	expired := make(chan string, 1)
	s := NewSessionStore(150*time.Millisecond, func(_ uuid.UUID, v string) { expired <- v })

	id := newId()
	s.Add(id, "active")
	for range 4 {
		time.Sleep(50 * time.Millisecond)
		_, ok := s.Get(id)
		require.True(t, ok)
	}

	select {
	case v := <-expired:
		assert.Equal(t, "active", v)
	case <-time.After(time.Second):
		t.Fatal("session did not expire")
	}
}

func TestSessionStore_RemovedNotExpired(t *testing.T) {
	expired := make(chan string, 1)
	s := NewSessionStore(30*time.Millisecond, func(_ uuid.UUID, v string) { expired <- v })
	id := newId()
	s.Add(id, "closed")
	s.Remove(id)

	select {
	case <-expired:
		t.Fatal("removed session expired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSessionStore_Drain(t *testing.T) {
	s := NewSessionStore[int](time.Hour, nil)
	s.Add(newId(), 1)
	s.Add(newId(), 2)
	assert.ElementsMatch(t, []int{1, 2}, s.Drain())
	assert.Zero(t, s.Len())
}
