// Хранение открытых сессий в памяти процесса с закрытием по простою.
package store

import (
	"sync"
	"time"

	"github.com/gofrs/uuid"
)

type SessionStore[T any] struct {
	mu       sync.RWMutex
	idle     time.Duration
	sessions map[uuid.UUID]*sessionData[T]
	onExpire func(id uuid.UUID, value T)
}

type sessionData[T any] struct {
	value    T
	lastSeen time.Time
	timer    *time.Timer
	cleanup  chan struct{}
}

// NewSessionStore создает хранилище. onExpire вызывается вне блокировки для сессий,
// к которым не обращались дольше idle.
func NewSessionStore[T any](idle time.Duration, onExpire func(id uuid.UUID, value T)) *SessionStore[T] {
	return &SessionStore[T]{
		idle:     idle,
		sessions: make(map[uuid.UUID]*sessionData[T]),
		onExpire: onExpire,
	}
}

// Add сохраняет сессию под id, заменяя прежнюю с тем же id.
func (s *SessionStore[T]) Add(id uuid.UUID, value T) {
	data := &sessionData[T]{
		value:    value,
		lastSeen: time.Now(),
		timer:    time.NewTimer(s.idle),
		cleanup:  make(chan struct{}),
	}

	s.mu.Lock()
	if prev, ok := s.sessions[id]; ok {
		close(prev.cleanup)
		prev.timer.Stop()
	}
	s.sessions[id] = data
	s.mu.Unlock()

	go s.setupTimerCleanup(id, data)
}

// Get возвращает сессию и продлевает ее жизнь.
func (s *SessionStore[T]) Get(id uuid.UUID) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.sessions[id]
	if !ok {
		var zero T
		return zero, false
	}
	data.lastSeen = time.Now()
	return data.value, true
}

// Remove удаляет сессию без вызова onExpire.
func (s *SessionStore[T]) Remove(id uuid.UUID) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.sessions[id]
	if !ok {
		var zero T
		return zero, false
	}
	close(data.cleanup)
	data.timer.Stop()
	delete(s.sessions, id)
	return data.value, true
}

func (s *SessionStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Drain удаляет все сессии и возвращает их значения.
func (s *SessionStore[T]) Drain() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]T, 0, len(s.sessions))
	for id, data := range s.sessions {
		close(data.cleanup)
		data.timer.Stop()
		delete(s.sessions, id)
		res = append(res, data.value)
	}
	return res
}

func (s *SessionStore[T]) setupTimerCleanup(id uuid.UUID, data *sessionData[T]) {
	for {
		select {
		case <-data.timer.C:
			if s.expire(id, data) {
				return
			}
		case <-data.cleanup:
			return
		}
	}
}

func (s *SessionStore[T]) expire(id uuid.UUID, data *sessionData[T]) bool {
	s.mu.Lock()
	if s.sessions[id] != data {
		s.mu.Unlock()
		return true
	}
	if rest := s.idle - time.Since(data.lastSeen); rest > 0 {
		data.timer.Reset(rest)
		s.mu.Unlock()
		return false
	}
	delete(s.sessions, id)
	s.mu.Unlock()

	if s.onExpire != nil {
		s.onExpire(id, data.value)
	}
	return true
}
