// Пакет persist связывает документ редактора с внешним хранилищем: загружает сохраненное
// содержимое в любом из поддерживаемых видов, сериализует документ и сообщает хосту об изменениях
// с задержкой, чтобы серия нажатий клавиш давала одно уведомление.
package persist

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/state"
)

const DefaultDebounce = 100 * time.Millisecond

// Timer - отменяемый отложенный вызов.
type Timer interface {
	Stop() bool
}

// Clock планирует отложенные вызовы. В тестах подменяется ручными часами.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Options struct {
	// OnChange получает сериализованный документ после серии изменений
	OnChange func(content string)
	Debounce time.Duration
	Clock    Clock
}

type Adapter struct {
	store *state.Store
	opts  Options

	mu          sync.Mutex
	timer       Timer
	seq         uint64
	disposed    bool
	unsubscribe func()
}

// New создает адаптер и подписывает его на изменения хранилища.
func New(store *state.Store, opts Options) *Adapter {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	a := &Adapter{store: store, opts: opts}
	a.unsubscribe = store.OnChange(a.onSnapshot)
	return a
}

// Load загружает сохраненное содержимое в хранилище. Загрузка работает и в режиме только для чтения.
func (a *Adapter) Load(raw any) (Outcome, error) {
	doc, outcome := Decode(raw)
	switch outcome {
	case OutcomeTruncated:
		slog.Warn("Editor content looks truncated, showing warning")
	case OutcomePlainText:
		slog.Warn("Editor content is not a document, loaded as plain text")
	}
	err := a.store.UpdateWith(state.UpdateOptions{Hydrate: true}, func(tx *state.Tx) error {
		return tx.ReplaceRoot(doc)
	})
	return outcome, err
}

// Save сериализует текущий документ в канонический JSON.
func (a *Adapter) Save() (string, error) {
	b, err := json.Marshal(a.store.Snapshot().Export())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (a *Adapter) onSnapshot(snap *state.Snapshot) {
	// Загрузка и перемещение каретки не являются изменениями документа
	if tag := snap.Tag(); tag == state.TagHydrate || tag == state.TagSelection {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed || a.opts.OnChange == nil {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.seq++
	seq := a.seq
	a.timer = a.opts.Clock.AfterFunc(a.opts.Debounce, func() { a.fire(seq) })
}

// fire отправляет документ, если после планирования не было новых изменений.
func (a *Adapter) fire(seq uint64) {
	a.mu.Lock()
	if seq != a.seq || a.timer == nil {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	a.mu.Unlock()

	a.deliver()
}

func (a *Adapter) deliver() {
	content, err := a.Save()
	if err != nil {
		slog.Error("Serialize editor state", "err", err)
		return
	}
	a.opts.OnChange(content)
}

// Pending сообщает, ожидает ли отправки отложенное уведомление.
func (a *Adapter) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}

// Flush немедленно отправляет отложенное уведомление, если оно есть.
func (a *Adapter) Flush() {
	a.mu.Lock()
	if a.timer == nil {
		a.mu.Unlock()
		return
	}
	a.timer.Stop()
	a.timer = nil
	a.seq++
	a.mu.Unlock()

	a.deliver()
}

// Dispose отправляет последнее изменение и отписывается от хранилища.
func (a *Adapter) Dispose() {
	a.Flush()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed {
		return
	}
	a.disposed = true
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}
