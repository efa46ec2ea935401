// Пакет state реализует хранилище состояния редактора: таблицу узлов с ключами, транзакции
// с копированием при записи и атомарную публикацию неизменяемых снимков.
//
// Все изменения документа выполняются внутри Store.Update. Транзакция либо публикует новый
// снимок целиком, либо при ошибке (в том числе панике) отбрасывается, и снаружи остается
// виден предыдущий снимок. Подписчики получают снимки строго в порядке коммитов.
package state

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
)

var (
	ErrNotEditable      = errors.New("editor is not editable")
	ErrTransactionPanic = errors.New("transaction panicked")
	ErrNodeNotFound     = errors.New("node not found")
	ErrNotElement       = errors.New("node can not have children")
	ErrAlreadyAttached  = errors.New("node already has a parent")
	ErrRootRemoval      = errors.New("root node can not be removed")
	ErrNoSelection      = errors.New("no selection")
)

const (
	TagHydrate   = "hydrate"
	TagSelection = "selection"
)

// Listener получает каждый опубликованный снимок.
type Listener func(snap *Snapshot)

// Transform вызывается перед коммитом каждой пользовательской транзакции, изменившей содержимое.
// При гидратации трансформации не выполняются.
type Transform func(tx *Tx) error

type UpdateOptions struct {
	// Hydrate разрешает изменение в режиме только для чтения. Используется при загрузке документа.
	Hydrate bool
	Tag     string
}

type Store struct {
	current  atomic.Pointer[Snapshot]
	editable atomic.Bool
	nextKey  atomic.Uint64

	txMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   map[uint64]Listener
	listenerSeq uint64
	transforms  []Transform

	notifyMu sync.Mutex
	queue    []*Snapshot
	draining bool
}

// New создает хранилище с пустым документом: root с одним пустым параграфом.
func New(editable bool) *Store {
	s := &Store{listeners: make(map[uint64]Listener)}
	s.editable.Store(editable)

	rootKey := s.newKey()
	paragraphKey := s.newKey()
	root := &edtypes.Node{Key: rootKey, Type: edtypes.RootNode, Version: 1, Children: []edtypes.NodeKey{paragraphKey}}
	paragraph := &edtypes.Node{Key: paragraphKey, Type: edtypes.ParagraphNode, Version: 1, Parent: rootKey, Children: []edtypes.NodeKey{}}

	s.current.Store(&Snapshot{
		nodes: map[edtypes.NodeKey]*edtypes.Node{rootKey: root, paragraphKey: paragraph},
		root:  rootKey,
		tag:   TagHydrate,
	})
	return s
}

func (s *Store) newKey() edtypes.NodeKey {
	return edtypes.NodeKey(s.nextKey.Add(1))
}

// Snapshot возвращает последний опубликованный снимок.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

func (s *Store) Editable() bool {
	return s.editable.Load()
}

func (s *Store) SetEditable(editable bool) {
	s.editable.Store(editable)
}

// Read вызывает fn с текущим снимком без возможности изменения.
func (s *Store) Read(fn func(snap *Snapshot)) {
	fn(s.current.Load())
}

// OnChange подписывает слушателя на новые снимки. Возвращает функцию отписки.
func (s *Store) OnChange(fn Listener) func() {
	s.listenersMu.Lock()
	s.listenerSeq++
	id := s.listenerSeq
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

// RegisterTransform добавляет трансформацию, выполняемую перед коммитом.
func (s *Store) RegisterTransform(fn Transform) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.transforms = append(s.transforms, fn)
}

// Update выполняет fn в транзакции.
func (s *Store) Update(fn func(tx *Tx) error) error {
	return s.UpdateWith(UpdateOptions{}, fn)
}

// UpdateWith выполняет fn в транзакции с опциями. Ошибка fn или паника внутри fn отменяют
// транзакцию, опубликованный снимок при этом не меняется.
func (s *Store) UpdateWith(opts UpdateOptions, fn func(tx *Tx) error) error {
	if !opts.Hydrate && !s.editable.Load() {
		return ErrNotEditable
	}

	committed, err := s.apply(opts, fn)
	if err != nil {
		return err
	}
	if committed {
		s.drain()
	}
	return nil
}

// apply выполняет транзакцию под txMu и публикует снимок. Нормализация перед коммитом
// тоже выполняется под recover, паника в ней отменяет транзакцию.
func (s *Store) apply(opts UpdateOptions, fn func(tx *Tx) error) (bool, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := newTx(s, s.current.Load())
	if err := runTx(tx, fn); err != nil {
		return false, err
	}
	if !opts.Hydrate && tx.contentChanged() {
		if err := s.runTransforms(tx); err != nil {
			return false, err
		}
	}
	if !tx.contentChanged() && !tx.selectionChanged {
		return false, nil
	}

	tag := opts.Tag
	if opts.Hydrate && tag == "" {
		tag = TagHydrate
	}
	var snap *Snapshot
	err := runTx(tx, func(tx *Tx) error {
		snap = tx.commit(tag)
		return nil
	})
	if err != nil {
		return false, err
	}
	s.current.Store(snap)
	s.enqueue(snap)
	return true, nil
}

// Select заменяет выделение. Выделение не является изменением содержимого и разрешено
// в режиме только для чтения.
func (s *Store) Select(sel *Selection) error {
	return s.UpdateWith(UpdateOptions{Hydrate: true, Tag: TagSelection}, func(tx *Tx) error {
		tx.SetSelection(sel)
		return nil
	})
}

func runTx(tx *Tx, fn func(tx *Tx) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Editor transaction panic", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrTransactionPanic, r)
		}
	}()
	return fn(tx)
}

func (s *Store) runTransforms(tx *Tx) error {
	s.listenersMu.RLock()
	transforms := s.transforms
	s.listenersMu.RUnlock()

	for _, t := range transforms {
		if err := runTx(tx, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) enqueue(snap *Snapshot) {
	s.notifyMu.Lock()
	s.queue = append(s.queue, snap)
	s.notifyMu.Unlock()
}

// drain доставляет очередь снимков подписчикам. Если доставка уже идет (например, слушатель
// сам вызвал Update), новые снимки доставит текущий цикл в порядке коммитов.
func (s *Store) drain() {
	s.notifyMu.Lock()
	if s.draining {
		s.notifyMu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		snap := s.queue[0]
		s.queue = s.queue[1:]
		s.notifyMu.Unlock()

		for _, l := range s.snapshotListeners() {
			notify(l, snap)
		}

		s.notifyMu.Lock()
	}
	s.draining = false
	s.notifyMu.Unlock()
}

// snapshotListeners возвращает слушателей в порядке подписки.
func (s *Store) snapshotListeners() []Listener {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()

	ids := slices.Sorted(maps.Keys(s.listeners))
	res := make([]Listener, 0, len(ids))
	for _, id := range ids {
		res = append(res, s.listeners[id])
	}
	return res
}

func notify(l Listener, snap *Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Editor change listener panic", "panic", r, "generation", snap.Generation())
		}
	}()
	l(snap)
}
