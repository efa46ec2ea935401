// Пакет commands реализует шину команд редактора: закрытый набор встроенных команд с
// обработчиками, упорядоченными по приоритету, и открытый реестр команд плагинов (таблицы).
//
// Обработчики одной команды вызываются по убыванию приоритета, при равном приоритете в порядке
// регистрации, до первого вернувшего true. Необработанная команда молча отбрасывается.
package commands

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/aisa-it/portal/portal.go/internal/portal/apierrors"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/decorator"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/state"
	"github.com/prometheus/client_golang/prometheus"
)

type Priority int

const (
	PriorityEditor Priority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// Context передается обработчику команды.
type Context struct {
	context.Context
	Store      *state.Store
	Dispatcher *Dispatcher
}

// Handler обрабатывает команду. Возвращает true, если команда обработана и дальнейшие обработчики не вызываются.
type Handler func(c Context, payload any) (bool, error)

type registration struct {
	priority Priority
	seq      uint64
	handler  Handler
}

var commandsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "portal_editor_commands_total",
	Help: "Total count of dispatched editor commands",
}, []string{"command", "handled"})

// RegisterMetrics регистрирует счетчик команд в reg. Повторная регистрация не считается ошибкой.
func RegisterMetrics(reg prometheus.Registerer) error {
	err := reg.Register(commandsCounter)
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return nil
	}
	return err
}

type Dispatcher struct {
	store *state.Store

	mu       sync.RWMutex
	handlers map[string][]registration
	decoders map[string]PayloadDecoder
	seq      uint64

	decorators *decorator.Registry
}

// New создает шину команд для документа со встроенными обработчиками.
func New(store *state.Store) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		handlers: make(map[string][]registration),
		decoders: make(map[string]PayloadDecoder),

		decorators: decorator.Default(),
	}
	registerBuiltins(d)
	return d
}

func (d *Dispatcher) Store() *state.Store {
	return d.store
}

func (d *Dispatcher) Decorators() *decorator.Registry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.decorators
}

// Register добавляет обработчик встроенной команды. Возвращает функцию отмены регистрации.
func (d *Dispatcher) Register(cmd Command, priority Priority, h Handler) func() {
	return d.register(cmd.String(), priority, h)
}

// RegisterPlugin добавляет обработчик команды плагина. Имя плагина может совпадать с именем
// встроенной команды, тогда обработчики вызываются вместе по общему приоритету.
func (d *Dispatcher) RegisterPlugin(name string, priority Priority, h Handler) func() {
	return d.register(name, priority, h)
}

func (d *Dispatcher) register(name string, priority Priority, h Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	seq := d.seq
	d.handlers[name] = append(d.handlers[name], registration{priority: priority, seq: seq, handler: h})
	slices.SortStableFunc(d.handlers[name], func(a, b registration) int {
		if c := cmp.Compare(b.priority, a.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.handlers[name] = slices.DeleteFunc(d.handlers[name], func(r registration) bool {
			return r.seq == seq
		})
	}
}

// Has сообщает, есть ли обработчики у команды с именем name.
func (d *Dispatcher) Has(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[name]) > 0
}

// Dispatch выполняет встроенную команду.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command, payload any) (bool, error) {
	return d.DispatchNamed(ctx, cmd.String(), payload)
}

// DispatchNamed выполняет команду по имени. Ошибки обработчиков возвращаются как есть,
// кроме ошибок хранилища, которые переводятся в apierrors.
func (d *Dispatcher) DispatchNamed(ctx context.Context, name string, payload any) (bool, error) {
	d.mu.RLock()
	regs := slices.Clone(d.handlers[name])
	d.mu.RUnlock()

	c := Context{Context: ctx, Store: d.store, Dispatcher: d}
	for _, r := range regs {
		handled, err := r.handler(c, payload)
		if err != nil {
			commandsCounter.WithLabelValues(name, "error").Inc()
			return false, translateError(err)
		}
		if handled {
			commandsCounter.WithLabelValues(name, strconv.FormatBool(true)).Inc()
			return true, nil
		}
	}
	if len(regs) == 0 {
		slog.Debug("Command has no handlers", "command", name)
	}
	commandsCounter.WithLabelValues(name, strconv.FormatBool(false)).Inc()
	return false, nil
}

func translateError(err error) error {
	if _, ok := apierrors.AsDefined(err); ok {
		return err
	}
	switch {
	case errors.Is(err, state.ErrNotEditable):
		return apierrors.ErrNotEditable
	case errors.Is(err, state.ErrNodeNotFound):
		return apierrors.ErrNodeNotFound
	case errors.Is(err, state.ErrTransactionPanic):
		slog.Error("Editor transaction panic", "err", err)
		return apierrors.ErrDocumentCorrupted
	}
	return err
}
