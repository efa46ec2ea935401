// Ошибка с цепочкой мест, через которые она прошла, и контекстом для журнала.
package stack_error

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/labstack/echo/v4"
)

type TrackerError struct {
	Context  []slog.Attr
	ErrStack []slog.Attr
	cause    error
}

// TrackErrorStack добавляет место вызова к цепочке ошибки, при необходимости оборачивая ее.
func TrackErrorStack(err error) *TrackerError {
	var te *TrackerError
	if !errors.As(err, &te) {
		te = &TrackerError{cause: err}
	}
	te.ErrStack = append(te.ErrStack, callerAttr(err))
	return te
}

// AddContext добавляет атрибут, если атрибута с таким ключом еще нет.
func (te *TrackerError) AddContext(k string, v any) *TrackerError {
	if !slices.ContainsFunc(te.Context, func(a slog.Attr) bool { return a.Key == k }) {
		te.Context = append(te.Context, slog.Any(k, v))
	}
	return te
}

func (te *TrackerError) Error() string {
	if te.cause != nil {
		return te.cause.Error()
	}
	return "TrackerError"
}

func (te *TrackerError) Unwrap() error {
	return te.cause
}

// Attrs возвращает атрибуты для журнала: контекст и цепочку вызовов.
func (te *TrackerError) Attrs() []any {
	res := make([]any, 0, len(te.Context)+1)
	for _, a := range te.Context {
		res = append(res, a)
	}
	stack := make([]any, 0, len(te.ErrStack))
	for i, a := range te.ErrStack {
		stack = append(stack, slog.String(fmt.Sprint(i), a.Value.String()))
	}
	return append(res, slog.Group("stack", stack...))
}

// GetError пишет ошибку в журнал вместе с запросом, в котором она возникла.
func GetError(c echo.Context, err error) {
	var te *TrackerError
	var attrs []any
	if errors.As(err, &te) {
		attrs = te.Attrs()
	}
	attrs = append(attrs, slog.String("err", err.Error()))

	if c != nil {
		attrs = append(attrs,
			slog.String("method", c.Request().Method),
			slog.String("url", c.Request().URL.String()))
	}

	slog.Error("stack error", attrs...)
}

func callerAttr(err error) slog.Attr {
	_, path, no, ok := runtime.Caller(2)
	if !ok {
		return slog.String("trace", "unknown")
	}
	return slog.String("trace", fmt.Sprintf("%s:%d %s", filepath.Base(path), no, err.Error()))
}
