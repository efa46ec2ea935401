// Ограничение числа вложений, добавляемых в документы.
//
// Реализация выбирается при старте: плагин, внешний сервис лимитов или
// бесплатная редакция без ограничений.
package limiter

import (
	"context"
	"log/slog"
	"net/url"
	"plugin"
)

type Limiter interface {
	CanAddAttachment(ctx context.Context, sourceTable, recordId string) bool
}

// New загружает плагин лимитов. Без плагина используется внешний сервис,
// если задан его адрес, иначе лимиты не применяются.
func New(pluginPath string, external *url.URL) Limiter {
	if pluginPath != "" {
		if l, ok := openPlugin(pluginPath); ok {
			return l
		}
	}
	if external != nil {
		slog.Info("Using external limiter", "host", external.String())
		return NewExternalLimiter(external)
	}
	slog.Info("Using Community limiter")
	return CommunityLimiter{}
}

func openPlugin(path string) (Limiter, bool) {
	p, err := plugin.Open(path)
	if err != nil {
		slog.Error("Fail open limiter plugin, backoff to Community limiter", "err", err)
		return nil, false
	}

	symbol, err := p.Lookup("LimiterPlugin")
	if err != nil {
		slog.Error("Fail lookup LimiterPlugin symbol, backoff to Community limiter", "err", err)
		return nil, false
	}

	l, ok := symbol.(Limiter)
	if !ok {
		slog.Error("Plugin doesn't implement Limiter interface, backoff to Community limiter")
		return nil, false
	}
	return l, true
}

type CommunityLimiter struct{}

func (CommunityLimiter) CanAddAttachment(context.Context, string, string) bool {
	return true
}
