package limiter

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
)

// ExternalLimiter спрашивает разрешение у сервиса лимитов. 200 - можно, любой другой ответ - нельзя.
type ExternalLimiter struct {
	host   *url.URL
	client *http.Client
}

func NewExternalLimiter(host *url.URL) *ExternalLimiter {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = slog.Default()
	return &ExternalLimiter{host: host, client: rc.StandardClient()}
}

func (l *ExternalLimiter) CanAddAttachment(ctx context.Context, sourceTable, recordId string) bool {
	return l.doRequest(ctx, "/can/add/"+url.PathEscape(sourceTable)+"/"+url.PathEscape(recordId)+"/attachment")
}

func (l *ExternalLimiter) doRequest(ctx context.Context, path string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.host.ResolveReference(&url.URL{Path: path}).String(), nil)
	if err != nil {
		slog.Error("Build limiter request", "err", err)
		return false
	}
	resp, err := l.client.Do(req)
	if err != nil {
		slog.Error("Limiter request", "path", path, "err", err)
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
