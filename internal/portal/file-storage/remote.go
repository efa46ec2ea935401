package filestorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

// RemoteStorage хранит файлы на другом экземпляре портала через его файловое API:
// POST {base}/api/file/ для загрузки, GET/HEAD/DELETE {base}/api/file/{name}/ для остального.
type RemoteStorage struct {
	client  *retryablehttp.Client
	baseURL *url.URL
	token   string
}

func NewRemoteStorage(baseURL *url.URL, token string) FileStorage {
	cl := retryablehttp.NewClient()
	cl.RetryMax = 5
	cl.RetryWaitMin = time.Second
	cl.RetryWaitMax = time.Second * 10
	cl.Logger = slog.Default()
	return &RemoteStorage{client: cl, baseURL: baseURL, token: token}
}

func (s *RemoteStorage) newRequest(ctx context.Context, method, rawURL string, body any) (*retryablehttp.Request, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	return req, nil
}

func (s *RemoteStorage) Save(ctx context.Context, data []byte, name uuid.UUID, contentType string, metadata *Metadata) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("id", name.String()); err != nil {
		return err
	}
	if metadata != nil {
		for k, v := range metadata.GetMap() {
			if err := w.WriteField(k, v); err != nil {
				return err
			}
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="asset"; filename=%q`, name.String()))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := s.newRequest(ctx, http.MethodPost, s.baseURL.JoinPath("api", "file").String()+"/", buf.Bytes())
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: status %d: %s", ErrUploadFailed, resp.StatusCode, body)
	}
	return nil
}

func (s *RemoteStorage) Load(ctx context.Context, name uuid.UUID) ([]byte, error) {
	r, err := s.LoadReader(ctx, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *RemoteStorage) LoadReader(ctx context.Context, name uuid.UUID) (io.ReadCloser, error) {
	resp, err := s.do(ctx, http.MethodGet, name)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (s *RemoteStorage) Delete(ctx context.Context, name uuid.UUID) error {
	resp, err := s.do(ctx, http.MethodDelete, name)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func (s *RemoteStorage) Exist(ctx context.Context, name uuid.UUID) (bool, error) {
	resp, err := s.do(ctx, http.MethodHead, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return true, nil
}

func (s *RemoteStorage) GetFileInfo(ctx context.Context, name uuid.UUID) (*FileInfo, error) {
	resp, err := s.do(ctx, http.MethodHead, name)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	info := &FileInfo{Name: name.String(), ContentType: resp.Header.Get("Content-Type")}
	if size, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); err == nil {
		info.Size = size
	}
	if t, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		info.CreatedAt = t
	}
	return info, nil
}

func (s *RemoteStorage) URL(name uuid.UUID) string {
	return publicURL(s.baseURL, name)
}

// do выполняет запрос к файлу. Тело ответа закрывает вызывающий.
func (s *RemoteStorage) do(ctx context.Context, method string, name uuid.UUID) (*http.Response, error) {
	req, err := s.newRequest(ctx, method, s.URL(name), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrNotFound
	case resp.StatusCode >= 300:
		resp.Body.Close()
		return nil, fmt.Errorf("remote storage %s %s: status %d", method, name, resp.StatusCode)
	}
	return resp, nil
}

func detectContentType(head []byte) string {
	return http.DetectContentType(head)
}
