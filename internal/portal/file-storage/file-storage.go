// Пакет предоставляет интерфейс и реализации файлового хранилища для изображений документов: Minio,
// локальный каталог и удаленный портал. Имена файлов - uuid, метаданные привязывают файл к записи,
// которой принадлежит документ.
package filestorage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	UploadTries = 3
)

var (
	ErrNotFound     = errors.New("file not found")
	ErrInvalidName  = errors.New("invalid file name")
	ErrUploadFailed = errors.New("upload failed")
)

// Metadata связывает файл с записью и полем, в документе которого он используется.
type Metadata struct {
	SourceTable    string
	SourceRecordId string
	SourceField    string
}

func (m Metadata) GetMap() map[string]string {
	meta := make(map[string]string)
	if m.SourceTable != "" {
		meta["sourceTable"] = m.SourceTable
	}
	if m.SourceRecordId != "" {
		meta["sourceRecordId"] = m.SourceRecordId
	}
	if m.SourceField != "" {
		meta["sourceField"] = m.SourceField
	}
	return meta
}

type FileInfo struct {
	Name        string
	Size        int64
	ContentType string
	CreatedAt   time.Time
}

type FileStorage interface {
	Save(ctx context.Context, data []byte, name uuid.UUID, contentType string, metadata *Metadata) error
	Load(ctx context.Context, name uuid.UUID) ([]byte, error)
	LoadReader(ctx context.Context, name uuid.UUID) (io.ReadCloser, error)
	Delete(ctx context.Context, name uuid.UUID) error
	Exist(ctx context.Context, name uuid.UUID) (bool, error)
	GetFileInfo(ctx context.Context, name uuid.UUID) (*FileInfo, error)
	// URL возвращает публичный адрес файла
	URL(name uuid.UUID) string
}

// Upload сохраняет файл под новым uuid и возвращает его публичный адрес.
func Upload(ctx context.Context, fs FileStorage, data []byte, contentType string, metadata *Metadata) (string, error) {
	name, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	if err := fs.Save(ctx, data, name, contentType, metadata); err != nil {
		return "", err
	}
	return fs.URL(name), nil
}

// ParseName разбирает имя файла из адреса или пути.
func ParseName(name string) (uuid.UUID, error) {
	id, err := uuid.FromString(filepath.Base(name))
	if err != nil {
		return uuid.Nil, ErrInvalidName
	}
	return id, nil
}

// publicURL собирает адрес файла относительно базового адреса сервиса.
func publicURL(base *url.URL, name uuid.UUID) string {
	if base == nil {
		return "/api/file/" + name.String() + "/"
	}
	return base.JoinPath("api", "file", name.String()).String() + "/"
}

type LocalStorage struct {
	rootDir string
	baseURL *url.URL
}

func NewLocalStorage(rootPath string, baseURL *url.URL) (FileStorage, error) {
	if err := os.MkdirAll(rootPath, 0755); err != nil {
		return nil, err
	}
	return &LocalStorage{rootDir: rootPath, baseURL: baseURL}, nil
}

func (s *LocalStorage) path(name uuid.UUID) string {
	return filepath.Join(s.rootDir, name.String())
}

func (s *LocalStorage) Save(ctx context.Context, data []byte, name uuid.UUID, contentType string, metadata *Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(s.path(name), data, 0644)
}

func (s *LocalStorage) Load(ctx context.Context, name uuid.UUID) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *LocalStorage) LoadReader(ctx context.Context, name uuid.UUID) (io.ReadCloser, error) {
	f, err := os.Open(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *LocalStorage) Delete(ctx context.Context, name uuid.UUID) error {
	err := os.Remove(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *LocalStorage) Exist(ctx context.Context, name uuid.UUID) (bool, error) {
	_, err := os.Stat(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *LocalStorage) GetFileInfo(ctx context.Context, name uuid.UUID) (*FileInfo, error) {
	stat, err := os.Stat(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	head := make([]byte, 512)
	f, err := os.Open(s.path(name))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	n, _ := io.ReadFull(f, head)

	return &FileInfo{
		Name:        name.String(),
		Size:        stat.Size(),
		ContentType: detectContentType(head[:n]),
		CreatedAt:   stat.ModTime(),
	}, nil
}

func (s *LocalStorage) URL(name uuid.UUID) string {
	return publicURL(s.baseURL, name)
}

type MinioStorage struct {
	client     *minio.Client
	bucketName string
	baseURL    *url.URL
	retryWait  time.Duration
}

func (s *MinioStorage) Save(ctx context.Context, data []byte, name uuid.UUID, contentType string, metadata *Metadata) error {
	putOptions := minio.PutObjectOptions{ContentType: contentType}
	if metadata != nil {
		putOptions.UserTags = metadata.GetMap()
	}

	var err error
	for i := range UploadTries {
		_, err = s.client.PutObject(ctx,
			s.bucketName,
			name.String(),
			bytes.NewReader(data),
			int64(len(data)),
			putOptions,
		)
		if err == nil {
			return nil
		}
		resp := minio.ToErrorResponse(err)
		slog.Error("Upload file to minio", "name", name, "try", i+1, "code", resp.StatusCode, "msg", resp.Message, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryWait):
		}
	}
	return errors.Join(ErrUploadFailed, err)
}

func (s *MinioStorage) Load(ctx context.Context, name uuid.UUID) ([]byte, error) {
	obj, err := s.LoadReader(ctx, name)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if isNoSuchKey(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *MinioStorage) LoadReader(ctx context.Context, name uuid.UUID) (io.ReadCloser, error) {
	return s.client.GetObject(ctx,
		s.bucketName,
		name.String(),
		minio.GetObjectOptions{},
	)
}

func (s *MinioStorage) Delete(ctx context.Context, name uuid.UUID) error {
	return s.client.RemoveObject(
		ctx,
		s.bucketName,
		name.String(),
		minio.RemoveObjectOptions{},
	)
}

func (s *MinioStorage) Exist(ctx context.Context, name uuid.UUID) (bool, error) {
	_, err := s.client.StatObject(
		ctx,
		s.bucketName,
		name.String(),
		minio.StatObjectOptions{},
	)
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *MinioStorage) GetFileInfo(ctx context.Context, name uuid.UUID) (*FileInfo, error) {
	stat, err := s.client.StatObject(ctx, s.bucketName, name.String(), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &FileInfo{
		Name:        name.String(),
		Size:        stat.Size,
		ContentType: stat.ContentType,
		CreatedAt:   stat.LastModified,
	}, nil
}

func (s *MinioStorage) URL(name uuid.UUID) string {
	return publicURL(s.baseURL, name)
}

func isNoSuchKey(err error) bool {
	return err != nil && minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func NewMinioStorage(endpoint string, accessKeyID string, secretAccessKey string, useSSL bool, bucketName string, baseURL *url.URL) (FileStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return nil, err
	}

	if !exists {
		// Create bucket if not exist
		if err := client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioStorage{client: client, bucketName: bucketName, baseURL: baseURL, retryWait: 5 * time.Second}, nil
}
