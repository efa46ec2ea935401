package portal

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"

	"github.com/aisa-it/portal/portal.go/internal/portal/apierrors"
	filestorage "github.com/aisa-it/portal/portal.go/internal/portal/file-storage"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type FileResponse struct {
	Id  uuid.UUID `json:"id"`
	URL string    `json:"url"`
}

// AddFileServices регистрирует API файлов. Чтение открыто, загрузка и удаление требуют
// API_TOKEN, если он задан.
func (s *Services) AddFileServices(g *echo.Group) {
	var protect []echo.MiddlewareFunc
	if s.cfg.APIToken != "" {
		protect = append(protect, middleware.KeyAuth(func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.APIToken)) == 1, nil
		}))
	}

	g.POST("", s.uploadFile, protect...)
	g.GET(":fileName/", s.getFile)
	g.HEAD(":fileName/", s.getFile)
	g.DELETE(":fileName/", s.deleteFile, protect...)
}

// uploadFile сохраняет файл из поля asset. Имя файла можно задать полем id,
// поля sourceTable, sourceRecordId и sourceField сохраняются в метаданных.
//
// @id uploadFile
// @Summary files: загрузка файла
// @Tags Files
// @Security ApiKeyAuth
// @Accept multipart/form-data
// @Produce json
// @Param asset formData file true "Файл"
// @Param id formData string false "Имя файла (UUID)"
// @Param sourceTable formData string false "Таблица записи-владельца"
// @Param sourceRecordId formData string false "ID записи-владельца"
// @Param sourceField formData string false "Поле записи-владельца"
// @Success 201 {object} FileResponse "Сохраненный файл"
// @Failure 400 {object} apierrors.DefinedError "Некорректные параметры запроса"
// @Failure 401 {object} apierrors.DefinedError "Неверный токен"
// @Failure 413 {object} apierrors.DefinedError "Файл слишком большой"
// @Failure 500 {object} apierrors.DefinedError "Ошибка сервера"
// @Router /api/file/ [post]
func (s *Services) uploadFile(c echo.Context) error {
	fh, err := c.FormFile("asset")
	if err != nil {
		return EErrorDefined(c, apierrors.ErrInvalidPayload.WithFormattedMessage(err.Error()))
	}
	file, err := s.readFormFile(fh)
	if err != nil {
		return EError(c, err)
	}

	name := uuid.Must(uuid.NewV4())
	if raw := c.FormValue("id"); raw != "" {
		if name, err = uuid.FromString(raw); err != nil {
			return EErrorDefined(c, apierrors.ErrInvalidPayload.WithFormattedMessage("id"))
		}
	}
	meta := &filestorage.Metadata{
		SourceTable:    c.FormValue("sourceTable"),
		SourceRecordId: c.FormValue("sourceRecordId"),
		SourceField:    c.FormValue("sourceField"),
	}
	if err := s.storage.Save(c.Request().Context(), file.Data, name, file.ContentType(), meta); err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusCreated, FileResponse{Id: name, URL: s.storage.URL(name)})
}

// getFile godoc
// @id getFile
// @Summary files: получение файла
// @Description HEAD возвращает только заголовки с размером и типом файла
// @Tags Files
// @Produce octet-stream
// @Param fileName path string true "Имя файла"
// @Success 200 {file} file "Содержимое файла"
// @Failure 404 "Файл не найден"
// @Failure 500 {object} apierrors.DefinedError "Ошибка сервера"
// @Router /api/file/{fileName}/ [get]
// @Router /api/file/{fileName}/ [head]
func (s *Services) getFile(c echo.Context) error {
	name, err := filestorage.ParseName(c.Param("fileName"))
	if err != nil {
		return c.NoContent(http.StatusNotFound)
	}
	ctx := c.Request().Context()

	info, err := s.storage.GetFileInfo(ctx, name)
	if errors.Is(err, filestorage.ErrNotFound) {
		return c.NoContent(http.StatusNotFound)
	}
	if err != nil {
		return EError(c, err)
	}

	h := c.Response().Header()
	h.Set(echo.HeaderContentLength, strconv.FormatInt(info.Size, 10))
	h.Set(echo.HeaderLastModified, info.CreatedAt.UTC().Format(http.TimeFormat))
	h.Set("Cache-Control", "public, max-age=31536000, immutable")
	if c.Request().Method == http.MethodHead {
		h.Set(echo.HeaderContentType, info.ContentType)
		return c.NoContent(http.StatusOK)
	}

	r, err := s.storage.LoadReader(ctx, name)
	if errors.Is(err, filestorage.ErrNotFound) {
		return c.NoContent(http.StatusNotFound)
	}
	if err != nil {
		return EError(c, err)
	}
	defer r.Close()
	return c.Stream(http.StatusOK, info.ContentType, r)
}

// deleteFile godoc
// @id deleteFile
// @Summary files: удаление файла
// @Tags Files
// @Security ApiKeyAuth
// @Param fileName path string true "Имя файла"
// @Success 200 "Файл удален"
// @Failure 401 {object} apierrors.DefinedError "Неверный токен"
// @Failure 404 "Файл не найден"
// @Failure 500 {object} apierrors.DefinedError "Ошибка сервера"
// @Router /api/file/{fileName}/ [delete]
func (s *Services) deleteFile(c echo.Context) error {
	name, err := filestorage.ParseName(c.Param("fileName"))
	if err != nil {
		return c.NoContent(http.StatusNotFound)
	}
	if err := s.storage.Delete(c.Request().Context(), name); err != nil {
		return EError(c, err)
	}
	return c.NoContent(http.StatusOK)
}
