// Пакет содержит ошибки редактора документов портала, которые показываются пользователю.
// Каждая ошибка имеет код, HTTP статус и сообщения на английском и русском языках,
// поэтому один и тот же набор используется и командами редактора, и HTTP API.
//
// Основные возможности:
//   - Ошибки сессий редактирования, команд, загрузки файлов и хранилища содержимого.
//   - Коды ошибок, сгруппированные по подсистемам.
//   - Форматирование сообщений с аргументами через WithFormattedMessage.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

type DefinedError struct {
	Code       int    `json:"code"`
	StatusCode int    `json:"-"`
	Err        string `json:"error"`
	RuErr      string `json:"ru_error,omitempty"`
}

func (e DefinedError) Error() string {
	return e.Err
}

// Is сравнивает ошибки по коду, чтобы errors.Is работал и для отформатированных копий.
func (e DefinedError) Is(target error) bool {
	t, ok := target.(DefinedError)
	return ok && t.Code == e.Code
}

var (
	// 1*** - session errors
	ErrSessionNotFound       = DefinedError{Code: 1001, StatusCode: http.StatusNotFound, Err: "editor session not found", RuErr: "Сессия редактирования не найдена"}
	ErrSessionParamsRequired = DefinedError{Code: 1002, StatusCode: http.StatusBadRequest, Err: "source_table, record_id and field are required", RuErr: "Необходимо указать таблицу, запись и поле документа"}
	ErrSessionClosed         = DefinedError{Code: 1003, StatusCode: http.StatusGone, Err: "editor session is closed", RuErr: "Сессия редактирования закрыта"}

	// 2*** - editor command errors
	ErrNotEditable          = DefinedError{Code: 2001, StatusCode: http.StatusForbidden, Err: "document is read-only", RuErr: "Документ доступен только для чтения"}
	ErrUnknownCommand       = DefinedError{Code: 2002, StatusCode: http.StatusBadRequest, Err: "unknown command %s", RuErr: "Неизвестная команда редактора"}
	ErrInvalidPayload       = DefinedError{Code: 2003, StatusCode: http.StatusBadRequest, Err: "invalid command payload: %s", RuErr: "Некорректные параметры команды"}
	ErrInvalidURL           = DefinedError{Code: 2004, StatusCode: http.StatusBadRequest, Err: "invalid URL %s", RuErr: "Указан некорректный адрес ссылки"}
	ErrUnsupportedYouTube   = DefinedError{Code: 2005, StatusCode: http.StatusBadRequest, Err: "unsupported YouTube URL %s", RuErr: "Не удалось распознать ссылку на видео YouTube"}
	ErrTableBounds          = DefinedError{Code: 2006, StatusCode: http.StatusBadRequest, Err: "table size must be from 1x1 to %dx%d", RuErr: "Размер таблицы должен быть от 1x1 до %dx%d"}
	ErrFontSizeBounds       = DefinedError{Code: 2007, StatusCode: http.StatusBadRequest, Err: "font size must be from %dpx to %dpx", RuErr: "Размер шрифта должен быть от %dpx до %dpx"}
	ErrInvalidSelection     = DefinedError{Code: 2008, StatusCode: http.StatusBadRequest, Err: "invalid selection", RuErr: "Некорректное выделение"}
	ErrNodeNotFound         = DefinedError{Code: 2009, StatusCode: http.StatusNotFound, Err: "node not found", RuErr: "Элемент документа не найден"}
	ErrImageSourceRequired  = DefinedError{Code: 2010, StatusCode: http.StatusBadRequest, Err: "image source is required", RuErr: "Не указан адрес изображения"}
	ErrUnsupportedFormat    = DefinedError{Code: 2011, StatusCode: http.StatusBadRequest, Err: "unsupported text format %s", RuErr: "Неподдерживаемый формат текста"}
	ErrDocumentCorrupted    = DefinedError{Code: 2012, StatusCode: http.StatusInternalServerError, Err: "document transaction failed", RuErr: "Не удалось применить изменение документа"}

	// 3*** - upload errors
	ErrUploadFailed         = DefinedError{Code: 3001, StatusCode: http.StatusBadGateway, Err: "file upload failed", RuErr: "Не удалось загрузить файл"}
	ErrUnsupportedImageType = DefinedError{Code: 3002, StatusCode: http.StatusUnsupportedMediaType, Err: "unsupported image type %s", RuErr: "Неподдерживаемый формат изображения"}
	ErrAttachmentLimit      = DefinedError{Code: 3003, StatusCode: http.StatusPaymentRequired, Err: "attachments limit exceeded", RuErr: "Превышен лимит вложений"}
	ErrFileTooLarge         = DefinedError{Code: 3004, StatusCode: http.StatusRequestEntityTooLarge, Err: "uploaded file exceeds the %dMB size limit", RuErr: "Загруженный файл превышает допустимый размер %d МБ"}

	// 4*** - content store errors
	ErrContentLoadFailed = DefinedError{Code: 4001, StatusCode: http.StatusInternalServerError, Err: "failed to load document content", RuErr: "Не удалось загрузить содержимое документа"}
	ErrContentSaveFailed = DefinedError{Code: 4002, StatusCode: http.StatusInternalServerError, Err: "failed to save document content", RuErr: "Не удалось сохранить содержимое документа"}
	ErrInvalidIdentifier = DefinedError{Code: 4003, StatusCode: http.StatusBadRequest, Err: "invalid identifier %s", RuErr: "Некорректное имя таблицы или поля"}

	// 5*** - validation and other errors
	ErrGeneric        = DefinedError{Code: 5000, StatusCode: http.StatusBadRequest, Err: "Something went wrong. Please try again later or contact the support team.", RuErr: "Что-то пошло не так. Повторите попытку позже или обратитесь в службу поддержки"}
	ErrEntityTooLarge = DefinedError{Code: 5001, StatusCode: http.StatusRequestEntityTooLarge, Err: "size exceeds the allowed limit", RuErr: "Размер запроса превышает допустимый"}
)

func (e DefinedError) WithFormattedMessage(args ...any) DefinedError {
	if len(args) > 0 {
		e.Err = fmt.Sprintf(e.Err, args...)
		// Русское сообщение может не содержать аргументов
		if strings.Contains(e.RuErr, "%") {
			e.RuErr = fmt.Sprintf(e.RuErr, args...)
		}
	} else {
		e.Err = strings.ReplaceAll(e.Err, "%s", "")
		e.RuErr = strings.ReplaceAll(e.RuErr, "%s", "")
	}
	return e
}

// AsDefined извлекает DefinedError из цепочки ошибок.
func AsDefined(err error) (DefinedError, bool) {
	var defined DefinedError
	if errors.As(err, &defined) {
		return defined, true
	}
	return DefinedError{}, false
}

// All возвращает все ошибки в порядке кодов.
func All() []DefinedError {
	all := []DefinedError{
		ErrSessionNotFound, ErrSessionParamsRequired, ErrSessionClosed,
		ErrNotEditable, ErrUnknownCommand, ErrInvalidPayload, ErrInvalidURL, ErrUnsupportedYouTube,
		ErrTableBounds, ErrFontSizeBounds, ErrInvalidSelection, ErrNodeNotFound, ErrImageSourceRequired,
		ErrUnsupportedFormat, ErrDocumentCorrupted,
		ErrUploadFailed, ErrUnsupportedImageType, ErrAttachmentLimit, ErrFileTooLarge,
		ErrContentLoadFailed, ErrContentSaveFailed, ErrInvalidIdentifier,
		ErrGeneric, ErrEntityTooLarge,
	}
	slices.SortFunc(all, func(a, b DefinedError) int { return a.Code - b.Code })
	return all
}
