// Пакет хранит содержимое документов редактора вне записей, которым они принадлежат.
//
// Основные возможности:
//   - Хранение содержимого в таблице record_contents по ключу (таблица, запись, поле).
//   - Чтение старого содержимого из поля самой записи, если в record_contents его еще нет.
//   - Кэширование содержимого в redis.
//   - Перенос старого содержимого в record_contents фоновой задачей.
package contentstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"time"

	"github.com/aisa-it/portal/portal.go/internal/portal/apierrors"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var identifierRegexp = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Key адресует содержимое документа: поле field записи recordId таблицы table.
type Key struct {
	Table    string `json:"source_table"`
	RecordId string `json:"record_id"`
	Field    string `json:"field"`
}

// IsIdentifier проверяет, что имя можно подставить в SQL как имя таблицы или колонки.
func IsIdentifier(name string) bool {
	return identifierRegexp.MatchString(name)
}

func (k Key) String() string {
	return k.Table + "/" + k.RecordId + "/" + k.Field
}

// Validate проверяет ключ. Имена таблицы и поля подставляются в SQL, поэтому допускаются
// только идентификаторы из строчных латинских букв, цифр и подчеркивания.
func (k Key) Validate() error {
	if k.Table == "" || k.RecordId == "" || k.Field == "" {
		return apierrors.ErrSessionParamsRequired
	}
	if !identifierRegexp.MatchString(k.Table) {
		return apierrors.ErrInvalidIdentifier.WithFormattedMessage(k.Table)
	}
	if !identifierRegexp.MatchString(k.Field) {
		return apierrors.ErrInvalidIdentifier.WithFormattedMessage(k.Field)
	}
	return nil
}

type Store interface {
	// LoadContent возвращает nil, если содержимого нет ни во внешнем хранилище, ни в поле записи
	LoadContent(ctx context.Context, key Key) (*string, error)
	SaveContent(ctx context.Context, key Key, content string) error
}

type RecordContent struct {
	Id          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	SourceTable string    `json:"source_table" gorm:"uniqueIndex:record_contents_key_idx"`
	RecordId    string    `json:"record_id" gorm:"uniqueIndex:record_contents_key_idx"`
	Field       string    `json:"field" gorm:"uniqueIndex:record_contents_key_idx"`
	Content     string    `json:"content" gorm:"type:text"`
	Size        int       `json:"size"`
}

func (RecordContent) TableName() string { return "record_contents" }

type GormStore struct {
	db *gorm.DB
	// MaxSize ограничивает размер содержимого в байтах, 0 - без ограничения
	MaxSize int
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate создает таблицу record_contents.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&RecordContent{})
}

func (s *GormStore) LoadContent(ctx context.Context, key Key) (*string, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	var rc RecordContent
	err := s.db.WithContext(ctx).
		Where("source_table = ?", key.Table).
		Where("record_id = ?", key.RecordId).
		Where("field = ?", key.Field).
		First(&rc).Error
	if err == nil {
		return &rc.Content, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return s.loadLegacy(ctx, key)
}

// loadLegacy читает содержимое из поля самой записи.
func (s *GormStore) loadLegacy(ctx context.Context, key Key) (*string, error) {
	var value sql.NullString
	err := s.db.WithContext(ctx).
		Table(key.Table).
		Select(key.Field).
		Where("id = ?", key.RecordId).
		Row().
		Scan(&value)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !value.Valid) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value.String, nil
}

func (s *GormStore) SaveContent(ctx context.Context, key Key, content string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if s.MaxSize > 0 && len(content) > s.MaxSize {
		return apierrors.ErrEntityTooLarge
	}
	_, err := saveRecordContent(s.db.WithContext(ctx), key, content, true)
	return err
}

// saveRecordContent записывает содержимое и сообщает, была ли изменена строка.
func saveRecordContent(tx *gorm.DB, key Key, content string, overwrite bool) (bool, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return false, err
	}
	conflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "source_table"}, {Name: "record_id"}, {Name: "field"}},
	}
	if overwrite {
		conflict.DoUpdates = clause.AssignmentColumns([]string{"content", "size", "updated_at"})
	} else {
		conflict.DoNothing = true
	}
	res := tx.Clauses(conflict).Create(&RecordContent{
		Id:          id,
		SourceTable: key.Table,
		RecordId:    key.RecordId,
		Field:       key.Field,
		Content:     content,
		Size:        len(content),
	})
	return res.RowsAffected > 0, res.Error
}
