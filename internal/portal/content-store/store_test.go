package contentstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aisa-it/portal/portal.go/internal/portal/apierrors"
	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "content.db")), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, NewGormStore(db).Migrate())
	require.NoError(t, db.Exec(`CREATE TABLE tasks (id TEXT PRIMARY KEY, description TEXT)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO tasks (id, description) VALUES
		('1', '{"root":{"type":"root","children":[]}}'),
		('2', NULL),
		('3', ''),
		('4', 'old plain text')`).Error)
	return db
}

func TestKey_Validate(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		err  error
	}{
		{"ok", Key{"tasks", "1", "description"}, nil},
		{"missing record", Key{"tasks", "", "description"}, apierrors.ErrSessionParamsRequired},
		{"injection in table", Key{"tasks; drop table x", "1", "description"}, apierrors.ErrInvalidIdentifier},
		{"quoted field", Key{"tasks", "1", `description"`}, apierrors.ErrInvalidIdentifier},
		{"upper case", Key{"Tasks", "1", "description"}, apierrors.ErrInvalidIdentifier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.key.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestGormStore_LegacyFallback(t *testing.T) {
	s := NewGormStore(openDB(t))
	ctx := context.Background()

	content, err := s.LoadContent(ctx, Key{"tasks", "1", "description"})
	require.NoError(t, err)
	require.NotNil(t, content)
	assert.Contains(t, *content, `"root"`)

	content, err = s.LoadContent(ctx, Key{"tasks", "2", "description"})
	require.NoError(t, err)
	assert.Nil(t, content, "null legacy column")

	content, err = s.LoadContent(ctx, Key{"tasks", "404", "description"})
	require.NoError(t, err)
	assert.Nil(t, content, "missing record")

	_, err = s.LoadContent(ctx, Key{"tasks", "1", "missing_column"})
	assert.Error(t, err)
}

func TestGormStore_SaveOverridesLegacy(t *testing.T) {
	s := NewGormStore(openDB(t))
	ctx := context.Background()
	key := Key{"tasks", "1", "description"}

	require.NoError(t, s.SaveContent(ctx, key, "v1"))
	require.NoError(t, s.SaveContent(ctx, key, "v2"))

	content, err := s.LoadContent(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, content)
	assert.Equal(t, "v2", *content)

	var count int64
	require.NoError(t, s.db.Model(&RecordContent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGormStore_MaxSize(t *testing.T) {
	s := NewGormStore(openDB(t))
	s.MaxSize = 4
	err := s.SaveContent(context.Background(), Key{"tasks", "1", "description"}, "too long")
	assert.ErrorIs(t, err, apierrors.ErrEntityTooLarge)
}

func TestMigrateLegacy(t *testing.T) {
	db := openDB(t)
	s := NewGormStore(db)
	ctx := context.Background()

	// Уже сохраненный документ не перезаписывается
	require.NoError(t, s.SaveContent(ctx, Key{"tasks", "4", "description"}, "new"))

	n, err := MigrateLegacy(ctx, db, []LegacySource{{Table: "tasks", Field: "description"}}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	content, err := s.LoadContent(ctx, Key{"tasks", "4", "description"})
	require.NoError(t, err)
	assert.Equal(t, "new", *content)

	n, err = MigrateLegacy(ctx, db, []LegacySource{{Table: "tasks", Field: "description"}}, 2)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestParseLegacySources(t *testing.T) {
	got, err := ParseLegacySources(" tasks.description, projects.notes ,")
	require.NoError(t, err)
	assert.Equal(t, []LegacySource{{"tasks", "description"}, {"projects", "notes"}}, got)

	_, err = ParseLegacySources("tasks")
	assert.Error(t, err)
	_, err = ParseLegacySources("tasks.desc;drop")
	assert.Error(t, err)
}

type countingStore struct {
	Store
	loads int
}

func (s *countingStore) LoadContent(ctx context.Context, key Key) (*string, error) {
	s.loads++
	return s.Store.LoadContent(ctx, key)
}

func TestCachedStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	backend := &countingStore{Store: NewGormStore(openDB(t))}
	s := NewCachedStore(backend, client, time.Minute)
	ctx := context.Background()
	key := Key{"tasks", "4", "description"}

	for range 3 {
		content, err := s.LoadContent(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "old plain text", *content)
	}
	assert.Equal(t, 1, backend.loads)

	require.NoError(t, s.SaveContent(ctx, key, "saved"))
	content, err := s.LoadContent(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "saved", *content)
	assert.Equal(t, 1, backend.loads)

	mr.FastForward(2 * time.Minute)
	_, err = s.LoadContent(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.loads)

	// Отсутствующее содержимое не кэшируется
	missing := Key{"tasks", "404", "description"}
	for range 2 {
		content, err := s.LoadContent(ctx, missing)
		require.NoError(t, err)
		assert.Nil(t, content)
	}
	assert.Equal(t, 4, backend.loads)
}

func TestCachedStore_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	s := NewCachedStore(NewGormStore(openDB(t)), client, time.Minute)
	mr.Close()

	content, err := s.LoadContent(context.Background(), Key{"tasks", "4", "description"})
	require.NoError(t, err)
	assert.Equal(t, "old plain text", *content)
}
