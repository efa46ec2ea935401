package contentstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const DefaultMigrationWorkers = 4

// LegacySource - поле записи, в котором хранилось содержимое документа до появления record_contents.
type LegacySource struct {
	Table string
	Field string
}

// ParseLegacySources разбирает список вида "tasks.description,projects.notes".
func ParseLegacySources(raw string) ([]LegacySource, error) {
	var res []LegacySource
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		table, field, ok := strings.Cut(item, ".")
		src := LegacySource{Table: table, Field: field}
		if !ok {
			return nil, fmt.Errorf("legacy source %q: expected table.field", item)
		}
		if err := (Key{Table: table, RecordId: "-", Field: field}).Validate(); err != nil {
			return nil, fmt.Errorf("legacy source %q: %w", item, err)
		}
		res = append(res, src)
	}
	return res, nil
}

// MigrateLegacy переносит непустое содержимое из полей записей в record_contents. Уже перенесенные
// документы не перезаписываются. Возвращает число перенесенных документов.
func MigrateLegacy(ctx context.Context, db *gorm.DB, sources []LegacySource, workers int) (int, error) {
	if workers <= 0 {
		workers = DefaultMigrationWorkers
	}
	start := time.Now()

	var migrated atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, src := range sources {
		keys, contents, err := pendingLegacy(gctx, db, src)
		if err != nil {
			g.Wait()
			return int(migrated.Load()), fmt.Errorf("select legacy %s.%s: %w", src.Table, src.Field, err)
		}
		for i := range keys {
			key, content := keys[i], contents[i]
			g.Go(func() error {
				created, err := saveRecordContent(db.WithContext(gctx), key, content, false)
				if err != nil {
					return fmt.Errorf("migrate %s: %w", key, err)
				}
				if created {
					migrated.Add(1)
				}
				return nil
			})
		}
	}

	err := g.Wait()
	slog.Info("Legacy editor content migration", "migrated", migrated.Load(), "sources", len(sources), "elapsed", time.Since(start).String(), "err", err)
	return int(migrated.Load()), err
}

func pendingLegacy(ctx context.Context, db *gorm.DB, src LegacySource) ([]Key, []string, error) {
	query := fmt.Sprintf(`SELECT CAST(t.id AS TEXT), t.%[2]s FROM %[1]s t
WHERE t.%[2]s IS NOT NULL AND t.%[2]s <> ''
AND NOT EXISTS (
	SELECT 1 FROM record_contents rc
	WHERE rc.source_table = ? AND rc.record_id = CAST(t.id AS TEXT) AND rc.field = ?
)`, quoteIdent(src.Table), quoteIdent(src.Field))

	rows, err := db.WithContext(ctx).Raw(query, src.Table, src.Field).Rows()
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var keys []Key
	var contents []string
	for rows.Next() {
		var id string
		var content sql.NullString
		if err := rows.Scan(&id, &content); err != nil {
			return nil, nil, err
		}
		keys = append(keys, Key{Table: src.Table, RecordId: id, Field: src.Field})
		contents = append(contents, content.String)
	}
	return keys, contents, rows.Err()
}

// quoteIdent экранирует уже проверенный Key.Validate идентификатор.
func quoteIdent(name string) string {
	return `"` + name + `"`
}
