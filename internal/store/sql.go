package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/tagzilla/internal/common"
	"github.com/dmitrijs2005/tagzilla/internal/dbx"
	"github.com/dmitrijs2005/tagzilla/internal/store/migrations"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

// RunMigrations applies the embedded migrations for the given dialect.
func RunMigrations(ctx context.Context, db *sql.DB, dialect dbx.Dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect.GooseDialect()); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// SQLBackend keeps all collections in two generic tables, records and
// record_indexes. Unique indexes are enforced by a partial unique index as
// well as by an explicit check inside the write transaction.
type SQLBackend struct {
	db      *sql.DB
	dialect dbx.Dialect

	mu      sync.RWMutex
	schemas map[string]Schema

	skipMigrations bool
}

func NewSQLBackend(db *sql.DB, dialect dbx.Dialect) *SQLBackend {
	return &SQLBackend{db: db, dialect: dialect, schemas: map[string]Schema{}}
}

// OpenSQLite opens an embedded database file (or ":memory:").
func OpenSQLite(dsn string) (*SQLBackend, error) {
	db, err := sql.Open(dbx.DialectSQLite.DriverName(), dsn)
	if err != nil {
		return nil, err
	}
	// single writer keeps SQLite from returning SQLITE_BUSY and makes
	// ":memory:" one database
	db.SetMaxOpenConns(1)
	return NewSQLBackend(db, dbx.DialectSQLite), nil
}

// OpenPostgres opens a PostgreSQL database through pgx.
func OpenPostgres(dsn string) (*SQLBackend, error) {
	db, err := sql.Open(dbx.DialectPostgres.DriverName(), dsn)
	if err != nil {
		return nil, err
	}
	return NewSQLBackend(db, dbx.DialectPostgres), nil
}

func (b *SQLBackend) Name() string { return string(b.dialect) }

func (b *SQLBackend) q(query string) string { return dbx.Rebind(b.dialect, query) }

func (b *SQLBackend) Init(ctx context.Context, schemas []Schema) error {
	if err := b.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	if !b.skipMigrations {
		if err := RunMigrations(ctx, b.db, b.dialect); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}

	err := dbx.WithTx(ctx, b.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, sc := range schemas {
			idx, err := json.Marshal(sc.Indexes)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, b.q(`
				INSERT INTO collections (name, indexes) VALUES (?, ?)
				ON CONFLICT(name) DO UPDATE SET indexes = excluded.indexes`), sc.Name, string(idx))
			if err != nil {
				return fmt.Errorf("register collection %s: %w", sc.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sc := range schemas {
		b.schemas[sc.Name] = sc
	}
	return nil
}

func (b *SQLBackend) schema(collection string) Schema {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.schemas[collection]
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}

func (b *SQLBackend) checkUnique(ctx context.Context, tx dbx.DBTX, collection string, rec Record) error {
	for _, name := range b.schema(collection).uniqueIndexes() {
		value := rec.Indexes[name]
		if value == "" {
			continue
		}
		var owner string
		err := tx.QueryRowContext(ctx, b.q(`
			SELECT record_id FROM record_indexes
			WHERE collection = ? AND index_name = ? AND value = ? AND is_unique = 1 AND record_id <> ?`),
			collection, name, value, rec.Key).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s %q already taken", common.ErrConflict, name, value)
	}
	return nil
}

func (b *SQLBackend) writeIndexes(ctx context.Context, tx dbx.DBTX, collection string, rec Record) error {
	sc := b.schema(collection)

	names := make([]string, 0, len(rec.Indexes))
	for name := range rec.Indexes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := rec.Indexes[name]
		if value == "" {
			continue
		}
		idx, _ := sc.index(name)
		unique := 0
		if idx.Unique {
			unique = 1
		}
		_, err := tx.ExecContext(ctx, b.q(`
			INSERT INTO record_indexes (collection, record_id, index_name, value, is_unique)
			VALUES (?, ?, ?, ?, ?)`), collection, rec.Key, name, value, unique)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s %q already taken", common.ErrConflict, name, value)
			}
			return err
		}
	}
	return nil
}

func encodeIndexes(idx map[string]string) (string, error) {
	clean := make(map[string]string, len(idx))
	for k, v := range idx {
		if v != "" {
			clean[k] = v
		}
	}
	b, err := json.Marshal(clean)
	return string(b), err
}

func (b *SQLBackend) Insert(ctx context.Context, collection string, rec Record) error {
	indexes, err := encodeIndexes(rec.Indexes)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, b.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var exists int
		err := tx.QueryRowContext(ctx, b.q(`SELECT 1 FROM records WHERE collection = ? AND id = ?`),
			collection, rec.Key).Scan(&exists)
		if err == nil {
			return fmt.Errorf("%w: key %q exists", common.ErrConflict, rec.Key)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if err := b.checkUnique(ctx, tx, collection, rec); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, b.q(`INSERT INTO records (collection, id, body, indexes) VALUES (?, ?, ?, ?)`),
			collection, rec.Key, string(rec.Data), indexes)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: key %q exists", common.ErrConflict, rec.Key)
			}
			return err
		}

		return b.writeIndexes(ctx, tx, collection, rec)
	})
}

func (b *SQLBackend) Upsert(ctx context.Context, collection string, rec Record) error {
	indexes, err := encodeIndexes(rec.Indexes)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, b.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := b.checkUnique(ctx, tx, collection, rec); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, b.q(`
			INSERT INTO records (collection, id, body, indexes) VALUES (?, ?, ?, ?)
			ON CONFLICT(collection, id) DO UPDATE SET body = excluded.body, indexes = excluded.indexes`),
			collection, rec.Key, string(rec.Data), indexes)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, b.q(`DELETE FROM record_indexes WHERE collection = ? AND record_id = ?`),
			collection, rec.Key)
		if err != nil {
			return err
		}

		return b.writeIndexes(ctx, tx, collection, rec)
	})
}

func scanRecord(scan func(dest ...any) error) (Record, error) {
	var (
		rec     Record
		body    string
		indexes string
	)
	if err := scan(&rec.Key, &body, &indexes); err != nil {
		return Record{}, err
	}
	rec.Data = json.RawMessage(body)
	if indexes != "" {
		if err := json.Unmarshal([]byte(indexes), &rec.Indexes); err != nil {
			return Record{}, fmt.Errorf("decode indexes of %s: %w", rec.Key, err)
		}
	}
	return rec, nil
}

func (b *SQLBackend) Get(ctx context.Context, collection, key string) (Record, error) {
	row := b.db.QueryRowContext(ctx, b.q(`SELECT id, body, indexes FROM records WHERE collection = ? AND id = ?`),
		collection, key)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, common.ErrNotFound
	}
	return rec, err
}

func (b *SQLBackend) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := b.db.QueryContext(ctx, b.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (b *SQLBackend) FindByIndex(ctx context.Context, collection, index, value string) ([]Record, error) {
	return b.query(ctx, `
		SELECT r.id, r.body, r.indexes FROM records r
		JOIN record_indexes i ON i.collection = r.collection AND i.record_id = r.id
		WHERE i.collection = ? AND i.index_name = ? AND i.value = ?
		ORDER BY r.id`, collection, index, value)
}

func (b *SQLBackend) List(ctx context.Context, collection string) ([]Record, error) {
	return b.query(ctx, `SELECT id, body, indexes FROM records WHERE collection = ? ORDER BY id`, collection)
}

func (b *SQLBackend) Delete(ctx context.Context, collection, key string) error {
	return dbx.WithTx(ctx, b.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, b.q(`DELETE FROM record_indexes WHERE collection = ? AND record_id = ?`),
			collection, key); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, b.q(`DELETE FROM records WHERE collection = ? AND id = ?`), collection, key)
		return err
	})
}

func (b *SQLBackend) Close() error {
	return b.db.Close()
}
