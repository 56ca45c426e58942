// Package sqlite stores device presets in a SQLite database. A Repository
// satisfies server.Repository, so the development server can keep its
// presets across restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/server"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"
)

// dbRunner abstracts the methods shared by *sql.DB and *sql.Tx, so the same
// code runs inside and outside a transaction.
type dbRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository keeps presets in a single table, one JSON document per row.
type Repository struct {
	db      *sql.DB
	tx      *sql.Tx
	logger  *zap.Logger
	options *Options
}

var _ server.Repository = (*Repository)(nil)

// Open opens (or creates) the database at path and prepares its table.
func Open(ctx context.Context, path string, logger *zap.Logger, options *Options) (*Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}
	r := New(db, logger, options)
	if err := r.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// New wraps an open database. Migrate must be called before use unless the
// table already exists.
func New(db *sql.DB, logger *zap.Logger, options *Options) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options == nil {
		options = DefaultOptions()
	}
	return &Repository{db: db, logger: logger, options: options}
}

// runner returns the active transaction, or the database outside one.
func (r *Repository) runner() dbRunner {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// Migrate creates the presets table.
func (r *Repository) Migrate(ctx context.Context) error {
	ddl := r.CreateTableSQL()
	r.logger.Debug("Executing SQL DDL", zap.String("sql", ddl))
	if _, err := r.runner().ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create presets table: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) List(ctx context.Context) (map[string]preset.RawPreset, error) {
	q := fmt.Sprintf("SELECT id, data FROM %s ORDER BY id;", r.tableName())
	r.logger.Debug("Executing SQL SELECT", zap.String("sql", q))

	rows, err := r.runner().QueryContext(ctx, q)
	if err != nil {
		r.logger.Error("Failed to execute SELECT query", zap.Error(err), zap.String("sql", q))
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	defer rows.Close()

	out := make(map[string]preset.RawPreset)
	for rows.Next() {
		var id string
		var data any
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		raw, err := decode(data)
		if err != nil {
			r.logger.Warn("Skipping unreadable preset", zap.String("preset", id), zap.Error(err))
			continue
		}
		out[id] = raw
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning rows: %w", err)
	}
	return out, nil
}

func (r *Repository) IDs(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf("SELECT id FROM %s ORDER BY id;", r.tableName())
	r.logger.Debug("Executing SQL SELECT", zap.String("sql", q))

	rows, err := r.runner().QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list preset ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (preset.RawPreset, error) {
	q := fmt.Sprintf("SELECT data FROM %s WHERE id = ?;", r.tableName())
	r.logger.Debug("Executing SQL SELECT", zap.String("sql", q), zap.String("id", id))

	var data any
	if err := r.runner().QueryRowContext(ctx, q, id).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return preset.RawPreset{}, fmt.Errorf("%w: %q", server.ErrNotFound, id)
		}
		return preset.RawPreset{}, fmt.Errorf("failed to get preset %q: %w", id, err)
	}
	return decode(data)
}

func (r *Repository) Put(ctx context.Context, id string, raw preset.RawPreset) error {
	data, now, err := encode(raw)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at;`, r.tableName())
	r.logger.Debug("Executing SQL UPSERT", zap.String("sql", q), zap.String("id", id))

	if _, err := r.runner().ExecContext(ctx, q, id, data, now); err != nil {
		r.logger.Error("Failed to execute UPSERT query", zap.Error(err), zap.String("sql", q))
		return fmt.Errorf("failed to store preset %q: %w", id, err)
	}
	return nil
}

func (r *Repository) Create(ctx context.Context, id string, raw preset.RawPreset) error {
	data, now, err := encode(raw)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("INSERT INTO %s (id, data, updated_at) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING;", r.tableName())
	r.logger.Debug("Executing SQL INSERT", zap.String("sql", q), zap.String("id", id))

	res, err := r.runner().ExecContext(ctx, q, id, data, now)
	if err != nil {
		return fmt.Errorf("failed to create preset %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", server.ErrExists, id)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE id = ?;", r.tableName())
	r.logger.Debug("Executing SQL DELETE", zap.String("sql", q), zap.String("id", id))

	res, err := r.runner().ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("failed to delete preset %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", server.ErrNotFound, id)
	}
	return nil
}

// Import stores every preset in one transaction. Existing ids are replaced
// unless skipExisting is set.
func (r *Repository) Import(ctx context.Context, presets map[string]preset.RawPreset, skipExisting bool) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		for id, raw := range presets {
			var err error
			if skipExisting {
				err = tx.Create(ctx, id, raw)
				if errors.Is(err, server.ErrExists) {
					continue
				}
			} else {
				err = tx.Put(ctx, id, raw)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// WithTransaction runs fn with a Repository scoped to a new transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (r *Repository) WithTransaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.tx != nil {
		return fmt.Errorf("cannot start a new transaction from an existing transactional repository")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	r.logger.Debug("Transaction initiated")

	scoped := &Repository{db: r.db, tx: tx, logger: r.logger, options: r.options}
	if err := fn(scoped); err != nil {
		r.logger.Debug("Rolling back transaction", zap.Error(err))
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	r.logger.Debug("Committing transaction")
	return tx.Commit()
}
