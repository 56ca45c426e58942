package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asaidimu/go-presets/core/preset"
	"github.com/goccy/go-json"
)

// Options configures a Repository.
type Options struct {
	// TablePrefix is prepended to the presets table name.
	TablePrefix string
	// IfNotExists makes table creation a no-op when the table is present.
	IfNotExists bool
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() *Options {
	return &Options{IfNotExists: true}
}

// quoteIdentifier quotes a table or column name.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (r *Repository) tableName() string {
	return quoteIdentifier(r.options.TablePrefix + "presets")
}

// CreateTableSQL returns the DDL of the presets table.
func (r *Repository) CreateTableSQL() string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if r.options.IfNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(r.tableName())
	sb.WriteString(" (\n")
	sb.WriteString("    \"id\" TEXT PRIMARY KEY,\n")
	sb.WriteString("    \"data\" TEXT NOT NULL,\n")
	sb.WriteString("    \"updated_at\" INTEGER\n")
	sb.WriteString(");")
	return sb.String()
}

// TableExists reports whether the presets table is present.
func (r *Repository) TableExists(ctx context.Context) (bool, error) {
	var name string
	err := r.runner().QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?;",
		r.options.TablePrefix+"presets").Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// encode turns a preset into the stored row values.
func encode(raw preset.RawPreset) (string, int64, error) {
	if raw.Scenes == nil {
		raw.Scenes = []preset.Scene{}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode preset: %w", err)
	}
	return string(data), time.Now().UnixMilli(), nil
}

// decode reads the data column of a row. The driver may hand back TEXT as
// either string or []byte.
func decode(val any) (preset.RawPreset, error) {
	var data []byte
	switch v := val.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return preset.RawPreset{}, fmt.Errorf("unexpected data column type %T", val)
	}

	var raw preset.RawPreset
	if err := json.Unmarshal(data, &raw); err != nil {
		return preset.RawPreset{}, fmt.Errorf("failed to decode preset: %w", err)
	}
	if raw.Scenes == nil {
		raw.Scenes = []preset.Scene{}
	}
	return raw, nil
}
