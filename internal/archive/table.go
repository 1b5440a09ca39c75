package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
)

// table is an in-memory DuckDB table mirrored to a parquet file after every write.
type table struct {
	name       string
	schema     string
	orderBy    string
	outputPath string

	db *sql.DB
	sq squirrel.StatementBuilderType
	mu sync.Mutex
}

func newTable(name, schema, orderBy, outputPath string) *table {
	return &table{
		name:       name,
		schema:     schema,
		orderBy:    orderBy,
		outputPath: outputPath,
		sq:         squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

// open creates the table and loads rows from an existing parquet file at the output path.
func (t *table) open() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(t.outputPath), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeArchiveFailed, "failed to create data directory", err)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeArchiveFailed, "failed to open DuckDB connection", err)
	}

	if _, err := db.Exec(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.name, t.schema)); err != nil {
		db.Close()

		return errors.Wrapf(errors.ErrCodeArchiveFailed, err, "failed to create %s table", t.name)
	}

	if _, err := os.Stat(t.outputPath); err == nil {
		load := fmt.Sprintf("INSERT INTO %s SELECT * FROM read_parquet(%s)", t.name, quote(t.outputPath))
		if _, err := db.Exec(load); err != nil {
			db.Close()

			return errors.Wrapf(errors.ErrCodeArchiveFailed, err, "failed to load %s", t.outputPath)
		}
	}

	t.db = db

	return nil
}

// exec runs an insert and exports the table.
func (t *table) exec(insert squirrel.InsertBuilder) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.db == nil {
		return errors.Newf(errors.ErrCodeArchiveFailed, "%s archive not open", t.name)
	}

	if _, err := insert.RunWith(t.db).Exec(); err != nil {
		return errors.Wrapf(errors.ErrCodeArchiveFailed, err, "failed to write %s row", t.name)
	}

	return t.exportLocked()
}

// query runs fn with the table locked and open.
func (t *table) query(fn func(db *sql.DB) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.db == nil {
		return errors.Newf(errors.ErrCodeQueryFailed, "%s archive not open", t.name)
	}

	return fn(t.db)
}

func (t *table) count() (int, error) {
	var count int

	err := t.query(func(db *sql.DB) error {
		return t.sq.Select("COUNT(*)").From(t.name).RunWith(db).QueryRow().Scan(&count)
	})
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to count %s", t.name)
	}

	return count, nil
}

func (t *table) sum(column string) (float64, error) {
	var total sql.NullFloat64

	err := t.query(func(db *sql.DB) error {
		return t.sq.Select(fmt.Sprintf("SUM(%s)", column)).From(t.name).RunWith(db).QueryRow().Scan(&total)
	})
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to sum %s.%s", t.name, column)
	}

	if !total.Valid {
		return 0, nil
	}

	return total.Float64, nil
}

func (t *table) flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.db == nil {
		return errors.Newf(errors.ErrCodeArchiveFailed, "%s archive not open", t.name)
	}

	return t.exportLocked()
}

func (t *table) exportLocked() error {
	export := fmt.Sprintf("COPY (SELECT * FROM %s ORDER BY %s) TO %s (FORMAT PARQUET)",
		t.name, t.orderBy, quote(t.outputPath))
	if _, err := t.db.Exec(export); err != nil {
		return errors.Wrapf(errors.ErrCodeArchiveFailed, err, "failed to export %s to parquet", t.name)
	}

	return nil
}

func (t *table) close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.db == nil {
		return nil
	}

	err := t.db.Close()
	t.db = nil

	if err != nil {
		return errors.Wrapf(errors.ErrCodeArchiveFailed, err, "failed to close %s archive", t.name)
	}

	return nil
}

func quote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", "''") + "'"
}
