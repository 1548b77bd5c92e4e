// Package engine provides the embeddable database façade: a single
// entry point that turns SQL text and typed rows into catalog and
// storage operations.
package engine

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"minidb/internal/catalog"
	"minidb/internal/exec"
	"minidb/internal/sql"
	"minidb/internal/storage"
	"minidb/pkg/types"
)

// Config holds engine configuration.
type Config struct {
	// DataDir is where each table's heap file is kept, one
	// <DataDir>/<table>.table file per table. Created if missing.
	DataDir string
}

// Engine owns the catalog and buffer pool for one database directory.
// Tables are not persisted across restarts: only row data on disk
// survives, the schema registry is rebuilt by replaying CREATE TABLE
// statements.
type Engine struct {
	id      uuid.UUID
	dataDir string
	bp      *storage.BufferPool
	cat     *catalog.Catalog
}

// New creates an engine rooted at cfg.DataDir.
func New(cfg Config) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("minidb: create data directory: %w", err)
	}

	return &Engine{
		id:      uuid.New(),
		dataDir: cfg.DataDir,
		bp:      storage.NewBufferPool(cfg.DataDir),
		cat:     catalog.New(),
	}, nil
}

// CreateTable parses a single CREATE TABLE statement and registers its
// schema in the catalog.
func (e *Engine) CreateTable(stmtText string) error {
	stmt, err := sql.NewParser(stmtText).Parse()
	if err != nil {
		return e.wrapf(err)
	}
	ct, ok := stmt.(*sql.CreateTableStmt)
	if !ok {
		return e.wrapf(fmt.Errorf("expected a CREATE TABLE statement"))
	}

	schema, err := sql.NewAnalyzer(e.cat).AnalyzeCreateTable(ct)
	if err != nil {
		return e.wrapf(err)
	}
	e.cat.CreateTable(ct.Table, schema)
	return nil
}

// DropTable removes table from the catalog. Its heap file, if any, is
// left on disk.
func (e *Engine) DropTable(table string) error {
	if err := e.cat.DropTable(table); err != nil {
		return e.wrapf(err)
	}
	return nil
}

// InsertRow validates row against table's schema and appends it to the
// table's heap.
func (e *Engine) InsertRow(table string, row types.Row) error {
	t, err := e.cat.Get(table)
	if err != nil {
		return e.wrapf(err)
	}
	if err := t.Schema.Validate(row); err != nil {
		return e.wrapf(err)
	}

	data, err := storage.EncodeRow(t.Schema, row)
	if err != nil {
		return e.wrapf(err)
	}
	page, err := e.bp.GetFreePage(table, len(data))
	if err != nil {
		return e.wrapf(err)
	}
	if _, err := page.AddData(data); err != nil {
		return e.wrapf(err)
	}
	if err := e.bp.SavePage(table, page.PageID()); err != nil {
		return e.wrapf(err)
	}
	return nil
}

// GetRows returns every live row of table, in heap order.
func (e *Engine) GetRows(table string) ([]types.Row, error) {
	t, err := e.cat.Get(table)
	if err != nil {
		return nil, e.wrapf(err)
	}

	scan := exec.NewSeqScanExec(e.bp, table, t.Schema)
	var rows []types.Row
	for {
		row, err := scan.Next()
		if err == exec.ErrDone {
			break
		}
		if err != nil {
			return nil, e.wrapf(err)
		}
		rows = append(rows, *row)
	}
	return rows, nil
}

// ExecuteQuery parses, analyzes, plans, and runs a SELECT statement,
// returning the shape and contents of its result set.
func (e *Engine) ExecuteQuery(query string) (*types.Schema, []types.Row, error) {
	stmt, err := sql.NewParser(query).Parse()
	if err != nil {
		return nil, nil, e.wrapf(err)
	}
	sel, ok := stmt.(*sql.SelectStmt)
	if !ok {
		return nil, nil, e.wrapf(fmt.Errorf("expected a SELECT statement"))
	}

	plan, err := sql.NewAnalyzer(e.cat).AnalyzeSelect(sel)
	if err != nil {
		return nil, nil, e.wrapf(err)
	}
	physical, err := exec.Build(plan, e.bp)
	if err != nil {
		return nil, nil, e.wrapf(err)
	}

	var rows []types.Row
	for {
		row, err := physical.Next()
		if err == exec.ErrDone {
			break
		}
		if err != nil {
			return nil, nil, e.wrapf(err)
		}
		rows = append(rows, *row)
	}
	return physical.Schema(), rows, nil
}

// TableNames returns every table currently registered in the catalog.
func (e *Engine) TableNames() []string {
	return e.cat.TableNames()
}

// Close releases every backing file the engine has opened.
func (e *Engine) Close() error {
	return e.bp.Close()
}

// wrapf stamps err with the engine's instance id, distinguishing errors
// from multiple Engine instances opened in the same process.
func (e *Engine) wrapf(err error) error {
	return fmt.Errorf("minidb[%s]: %w", e.id, err)
}
