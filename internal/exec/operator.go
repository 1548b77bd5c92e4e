// Package exec implements the physical query executor: a Volcano-style
// pull-based operator tree lowered 1:1 from a sql.LogicalPlan.
package exec

import (
	"errors"

	"minidb/internal/sql"
	"minidb/internal/storage"
	"minidb/pkg/types"
)

// ErrDone is returned by Next when an operator has no more rows.
var ErrDone = errors.New("exec: no more rows")

// Executor is one node of the physical plan tree.
type Executor interface {
	// Schema is the row shape this operator produces.
	Schema() *types.Schema
	// Next returns the next row, or ErrDone once exhausted.
	Next() (*types.Row, error)
	Close() error
}

// SeqScanExec walks a table's pages in page_id order and, within each
// page, its item pointers in slot order, skipping tombstoned items.
type SeqScanExec struct {
	bp     *storage.BufferPool
	table  string
	schema *types.Schema

	started    bool
	pageCount  uint32
	nextPageID types.PageID
	page       *storage.Page
	items      []storage.ItemPointer
	slot       int
}

// NewSeqScanExec creates a sequential scan over table, whose rows are
// decoded according to schema.
func NewSeqScanExec(bp *storage.BufferPool, table string, schema *types.Schema) *SeqScanExec {
	return &SeqScanExec{bp: bp, table: table, schema: schema}
}

func (s *SeqScanExec) Schema() *types.Schema { return s.schema }

func (s *SeqScanExec) Next() (*types.Row, error) {
	if !s.started {
		n, err := s.bp.PageCount(s.table)
		if err != nil {
			return nil, err
		}
		s.pageCount = n
		s.started = true
	}

	for {
		if s.page == nil || s.slot >= len(s.items) {
			if s.nextPageID >= types.PageID(s.pageCount) {
				return nil, ErrDone
			}
			page, err := s.bp.GetPage(s.table, s.nextPageID)
			if err != nil {
				return nil, err
			}
			s.page = page
			s.items = page.IterItemPointers()
			s.slot = 0
			s.nextPageID++
			continue
		}

		ptr := s.items[s.slot]
		s.slot++
		if ptr.Deleted {
			continue
		}
		data, err := s.page.GetItem(ptr.ID)
		if err != nil {
			return nil, err
		}
		row, err := storage.DecodeRow(s.schema, data)
		if err != nil {
			return nil, err
		}
		return &row, nil
	}
}

func (s *SeqScanExec) Close() error { return nil }

// FilterExec drops rows from Input whose predicate does not evaluate to a
// definite true under three-valued logic.
type FilterExec struct {
	input     Executor
	predicate sql.Expr
}

// NewFilterExec wraps input, keeping only rows matching predicate.
func NewFilterExec(input Executor, predicate sql.Expr) *FilterExec {
	return &FilterExec{input: input, predicate: predicate}
}

func (f *FilterExec) Schema() *types.Schema { return f.input.Schema() }

func (f *FilterExec) Next() (*types.Row, error) {
	for {
		row, err := f.input.Next()
		if err != nil {
			return nil, err
		}
		ok, err := EvalPredicate(f.predicate, f.input.Schema(), *row)
		if err != nil {
			return nil, err
		}
		if ok {
			return row, nil
		}
	}
}

func (f *FilterExec) Close() error { return f.input.Close() }

// ProjectionExec evaluates a fixed list of target expressions against each
// row from Input.
type ProjectionExec struct {
	input   Executor
	targets []sql.ResolvedTarget
	schema  *types.Schema
}

// NewProjectionExec wraps input, evaluating targets per row into rows
// shaped like schema.
func NewProjectionExec(input Executor, targets []sql.ResolvedTarget, schema *types.Schema) *ProjectionExec {
	return &ProjectionExec{input: input, targets: targets, schema: schema}
}

func (p *ProjectionExec) Schema() *types.Schema { return p.schema }

func (p *ProjectionExec) Next() (*types.Row, error) {
	row, err := p.input.Next()
	if err != nil {
		return nil, err
	}
	values := make([]types.Value, len(p.targets))
	for i, target := range p.targets {
		v, err := Eval(target.Expr, p.input.Schema(), *row)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return &types.Row{Values: values}, nil
}

func (p *ProjectionExec) Close() error { return p.input.Close() }
