package exec

import (
	"fmt"

	"minidb/internal/sql"
	"minidb/internal/storage"
)

// Build lowers a logical plan into an executable operator tree. The
// lowering is 1:1: every logical node maps to exactly one physical
// operator.
func Build(plan sql.LogicalPlan, bp *storage.BufferPool) (Executor, error) {
	switch p := plan.(type) {
	case *sql.ScanPlan:
		return NewSeqScanExec(bp, p.Table, p.TableSchema), nil

	case *sql.FilterPlan:
		input, err := Build(p.Input, bp)
		if err != nil {
			return nil, err
		}
		return NewFilterExec(input, p.Predicate), nil

	case *sql.ProjectionPlan:
		input, err := Build(p.Input, bp)
		if err != nil {
			return nil, err
		}
		return NewProjectionExec(input, p.Targets, p.OutputSchema), nil

	default:
		return nil, fmt.Errorf("exec: unknown logical plan node %T", plan)
	}
}
