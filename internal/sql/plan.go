package sql

import "minidb/pkg/types"

// LogicalPlan is a node in the typed logical plan tree the analyzer
// produces from a SelectStmt: a Scan optionally wrapped in a Filter and
// always topped by a Projection.
type LogicalPlan interface {
	// Schema is the row shape this node produces.
	Schema() *types.Schema
	logicalPlanNode()
}

// ScanPlan reads every row of one table.
type ScanPlan struct {
	Table       string
	TableSchema *types.Schema
}

func (p *ScanPlan) Schema() *types.Schema { return p.TableSchema }
func (p *ScanPlan) logicalPlanNode()      {}

// FilterPlan keeps only the rows from Input for which Predicate evaluates
// truthy under three-valued logic (Null and False are both dropped).
type FilterPlan struct {
	Input     LogicalPlan
	Predicate Expr
}

func (p *FilterPlan) Schema() *types.Schema { return p.Input.Schema() }
func (p *FilterPlan) logicalPlanNode()      {}

// ResolvedTarget is one output column of a ProjectionPlan: the expression
// that computes it and the name it is exposed under.
type ResolvedTarget struct {
	Expr Expr
	Name string
}

// ProjectionPlan evaluates Targets against each row from Input.
type ProjectionPlan struct {
	Input        LogicalPlan
	Targets      []ResolvedTarget
	OutputSchema *types.Schema
}

func (p *ProjectionPlan) Schema() *types.Schema { return p.OutputSchema }
func (p *ProjectionPlan) logicalPlanNode()      {}
