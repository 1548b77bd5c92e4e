package sql

import (
	"fmt"

	"minidb/internal/catalog"
	"minidb/pkg/types"
)

// Analyzer resolves column references against the catalog, checks
// expression types, and lowers a parsed statement into a typed
// LogicalPlan.
type Analyzer struct {
	cat *catalog.Catalog
}

// NewAnalyzer creates an analyzer backed by cat.
func NewAnalyzer(cat *catalog.Catalog) *Analyzer {
	return &Analyzer{cat: cat}
}

// AnalyzeSelect resolves stmt into a logical plan, or an error describing
// the unknown column, type mismatch, or unknown table.
func (a *Analyzer) AnalyzeSelect(stmt *SelectStmt) (LogicalPlan, error) {
	table, err := a.cat.Get(stmt.Table)
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", stmt.Table, err)
	}

	var plan LogicalPlan = &ScanPlan{Table: stmt.Table, TableSchema: table.Schema}

	if stmt.Where != nil {
		dt, _, err := a.resolveExpr(stmt.Where, table.Schema)
		if err != nil {
			return nil, err
		}
		if dt != types.Bool {
			return nil, fmt.Errorf("WHERE clause must be boolean, got %s", dt)
		}
		plan = &FilterPlan{Input: plan, Predicate: stmt.Where}
	}

	targets, outSchema, err := a.resolveTargets(stmt.Targets, table.Schema)
	if err != nil {
		return nil, err
	}
	outSchema.TableName = table.Schema.TableName

	return &ProjectionPlan{Input: plan, Targets: targets, OutputSchema: outSchema}, nil
}

// AnalyzeCreateTable validates stmt's column list (no duplicate names,
// VarChar columns carry a size, no Timestamp columns) and builds the
// resulting schema.
func (a *Analyzer) AnalyzeCreateTable(stmt *CreateTableStmt) (*types.Schema, error) {
	seen := make(map[string]bool, len(stmt.Columns))
	cols := make([]types.Column, 0, len(stmt.Columns))

	for _, c := range stmt.Columns {
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if c.Type == types.VarChar && c.MaxBytes == 0 {
			return nil, fmt.Errorf("column %q: VARCHAR requires a size", c.Name)
		}
		if c.Type == types.Timestamp {
			return nil, fmt.Errorf("column %q: TIMESTAMP is not implemented", c.Name)
		}
		cols = append(cols, types.Column{
			Name:     c.Name,
			Type:     c.Type,
			Nullable: c.Nullable,
			MaxBytes: c.MaxBytes,
		})
	}

	return &types.Schema{TableName: stmt.Table, Columns: cols}, nil
}

// resolveExpr type-checks expr against schema, recording each IdentExpr's
// column index, and returns the expression's result type and nullability.
func (a *Analyzer) resolveExpr(expr Expr, schema *types.Schema) (types.DataType, bool, error) {
	switch e := expr.(type) {
	case *LiteralExpr:
		if e.Value.IsNull {
			return 0, false, fmt.Errorf("NULL cannot be used in this context")
		}
		return e.Value.Type, false, nil

	case *IdentExpr:
		idx := schema.ColumnIndex(e.Name)
		if idx < 0 {
			return 0, false, fmt.Errorf("unknown column %q", e.Name)
		}
		e.ResolvedIndex = idx
		col := schema.Columns[idx]
		return col.Type, col.Nullable, nil

	case *BinaryExpr:
		return a.resolveBinary(e, schema)

	case *IsExpr:
		if _, _, err := a.resolveExpr(e.Operand, schema); err != nil {
			return 0, false, err
		}
		// IS [NOT] (TRUE|FALSE|NULL) is always a definite, non-nullable bool.
		return types.Bool, false, nil

	default:
		return 0, false, fmt.Errorf("unsupported expression %T", expr)
	}
}

func (a *Analyzer) resolveBinary(e *BinaryExpr, schema *types.Schema) (types.DataType, bool, error) {
	lt, lnull, err := a.resolveExpr(e.Left, schema)
	if err != nil {
		return 0, false, err
	}
	rt, rnull, err := a.resolveExpr(e.Right, schema)
	if err != nil {
		return 0, false, err
	}
	nullable := lnull || rnull

	switch e.Op {
	case TokenAnd, TokenOr:
		if lt != types.Bool || rt != types.Bool {
			return 0, false, fmt.Errorf("%s requires boolean operands, got %s and %s", e.Op, lt, rt)
		}
		return types.Bool, nullable, nil

	case TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe:
		if !comparableTypes(lt, rt) {
			return 0, false, fmt.Errorf("cannot compare %s and %s", lt, rt)
		}
		return types.Bool, nullable, nil

	case TokenPlus, TokenMinus, TokenStar, TokenSlash:
		if !lt.IsNumeric() || !rt.IsNumeric() {
			return 0, false, fmt.Errorf("arithmetic requires numeric operands, got %s and %s", lt, rt)
		}
		result := types.Int64
		if lt == types.Float64 || rt == types.Float64 {
			result = types.Float64
		}
		return result, nullable, nil

	default:
		return 0, false, fmt.Errorf("unsupported operator %s", e.Op)
	}
}

// comparableTypes reports whether two operand types may be compared:
// numeric-with-numeric (Int64/Float64 coerce), text-with-text
// (Text/VarChar coerce), or an exact match otherwise.
func comparableTypes(a, b types.DataType) bool {
	if a.IsNumeric() && b.IsNumeric() {
		return true
	}
	if a.IsText() && b.IsText() {
		return true
	}
	return a == b
}

// resolveTargets expands '*' and resolves every expression target,
// returning the resolved targets in order alongside the resulting output
// schema.
func (a *Analyzer) resolveTargets(targets []TargetItem, schema *types.Schema) ([]ResolvedTarget, *types.Schema, error) {
	var resolved []ResolvedTarget
	var cols []types.Column

	for _, t := range targets {
		if t.Star {
			for i, col := range schema.Columns {
				resolved = append(resolved, ResolvedTarget{
					Expr: &IdentExpr{Name: col.Name, ResolvedIndex: i},
					Name: col.Name,
				})
				cols = append(cols, col)
			}
			continue
		}

		dt, nullable, err := a.resolveExpr(t.Expr, schema)
		if err != nil {
			return nil, nil, err
		}

		name := t.Alias
		if name == "" {
			if ident, ok := t.Expr.(*IdentExpr); ok {
				name = ident.Name
			} else {
				name = "?column?"
			}
		}

		resolved = append(resolved, ResolvedTarget{Expr: t.Expr, Name: name})
		cols = append(cols, types.Column{Name: name, Type: dt, Nullable: nullable})
	}

	return resolved, &types.Schema{Columns: cols}, nil
}
