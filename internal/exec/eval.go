package exec

import (
	"fmt"
	"math"

	"minidb/internal/sql"
	"minidb/pkg/types"
)

// Eval evaluates expr against row (typed by schema) in value mode,
// returning a Value that may itself be Null.
func Eval(expr sql.Expr, schema *types.Schema, row types.Row) (types.Value, error) {
	switch e := expr.(type) {
	case *sql.LiteralExpr:
		return e.Value, nil

	case *sql.IdentExpr:
		if e.ResolvedIndex < 0 || e.ResolvedIndex >= len(row.Values) {
			return types.Value{}, fmt.Errorf("exec: column %q not resolved", e.Name)
		}
		return row.Values[e.ResolvedIndex], nil

	case *sql.BinaryExpr:
		return evalBinary(e, schema, row)

	case *sql.IsExpr:
		return evalIs(e, schema, row)

	default:
		return types.Value{}, fmt.Errorf("exec: unsupported expression %T", expr)
	}
}

// EvalPredicate evaluates expr in predicate mode: Null and any non-Bool
// result are both treated as false, matching SQL's three-valued WHERE
// semantics (only a definite true keeps a row).
func EvalPredicate(expr sql.Expr, schema *types.Schema, row types.Row) (bool, error) {
	v, err := Eval(expr, schema, row)
	if err != nil {
		return false, err
	}
	if v.IsNull || v.Type != types.Bool {
		return false, nil
	}
	return v.BoolVal, nil
}

func evalBinary(e *sql.BinaryExpr, schema *types.Schema, row types.Row) (types.Value, error) {
	switch e.Op {
	case sql.TokenAnd:
		return evalAnd(e, schema, row)
	case sql.TokenOr:
		return evalOr(e, schema, row)
	}

	lv, err := Eval(e.Left, schema, row)
	if err != nil {
		return types.Value{}, err
	}
	rv, err := Eval(e.Right, schema, row)
	if err != nil {
		return types.Value{}, err
	}

	switch e.Op {
	case sql.TokenEq, sql.TokenNe, sql.TokenLt, sql.TokenLe, sql.TokenGt, sql.TokenGe:
		return evalComparison(e.Op, lv, rv)
	case sql.TokenPlus, sql.TokenMinus, sql.TokenStar, sql.TokenSlash:
		return evalArithmetic(e.Op, lv, rv)
	default:
		return types.Value{}, fmt.Errorf("exec: unsupported operator %s", e.Op)
	}
}

// evalAnd/evalOr implement short-circuiting three-valued logic: a definite
// False (for AND) or True (for OR) on either side settles the result
// without needing the other operand to be non-null.
func evalAnd(e *sql.BinaryExpr, schema *types.Schema, row types.Row) (types.Value, error) {
	lv, err := Eval(e.Left, schema, row)
	if err != nil {
		return types.Value{}, err
	}
	if isBoolFalse(lv) {
		return types.NewBool(false), nil
	}
	rv, err := Eval(e.Right, schema, row)
	if err != nil {
		return types.Value{}, err
	}
	if isBoolFalse(rv) {
		return types.NewBool(false), nil
	}
	if lv.IsNull || rv.IsNull {
		return types.NullValue(types.Bool), nil
	}
	return types.NewBool(true), nil
}

func evalOr(e *sql.BinaryExpr, schema *types.Schema, row types.Row) (types.Value, error) {
	lv, err := Eval(e.Left, schema, row)
	if err != nil {
		return types.Value{}, err
	}
	if isBoolTrue(lv) {
		return types.NewBool(true), nil
	}
	rv, err := Eval(e.Right, schema, row)
	if err != nil {
		return types.Value{}, err
	}
	if isBoolTrue(rv) {
		return types.NewBool(true), nil
	}
	if lv.IsNull || rv.IsNull {
		return types.NullValue(types.Bool), nil
	}
	return types.NewBool(false), nil
}

func isBoolTrue(v types.Value) bool  { return !v.IsNull && v.Type == types.Bool && v.BoolVal }
func isBoolFalse(v types.Value) bool { return !v.IsNull && v.Type == types.Bool && !v.BoolVal }

// floatEpsilon is the tolerance used for float equality/inequality, per
// the evaluator's "|a-b| < epsilon" comparator.
const floatEpsilon = 1e-9

// evalComparison compares two non-null-checked operands; a Null operand
// on either side makes the whole comparison Null.
func evalComparison(op sql.TokenType, l, r types.Value) (types.Value, error) {
	if l.IsNull || r.IsNull {
		return types.NullValue(types.Bool), nil
	}

	var result bool
	switch {
	case l.Type.IsNumeric() && r.Type.IsNumeric():
		lf, rf := l.AsFloat(), r.AsFloat()
		isFloatCompare := l.Type == types.Float64 || r.Type == types.Float64
		switch op {
		case sql.TokenEq:
			if isFloatCompare {
				result = math.Abs(lf-rf) < floatEpsilon
			} else {
				result = lf == rf
			}
		case sql.TokenNe:
			if isFloatCompare {
				result = math.Abs(lf-rf) >= floatEpsilon
			} else {
				result = lf != rf
			}
		case sql.TokenLt:
			result = lf < rf
		case sql.TokenLe:
			result = lf <= rf
		case sql.TokenGt:
			result = lf > rf
		case sql.TokenGe:
			result = lf >= rf
		}

	case l.Type.IsText() && r.Type.IsText():
		switch op {
		case sql.TokenEq:
			result = l.StrVal == r.StrVal
		case sql.TokenNe:
			result = l.StrVal != r.StrVal
		case sql.TokenLt:
			result = l.StrVal < r.StrVal
		case sql.TokenLe:
			result = l.StrVal <= r.StrVal
		case sql.TokenGt:
			result = l.StrVal > r.StrVal
		case sql.TokenGe:
			result = l.StrVal >= r.StrVal
		}

	case l.Type == types.Bool && r.Type == types.Bool:
		switch op {
		case sql.TokenEq:
			result = l.BoolVal == r.BoolVal
		case sql.TokenNe:
			result = l.BoolVal != r.BoolVal
		default:
			return types.Value{}, fmt.Errorf("exec: operator %s not defined for bool", op)
		}

	default:
		return types.Value{}, fmt.Errorf("exec: cannot compare %s and %s", l.Type, r.Type)
	}

	return types.NewBool(result), nil
}

// evalArithmetic computes l op r, promoting to Float64 if either operand
// is Float64. A Null operand propagates to a Null result of the promoted
// type.
func evalArithmetic(op sql.TokenType, l, r types.Value) (types.Value, error) {
	resultType := types.Int64
	if l.Type == types.Float64 || r.Type == types.Float64 {
		resultType = types.Float64
	}
	if l.IsNull || r.IsNull {
		return types.NullValue(resultType), nil
	}

	if resultType == types.Float64 {
		lf, rf := l.AsFloat(), r.AsFloat()
		var f float64
		switch op {
		case sql.TokenPlus:
			f = lf + rf
		case sql.TokenMinus:
			f = lf - rf
		case sql.TokenStar:
			f = lf * rf
		case sql.TokenSlash:
			if rf == 0 {
				return types.Value{}, fmt.Errorf("exec: division by zero")
			}
			f = lf / rf
		}
		return types.NewFloat(f), nil
	}

	var i int64
	switch op {
	case sql.TokenPlus:
		i = l.IntVal + r.IntVal
	case sql.TokenMinus:
		i = l.IntVal - r.IntVal
	case sql.TokenStar:
		i = l.IntVal * r.IntVal
	case sql.TokenSlash:
		if r.IntVal == 0 {
			return types.Value{}, fmt.Errorf("exec: division by zero")
		}
		i = l.IntVal / r.IntVal
	}
	return types.NewInt(i), nil
}

func evalIs(e *sql.IsExpr, schema *types.Schema, row types.Row) (types.Value, error) {
	v, err := Eval(e.Operand, schema, row)
	if err != nil {
		return types.Value{}, err
	}

	var result bool
	switch e.Target {
	case sql.IsNullTarget:
		result = v.IsNull
	case sql.IsTrue:
		result = isBoolTrue(v)
	case sql.IsFalse:
		result = isBoolFalse(v)
	}
	if e.Not {
		result = !result
	}
	return types.NewBool(result), nil
}
