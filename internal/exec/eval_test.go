package exec

import (
	"testing"

	"minidb/internal/sql"
	"minidb/pkg/types"
)

var emptySchema = &types.Schema{}
var emptyRow = types.Row{}

func lit(v types.Value) sql.Expr { return &sql.LiteralExpr{Value: v} }

func TestEvalArithmeticIntPromotion(t *testing.T) {
	v, err := Eval(&sql.BinaryExpr{Left: lit(types.NewInt(2)), Op: sql.TokenPlus, Right: lit(types.NewFloat(1.5))}, emptySchema, emptyRow)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if v.Type != types.Float64 || v.FltVal != 3.5 {
		t.Errorf("result = %v, want Float64 3.5", v)
	}
}

func TestEvalArithmeticNullPropagates(t *testing.T) {
	v, err := Eval(&sql.BinaryExpr{Left: lit(types.NullValue(types.Int64)), Op: sql.TokenPlus, Right: lit(types.NewInt(1))}, emptySchema, emptyRow)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if !v.IsNull {
		t.Errorf("result = %v, want null", v)
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	_, err := Eval(&sql.BinaryExpr{Left: lit(types.NewInt(1)), Op: sql.TokenSlash, Right: lit(types.NewInt(0))}, emptySchema, emptyRow)
	if err == nil {
		t.Error("expected division by zero error")
	}
}

func TestEvalComparisonNullPropagates(t *testing.T) {
	v, err := Eval(&sql.BinaryExpr{Left: lit(types.NullValue(types.Int64)), Op: sql.TokenEq, Right: lit(types.NewInt(1))}, emptySchema, emptyRow)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if !v.IsNull || v.Type != types.Bool {
		t.Errorf("result = %v, want null bool", v)
	}
}

func TestEvalComparisonFloatEqualityUsesEpsilon(t *testing.T) {
	v, err := Eval(&sql.BinaryExpr{Left: lit(types.NewFloat(0.1 + 0.2)), Op: sql.TokenEq, Right: lit(types.NewFloat(0.3))}, emptySchema, emptyRow)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if v.IsNull || !v.BoolVal {
		t.Errorf("0.1+0.2 = 0.3 within epsilon should be true, got %v", v)
	}

	v, err = Eval(&sql.BinaryExpr{Left: lit(types.NewFloat(1.0)), Op: sql.TokenNe, Right: lit(types.NewFloat(1.0001))}, emptySchema, emptyRow)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if v.IsNull || !v.BoolVal {
		t.Errorf("1.0 != 1.0001 should be true, got %v", v)
	}
}

func TestEvalComparisonTextAndVarCharCoerce(t *testing.T) {
	v, err := Eval(&sql.BinaryExpr{Left: lit(types.NewVarChar("a")), Op: sql.TokenEq, Right: lit(types.NewText("a"))}, emptySchema, emptyRow)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if v.IsNull || !v.BoolVal {
		t.Errorf("result = %v, want true", v)
	}
}

func TestEvalAndShortCircuitsOnFalse(t *testing.T) {
	v, err := Eval(&sql.BinaryExpr{
		Left:  lit(types.NewBool(false)),
		Op:    sql.TokenAnd,
		Right: lit(types.NullValue(types.Bool)),
	}, emptySchema, emptyRow)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if v.IsNull || v.BoolVal {
		t.Errorf("false AND null = %v, want definite false", v)
	}
}

func TestEvalAndNullWhenNeitherFalse(t *testing.T) {
	v, err := Eval(&sql.BinaryExpr{
		Left:  lit(types.NewBool(true)),
		Op:    sql.TokenAnd,
		Right: lit(types.NullValue(types.Bool)),
	}, emptySchema, emptyRow)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if !v.IsNull {
		t.Errorf("true AND null = %v, want null", v)
	}
}

func TestEvalOrShortCircuitsOnTrue(t *testing.T) {
	v, err := Eval(&sql.BinaryExpr{
		Left:  lit(types.NewBool(true)),
		Op:    sql.TokenOr,
		Right: lit(types.NullValue(types.Bool)),
	}, emptySchema, emptyRow)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if v.IsNull || !v.BoolVal {
		t.Errorf("true OR null = %v, want definite true", v)
	}
}

func TestEvalIsNull(t *testing.T) {
	v, err := Eval(&sql.IsExpr{Operand: lit(types.NullValue(types.Int64)), Target: sql.IsNullTarget}, emptySchema, emptyRow)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if v.IsNull || !v.BoolVal {
		t.Errorf("NULL IS NULL = %v, want definite true", v)
	}
}

func TestEvalIsNotTrue(t *testing.T) {
	v, err := Eval(&sql.IsExpr{Operand: lit(types.NewBool(false)), Not: true, Target: sql.IsTrue}, emptySchema, emptyRow)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if v.IsNull || !v.BoolVal {
		t.Errorf("FALSE IS NOT TRUE = %v, want definite true", v)
	}
}

func TestEvalPredicateTreatsNullAsFalse(t *testing.T) {
	ok, err := EvalPredicate(lit(types.NullValue(types.Bool)), emptySchema, emptyRow)
	if err != nil {
		t.Fatalf("EvalPredicate() error = %v", err)
	}
	if ok {
		t.Error("null predicate should be false")
	}
}

func TestEvalPredicateTreatsNonBoolAsFalse(t *testing.T) {
	ok, err := EvalPredicate(lit(types.NewInt(1)), emptySchema, emptyRow)
	if err != nil {
		t.Fatalf("EvalPredicate() error = %v", err)
	}
	if ok {
		t.Error("non-bool predicate should be false")
	}
}
